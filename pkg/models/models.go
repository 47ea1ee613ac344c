package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleClient Role = "client"
	RoleLawyer Role = "lawyer"
	RoleAdmin  Role = "admin"
)

// AccountStatus is the verification state of a user account.
type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountVerified  AccountStatus = "verified"
	AccountSuspended AccountStatus = "suspended"
	AccountBlocked   AccountStatus = "blocked"
)

// CaseStatus defines lifecycle states for a case.
type CaseStatus string

const (
	CasePending   CaseStatus = "pending"
	CaseActive    CaseStatus = "active"
	CaseAssigned  CaseStatus = "assigned"
	CaseCompleted CaseStatus = "completed"
	CaseCancelled CaseStatus = "cancelled"
)

// Valid reports whether s is one of the declared case statuses.
func (s CaseStatus) Valid() bool {
	switch s {
	case CasePending, CaseActive, CaseAssigned, CaseCompleted, CaseCancelled:
		return true
	}
	return false
}

// Open reports whether the case still accepts invitations and proposals.
func (s CaseStatus) Open() bool { return s == CasePending || s == CaseActive }

// Urgency of a case as declared by the client.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// InvitationStatus defines lifecycle states for an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationViewed   InvitationStatus = "viewed"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationViewed, InvitationAccepted, InvitationDeclined:
		return true
	}
	return false
}

// Terminal reports whether the invitation has been answered.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined
}

// ProposalStatus defines lifecycle states for a proposal.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalViewed    ProposalStatus = "viewed"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalPending, ProposalViewed, ProposalAccepted, ProposalRejected, ProposalWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether the proposal can no longer be answered.
func (s ProposalStatus) Terminal() bool {
	return s != ProposalPending && s != ProposalViewed
}

/* =============================== Entities =============================== */

// User represents a client, lawyer or admin.
type User struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         string        `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string        `gorm:"not null" json:"-"`
	Role          Role          `gorm:"type:varchar(20);not null" json:"role"`
	Name          string        `json:"name"`
	Jurisdiction  string        `json:"jurisdiction,omitempty"`
	BarNumber     string        `json:"bar_number,omitempty"`
	AccountStatus AccountStatus `gorm:"type:varchar(20);default:'pending'" json:"account_status"`

	// Lawyer profile
	City              string         `json:"city,omitempty"`
	YearsOfExperience int            `json:"years_of_experience,omitempty"`
	Bio               string         `gorm:"type:text" json:"bio,omitempty"`
	PracticeAreas     []PracticeArea `gorm:"foreignKey:LawyerID" json:"practice_areas,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PracticeArea is one legal category a lawyer declares to practice.
type PracticeArea struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	LawyerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_lawyer_area" json:"-"`
	Area     string    `gorm:"not null;uniqueIndex:ux_lawyer_area;index" json:"area"`
}

// Case represents a legal case created by a client.
type Case struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_case_client_status" json:"client_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Category    string     `gorm:"not null;index" json:"category"`
	BudgetRange string     `gorm:"type:varchar(20);not null" json:"budget_range"`
	Province    string     `gorm:"not null" json:"province"`
	District    string     `gorm:"not null" json:"district"`
	Court       string     `json:"court,omitempty"`
	Urgency     Urgency    `gorm:"type:varchar(20);default:'medium'" json:"urgency"`
	Status      CaseStatus `gorm:"type:varchar(20);default:'pending';index:idx_case_client_status" json:"status"`

	// Assignment (set when a proposal is accepted)
	AssignedLawyerID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_lawyer_id,omitempty"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`

	// Denormalized counters, only ever changed with atomic increments.
	ProposalCount   int `gorm:"not null;default:0" json:"proposal_count"`
	InvitationCount int `gorm:"not null;default:0" json:"invitation_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAssignedTo reports whether lawyerID is the case's assigned lawyer.
func (c *Case) IsAssignedTo(lawyerID uuid.UUID) bool {
	return c.AssignedLawyerID != nil && *c.AssignedLawyerID == lawyerID
}

// Invitation is a client's request for a lawyer to look at a case.
type Invitation struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CaseID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:ux_invitation_case_lawyer" json:"case_id"`
	LawyerID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:ux_invitation_case_lawyer;index:idx_invitation_lawyer_status" json:"lawyer_id"`
	ClientID    uuid.UUID        `gorm:"type:uuid;not null" json:"client_id"`
	Status      InvitationStatus `gorm:"type:varchar(20);default:'pending';index:idx_invitation_lawyer_status" json:"status"`
	ViewedAt    *time.Time       `json:"viewed_at,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Case *Case `gorm:"foreignKey:CaseID" json:"-"`
}

// FeeStructure is the money part of a proposal. Amounts are whole currency units.
type FeeStructure struct {
	TotalProposedFee    int64  `json:"total_proposed_fee"`
	InitialConsultation int64  `json:"initial_consultation"`
	DocumentationFee    int64  `json:"documentation_fee"`
	CourtFees           int64  `json:"court_fees"`
	AdditionalCosts     int64  `json:"additional_costs"`
	ExpectedDate        string `json:"expected_date"`
}

// Proposal represents a lawyer's offer to handle a case.
type Proposal struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CaseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_proposal_case_lawyer" json:"case_id"`
	LawyerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_proposal_case_lawyer;index" json:"lawyer_id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	FeeStructure       FeeStructure `gorm:"type:jsonb;serializer:json;not null" json:"fee_structure"`
	CaseAssessment     string       `gorm:"type:text;not null" json:"case_assessment"`
	ServicesIncluded   string       `gorm:"type:text" json:"services_included,omitempty"`
	Experience         string       `gorm:"type:text" json:"experience,omitempty"`
	Milestones         string       `gorm:"type:text" json:"milestones,omitempty"`
	TermsAndConditions string       `gorm:"type:text" json:"terms_and_conditions,omitempty"`
	Availability       string       `gorm:"type:text" json:"availability,omitempty"`

	Status       ProposalStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	ViewedAt     *time.Time     `json:"viewed_at,omitempty"`
	RespondedAt  *time.Time     `json:"responded_at,omitempty"`
	ResponseNote string         `gorm:"type:text" json:"response_note,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Case   *Case `gorm:"foreignKey:CaseID" json:"-"`
	Lawyer *User `gorm:"foreignKey:LawyerID" json:"-"`
	Client *User `gorm:"foreignKey:ClientID" json:"-"`
}

// CaseHistory is an audit log entry for important case changes.
type CaseHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID  `gorm:"type:uuid;not null;index"`  // who performed the action (client/lawyer/system)
	Action    string     `gorm:"type:varchar(50);not null"` // e.g. created, invited, proposal_accepted, phase_submitted, completed
	OldStatus CaseStatus `gorm:"type:varchar(20)"`
	NewStatus CaseStatus `gorm:"type:varchar(20)"`
	Reason    string     `gorm:"type:text"` // optional explanation/comment
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
