package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase identifies one of the five fixed stages of a case timeline.
type Phase int

const (
	PhaseIntake Phase = iota + 1
	PhaseFiled
	PhaseTrialPrep
	PhaseCourtHearing
	PhaseOutcome
)

// PhaseCount is the number of phases in every timeline.
const PhaseCount = 5

// Phases lists the phases in their fixed order.
var Phases = [PhaseCount]Phase{PhaseIntake, PhaseFiled, PhaseTrialPrep, PhaseCourtHearing, PhaseOutcome}

var phaseMeta = map[Phase]struct{ slug, name string }{
	PhaseIntake:       {"case-intake", "Case Intake"},
	PhaseFiled:        {"case-filed", "Case Filed"},
	PhaseTrialPrep:    {"trial-preparation", "Trial Preparation"},
	PhaseCourtHearing: {"court-hearing", "Court Hearing"},
	PhaseOutcome:      {"case-outcome", "Case Outcome/Closure"},
}

// Slug is the route key of the phase.
func (p Phase) Slug() string { return phaseMeta[p].slug }

// Name is the display name of the phase.
func (p Phase) Name() string { return phaseMeta[p].name }

func (p Phase) String() string { return p.Slug() }

// Valid reports whether p is one of the five phases.
func (p Phase) Valid() bool { return p >= PhaseIntake && p <= PhaseOutcome }

// Next returns the phase unlocked by completing p, if any.
func (p Phase) Next() (Phase, bool) {
	if !p.Valid() || p == PhaseOutcome {
		return 0, false
	}
	return p + 1, true
}

// PhaseFromSlug resolves a route key such as "case-intake".
func PhaseFromSlug(slug string) (Phase, bool) {
	for _, p := range Phases {
		if p.Slug() == slug {
			return p, true
		}
	}
	return 0, false
}

// PhaseStatus is the state of a single phase.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseOngoing   PhaseStatus = "ongoing"
	PhaseCompleted PhaseStatus = "completed"
)

// Outcome is the final result recorded in the outcome phase.
type Outcome string

const (
	OutcomeWon       Outcome = "won"
	OutcomeSettled   Outcome = "settled"
	OutcomeDismissed Outcome = "dismissed"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWon, OutcomeSettled, OutcomeDismissed:
		return true
	}
	return false
}

// Document references an uploaded file held by the storage gateway.
type Document struct {
	RefID        string `json:"ref_id"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name,omitempty"`
	Size         int64  `json:"size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
}

// Remarks are the free-text notes attached to a submission.
type Remarks struct {
	JudgeCourtRemarks string `json:"judge_court_remarks"`
	LawyerRemarks     string `json:"lawyer_remarks"`
	OpponentRemarks   string `json:"opponent_remarks"`
}

// PhaseData is what a lawyer submitted to complete a phase.
type PhaseData struct {
	Outcome   Outcome    `json:"outcome,omitempty"`
	Documents []Document `json:"documents"`

	Remarks

	SubmittedAt time.Time `json:"submitted_at"`
	SubmittedBy uuid.UUID `json:"submitted_by"`
}

// PhaseRecord is the persisted state of phases 1, 2, 3 and 5.
type PhaseRecord struct {
	Status PhaseStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Data   *PhaseData  `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`
}

// CourtHearingRecord is the persisted state of phase 4. The sub-phases
// themselves live in their own table; SubPhaseCount mirrors their number.
type CourtHearingRecord struct {
	Status        PhaseStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SubPhaseCount int         `gorm:"not null;default:0" json:"sub_phase_count"`
}

// SubPhase is one court-hearing session. Rows are only ever inserted.
type SubPhase struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TimelineID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_sub_phase_seq" json:"-"`
	Seq        int        `gorm:"not null;uniqueIndex:ux_sub_phase_seq" json:"seq"`
	Name       string     `gorm:"not null" json:"name"`
	Documents  []Document `gorm:"type:jsonb;serializer:json" json:"documents"`

	Remarks `gorm:"embedded"`

	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	SubmittedBy uuid.UUID `gorm:"type:uuid;not null" json:"submitted_by"`
}

// TableName keeps sub-phases next to their timeline.
func (SubPhase) TableName() string { return "timeline_sub_phases" }

// Timeline is the per-case phase state machine.
type Timeline struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CaseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"case_id"`

	Intake       PhaseRecord        `gorm:"embedded;embeddedPrefix:intake_" json:"intake"`
	Filed        PhaseRecord        `gorm:"embedded;embeddedPrefix:filed_" json:"filed"`
	TrialPrep    PhaseRecord        `gorm:"embedded;embeddedPrefix:trial_prep_" json:"trial_prep"`
	CourtHearing CourtHearingRecord `gorm:"embedded;embeddedPrefix:court_hearing_" json:"court_hearing"`
	Outcome      PhaseRecord        `gorm:"embedded;embeddedPrefix:outcome_" json:"outcome"`

	SubPhases []SubPhase `gorm:"foreignKey:TimelineID" json:"sub_phases"`

	// Version is bumped on every write and used for compare-and-set.
	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (Timeline) TableName() string { return "case_timelines" }

// NewTimeline returns the initial state: intake ongoing, everything else pending.
func NewTimeline(caseID uuid.UUID) *Timeline {
	return &Timeline{
		CaseID:       caseID,
		Intake:       PhaseRecord{Status: PhaseOngoing},
		Filed:        PhaseRecord{Status: PhasePending},
		TrialPrep:    PhaseRecord{Status: PhasePending},
		CourtHearing: CourtHearingRecord{Status: PhasePending},
		Outcome:      PhaseRecord{Status: PhasePending},
		SubPhases:    []SubPhase{},
		Version:      1,
	}
}

// Status returns the status of phase p.
func (t *Timeline) Status(p Phase) PhaseStatus {
	switch p {
	case PhaseIntake:
		return t.Intake.Status
	case PhaseFiled:
		return t.Filed.Status
	case PhaseTrialPrep:
		return t.TrialPrep.Status
	case PhaseCourtHearing:
		return t.CourtHearing.Status
	case PhaseOutcome:
		return t.Outcome.Status
	}
	return ""
}

// SetStatus overwrites the status of phase p.
func (t *Timeline) SetStatus(p Phase, s PhaseStatus) {
	switch p {
	case PhaseIntake:
		t.Intake.Status = s
	case PhaseFiled:
		t.Filed.Status = s
	case PhaseTrialPrep:
		t.TrialPrep.Status = s
	case PhaseCourtHearing:
		t.CourtHearing.Status = s
	case PhaseOutcome:
		t.Outcome.Status = s
	}
}

// Record returns the data-carrying record of p, or nil for the court hearing.
func (t *Timeline) Record(p Phase) *PhaseRecord {
	switch p {
	case PhaseIntake:
		return &t.Intake
	case PhaseFiled:
		return &t.Filed
	case PhaseTrialPrep:
		return &t.TrialPrep
	case PhaseOutcome:
		return &t.Outcome
	}
	return nil
}

// CompletedCount returns how many phases are completed.
func (t *Timeline) CompletedCount() int {
	n := 0
	for _, p := range Phases {
		if t.Status(p) == PhaseCompleted {
			n++
		}
	}
	return n
}

// Progress is round(100 * completed / 5).
func (t *Timeline) Progress() int {
	return (t.CompletedCount()*100 + PhaseCount/2) / PhaseCount
}

// ActivePhase returns the phase currently ongoing, if any.
func (t *Timeline) ActivePhase() (Phase, bool) {
	for _, p := range Phases {
		if t.Status(p) == PhaseOngoing {
			return p, true
		}
	}
	return 0, false
}
