// Package proposals holds lawyers' offers on cases and the acceptance flow
// that assigns a case to exactly one lawyer.
package proposals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

var (
	errProposalNotFound  = apperr.NotFound("Proposal not found")
	errAlreadyResponded  = apperr.BadRequest("Proposal has already been responded to")
	errAlreadyWithdrawn  = apperr.BadRequest("Proposal has already been withdrawn")
	errWithdrawAccepted  = apperr.BadRequest("Cannot withdraw an accepted proposal")
	errInvalidAction     = apperr.BadRequest("Please provide a valid action (accept or reject)")
	errDuplicateProposal = apperr.BadRequest("You have already submitted a proposal for this case")
)

// openStatuses are the proposal states a client can still answer.
var openStatuses = []models.ProposalStatus{models.ProposalPending, models.ProposalViewed}

// TimelineInitializer creates a case's timeline. It must be idempotent.
type TimelineInitializer interface {
	CreateTimeline(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error)
}

type Ledger struct {
	db        *gorm.DB
	log       *zap.Logger
	timelines TimelineInitializer
	now       func() time.Time

	// Post-commit acceptance steps are tried this many times, sleeping
	// backoff*attempt in between.
	attempts int
	backoff  time.Duration
}

func NewLedger(db *gorm.DB, log *zap.Logger, timelines TimelineInitializer) *Ledger {
	return &Ledger{
		db:        db,
		log:       log,
		timelines: timelines,
		now:       time.Now,
		attempts:  3,
		backoff:   200 * time.Millisecond,
	}
}

type CreateInput struct {
	CaseID             uuid.UUID
	FeeStructure       models.FeeStructure
	CaseAssessment     string
	ServicesIncluded   string
	Experience         string
	Milestones         string
	TermsAndConditions string
	Availability       string
}

// Create submits the lawyer's proposal. The lawyer must hold a live
// invitation; it is flipped to accepted in the same transaction.
func (l *Ledger) Create(ctx context.Context, lawyerID uuid.UUID, in CreateInput) (*models.Proposal, error) {
	var p models.Proposal
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs models.Case
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, "id = ?", in.CaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Case not found")
			}
			return err
		}
		if !cs.Status.Open() || cs.AssignedLawyerID != nil {
			return apperr.BadRequest("Cannot submit proposal to this case")
		}

		var inv models.Invitation
		err := tx.Where("case_id = ? AND lawyer_id = ? AND status IN ?", cs.ID, lawyerID,
			[]models.InvitationStatus{models.InvitationPending, models.InvitationViewed, models.InvitationAccepted}).
			First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Unauthorized("You must be invited to this case to submit a proposal")
		}
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Proposal{}).
			Where("case_id = ? AND lawyer_id = ?", cs.ID, lawyerID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errDuplicateProposal
		}

		p = models.Proposal{
			CaseID:             cs.ID,
			LawyerID:           lawyerID,
			ClientID:           cs.ClientID,
			FeeStructure:       in.FeeStructure,
			CaseAssessment:     strings.TrimSpace(in.CaseAssessment),
			ServicesIncluded:   strings.TrimSpace(in.ServicesIncluded),
			Experience:         strings.TrimSpace(in.Experience),
			Milestones:         strings.TrimSpace(in.Milestones),
			TermsAndConditions: strings.TrimSpace(in.TermsAndConditions),
			Availability:       strings.TrimSpace(in.Availability),
			Status:             models.ProposalPending,
		}
		if err := tx.Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateProposal
			}
			return err
		}
		if err := tx.Model(&models.Case{}).Where("id = ?", cs.ID).
			UpdateColumn("proposal_count", gorm.Expr("proposal_count + ?", 1)).Error; err != nil {
			return err
		}
		if inv.Status != models.InvitationAccepted {
			return tx.Model(&models.Invitation{}).Where("id = ?", inv.ID).
				Updates(map[string]any{"status": models.InvitationAccepted, "responded_at": l.now()}).Error
		}
		return nil
	})
	if err != nil {
		return nil, internal(err, "Failed to submit proposal")
	}
	return &p, nil
}

// Respond lets the owning client accept or reject a proposal. Accepting runs
// the acceptance flow in accept.go.
func (l *Ledger) Respond(ctx context.Context, proposalID, clientID uuid.UUID, action, note string) (*models.Proposal, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != "accept" && action != "reject" {
		return nil, errInvalidAction
	}

	var p models.Proposal
	err := l.db.WithContext(ctx).Where("id = ? AND client_id = ?", proposalID, clientID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errProposalNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load proposal", err)
	}
	if p.Status.Terminal() {
		return nil, errAlreadyResponded
	}

	note = strings.TrimSpace(note)
	if action == "accept" {
		return l.accept(ctx, &p, note)
	}

	updates := map[string]any{"status": models.ProposalRejected, "responded_at": l.now()}
	if note != "" {
		updates["response_note"] = note
	}
	res := l.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ? AND status IN ?", p.ID, openStatuses).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal("Failed to update proposal", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errAlreadyResponded
	}
	return l.reload(ctx, p.ID)
}

// Withdraw retracts the lawyer's proposal. Anything but an accepted or
// already withdrawn proposal can be withdrawn.
func (l *Ledger) Withdraw(ctx context.Context, proposalID, lawyerID uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND lawyer_id = ?", proposalID, lawyerID).
			First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errProposalNotFound
			}
			return err
		}
		switch p.Status {
		case models.ProposalAccepted:
			return errWithdrawAccepted
		case models.ProposalWithdrawn:
			return errAlreadyWithdrawn
		}

		if err := tx.Model(&p).Update("status", models.ProposalWithdrawn).Error; err != nil {
			return err
		}
		return tx.Model(&models.Case{}).Where("id = ?", p.CaseID).
			UpdateColumn("proposal_count", gorm.Expr("proposal_count - ?", 1)).Error
	})
	if err != nil {
		return nil, internal(err, "Failed to withdraw proposal")
	}
	return &p, nil
}

func (l *Ledger) reload(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	if err := l.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, apperr.Internal("Failed to load proposal", err)
	}
	return &p, nil
}

func internal(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(msg, err)
}
