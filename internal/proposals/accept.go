package proposals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
)

// SiblingRejectionNote is stored on proposals rejected because another one won.
const SiblingRejectionNote = "Another proposal was accepted"

var errCaseTaken = apperr.BadRequest("A proposal has already been accepted for this case")

// accept assigns the case to the proposal's lawyer.
//
// Only the first step is transactional: with the case row locked, the
// proposal moves to accepted and the case to active with its assignee. Once
// that commits the acceptance stands. Creating the timeline and rejecting the
// other proposals follow, each retried; what still fails is picked up by the
// Reconciler.
func (l *Ledger) accept(ctx context.Context, p *models.Proposal, note string) (*models.Proposal, error) {
	now := l.now()
	var old models.CaseStatus

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs models.Case
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, "id = ?", p.CaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Case not found")
			}
			return err
		}
		if cs.AssignedLawyerID != nil {
			return errCaseTaken
		}
		if !cs.Status.Open() {
			return apperr.BadRequest("Cannot accept a proposal for this case")
		}
		var accepted int64
		if err := tx.Model(&models.Proposal{}).
			Where("case_id = ? AND status = ?", cs.ID, models.ProposalAccepted).
			Count(&accepted).Error; err != nil {
			return err
		}
		if accepted > 0 {
			return errCaseTaken
		}

		updates := map[string]any{"status": models.ProposalAccepted, "responded_at": now}
		if note != "" {
			updates["response_note"] = note
		}
		res := tx.Model(&models.Proposal{}).
			Where("id = ? AND status IN ?", p.ID, openStatuses).
			Updates(updates)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return errCaseTaken
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyResponded
		}

		old = cs.Status
		return tx.Model(&cs).Updates(map[string]any{
			"status":             models.CaseActive,
			"assigned_lawyer_id": p.LawyerID,
			"assigned_at":        now,
		}).Error
	})
	if err != nil {
		return nil, internal(err, "Failed to accept proposal")
	}
	utils.LogCaseHistory(ctx, l.db, p.CaseID, p.ClientID, utils.ActionProposalAccepted, old, models.CaseActive, p.ID.String())

	// The caller may hang up; finish the follow-up steps regardless.
	bg := context.WithoutCancel(ctx)
	_ = l.retry(bg, "init_timeline", p.CaseID, func(ctx context.Context) error {
		_, err := l.timelines.CreateTimeline(ctx, p.CaseID)
		return err
	})
	_ = l.retry(bg, "reject_siblings", p.CaseID, func(ctx context.Context) error {
		_, err := l.rejectSiblings(ctx, p.CaseID, p.ID)
		return err
	})

	return l.reload(ctx, p.ID)
}

// rejectSiblings rejects every open proposal on the case except the winner.
func (l *Ledger) rejectSiblings(ctx context.Context, caseID, winnerID uuid.UUID) (int64, error) {
	res := l.db.WithContext(ctx).Model(&models.Proposal{}).
		Where("case_id = ? AND id <> ? AND status IN ?", caseID, winnerID, openStatuses).
		Updates(map[string]any{
			"status":        models.ProposalRejected,
			"responded_at":  l.now(),
			"response_note": SiblingRejectionNote,
		})
	return res.RowsAffected, res.Error
}

func (l *Ledger) retry(ctx context.Context, step string, caseID uuid.UUID, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= l.attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		l.log.Warn("acceptance step failed",
			zap.String("step", step),
			zap.String("case_id", caseID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == l.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff * time.Duration(attempt)):
		}
	}
	l.log.Error("acceptance step deferred to reconciler",
		zap.String("step", step),
		zap.String("case_id", caseID.String()),
		zap.Error(err),
	)
	return err
}
