package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// Case history actions.
const (
	ActionCreated          = "created"
	ActionInvited          = "invited"
	ActionStatusChanged    = "status_changed"
	ActionProposalAccepted = "proposal_accepted"
	ActionPhaseSubmitted   = "phase_submitted"
	ActionSubPhaseAdded    = "sub_phase_added"
	ActionCompleted        = "completed"
)

// LogCaseHistory inserts an audit record into case_histories.
// Errors are ignored (best-effort logging).
func LogCaseHistory(
	ctx context.Context,
	db *gorm.DB,
	caseID, actorID uuid.UUID,
	action string,
	oldS, newS models.CaseStatus,
	reason string,
) {
	_ = db.WithContext(ctx).Create(&models.CaseHistory{
		CaseID:    caseID,
		ActorID:   actorID,
		Action:    action,
		OldStatus: oldS,
		NewStatus: newS,
		Reason:    reason,
		CreatedAt: time.Now(),
	}).Error
}
