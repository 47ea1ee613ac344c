// Package invitations tracks which lawyers a client asked to look at a case.
package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/sanitize"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
)

// previewLen bounds the anonymised description shown to invited lawyers.
const previewLen = 240

var (
	errInvitationNotFound = apperr.NotFound("Invitation not found")
	errAlreadyResponded   = apperr.BadRequest("Invitation has already been responded to")
	errInvalidStatus      = apperr.BadRequest("Invalid invitation status")
)

type Ledger struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewLedger(db *gorm.DB, log *zap.Logger) *Ledger {
	return &Ledger{db: db, log: log, now: time.Now}
}

type InviteResult struct {
	Invited int    `json:"invited"`
	Skipped int    `json:"skipped"`
	Message string `json:"message"`
}

// CasePreview is what an invited lawyer sees before opening the case.
type CasePreview struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	Category      string            `json:"category"`
	BudgetRange   string            `json:"budget_range"`
	Province      string            `json:"province"`
	District      string            `json:"district"`
	Court         string            `json:"court,omitempty"`
	Urgency       models.Urgency    `json:"urgency"`
	Status        models.CaseStatus `json:"status"`
	ProposalCount int               `json:"proposal_count"`
	Preview       string            `json:"preview"`
	CreatedAt     time.Time         `json:"created_at"`
}

type ReceivedItem struct {
	models.Invitation
	Case CasePreview `json:"case"`
}

// Invite creates one invitation per valid lawyer. Lawyers already invited are
// skipped; invitationCount grows by the number actually created.
func (l *Ledger) Invite(ctx context.Context, caseID uuid.UUID, lawyerIDs []uuid.UUID, clientID uuid.UUID) (*InviteResult, error) {
	res := &InviteResult{}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs models.Case
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Case not found")
			}
			return err
		}
		if cs.ClientID != clientID {
			return apperr.Forbidden("You do not have permission to invite lawyers to this case")
		}
		if !cs.Status.Open() {
			return apperr.BadRequest("Cannot invite lawyers to this case")
		}

		var valid []uuid.UUID
		if ids := dedupe(lawyerIDs); len(ids) > 0 {
			// Soft-deleted users are excluded by the model's default scope.
			if err := tx.Model(&models.User{}).
				Where("id IN ? AND role = ? AND account_status = ?", ids, models.RoleLawyer, models.AccountVerified).
				Order("id").
				Pluck("id", &valid).Error; err != nil {
				return err
			}
		}
		if len(valid) == 0 {
			return apperr.BadRequest("No valid lawyers found to invite")
		}

		for _, lawyerID := range valid {
			inv := models.Invitation{
				CaseID:   caseID,
				LawyerID: lawyerID,
				ClientID: clientID,
				Status:   models.InvitationPending,
			}
			r := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "case_id"}, {Name: "lawyer_id"}},
				DoNothing: true,
			}).Create(&inv)
			if r.Error != nil && !errors.Is(r.Error, gorm.ErrDuplicatedKey) {
				return r.Error
			}
			if r.Error != nil || r.RowsAffected == 0 {
				res.Skipped++
				continue
			}
			res.Invited++
		}

		if res.Invited > 0 {
			if err := tx.Model(&models.Case{}).Where("id = ?", caseID).
				UpdateColumn("invitation_count", gorm.Expr("invitation_count + ?", res.Invited)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, internal(err, "Failed to invite lawyers")
	}

	res.Message = fmt.Sprintf("Successfully invited %d lawyer(s)", res.Invited)
	if res.Invited > 0 {
		utils.LogCaseHistory(ctx, l.db, caseID, clientID, utils.ActionInvited, "", "", res.Message)
	}
	return res, nil
}

// Respond records the lawyer's answer. Only non-terminal invitations can
// change; the status check is part of the UPDATE so concurrent answers
// cannot both land.
func (l *Ledger) Respond(ctx context.Context, invitationID, lawyerID uuid.UUID, status models.InvitationStatus) (*models.Invitation, error) {
	switch status {
	case models.InvitationAccepted, models.InvitationDeclined, models.InvitationViewed:
	default:
		return nil, errInvalidStatus
	}

	inv, err := l.find(ctx, invitationID, lawyerID)
	if err != nil {
		return nil, err
	}
	if inv.Status.Terminal() {
		return nil, errAlreadyResponded
	}

	now := l.now()
	updates := map[string]any{"status": status, "responded_at": now}
	if status == models.InvitationViewed && inv.ViewedAt == nil {
		updates["viewed_at"] = now
	}
	res := l.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND lawyer_id = ? AND status IN ?", invitationID, lawyerID,
			[]models.InvitationStatus{models.InvitationPending, models.InvitationViewed}).
		Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal("Failed to update invitation", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errAlreadyResponded
	}
	return l.find(ctx, invitationID, lawyerID)
}

// MarkViewed moves a pending invitation to viewed. Anything else is left alone.
func (l *Ledger) MarkViewed(ctx context.Context, inv *models.Invitation) error {
	if inv.Status != models.InvitationPending {
		return nil
	}
	now := l.now()
	res := l.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
		Updates(map[string]any{"status": models.InvitationViewed, "viewed_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		inv.Status = models.InvitationViewed
		inv.ViewedAt = &now
	}
	return nil
}

// MarkViewedFor marks the lawyer's invitation to the case viewed, if any.
func (l *Ledger) MarkViewedFor(ctx context.Context, caseID, lawyerID uuid.UUID) error {
	var inv models.Invitation
	err := l.db.WithContext(ctx).Where("case_id = ? AND lawyer_id = ?", caseID, lawyerID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return l.MarkViewed(ctx, &inv)
}

// Get returns one of the lawyer's invitations and marks it viewed.
func (l *Ledger) Get(ctx context.Context, invitationID, lawyerID uuid.UUID) (*ReceivedItem, error) {
	var inv models.Invitation
	err := l.db.WithContext(ctx).Preload("Case").
		Where("id = ? AND lawyer_id = ?", invitationID, lawyerID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvitationNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load invitation", err)
	}
	if err := l.MarkViewed(ctx, &inv); err != nil {
		l.log.Warn("mark invitation viewed", zap.String("invitation_id", inv.ID.String()), zap.Error(err))
	}
	item := toReceived(inv)
	return &item, nil
}

// ListReceived lists the lawyer's invitations newest first. status may be empty.
func (l *Ledger) ListReceived(ctx context.Context, lawyerID uuid.UUID, status models.InvitationStatus, p utils.Page) (models.Page[ReceivedItem], error) {
	q := l.db.WithContext(ctx).Model(&models.Invitation{}).Where("lawyer_id = ?", lawyerID)
	// Unknown filters are ignored rather than rejected.
	if status.Valid() {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[ReceivedItem]{}, apperr.Internal("Failed to list invitations", err)
	}
	var list []models.Invitation
	if err := q.Preload("Case").Order("created_at DESC").Offset(p.Offset()).Limit(p.Size).Find(&list).Error; err != nil {
		return models.Page[ReceivedItem]{}, apperr.Internal("Failed to list invitations", err)
	}

	items := make([]ReceivedItem, 0, len(list))
	for _, inv := range list {
		if inv.Case == nil {
			continue
		}
		items = append(items, toReceived(inv))
	}
	return utils.NewPage(p, total, items), nil
}

func (l *Ledger) find(ctx context.Context, invitationID, lawyerID uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	err := l.db.WithContext(ctx).Where("id = ? AND lawyer_id = ?", invitationID, lawyerID).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvitationNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load invitation", err)
	}
	return &inv, nil
}

func toReceived(inv models.Invitation) ReceivedItem {
	item := ReceivedItem{Invitation: inv}
	if cs := inv.Case; cs != nil {
		item.Case = CasePreview{
			ID:            cs.ID,
			Title:         cs.Title,
			Category:      cs.Category,
			BudgetRange:   cs.BudgetRange,
			Province:      cs.Province,
			District:      cs.District,
			Court:         cs.Court,
			Urgency:       cs.Urgency,
			Status:        cs.Status,
			ProposalCount: cs.ProposalCount,
			Preview:       sanitize.Summary(sanitize.RedactPII(cs.Description), previewLen),
			CreatedAt:     cs.CreatedAt,
		}
	}
	return item
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func internal(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(msg, err)
}
