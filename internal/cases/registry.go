package cases

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
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
)

// listSuggestions is how many lawyers each case carries in list views.
const listSuggestions = 5

var errCaseNotFound = apperr.NotFound("Case not found")

// ViewMarker flips a lawyer's invitation to viewed when they open the case.
type ViewMarker interface {
	MarkViewedFor(ctx context.Context, caseID, lawyerID uuid.UUID) error
}

// Registry owns case records.
type Registry struct {
	db      *gorm.DB
	log     *zap.Logger
	invites ViewMarker
}

func NewRegistry(db *gorm.DB, log *zap.Logger, invites ViewMarker) *Registry {
	return &Registry{db: db, log: log, invites: invites}
}

type CreateInput struct {
	Title       string
	Description string
	Category    string
	BudgetRange string
	Province    string
	District    string
	Court       string
	Urgency     models.Urgency
}

// LawyerSuggestion is a verified lawyer practicing the case category.
type LawyerSuggestion struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Jurisdiction      string    `json:"jurisdiction,omitempty"`
	City              string    `json:"city,omitempty"`
	YearsOfExperience int       `json:"years_of_experience"`
	Category          string    `json:"-"`
}

type CaseListItem struct {
	models.Case
	SuggestedLawyers []LawyerSuggestion `json:"suggested_lawyers"`
}

func (r *Registry) Create(ctx context.Context, clientID uuid.UUID, in CreateInput) (*models.Case, error) {
	urgency := in.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}
	cs := models.Case{
		ClientID:    clientID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		BudgetRange: in.BudgetRange,
		Province:    strings.TrimSpace(in.Province),
		District:    strings.TrimSpace(in.District),
		Court:       strings.TrimSpace(in.Court),
		Urgency:     urgency,
		Status:      models.CasePending,
	}
	if err := r.db.WithContext(ctx).Create(&cs).Error; err != nil {
		return nil, apperr.Internal("Failed to create case", err)
	}
	utils.LogCaseHistory(ctx, r.db, cs.ID, clientID, utils.ActionCreated, "", cs.Status, "")
	return &cs, nil
}

// ListForClient lists the client's cases newest first; an unknown status
// filter is ignored. Suggestions for the whole page come from one query.
func (r *Registry) ListForClient(ctx context.Context, clientID uuid.UUID, status models.CaseStatus, p utils.Page) (models.Page[CaseListItem], error) {
	q := r.db.WithContext(ctx).Model(&models.Case{}).Where("client_id = ?", clientID)
	if status.Valid() {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[CaseListItem]{}, apperr.Internal("Failed to list cases", err)
	}
	var list []models.Case
	if err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.Size).Find(&list).Error; err != nil {
		return models.Page[CaseListItem]{}, apperr.Internal("Failed to list cases", err)
	}

	categories := make([]string, 0, len(list))
	seen := map[string]bool{}
	for _, cs := range list {
		if !seen[cs.Category] {
			seen[cs.Category] = true
			categories = append(categories, cs.Category)
		}
	}
	byCategory, err := r.suggest(ctx, categories, listSuggestions)
	if err != nil {
		return models.Page[CaseListItem]{}, err
	}

	items := make([]CaseListItem, 0, len(list))
	for _, cs := range list {
		sug := byCategory[cs.Category]
		if sug == nil {
			sug = []LawyerSuggestion{}
		}
		items = append(items, CaseListItem{Case: cs, SuggestedLawyers: sug})
	}
	return utils.NewPage(p, total, items), nil
}

// Get returns the case to its owner, to an invited lawyer or to the assignee.
// A lawyer opening the case marks their invitation viewed.
func (r *Registry) Get(ctx context.Context, caseID uuid.UUID, actor models.Actor) (*models.Case, error) {
	cs, err := r.CaseRef(ctx, caseID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleClient:
		if cs.ClientID != actor.ID {
			return nil, apperr.Unauthorized("You do not have permission to view this case")
		}
	case models.RoleLawyer:
		if cs.IsAssignedTo(actor.ID) {
			return cs, nil
		}
		var invited int64
		if err := r.db.WithContext(ctx).Model(&models.Invitation{}).
			Where("case_id = ? AND lawyer_id = ?", caseID, actor.ID).
			Count(&invited).Error; err != nil {
			return nil, apperr.Internal("Failed to load case", err)
		}
		if invited == 0 {
			return nil, apperr.Unauthorized("You do not have permission to view this case")
		}
		if r.invites != nil {
			if err := r.invites.MarkViewedFor(ctx, caseID, actor.ID); err != nil {
				r.log.Warn("mark invitation viewed",
					zap.String("case_id", caseID.String()),
					zap.String("lawyer_id", actor.ID.String()),
					zap.Error(err),
				)
			}
		}
	default:
		return nil, apperr.Forbidden("Invalid role for this operation")
	}
	return cs, nil
}

// UpdateStatus lets the owner move the case to any declared status.
func (r *Registry) UpdateStatus(ctx context.Context, caseID, clientID uuid.UUID, status models.CaseStatus) (*models.Case, error) {
	if !status.Valid() {
		return nil, apperr.BadRequest("Invalid case status")
	}

	var cs models.Case
	var old models.CaseStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND client_id = ?", caseID, clientID).
			First(&cs).Error; err != nil {
			return err
		}
		old = cs.Status
		return tx.Model(&cs).Update("status", status).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCaseNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Failed to update case status", err)
	}
	if old != status {
		utils.LogCaseHistory(ctx, r.db, caseID, clientID, utils.ActionStatusChanged, old, status, "")
	}
	return &cs, nil
}

// SuggestedLawyers lists verified lawyers practicing the case category.
// limit <= 0 means no limit.
func (r *Registry) SuggestedLawyers(ctx context.Context, caseID, clientID uuid.UUID, limit int) ([]LawyerSuggestion, error) {
	cs, err := r.CaseRef(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if cs.ClientID != clientID {
		return nil, apperr.Unauthorized("You do not have permission to access this case")
	}
	byCategory, err := r.suggest(ctx, []string{cs.Category}, limit)
	if err != nil {
		return nil, err
	}
	out := byCategory[cs.Category]
	if out == nil {
		out = []LawyerSuggestion{}
	}
	return out, nil
}

func (r *Registry) suggest(ctx context.Context, categories []string, limit int) (map[string][]LawyerSuggestion, error) {
	out := map[string][]LawyerSuggestion{}
	if len(categories) == 0 {
		return out, nil
	}

	var rows []LawyerSuggestion
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("users.id, users.name, users.jurisdiction, users.city, users.years_of_experience, practice_areas.area AS category").
		Joins("JOIN practice_areas ON practice_areas.lawyer_id = users.id").
		Where("users.role = ? AND users.account_status = ?", models.RoleLawyer, models.AccountVerified).
		Where("practice_areas.area IN ?", categories).
		Order("users.years_of_experience DESC, users.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal("Failed to load suggested lawyers", err)
	}

	for _, row := range rows {
		if limit > 0 && len(out[row.Category]) >= limit {
			continue
		}
		out[row.Category] = append(out[row.Category], row)
	}
	return out, nil
}

/* ========================= Timeline collaborator ======================== */

// CaseRef loads a case by id.
func (r *Registry) CaseRef(ctx context.Context, caseID uuid.UUID) (*models.Case, error) {
	var cs models.Case
	err := r.db.WithContext(ctx).First(&cs, "id = ?", caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCaseNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load case", err)
	}
	return &cs, nil
}

// MarkCompleted closes the case. Completing an already completed case is a no-op.
func (r *Registry) MarkCompleted(ctx context.Context, caseID, actorID uuid.UUID) error {
	var old models.CaseStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cs models.Case
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, "id = ?", caseID).Error; err != nil {
			return err
		}
		old = cs.Status
		if old == models.CaseCompleted {
			return nil
		}
		return tx.Model(&cs).Updates(map[string]any{"status": models.CaseCompleted, "updated_at": time.Now()}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errCaseNotFound
	}
	if err != nil {
		return err
	}
	if old != models.CaseCompleted {
		utils.LogCaseHistory(ctx, r.db, caseID, actorID, utils.ActionCompleted, old, models.CaseCompleted, "")
	}
	return nil
}

// Record writes a history entry without a status change.
func (r *Registry) Record(ctx context.Context, caseID, actorID uuid.UUID, action, reason string) {
	utils.LogCaseHistory(ctx, r.db, caseID, actorID, action, "", "", reason)
}
