package proposals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
)

type CaseSummary struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	BudgetRange string            `json:"budget_range"`
	Province    string            `json:"province"`
	District    string            `json:"district"`
	Status      models.CaseStatus `json:"status"`
}

type LawyerSummary struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	City              string    `json:"city,omitempty"`
	YearsOfExperience int       `json:"years_of_experience"`
	PracticeAreas     []string  `json:"practice_areas"`
}

type ClientSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// View is a proposal with the counterpart the reader needs: clients see the
// lawyer, lawyers see the client.
type View struct {
	models.Proposal
	Case   *CaseSummary   `json:"case,omitempty"`
	Lawyer *LawyerSummary `json:"lawyer,omitempty"`
	Client *ClientSummary `json:"client,omitempty"`
}

// ListReceived lists proposals on the client's cases, newest first. caseID
// narrows to one case; an unknown status filter is ignored.
func (l *Ledger) ListReceived(ctx context.Context, clientID uuid.UUID, caseID *uuid.UUID, status models.ProposalStatus, p utils.Page) (models.Page[View], error) {
	q := l.db.WithContext(ctx).Model(&models.Proposal{}).Where("client_id = ?", clientID)
	if caseID != nil {
		q = q.Where("case_id = ?", *caseID)
	}
	if status.Valid() {
		q = q.Where("status = ?", status)
	}
	return l.list(q, p, models.RoleClient, "Lawyer.PracticeAreas")
}

// ListSent lists the lawyer's own proposals, newest first.
func (l *Ledger) ListSent(ctx context.Context, lawyerID uuid.UUID, status models.ProposalStatus, p utils.Page) (models.Page[View], error) {
	q := l.db.WithContext(ctx).Model(&models.Proposal{}).Where("lawyer_id = ?", lawyerID)
	if status.Valid() {
		q = q.Where("status = ?", status)
	}
	return l.list(q, p, models.RoleLawyer, "Client")
}

func (l *Ledger) list(q *gorm.DB, p utils.Page, reader models.Role, counterpart string) (models.Page[View], error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.Page[View]{}, apperr.Internal("Failed to list proposals", err)
	}
	var rows []models.Proposal
	if err := q.Preload("Case").Preload(counterpart).Order("created_at DESC").Offset(p.Offset()).Limit(p.Size).Find(&rows).Error; err != nil {
		return models.Page[View]{}, apperr.Internal("Failed to list proposals", err)
	}
	items := make([]View, 0, len(rows))
	for _, row := range rows {
		items = append(items, toView(row, reader))
	}
	return utils.NewPage(p, total, items), nil
}

// Get returns a proposal to its client or its lawyer. A client opening a
// pending proposal marks it viewed.
func (l *Ledger) Get(ctx context.Context, proposalID uuid.UUID, actor models.Actor) (*View, error) {
	var p models.Proposal
	err := l.db.WithContext(ctx).
		Preload("Case").Preload("Lawyer.PracticeAreas").Preload("Client").
		First(&p, "id = ?", proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errProposalNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load proposal", err)
	}

	isClient := actor.Role == models.RoleClient && p.ClientID == actor.ID
	isLawyer := actor.Role == models.RoleLawyer && p.LawyerID == actor.ID
	if !isClient && !isLawyer {
		return nil, apperr.Unauthorized("You do not have permission to view this proposal")
	}

	if isClient && p.Status == models.ProposalPending {
		now := l.now()
		res := l.db.WithContext(ctx).Model(&models.Proposal{}).
			Where("id = ? AND status = ?", p.ID, models.ProposalPending).
			Updates(map[string]any{"status": models.ProposalViewed, "viewed_at": now})
		switch {
		case res.Error != nil:
			l.log.Warn("mark proposal viewed", zap.String("proposal_id", p.ID.String()), zap.Error(res.Error))
		case res.RowsAffected > 0:
			p.Status = models.ProposalViewed
			p.ViewedAt = &now
		}
	}

	v := toView(p, actor.Role)
	return &v, nil
}

func toView(p models.Proposal, reader models.Role) View {
	v := View{Proposal: p}
	if cs := p.Case; cs != nil {
		v.Case = &CaseSummary{
			ID:          cs.ID,
			Title:       cs.Title,
			Category:    cs.Category,
			BudgetRange: cs.BudgetRange,
			Province:    cs.Province,
			District:    cs.District,
			Status:      cs.Status,
		}
	}
	switch reader {
	case models.RoleClient:
		if u := p.Lawyer; u != nil {
			areas := make([]string, 0, len(u.PracticeAreas))
			for _, a := range u.PracticeAreas {
				areas = append(areas, a.Area)
			}
			v.Lawyer = &LawyerSummary{
				ID:                u.ID,
				Name:              u.Name,
				City:              u.City,
				YearsOfExperience: u.YearsOfExperience,
				PracticeAreas:     areas,
			}
		}
	case models.RoleLawyer:
		if u := p.Client; u != nil {
			v.Client = &ClientSummary{ID: u.ID, Name: u.Name}
		}
	}
	return v
}
