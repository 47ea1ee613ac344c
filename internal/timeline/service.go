package timeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aldoetobex/lawmatch-backend/internal/storage"
	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
)

// CaseGate is the slice of the case registry the timeline needs.
type CaseGate interface {
	// CaseRef returns the case or an apperr NotFound.
	CaseRef(ctx context.Context, caseID uuid.UUID) (*models.Case, error)
	// MarkCompleted moves the case to completed once the outcome is recorded.
	MarkCompleted(ctx context.Context, caseID, actorID uuid.UUID) error
	// Record writes a best-effort history entry.
	Record(ctx context.Context, caseID, actorID uuid.UUID, action, reason string)
}

type Service struct {
	store   Store
	cases   CaseGate
	storage storage.Gateway
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, cases CaseGate, gw storage.Gateway, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		cases:   cases,
		storage: gw,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

/* ================================ Views ================================= */

type CaseSummary struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Category         string            `json:"category"`
	Status           models.CaseStatus `json:"status"`
	ClientID         uuid.UUID         `json:"client_id"`
	AssignedLawyerID *uuid.UUID        `json:"assigned_lawyer_id,omitempty"`
}

type PhaseView struct {
	Key       string             `json:"key"`
	Name      string             `json:"name"`
	Status    models.PhaseStatus `json:"status"`
	Data      *models.PhaseData  `json:"data,omitempty"`
	SubPhases []models.SubPhase  `json:"sub_phases,omitempty"`
}

// View is the timeline as rendered to clients and lawyers.
type View struct {
	Case         CaseSummary `json:"case"`
	Progress     int         `json:"progress"`
	CurrentPhase string      `json:"current_phase,omitempty"`
	Phases       []PhaseView `json:"phases"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SubPhaseResult is returned after a court-hearing session was recorded.
type SubPhaseResult struct {
	SubPhase       models.SubPhase `json:"sub_phase"`
	TotalSubPhases int             `json:"total_sub_phases"`
	Progress       int             `json:"progress"`
}

func newView(c *models.Case, t *models.Timeline) *View {
	v := &View{
		Case: CaseSummary{
			ID:               c.ID,
			Title:            c.Title,
			Category:         c.Category,
			Status:           c.Status,
			ClientID:         c.ClientID,
			AssignedLawyerID: c.AssignedLawyerID,
		},
		Progress:  t.Progress(),
		Phases:    make([]PhaseView, 0, models.PhaseCount),
		UpdatedAt: t.UpdatedAt,
	}
	if p, ok := t.ActivePhase(); ok {
		v.CurrentPhase = p.Slug()
	}
	for _, p := range models.Phases {
		pv := PhaseView{Key: p.Slug(), Name: p.Name(), Status: t.Status(p)}
		if rec := t.Record(p); rec != nil {
			pv.Data = rec.Data
		} else {
			pv.SubPhases = t.SubPhases
			if pv.SubPhases == nil {
				pv.SubPhases = []models.SubPhase{}
			}
		}
		v.Phases = append(v.Phases, pv)
	}
	return v
}

/* ============================== Operations ============================== */

// CreateTimeline returns the case's timeline, creating the initial one if
// needed. Safe to call repeatedly.
func (s *Service) CreateTimeline(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	t, err := s.store.Get(ctx, caseID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTimelineNotFound) {
		return nil, err
	}
	if _, err := s.cases.CaseRef(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, caseID)
}

// GetTimeline returns the timeline to the owning client or the assigned lawyer.
func (s *Service) GetTimeline(ctx context.Context, caseID uuid.UUID, actor models.Actor) (*View, error) {
	c, err := s.cases.CaseRef(ctx, caseID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleClient:
		if c.ClientID != actor.ID {
			return nil, apperr.Forbidden("You can only view timeline for your own cases")
		}
	case models.RoleLawyer:
		if !c.IsAssignedTo(actor.ID) {
			return nil, apperr.Forbidden("You can only view timeline for cases assigned to you")
		}
	default:
		return nil, apperr.Forbidden("Invalid role for this operation")
	}

	t, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return newView(c, t), nil
}

// SubmitPhase completes one of the data-carrying phases. Files are uploaded
// first; if the timeline write is rejected they are deleted again.
func (s *Service) SubmitPhase(
	ctx context.Context,
	caseID uuid.UUID,
	sub Submission,
	files []storage.Object,
	lawyerID uuid.UUID,
) (*View, error) {
	c, err := s.cases.CaseRef(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsAssignedTo(lawyerID) {
		return nil, apperr.Forbidden("Only the assigned lawyer can submit phase data")
	}
	p := sub.Phase()

	// Fail fast on an obviously stale request before paying for uploads. The
	// store re-checks everything when it writes.
	current, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := complete(current, p, nil); err != nil {
		return nil, err
	}

	docs, err := s.upload(ctx, caseID, p.Slug(), files)
	if err != nil {
		return nil, err
	}

	data := &models.PhaseData{
		Documents:   docs,
		Remarks:     sub.remarks(),
		SubmittedAt: s.now(),
		SubmittedBy: lawyerID,
	}
	if o, ok := sub.(OutcomeSubmission); ok {
		data.Outcome = o.Outcome
	}

	t, err := s.store.CompletePhase(ctx, caseID, p, data)
	if err != nil {
		s.log.Warn("phase submission rejected, rolling back uploads",
			zap.String("case_id", caseID.String()),
			zap.String("phase", p.Slug()),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		storage.DeleteAll(ctx, s.storage, s.log, docs)
		return nil, internalUnlessTyped(err)
	}

	s.cases.Record(ctx, caseID, lawyerID, utils.ActionPhaseSubmitted, p.Slug())

	if p == models.PhaseOutcome {
		if err := s.cases.MarkCompleted(ctx, caseID, lawyerID); err != nil {
			// The outcome is recorded; the reconciler closes the case later.
			s.log.Error("mark case completed",
				zap.String("case_id", caseID.String()),
				zap.Error(err),
			)
		} else {
			c.Status = models.CaseCompleted
		}
	}
	return newView(c, t), nil
}

// AddCourtHearingSubPhase appends one hearing session while phase 4 is ongoing.
func (s *Service) AddCourtHearingSubPhase(
	ctx context.Context,
	caseID uuid.UUID,
	in SubPhaseInput,
	files []storage.Object,
	lawyerID uuid.UUID,
) (*SubPhaseResult, error) {
	c, err := s.cases.CaseRef(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsAssignedTo(lawyerID) {
		return nil, apperr.Forbidden("Only the assigned lawyer can add court hearing subphases")
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}

	current, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if current.CourtHearing.Status != models.PhaseOngoing {
		return nil, ErrCourtHearingNotOngoing
	}

	docs, err := s.upload(ctx, caseID, models.PhaseCourtHearing.Slug(), files)
	if err != nil {
		return nil, err
	}

	t, err := s.store.AppendSubPhase(ctx, caseID, models.SubPhase{
		Name:        in.Name,
		Documents:   docs,
		Remarks:     in.Remarks,
		SubmittedAt: s.now(),
		SubmittedBy: lawyerID,
	})
	if err != nil {
		s.log.Warn("sub-phase rejected, rolling back uploads",
			zap.String("case_id", caseID.String()),
			zap.String("phase", models.PhaseCourtHearing.Slug()),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
		storage.DeleteAll(ctx, s.storage, s.log, docs)
		return nil, internalUnlessTyped(err)
	}

	s.cases.Record(ctx, caseID, lawyerID, utils.ActionSubPhaseAdded, in.Name)

	return &SubPhaseResult{
		SubPhase:       t.SubPhases[len(t.SubPhases)-1],
		TotalSubPhases: len(t.SubPhases),
		Progress:       t.Progress(),
	}, nil
}

// CompleteCourtHearing closes phase 4 and opens the outcome phase.
func (s *Service) CompleteCourtHearing(ctx context.Context, caseID, lawyerID uuid.UUID) (*View, error) {
	c, err := s.cases.CaseRef(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsAssignedTo(lawyerID) {
		return nil, apperr.Forbidden("Only the assigned lawyer can complete court hearing phase")
	}

	current, err := s.store.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if current.CourtHearing.Status != models.PhaseOngoing {
		return nil, ErrCourtHearingNotComplete
	}
	if current.CourtHearing.SubPhaseCount == 0 {
		return nil, ErrNoSubPhases
	}

	t, err := s.store.CompletePhase(ctx, caseID, models.PhaseCourtHearing, nil)
	if err != nil {
		return nil, internalUnlessTyped(err)
	}
	s.cases.Record(ctx, caseID, lawyerID, utils.ActionPhaseSubmitted, models.PhaseCourtHearing.Slug())
	return newView(c, t), nil
}

func (s *Service) upload(ctx context.Context, caseID uuid.UUID, phase string, files []storage.Object) ([]models.Document, error) {
	folder := "cases/" + caseID.String() + "/" + phase
	for i := range files {
		files[i].Folder = folder
	}
	docs, err := storage.UploadAll(ctx, s.storage, s.log, files)
	if err != nil {
		return nil, apperr.Internal("Failed to upload documents", err)
	}
	return docs, nil
}

func internalUnlessTyped(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal("Failed to update timeline", err)
}
