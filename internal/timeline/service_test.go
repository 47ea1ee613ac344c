package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldoetobex/lawmatch-backend/internal/storage"
	"github.com/aldoetobex/lawmatch-backend/internal/storage/mocks"
	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

/* ============================ Test doubles ============================== */

// memStore applies the state machine under a mutex, which gives the same
// all-or-nothing behaviour as the conditional writes of the real stores.
type memStore struct {
	mu        sync.Mutex
	timelines map[uuid.UUID]*models.Timeline
	failNext  error
}

func newMemStore() *memStore {
	return &memStore{timelines: map[uuid.UUID]*models.Timeline{}}
}

func clone(t *models.Timeline) *models.Timeline {
	c := *t
	c.SubPhases = append([]models.SubPhase{}, t.SubPhases...)
	return &c
}

func (m *memStore) Create(_ context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timelines[caseID]; ok {
		return clone(t), nil
	}
	t := models.NewTimeline(caseID)
	t.ID = uuid.New()
	m.timelines[caseID] = t
	return clone(t), nil
}

func (m *memStore) Get(_ context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timelines[caseID]
	if !ok {
		return nil, ErrTimelineNotFound
	}
	return clone(t), nil
}

func (m *memStore) write(caseID uuid.UUID, fn func(t *models.Timeline) error) (*models.Timeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, err
	}
	cur, ok := m.timelines[caseID]
	if !ok {
		return nil, ErrTimelineNotFound
	}
	next := clone(cur)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Version++
	m.timelines[caseID] = next
	return clone(next), nil
}

func (m *memStore) CompletePhase(_ context.Context, caseID uuid.UUID, p models.Phase, data *models.PhaseData) (*models.Timeline, error) {
	return m.write(caseID, func(t *models.Timeline) error { return complete(t, p, data) })
}

func (m *memStore) AppendSubPhase(_ context.Context, caseID uuid.UUID, sp models.SubPhase) (*models.Timeline, error) {
	return m.write(caseID, func(t *models.Timeline) error {
		sp.ID = uuid.New()
		return appendSubPhase(t, &sp)
	})
}

type fakeCases struct {
	mu         sync.Mutex
	cases      map[uuid.UUID]*models.Case
	completed  []uuid.UUID
	history    []string
	failMarkAs error
}

func newFakeCases(cs ...*models.Case) *fakeCases {
	f := &fakeCases{cases: map[uuid.UUID]*models.Case{}}
	for _, c := range cs {
		f.cases[c.ID] = c
	}
	return f
}

func (f *fakeCases) CaseRef(_ context.Context, caseID uuid.UUID) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[caseID]
	if !ok {
		return nil, apperr.NotFound("Case not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCases) MarkCompleted(_ context.Context, caseID, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkAs != nil {
		return f.failMarkAs
	}
	f.cases[caseID].Status = models.CaseCompleted
	f.completed = append(f.completed, caseID)
	return nil
}

func (f *fakeCases) Record(_ context.Context, _, _ uuid.UUID, action, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, action+":"+reason)
}

type fixture struct {
	svc    *Service
	store  *memStore
	cases  *fakeCases
	gw     *mocks.Gateway
	caseID uuid.UUID
	client uuid.UUID
	lawyer uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		gw:     mocks.NewGateway(t),
		caseID: uuid.New(),
		client: uuid.New(),
		lawyer: uuid.New(),
	}
	lawyer := f.lawyer
	f.cases = newFakeCases(&models.Case{
		ID:               f.caseID,
		ClientID:         f.client,
		Title:            "Land dispute",
		Category:         "property",
		Status:           models.CaseActive,
		AssignedLawyerID: &lawyer,
	})
	f.svc = NewService(f.store, f.cases, f.gw, zap.NewNop())
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	_, err := f.svc.CreateTimeline(context.Background(), f.caseID)
	require.NoError(t, err)
	return f
}

// refSeq hands out unique storage refs.
var refSeq atomic.Int64

func okUpload(_ context.Context, obj storage.Object) (storage.Ref, error) {
	id := fmt.Sprintf("ref-%d", refSeq.Add(1))
	return storage.Ref{ID: id, URL: "https://files.test/" + obj.Folder + "/" + id}, nil
}

func pdf(name string) storage.Object {
	return storage.Object{Name: name, ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")}
}

/* ================================ Tests ================================= */

func TestCreateTimeline_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateTimeline(ctx, f.caseID)
	require.NoError(t, err)
	b, err := f.svc.CreateTimeline(ctx, f.caseID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, f.store.timelines, 1)

	_, err = f.svc.CreateTimeline(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubmitPhase_IntakeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("Upload", mock.Anything, mock.Anything).Return(okUpload).Twice()

	sub, err := ParseSubmission("case-intake", "", models.Remarks{LawyerRemarks: "Client interviewed"})
	require.NoError(t, err)
	_, err = f.svc.SubmitPhase(ctx, f.caseID, sub, []storage.Object{pdf("a.pdf"), pdf("b.pdf")}, f.lawyer)
	require.NoError(t, err)

	v, err := f.svc.GetTimeline(ctx, f.caseID, models.Actor{ID: f.client, Role: models.RoleClient})
	require.NoError(t, err)

	assert.Equal(t, 20, v.Progress)
	assert.Equal(t, "case-filed", v.CurrentPhase)
	intake := v.Phases[0]
	assert.Equal(t, models.PhaseCompleted, intake.Status)
	require.NotNil(t, intake.Data)
	assert.Equal(t, "Client interviewed", intake.Data.LawyerRemarks)
	assert.Equal(t, f.lawyer, intake.Data.SubmittedBy)
	require.Len(t, intake.Data.Documents, 2)
	assert.Equal(t, "a.pdf", intake.Data.Documents[0].OriginalName)
	assert.Contains(t, intake.Data.Documents[0].URL, "cases/"+f.caseID.String()+"/case-intake")
	assert.Equal(t, models.PhaseOngoing, v.Phases[1].Status)
	assert.Contains(t, f.cases.history, "phase_submitted:case-intake")
}

func TestSubmitPhase_NotAssigned(t *testing.T) {
	f := newFixture(t)
	sub, _ := ParseSubmission("case-intake", "", models.Remarks{})

	_, err := f.svc.SubmitPhase(context.Background(), f.caseID, sub, []storage.Object{pdf("a.pdf")}, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	f.gw.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestSubmitPhase_WrongPhaseSkipsUpload(t *testing.T) {
	f := newFixture(t)
	sub, _ := ParseSubmission("case-filed", "", models.Remarks{})

	_, err := f.svc.SubmitPhase(context.Background(), f.caseID, sub, []storage.Object{pdf("a.pdf")}, f.lawyer)
	assert.ErrorIs(t, err, ErrPhaseNotOngoing)
	f.gw.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestSubmitPhase_UploadFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.gw.On("Upload", mock.Anything, mock.MatchedBy(func(o storage.Object) bool { return o.Name == "a.pdf" })).
		Return(storage.Ref{ID: "ref-a"}, nil).Once()
	f.gw.On("Upload", mock.Anything, mock.MatchedBy(func(o storage.Object) bool { return o.Name == "b.pdf" })).
		Return(storage.Ref{}, errors.New("quota exceeded")).Once()
	f.gw.On("Delete", mock.Anything, "ref-a").Return(nil).Once()

	sub, _ := ParseSubmission("case-intake", "", models.Remarks{})
	_, err := f.svc.SubmitPhase(context.Background(), f.caseID, sub, []storage.Object{pdf("a.pdf"), pdf("b.pdf")}, f.lawyer)
	assert.True(t, apperr.Is(err, apperr.KindInternal))

	tl, _ := f.store.Get(context.Background(), f.caseID)
	assert.Equal(t, models.PhaseOngoing, tl.Intake.Status)
}

func TestSubmitPhase_StoreFailureDeletesUploads(t *testing.T) {
	f := newFixture(t)
	f.gw.On("Upload", mock.Anything, mock.Anything).Return(storage.Ref{ID: "ref-x"}, nil).Once()
	f.gw.On("Delete", mock.Anything, "ref-x").Return(nil).Once()
	f.store.failNext = errors.New("connection reset")

	sub, _ := ParseSubmission("case-intake", "", models.Remarks{})
	_, err := f.svc.SubmitPhase(context.Background(), f.caseID, sub, []storage.Object{pdf("a.pdf")}, f.lawyer)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestSubmitPhase_ConcurrentSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Both requests must finish uploading before either writes.
	var barrier sync.WaitGroup
	barrier.Add(2)
	f.gw.On("Upload", mock.Anything, mock.Anything).Return(func(ctx context.Context, obj storage.Object) (storage.Ref, error) {
		barrier.Done()
		barrier.Wait()
		return storage.Ref{ID: "ref-" + obj.Name}, nil
	}).Twice()

	var deleted []string
	var delMu sync.Mutex
	f.gw.On("Delete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		delMu.Lock()
		deleted = append(deleted, args.String(1))
		delMu.Unlock()
	}).Return(nil).Once()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, _ := ParseSubmission("case-intake", "", models.Remarks{LawyerRemarks: fmt.Sprint(i)})
			_, errs[i] = f.svc.SubmitPhase(ctx, f.caseID, sub, []storage.Object{pdf(fmt.Sprintf("r%d.pdf", i))}, f.lawyer)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	loser := -1
	for i, err := range errs {
		if err == nil {
			wins++
			continue
		}
		losses++
		loser = i
		assert.True(t, apperr.Is(err, apperr.KindBadRequest), err)
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, losses)
	assert.Equal(t, []string{fmt.Sprintf("ref-r%d.pdf", loser)}, deleted)

	tl, _ := f.store.Get(ctx, f.caseID)
	require.NotNil(t, tl.Intake.Data)
	assert.Equal(t, []models.Document{{
		RefID:        fmt.Sprintf("ref-r%d.pdf", 1-loser),
		OriginalName: fmt.Sprintf("r%d.pdf", 1-loser),
		Size:         4,
		MimeType:     "application/pdf",
	}}, tl.Intake.Data.Documents)
}

func TestCourtHearing_SubPhasesThenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, key := range []string{"case-intake", "case-filed", "trial-preparation"} {
		sub, _ := ParseSubmission(key, "", models.Remarks{})
		_, err := f.svc.SubmitPhase(ctx, f.caseID, sub, nil, f.lawyer)
		require.NoError(t, err)
	}

	_, err := f.svc.CompleteCourtHearing(ctx, f.caseID, f.lawyer)
	assert.ErrorIs(t, err, ErrNoSubPhases)

	_, err = f.svc.AddCourtHearingSubPhase(ctx, f.caseID, SubPhaseInput{Name: "x"}, nil, f.lawyer)
	assert.ErrorIs(t, err, ErrSubPhaseNameLength)

	res, err := f.svc.AddCourtHearingSubPhase(ctx, f.caseID, SubPhaseInput{Name: " First hearing "}, nil, f.lawyer)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalSubPhases)
	assert.Equal(t, 1, res.SubPhase.Seq)
	assert.Equal(t, "First hearing", res.SubPhase.Name)
	assert.Equal(t, 60, res.Progress)

	res, err = f.svc.AddCourtHearingSubPhase(ctx, f.caseID, SubPhaseInput{Name: "Second hearing"}, nil, f.lawyer)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SubPhase.Seq)

	v, err := f.svc.CompleteCourtHearing(ctx, f.caseID, f.lawyer)
	require.NoError(t, err)
	assert.Equal(t, 80, v.Progress)
	assert.Equal(t, "case-outcome", v.CurrentPhase)
	assert.Len(t, v.Phases[3].SubPhases, 2)

	_, err = f.svc.AddCourtHearingSubPhase(ctx, f.caseID, SubPhaseInput{Name: "Late hearing"}, nil, f.lawyer)
	assert.ErrorIs(t, err, ErrCourtHearingNotOngoing)
	_, err = f.svc.CompleteCourtHearing(ctx, f.caseID, f.lawyer)
	assert.ErrorIs(t, err, ErrCourtHearingNotComplete)
}

func TestEndToEnd_OutcomeClosesCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.On("Upload", mock.Anything, mock.Anything).Return(okUpload)

	submit := func(key, outcome string) {
		t.Helper()
		sub, err := ParseSubmission(key, outcome, models.Remarks{JudgeCourtRemarks: key})
		require.NoError(t, err)
		_, err = f.svc.SubmitPhase(ctx, f.caseID, sub, []storage.Object{pdf(key + ".pdf")}, f.lawyer)
		require.NoError(t, err)
	}
	submit("case-intake", "")
	submit("case-filed", "")
	submit("trial-preparation", "")
	_, err := f.svc.AddCourtHearingSubPhase(ctx, f.caseID, SubPhaseInput{Name: "Main hearing"}, []storage.Object{pdf("h.pdf")}, f.lawyer)
	require.NoError(t, err)
	_, err = f.svc.CompleteCourtHearing(ctx, f.caseID, f.lawyer)
	require.NoError(t, err)
	submit("case-outcome", "won")

	v, err := f.svc.GetTimeline(ctx, f.caseID, models.Actor{ID: f.lawyer, Role: models.RoleLawyer})
	require.NoError(t, err)
	assert.Equal(t, 100, v.Progress)
	assert.Empty(t, v.CurrentPhase)
	assert.Equal(t, models.CaseCompleted, v.Case.Status)
	assert.Equal(t, models.OutcomeWon, v.Phases[4].Data.Outcome)
	assert.Equal(t, []uuid.UUID{f.caseID}, f.cases.completed)

	sub, _ := ParseSubmission("case-outcome", "won", models.Remarks{})
	_, err = f.svc.SubmitPhase(ctx, f.caseID, sub, nil, f.lawyer)
	assert.ErrorIs(t, err, ErrPhaseNotOngoing)
}

func TestSubmitOutcome_MarkCompletedFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tl := f.store.timelines[f.caseID]
	for _, p := range models.Phases[:4] {
		tl.SetStatus(p, models.PhaseCompleted)
	}
	tl.Outcome.Status = models.PhaseOngoing
	f.cases.failMarkAs = errors.New("db down")

	sub, _ := ParseSubmission("case-outcome", "dismissed", models.Remarks{})
	v, err := f.svc.SubmitPhase(ctx, f.caseID, sub, nil, f.lawyer)
	require.NoError(t, err)
	assert.Equal(t, 100, v.Progress)
	assert.Equal(t, models.CaseActive, v.Case.Status)
}

func TestGetTimeline_Access(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetTimeline(ctx, f.caseID, models.Actor{ID: uuid.New(), Role: models.RoleClient})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.GetTimeline(ctx, f.caseID, models.Actor{ID: uuid.New(), Role: models.RoleLawyer})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.GetTimeline(ctx, f.caseID, models.Actor{ID: f.client, Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.GetTimeline(ctx, uuid.New(), models.Actor{ID: f.client, Role: models.RoleClient})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	v, err := f.svc.GetTimeline(ctx, f.caseID, models.Actor{ID: f.client, Role: models.RoleClient})
	require.NoError(t, err)
	assert.Len(t, v.Phases, models.PhaseCount)
	assert.Equal(t, "case-intake", v.CurrentPhase)
	assert.Equal(t, 0, v.Progress)
}
