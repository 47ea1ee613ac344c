package proposals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// reconcileBatch is how many assigned cases are loaded per query.
const reconcileBatch = 100

// CaseCloser marks a case completed. Completing a completed case is a no-op.
type CaseCloser interface {
	MarkCompleted(ctx context.Context, caseID, actorID uuid.UUID) error
}

// Reconciler finishes acceptances whose follow-up steps failed: it makes sure
// every assigned case has a timeline, rejects proposals left open next to an
// accepted one, and closes cases whose outcome phase is done.
type Reconciler struct {
	ledger   *Ledger
	cases    CaseCloser
	log      *zap.Logger
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
}

type Report struct {
	Checked   int   `json:"checked"`
	Failed    int   `json:"failed"`
	Rejected  int64 `json:"rejected"`
	Completed int   `json:"completed"`
}

func NewReconciler(ledger *Ledger, cases CaseCloser, log *zap.Logger, schedule string) *Reconciler {
	cl := cronLogger{log.Sugar()}
	return &Reconciler{
		ledger:   ledger,
		cases:    cases,
		log:      log,
		schedule: schedule,
		timeout:  5 * time.Minute,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers the job and starts the scheduler.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.run); err != nil {
		return fmt.Errorf("register reconcile job %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.log.Info("acceptance reconciler started", zap.String("schedule", r.schedule))
	return nil
}

// Stop waits for a running job to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("acceptance reconciler stopped")
}

func (r *Reconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	rep, err := r.RunOnce(ctx)
	if err != nil {
		r.log.Error("reconcile run failed", zap.Error(err))
		return
	}
	r.log.Info("reconcile run finished",
		zap.Int("checked", rep.Checked),
		zap.Int("failed", rep.Failed),
		zap.Int64("rejected", rep.Rejected),
		zap.Int("completed", rep.Completed),
	)
}

// RunOnce performs one reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var rep Report
	db := r.ledger.db.WithContext(ctx)

	winners := db.Model(&models.Proposal{}).Select("case_id").Where("status = ?", models.ProposalAccepted)
	res := db.Model(&models.Proposal{}).
		Where("status IN ? AND case_id IN (?)", openStatuses, winners).
		Updates(map[string]any{
			"status":        models.ProposalRejected,
			"responded_at":  r.ledger.now(),
			"response_note": SiblingRejectionNote,
		})
	if res.Error != nil {
		return rep, fmt.Errorf("reject leftover proposals: %w", res.Error)
	}
	rep.Rejected = res.RowsAffected

	var batch []models.Case
	err := db.Where("assigned_lawyer_id IS NOT NULL AND status IN ?",
		[]models.CaseStatus{models.CaseActive, models.CaseAssigned}).
		FindInBatches(&batch, reconcileBatch, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				r.reconcileCase(ctx, &batch[i], &rep)
			}
			return ctx.Err()
		}).Error
	if err != nil {
		return rep, fmt.Errorf("scan assigned cases: %w", err)
	}
	return rep, nil
}

func (r *Reconciler) reconcileCase(ctx context.Context, cs *models.Case, rep *Report) {
	rep.Checked++
	tl, err := r.ledger.timelines.CreateTimeline(ctx, cs.ID)
	if err != nil {
		rep.Failed++
		r.log.Warn("ensure timeline", zap.String("case_id", cs.ID.String()), zap.Error(err))
		return
	}
	if tl.Status(models.PhaseOutcome) != models.PhaseCompleted {
		return
	}
	if err := r.cases.MarkCompleted(ctx, cs.ID, *cs.AssignedLawyerID); err != nil {
		rep.Failed++
		r.log.Warn("close finished case", zap.String("case_id", cs.ID.String()), zap.Error(err))
		return
	}
	rep.Completed++
}

// cronLogger routes the scheduler's own logs to zap.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "error", err)...)
}
