package timeline

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// maxCASAttempts bounds how often a mutation is re-applied after a version
// or sequence conflict.
const maxCASAttempts = 5

var errVersionConflict = errors.New("timeline version conflict")

// PostgresStore keeps one case_timelines row per case plus its
// timeline_sub_phases log. Transitions run through the state machine on a
// read taken under SELECT ... FOR UPDATE and are written with
// UPDATE ... WHERE version = <read version>.
type PostgresStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPostgresStore(db *gorm.DB, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

func (s *PostgresStore) Create(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	t := models.NewTimeline(caseID)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "case_id"}}, DoNothing: true}).
		Omit(clause.Associations).
		Create(t).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, caseID)
}

func (s *PostgresStore) Get(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error) {
	return s.load(s.db.WithContext(ctx), caseID)
}

func (s *PostgresStore) load(db *gorm.DB, caseID uuid.UUID) (*models.Timeline, error) {
	var t models.Timeline
	err := db.
		Preload("SubPhases", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("case_id = ?", caseID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTimelineNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.SubPhases == nil {
		t.SubPhases = []models.SubPhase{}
	}
	return &t, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, caseID uuid.UUID, p models.Phase, data *models.PhaseData) (*models.Timeline, error) {
	return s.mutate(ctx, caseID, p,
		func(t *models.Timeline) error { return complete(t, p, data) },
		nil,
	)
}

func (s *PostgresStore) AppendSubPhase(ctx context.Context, caseID uuid.UUID, sp models.SubPhase) (*models.Timeline, error) {
	return s.mutate(ctx, caseID, models.PhaseCourtHearing,
		func(t *models.Timeline) error {
			next := sp
			next.ID = uuid.Nil
			return appendSubPhase(t, &next)
		},
		func(tx *gorm.DB, t *models.Timeline) error {
			return tx.Create(&t.SubPhases[len(t.SubPhases)-1]).Error
		},
	)
}

// mutate locks the timeline row, applies fn to a fresh read and writes it
// back with the version bumped. Writers on one timeline queue on the row lock;
// the version check stays as a guard for writers that skip the lock. after
// runs inside the same transaction.
func (s *PostgresStore) mutate(
	ctx context.Context,
	caseID uuid.UUID,
	p models.Phase,
	fn func(t *models.Timeline) error,
	after func(tx *gorm.DB, t *models.Timeline) error,
) (*models.Timeline, error) {
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		var t *models.Timeline
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var row models.Timeline
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("case_id = ?", caseID).
				First(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTimelineNotFound
			}
			if err != nil {
				return err
			}

			if t, err = s.load(tx, caseID); err != nil {
				return err
			}
			if err := fn(t); err != nil {
				return err
			}

			expected := t.Version
			t.Version = expected + 1
			res := tx.Model(t).
				Where("version = ?", expected).
				Select("*").
				Omit("id", "case_id", "created_at", clause.Associations).
				Updates(t)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}
			if after != nil {
				return after(tx, t)
			}
			return nil
		})
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, errVersionConflict) && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		s.log.Debug("timeline version conflict, retrying",
			zap.String("case_id", caseID.String()),
			zap.String("phase", p.Slug()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, ErrConcurrentUpdate
}
