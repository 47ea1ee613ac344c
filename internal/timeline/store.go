package timeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// Store persists timelines. Every mutation is a single conditional write
// against the stored state; implementations never trust a timeline the
// caller read earlier.
type Store interface {
	// Create returns the existing timeline for caseID or creates the initial one.
	Create(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error)
	Get(ctx context.Context, caseID uuid.UUID) (*models.Timeline, error)
	// CompletePhase completes phase p and activates the next one.
	CompletePhase(ctx context.Context, caseID uuid.UUID, p models.Phase, data *models.PhaseData) (*models.Timeline, error)
	// AppendSubPhase appends sp to the court hearing while it is ongoing. The
	// returned timeline has sp as its last sub-phase.
	AppendSubPhase(ctx context.Context, caseID uuid.UUID, sp models.SubPhase) (*models.Timeline, error)
}
