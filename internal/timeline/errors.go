package timeline

import "github.com/aldoetobex/lawmatch-backend/pkg/apperr"

// Sentinel errors. Stores and the service return these pointers so callers
// can match them with errors.Is.
var (
	ErrTimelineNotFound         = apperr.NotFound("Timeline not found for this case")
	ErrInvalidPhaseKey          = apperr.BadRequest("Invalid phase key")
	ErrPhaseNotOngoing          = apperr.BadRequest("Phase is not in ongoing state or already completed")
	ErrNextPhaseNotPending      = apperr.BadRequest("Next phase has already started; timeline is out of order")
	ErrCourtHearingNotOngoing   = apperr.BadRequest("Court hearing phase is not ongoing. Can only add subphases when phase is ongoing.")
	ErrCourtHearingNotComplete  = apperr.BadRequest("Court hearing phase is not ongoing or already completed")
	ErrNoSubPhases              = apperr.BadRequest("At least one court hearing subphase is required before completing this phase")
	ErrCourtHearingViaSubPhases = apperr.BadRequest("Court hearing phase must be managed via subphases endpoint")
	ErrInvalidOutcome           = apperr.BadRequest("Valid outcome (won, settled, dismissed) is required for case outcome phase")
	ErrSubPhaseNameRequired     = apperr.BadRequest("Subphase name is required")
	ErrSubPhaseNameLength       = apperr.BadRequest("Subphase name must be between 3 and 200 characters")
	ErrConcurrentUpdate         = apperr.BadRequest("Timeline was updated concurrently, please refresh and retry")
)
