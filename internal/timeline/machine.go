package timeline

import "github.com/aldoetobex/lawmatch-backend/pkg/models"

// complete marks phase p completed on t and activates the next phase.
//
// p must be ongoing and the next phase must still be pending, so at most one
// phase is ongoing after every transition. The court hearing additionally
// needs at least one sub-phase. data is nil for the court hearing.
func complete(t *models.Timeline, p models.Phase, data *models.PhaseData) error {
	if !p.Valid() {
		return ErrInvalidPhaseKey
	}
	if t.Status(p) != models.PhaseOngoing {
		if p == models.PhaseCourtHearing {
			return ErrCourtHearingNotComplete
		}
		return ErrPhaseNotOngoing
	}
	next, hasNext := p.Next()
	if hasNext && t.Status(next) != models.PhasePending {
		return ErrNextPhaseNotPending
	}
	if p == models.PhaseCourtHearing && t.CourtHearing.SubPhaseCount == 0 {
		return ErrNoSubPhases
	}

	t.SetStatus(p, models.PhaseCompleted)
	if rec := t.Record(p); rec != nil {
		rec.Data = data
	}
	if hasNext {
		t.SetStatus(next, models.PhaseOngoing)
	}
	return nil
}

// appendSubPhase adds sp to the court-hearing log, assigning the next seq.
func appendSubPhase(t *models.Timeline, sp *models.SubPhase) error {
	if t.CourtHearing.Status != models.PhaseOngoing {
		return ErrCourtHearingNotOngoing
	}
	t.CourtHearing.SubPhaseCount++
	sp.Seq = t.CourtHearing.SubPhaseCount
	sp.TimelineID = t.ID
	t.SubPhases = append(t.SubPhases, *sp)
	return nil
}
