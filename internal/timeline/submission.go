package timeline

import (
	"strings"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// Submission is the payload for completing one of the data-carrying phases.
// The concrete type selects the phase.
type Submission interface {
	Phase() models.Phase
	remarks() models.Remarks
}

type IntakeSubmission struct{ models.Remarks }

type FiledSubmission struct{ models.Remarks }

type TrialPrepSubmission struct{ models.Remarks }

type OutcomeSubmission struct {
	Outcome models.Outcome
	models.Remarks
}

func (IntakeSubmission) Phase() models.Phase    { return models.PhaseIntake }
func (FiledSubmission) Phase() models.Phase     { return models.PhaseFiled }
func (TrialPrepSubmission) Phase() models.Phase { return models.PhaseTrialPrep }
func (OutcomeSubmission) Phase() models.Phase   { return models.PhaseOutcome }

func (s IntakeSubmission) remarks() models.Remarks    { return s.Remarks }
func (s FiledSubmission) remarks() models.Remarks     { return s.Remarks }
func (s TrialPrepSubmission) remarks() models.Remarks { return s.Remarks }
func (s OutcomeSubmission) remarks() models.Remarks   { return s.Remarks }

// ParseSubmission builds the submission for the phase route key. The court
// hearing is rejected; it is driven through sub-phases.
func ParseSubmission(phaseKey, outcome string, r models.Remarks) (Submission, error) {
	p, ok := models.PhaseFromSlug(strings.TrimSpace(phaseKey))
	if !ok {
		return nil, ErrInvalidPhaseKey
	}
	r = trimRemarks(r)

	switch p {
	case models.PhaseIntake:
		return IntakeSubmission{r}, nil
	case models.PhaseFiled:
		return FiledSubmission{r}, nil
	case models.PhaseTrialPrep:
		return TrialPrepSubmission{r}, nil
	case models.PhaseCourtHearing:
		return nil, ErrCourtHearingViaSubPhases
	default:
		o := models.Outcome(strings.ToLower(strings.TrimSpace(outcome)))
		if !o.Valid() {
			return nil, ErrInvalidOutcome
		}
		return OutcomeSubmission{Outcome: o, Remarks: r}, nil
	}
}

// SubPhaseInput is the payload of one court-hearing session.
type SubPhaseInput struct {
	Name string
	models.Remarks
}

func (in SubPhaseInput) normalize() (SubPhaseInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, ErrSubPhaseNameRequired
	}
	if n := len([]rune(in.Name)); n < 3 || n > 200 {
		return in, ErrSubPhaseNameLength
	}
	in.Remarks = trimRemarks(in.Remarks)
	return in, nil
}

func trimRemarks(r models.Remarks) models.Remarks {
	return models.Remarks{
		JudgeCourtRemarks: strings.TrimSpace(r.JudgeCourtRemarks),
		LawyerRemarks:     strings.TrimSpace(r.LawyerRemarks),
		OpponentRemarks:   strings.TrimSpace(r.OpponentRemarks),
	}
}
