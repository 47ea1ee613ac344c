package timeline

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/lawmatch-backend/internal/auth"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Get Timeline godoc
// @Summary      Get case timeline
// @Description  Owning client or assigned lawyer reads the phase timeline
// @Tags         timeline
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "case id (uuid)"
// @Success      200  {object}  View
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/timeline [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetTimeline(c.UserContext(), caseID, auth.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// Submit Phase godoc
// @Summary      Submit phase
// @Description  Assigned lawyer completes case-intake, case-filed, trial-preparation or case-outcome
// @Tags         timeline
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id                   path      string  true   "case id (uuid)"
// @Param        phaseKey             path      string  true   "phase key"
// @Param        outcome              formData  string  false  "won | settled | dismissed (case-outcome only)"
// @Param        judge_court_remarks  formData  string  false  "remarks"
// @Param        lawyer_remarks       formData  string  false  "remarks"
// @Param        opponent_remarks     formData  string  false  "remarks"
// @Param        files                formData  []file  false  "PDF/PNG/JPEG (max 10)"
// @Success      200  {object}  map[string]any  "message, timeline"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/phases/{phaseKey}/submit [post]
func (h *Handler) SubmitPhase(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	remarks, files, closeFiles, err := readForm(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	sub, err := ParseSubmission(c.Params("phaseKey"), c.FormValue("outcome"), remarks)
	if err != nil {
		return err
	}

	v, err := h.svc.SubmitPhase(c.UserContext(), caseID, sub, files, auth.MustUserUUID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Phase submitted successfully", "timeline": v})
}

// Add Court Hearing Sub-phase godoc
// @Summary      Add court hearing sub-phase
// @Description  Assigned lawyer records one hearing session while the court hearing is ongoing
// @Tags         timeline
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id                   path      string  true   "case id (uuid)"
// @Param        name                 formData  string  true   "session name (3-200 chars)"
// @Param        judge_court_remarks  formData  string  false  "remarks"
// @Param        lawyer_remarks       formData  string  false  "remarks"
// @Param        opponent_remarks     formData  string  false  "remarks"
// @Param        files                formData  []file  false  "PDF/PNG/JPEG (max 10)"
// @Success      201  {object}  map[string]any  "message, sub_phase, total_sub_phases, progress"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /cases/{id}/phases/court-hearing/subphases [post]
func (h *Handler) AddSubPhase(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	remarks, files, closeFiles, err := readForm(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	in := SubPhaseInput{Name: c.FormValue("name"), Remarks: remarks}
	res, err := h.svc.AddCourtHearingSubPhase(c.UserContext(), caseID, in, files, auth.MustUserUUID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":          "Court hearing subphase added successfully",
		"sub_phase":        res.SubPhase,
		"total_sub_phases": res.TotalSubPhases,
		"progress":         res.Progress,
	})
}

// Complete Court Hearing godoc
// @Summary      Complete court hearing
// @Description  Assigned lawyer closes the court hearing (needs at least one sub-phase)
// @Tags         timeline
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "case id (uuid)"
// @Success      200  {object}  map[string]any  "message, timeline"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /cases/{id}/phases/court-hearing/complete [post]
func (h *Handler) CompleteCourtHearing(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	v, err := h.svc.CompleteCourtHearing(c.UserContext(), caseID, auth.MustUserUUID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Court hearing phase completed successfully", "timeline": v})
}
