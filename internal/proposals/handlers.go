package proposals

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/lawmatch-backend/internal/auth"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
	"github.com/aldoetobex/lawmatch-backend/pkg/validation"
)

// ===== DTOs =====

type FeeStructureRequest struct {
	TotalProposedFee    int64  `json:"total_proposed_fee" validate:"required,gt=0"`
	InitialConsultation int64  `json:"initial_consultation" validate:"gte=0"`
	DocumentationFee    int64  `json:"documentation_fee" validate:"gte=0"`
	CourtFees           int64  `json:"court_fees" validate:"gte=0"`
	AdditionalCosts     int64  `json:"additional_costs" validate:"gte=0"`
	ExpectedDate        string `json:"expected_date" validate:"required,isodate"`
}

type CreateProposalRequest struct {
	CaseID             string              `json:"case_id" validate:"required,uuid"`
	FeeStructure       FeeStructureRequest `json:"fee_structure"`
	CaseAssessment     string              `json:"case_assessment" validate:"required,notblank,max=2000"`
	ServicesIncluded   string              `json:"services_included" validate:"max=2000"`
	Experience         string              `json:"experience" validate:"max=2000"`
	Milestones         string              `json:"milestones" validate:"max=500"`
	TermsAndConditions string              `json:"terms_and_conditions" validate:"max=3000"`
	Availability       string              `json:"availability" validate:"max=500"`
}

type RespondRequest struct {
	Action       string `json:"action" validate:"required"`
	ResponseNote string `json:"response_note" validate:"max=500"`
}

type Handler struct{ ledger *Ledger }

func NewHandler(ledger *Ledger) *Handler { return &Handler{ledger: ledger} }

// Create Proposal godoc
// @Summary      Submit proposal
// @Description  Invited lawyer submits one proposal per case
// @Tags         proposals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateProposalRequest  true  "Proposal payload"
// @Success      201  {object}  models.Proposal
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /proposals [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateProposalRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	caseID, _ := uuid.Parse(in.CaseID) // validated above

	fs := in.FeeStructure
	p, err := h.ledger.Create(c.UserContext(), auth.MustUserUUID(c), CreateInput{
		CaseID: caseID,
		FeeStructure: models.FeeStructure{
			TotalProposedFee:    fs.TotalProposedFee,
			InitialConsultation: fs.InitialConsultation,
			DocumentationFee:    fs.DocumentationFee,
			CourtFees:           fs.CourtFees,
			AdditionalCosts:     fs.AdditionalCosts,
			ExpectedDate:        strings.TrimSpace(fs.ExpectedDate),
		},
		CaseAssessment:     in.CaseAssessment,
		ServicesIncluded:   in.ServicesIncluded,
		Experience:         in.Experience,
		Milestones:         in.Milestones,
		TermsAndConditions: in.TermsAndConditions,
		Availability:       in.Availability,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Proposal submitted successfully", "proposal": p})
}

// List Sent Proposals godoc
// @Summary      Sent proposals
// @Tags         proposals
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "pending | viewed | accepted | rejected | withdrawn"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  models.Page[View]
// @Router       /proposals/sent [get]
func (h *Handler) ListSent(c *fiber.Ctx) error {
	status := models.ProposalStatus(strings.TrimSpace(c.Query("status")))
	page, err := h.ledger.ListSent(c.UserContext(), auth.MustUserUUID(c), status, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// List Received Proposals godoc
// @Summary      Received proposals
// @Description  Client lists proposals on their cases, optionally for one case
// @Tags         proposals
// @Security     BearerAuth
// @Produce      json
// @Param        caseId    query string false "case id (uuid)"
// @Param        status    query string false "pending | viewed | accepted | rejected | withdrawn"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  models.Page[View]
// @Failure      400  {object}  models.ErrorResponse
// @Router       /proposals/received [get]
func (h *Handler) ListReceived(c *fiber.Ctx) error {
	var caseID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("caseId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
		}
		caseID = &id
	}
	status := models.ProposalStatus(strings.TrimSpace(c.Query("status")))
	page, err := h.ledger.ListReceived(c.UserContext(), auth.MustUserUUID(c), caseID, status, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Get Proposal godoc
// @Summary      Proposal detail
// @Description  Owning client or lawyer reads a proposal. A client opening a pending proposal marks it viewed.
// @Tags         proposals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "proposal id (uuid)"
// @Success      200  {object}  View
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /proposals/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := auth.ParamUUID(c, "id", "invalid proposal id")
	if err != nil {
		return err
	}
	v, err := h.ledger.Get(c.UserContext(), id, auth.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(v)
}

// Respond To Proposal godoc
// @Summary      Accept or reject
// @Description  Accepting assigns the case to the lawyer and rejects every other open proposal
// @Tags         proposals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "proposal id (uuid)"
// @Param        payload  body  RespondRequest  true  "accept | reject"
// @Success      200  {object}  models.Proposal
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /proposals/{id}/respond [patch]
func (h *Handler) Respond(c *fiber.Ctx) error {
	id, err := auth.ParamUUID(c, "id", "invalid proposal id")
	if err != nil {
		return err
	}
	var in RespondRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	p, err := h.ledger.Respond(c.UserContext(), id, auth.MustUserUUID(c), in.Action, in.ResponseNote)
	if err != nil {
		return err
	}
	msg := "Proposal rejected successfully"
	if p.Status == models.ProposalAccepted {
		msg = "Proposal accepted successfully"
	}
	return c.JSON(fiber.Map{"message": msg, "proposal": p})
}

// Withdraw Proposal godoc
// @Summary      Withdraw proposal
// @Tags         proposals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "proposal id (uuid)"
// @Success      200  {object}  models.Proposal
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /proposals/{id}/withdraw [patch]
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	id, err := auth.ParamUUID(c, "id", "invalid proposal id")
	if err != nil {
		return err
	}
	p, err := h.ledger.Withdraw(c.UserContext(), id, auth.MustUserUUID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Proposal withdrawn successfully", "proposal": p})
}
