package cases

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aldoetobex/lawmatch-backend/internal/auth"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
	"github.com/aldoetobex/lawmatch-backend/pkg/validation"
)

// ===== DTOs =====

type CreateCaseRequest struct {
	Title       string `json:"title" validate:"required,notblank,min=5,max=200"`
	Description string `json:"description" validate:"required,notblank,min=20,max=5000"`
	Category    string `json:"category" validate:"required,notblank,max=60"`
	BudgetRange string `json:"budget_range" validate:"required,budget"`
	Province    string `json:"province" validate:"required,notblank,max=80"`
	District    string `json:"district" validate:"required,notblank,max=80"`
	Court       string `json:"court" validate:"max=120"`
	Urgency     string `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type Handler struct{ reg *Registry }

func NewHandler(reg *Registry) *Handler { return &Handler{reg: reg} }

// Create Case godoc
// @Summary      Create case
// @Description  Client creates a new case
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateCaseRequest  true  "Case payload"
// @Success      201  {object}  models.Case
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	// Validation (Laravel-style response)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.reg.Create(c.UserContext(), auth.MustUserUUID(c), CreateInput{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		BudgetRange: in.BudgetRange,
		Province:    in.Province,
		District:    in.District,
		Court:       in.Court,
		Urgency:     models.Urgency(in.Urgency),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cs)
}

// List My Cases godoc
// @Summary      List my cases
// @Description  Client lists their own cases (paginated) with up to 5 suggested lawyers each
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "pending | active | assigned | completed | cancelled"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  models.Page[CaseListItem]
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases/mine [get]
func (h *Handler) ListMine(c *fiber.Ctx) error {
	status := models.CaseStatus(strings.TrimSpace(c.Query("status")))
	page, err := h.reg.ListForClient(c.UserContext(), auth.MustUserUUID(c), status, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Get Case godoc
// @Summary      Case detail
// @Description  Owning client, invited lawyer or assigned lawyer reads a case. Lawyers mark their invitation viewed.
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  models.Case
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	cs, err := h.reg.Get(c.UserContext(), caseID, auth.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(cs)
}

// Suggested Lawyers godoc
// @Summary      Suggested lawyers
// @Description  Verified lawyers practicing the case category
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string true  "case id (uuid)"
// @Param        limit  query  int    false "max results (default unlimited)"
// @Success      200  {array}   LawyerSuggestion
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/suggested-lawyers [get]
func (h *Handler) SuggestedLawyers(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.Query("limit", "0"))
	out, err := h.reg.SuggestedLawyers(c.UserContext(), caseID, auth.MustUserUUID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"lawyers": out})
}

// Update Case Status godoc
// @Summary      Update case status
// @Description  Owning client changes the case status
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "case id (uuid)"
// @Param        payload  body  UpdateStatusRequest  true  "new status"
// @Success      200  {object}  models.Case
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/status [patch]
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	var in UpdateStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	cs, err := h.reg.UpdateStatus(c.UserContext(), caseID, auth.MustUserUUID(c), models.CaseStatus(strings.TrimSpace(in.Status)))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Case status updated successfully", "case": cs})
}
