package invitations

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/lawmatch-backend/internal/auth"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/utils"
	"github.com/aldoetobex/lawmatch-backend/pkg/validation"
)

type InviteRequest struct {
	LawyerIDs []string `json:"lawyer_ids" validate:"required,min=1,max=50,dive,uuid"`
}

type RespondRequest struct {
	Status string `json:"status" validate:"required"`
}

type Handler struct{ ledger *Ledger }

func NewHandler(ledger *Ledger) *Handler { return &Handler{ledger: ledger} }

// Invite Lawyers godoc
// @Summary      Invite lawyers
// @Description  Client invites verified lawyers to a pending or active case. Already invited lawyers are skipped.
// @Tags         invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "case id (uuid)"
// @Param        payload  body  InviteRequest  true  "lawyer ids"
// @Success      201  {object}  InviteResult
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/invitations [post]
func (h *Handler) Invite(c *fiber.Ctx) error {
	caseID, err := auth.ParamUUID(c, "id", "invalid case id")
	if err != nil {
		return err
	}
	var in InviteRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	ids := make([]uuid.UUID, 0, len(in.LawyerIDs))
	for _, s := range in.LawyerIDs {
		id, _ := uuid.Parse(s) // validated above
		ids = append(ids, id)
	}

	res, err := h.ledger.Invite(c.UserContext(), caseID, ids, auth.MustUserUUID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// List Received Invitations godoc
// @Summary      Received invitations
// @Description  Lawyer lists invitations newest first with an anonymised case preview
// @Tags         invitations
// @Security     BearerAuth
// @Produce      json
// @Param        status    query string false "pending | viewed | accepted | declined"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  models.Page[ReceivedItem]
// @Router       /invitations/received [get]
func (h *Handler) ListReceived(c *fiber.Ctx) error {
	status := models.InvitationStatus(strings.TrimSpace(c.Query("status")))
	page, err := h.ledger.ListReceived(c.UserContext(), auth.MustUserUUID(c), status, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Get Invitation godoc
// @Summary      Invitation detail
// @Description  Lawyer opens one invitation; a pending invitation becomes viewed
// @Tags         invitations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "invitation id (uuid)"
// @Success      200  {object}  ReceivedItem
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invitations/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := auth.ParamUUID(c, "id", "invalid invitation id")
	if err != nil {
		return err
	}
	item, err := h.ledger.Get(c.UserContext(), id, auth.MustUserUUID(c))
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// Respond To Invitation godoc
// @Summary      Respond to invitation
// @Description  Lawyer accepts, declines or marks an invitation viewed
// @Tags         invitations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "invitation id (uuid)"
// @Param        payload  body  RespondRequest  true  "accepted | declined | viewed"
// @Success      200  {object}  models.Invitation
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /invitations/{id} [patch]
func (h *Handler) Respond(c *fiber.Ctx) error {
	id, err := auth.ParamUUID(c, "id", "invalid invitation id")
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

	status := models.InvitationStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	inv, err := h.ledger.Respond(c.UserContext(), id, auth.MustUserUUID(c), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Invitation updated successfully", "invitation": inv})
}
