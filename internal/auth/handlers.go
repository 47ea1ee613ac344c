package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/apperr"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
	"github.com/aldoetobex/lawmatch-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// Request body for /signup
type SignupRequest struct {
	Role     string `json:"role" validate:"required,oneof=client lawyer"`
	Name     string `json:"name" validate:"required,notblank,min=2,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	// Optional for lawyers
	Jurisdiction      string   `json:"jurisdiction" validate:"omitempty,jurisdiction"`
	BarNumber         string   `json:"bar_number" validate:"omitempty,barnum"`
	City              string   `json:"city" validate:"max=80"`
	YearsOfExperience int      `json:"years_of_experience" validate:"gte=0,lte=70"`
	Bio               string   `json:"bio" validate:"max=2000"`
	PracticeAreas     []string `json:"practice_areas" validate:"omitempty,max=10,dive,notblank,max=60"`
}

// Request body for /login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

// Standard auth response
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Profile response for /me
type UserProfileResponse struct {
	ID                uuid.UUID            `json:"id"`
	Email             string               `json:"email"`
	Role              models.Role          `json:"role"`
	Name              string               `json:"name"`
	AccountStatus     models.AccountStatus `json:"account_status"`
	Jurisdiction      string               `json:"jurisdiction,omitempty"`
	BarNumber         string               `json:"bar_number,omitempty"`
	City              string               `json:"city,omitempty"`
	YearsOfExperience int                  `json:"years_of_experience,omitempty"`
	Bio               string               `json:"bio,omitempty"`
	PracticeAreas     []string             `json:"practice_areas,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

/* ============================== Handler ================================= */

type Handler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewHandler(db *gorm.DB, log *zap.Logger) *Handler { return &Handler{db: db, log: log} }

/* =============================== Signup ================================= */

// @Summary      Sign up
// @Description  Register a new client or lawyer. Lawyers start unverified until an admin verifies them.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  SignupRequest  true  "Signup payload"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      409      {object}  models.ErrorResponse  "email already exists"
// @Router       /signup [post]
func (h *Handler) Signup(c *fiber.Ctx) error {
	var in SignupRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	// Normalize email
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	// Validate request (Laravel-like error shape)
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("Failed to create account", err)
	}

	role := models.Role(in.Role)
	u := models.User{
		Email:         in.Email,
		PasswordHash:  string(hash),
		Role:          role,
		Name:          strings.TrimSpace(in.Name),
		AccountStatus: models.AccountVerified,
	}
	if role == models.RoleLawyer {
		u.AccountStatus = models.AccountPending
		u.Jurisdiction = strings.ToUpper(strings.TrimSpace(in.Jurisdiction))
		u.BarNumber = strings.TrimSpace(in.BarNumber)
		u.City = strings.TrimSpace(in.City)
		u.YearsOfExperience = in.YearsOfExperience
		u.Bio = strings.TrimSpace(in.Bio)
		seen := map[string]bool{}
		for _, a := range in.PracticeAreas {
			a = strings.ToLower(strings.TrimSpace(a))
			if !seen[a] {
				seen[a] = true
				u.PracticeAreas = append(u.PracticeAreas, models.PracticeArea{Area: a})
			}
		}
	}

	if err := h.db.WithContext(c.UserContext()).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "email already exists")
		}
		return apperr.Internal("Failed to create account", err)
	}
	h.log.Info("user signed up", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))

	token, err := IssueToken(u.ID.String(), string(u.Role))
	if err != nil {
		return apperr.Internal("Failed to issue token", err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, Role: string(u.Role)})
}

/* ================================ Login ================================= */

// @Summary      Login
// @Description  Authenticate and receive a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  LoginRequest  true  "Login payload"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      401      {object}  models.ErrorResponse
// @Failure      403      {object}  models.ErrorResponse
// @Router       /login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}

	// Normalize email
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var u models.User
	if err := h.db.WithContext(c.UserContext()).Where("email = ?", in.Email).First(&u).Error; err != nil {
		return fiber.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return fiber.ErrUnauthorized
	}
	switch u.AccountStatus {
	case models.AccountSuspended, models.AccountBlocked:
		return apperr.Forbidden("Account is " + string(u.AccountStatus))
	}

	token, err := IssueToken(u.ID.String(), string(u.Role))
	if err != nil {
		return apperr.Internal("Failed to issue token", err)
	}
	return c.JSON(AuthResponse{Token: token, Role: string(u.Role)})
}

/* ================================= Me =================================== */

// @Summary      Get current user profile
// @Description  Return full profile of the authenticated user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  UserProfileResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	userID := c.Locals("userID")
	if userID == nil {
		return fiber.ErrUnauthorized
	}

	var u models.User
	if err := h.db.WithContext(c.UserContext()).Preload("PracticeAreas").First(&u, "id = ?", userID).Error; err != nil {
		return fiber.ErrUnauthorized
	}
	return c.JSON(profile(u))
}

/* ================================ Admin ================================= */

// @Summary      Verify lawyer
// @Description  Admin marks a lawyer account verified so clients can find and invite them
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "lawyer id (uuid)"
// @Success      200  {object}  UserProfileResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /admin/lawyers/{id}/verify [patch]
func (h *Handler) VerifyLawyer(c *fiber.Ctx) error {
	id, err := ParamUUID(c, "id", "invalid lawyer id")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	res := db.Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RoleLawyer).
		Update("account_status", models.AccountVerified)
	if res.Error != nil {
		return apperr.Internal("Failed to verify lawyer", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Lawyer not found")
	}

	var u models.User
	if err := db.Preload("PracticeAreas").First(&u, "id = ?", id).Error; err != nil {
		return apperr.Internal("Failed to load lawyer", err)
	}
	h.log.Info("lawyer verified", zap.String("lawyer_id", id.String()), zap.String("admin_id", MustUserID(c)))
	return c.JSON(profile(u))
}

// Map to a stable public profile shape
func profile(u models.User) UserProfileResponse {
	resp := UserProfileResponse{
		ID:                u.ID,
		Email:             u.Email,
		Role:              u.Role,
		Name:              u.Name,
		AccountStatus:     u.AccountStatus,
		Jurisdiction:      u.Jurisdiction,
		BarNumber:         u.BarNumber,
		City:              u.City,
		YearsOfExperience: u.YearsOfExperience,
		Bio:               u.Bio,
		CreatedAt:         u.CreatedAt,
	}
	for _, a := range u.PracticeAreas {
		resp.PracticeAreas = append(resp.PracticeAreas, a.Area)
	}
	return resp
}
