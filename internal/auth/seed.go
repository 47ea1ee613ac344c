package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// SeedAdmin makes sure an admin account exists for email. An existing admin
// is left untouched, password included; an existing non-admin account with
// that email is an error.
func SeedAdmin(ctx context.Context, db *gorm.DB, log *zap.Logger, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("seed admin: email and password are required")
	}
	db = db.WithContext(ctx)

	existing, err := findAdmin(db, email)
	if err != nil || existing != nil {
		return existing, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed admin: hash password: %w", err)
	}
	u := models.User{
		Email:         email,
		PasswordHash:  string(hash),
		Role:          models.RoleAdmin,
		Name:          strings.TrimSpace(name),
		AccountStatus: models.AccountVerified,
	}
	if err := db.Create(&u).Error; err != nil {
		// Another instance seeded it first.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return findAdmin(db, email)
		}
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	log.Info("admin account created", zap.String("user_id", u.ID.String()), zap.String("email", email))
	return &u, nil
}

// findAdmin returns nil, nil when no account uses email.
func findAdmin(db *gorm.DB, email string) (*models.User, error) {
	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seed admin: lookup: %w", err)
	}
	if u.Role != models.RoleAdmin {
		return nil, fmt.Errorf("seed admin: %s belongs to a %s account", email, u.Role)
	}
	return &u, nil
}
