// Package dbtest opens the Postgres database used by integration tests.
package dbtest

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/database"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// Open connects to TEST_DATABASE_URL, migrates, and truncates every table
// after the test. Tests are skipped when the variable is unset.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Init(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// Truncate AFTER each test (data survives within a single test).
	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	timeline_sub_phases,
	case_timelines,
	case_histories,
	proposals,
	invitations,
	cases,
	practice_areas,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// User inserts a user with the given role. Lawyers are verified and practice
// the given areas.
func User(t *testing.T, db *gorm.DB, role models.Role, areas ...string) models.User {
	t.Helper()
	id := uuid.New()
	u := models.User{
		ID:            id,
		Email:         string(role) + "_" + id.String()[:8] + "@x.com",
		PasswordHash:  "x",
		Role:          role,
		Name:          string(role) + " " + id.String()[:4],
		AccountStatus: models.AccountVerified,
	}
	for _, a := range areas {
		u.PracticeAreas = append(u.PracticeAreas, models.PracticeArea{Area: a})
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// Case inserts a case owned by clientID.
func Case(t *testing.T, db *gorm.DB, clientID uuid.UUID, status models.CaseStatus) models.Case {
	t.Helper()
	cs := models.Case{
		ClientID:    clientID,
		Title:       "Boundary dispute with neighbour",
		Description: "Neighbour built a wall two metres into our land. Contact me at owner@example.com.",
		Category:    "property",
		BudgetRange: "25000-50000",
		Province:    "Jakarta",
		District:    "South",
		Urgency:     models.UrgencyMedium,
		Status:      status,
		CreatedAt:   time.Now(),
	}
	if err := db.Create(&cs).Error; err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return cs
}
