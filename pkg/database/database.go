package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// Init opens the Postgres connection. Driver errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey.
func Init(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("database connected")
	return db, nil
}

// Migrate creates or updates every relational table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.PracticeArea{},
		&models.Case{}, &models.CaseHistory{},
		&models.Invitation{}, &models.Proposal{},
		&models.Timeline{}, &models.SubPhase{},
	); err != nil {
		return err
	}
	// At most one accepted proposal per case, whatever the application does.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_proposal_case_accepted
		ON proposals (case_id) WHERE status = 'accepted'`).Error
}

// ConnectMongo dials MongoDB and pings the primary.
func ConnectMongo(ctx context.Context, uri string, log *zap.Logger) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info("mongo connected")
	return client, nil
}
