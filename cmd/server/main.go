// @title           LawMatch API
// @version         1.0
// @description     Legal case lifecycle: clients post cases and invite lawyers, lawyers send proposals, one proposal is accepted and the assigned lawyer walks the case through a five-phase timeline.
// @contact.name    Aldo Rifki Putra
// @contact.email   aldoetobex@gmail.com
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldoetobex/lawmatch-backend/internal/auth"
	"github.com/aldoetobex/lawmatch-backend/internal/cases"
	"github.com/aldoetobex/lawmatch-backend/internal/config"
	"github.com/aldoetobex/lawmatch-backend/internal/invitations"
	"github.com/aldoetobex/lawmatch-backend/internal/proposals"
	"github.com/aldoetobex/lawmatch-backend/internal/storage"
	"github.com/aldoetobex/lawmatch-backend/internal/timeline"
	"github.com/aldoetobex/lawmatch-backend/pkg/database"
	"github.com/aldoetobex/lawmatch-backend/pkg/logging"
	"github.com/aldoetobex/lawmatch-backend/pkg/models"
)

// bodyLimit fits ten 10MB documents plus form fields.
const bodyLimit = 110 << 20

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("config: ", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Init(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	gw, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	store, closeStore, err := timelineStore(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := newServices(db, store, gw, logger)

	if cfg.Admin.Email != "" {
		if _, err := auth.SeedAdmin(ctx, db, logger, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			return err
		}
	}

	if cfg.ReconcileSchedule != "" {
		rec := proposals.NewReconciler(svc.offers, svc.registry, logger, cfg.ReconcileSchedule)
		if err := rec.Start(); err != nil {
			return err
		}
		defer rec.Stop()
	}

	app := newApp(db, svc, logger)

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.String("timeline_store", cfg.TimelineStore))
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return app.ShutdownWithTimeout(15 * time.Second)
}

type services struct {
	invites   *invitations.Ledger
	registry  *cases.Registry
	timelines *timeline.Service
	offers    *proposals.Ledger
}

func newServices(db *gorm.DB, store timeline.Store, gw storage.Gateway, logger *zap.Logger) services {
	invites := invitations.NewLedger(db, logger)
	registry := cases.NewRegistry(db, logger, invites)
	timelines := timeline.NewService(store, registry, gw, logger)
	return services{
		invites:   invites,
		registry:  registry,
		timelines: timelines,
		offers:    proposals.NewLedger(db, logger, timelines),
	}
}

// newApp builds the Fiber app with every route under /api.
func newApp(db *gorm.DB, svc services, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    bodyLimit,
	})
	app.Use(logging.Middleware(logger))

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")
	requireAuth := auth.RequireAuth()
	client := auth.RequireRole(string(models.RoleClient))
	lawyer := auth.RequireRole(string(models.RoleLawyer))
	anyParty := auth.RequireRole(string(models.RoleClient), string(models.RoleLawyer))

	// Auth
	authH := auth.NewHandler(db, logger)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", requireAuth, authH.Me)
	api.Patch("/admin/lawyers/:id/verify", requireAuth, auth.RequireRole(string(models.RoleAdmin)), authH.VerifyLawyer)

	// Cases (static paths before :id)
	caseH := cases.NewHandler(svc.registry)
	inviteH := invitations.NewHandler(svc.invites)
	timelineH := timeline.NewHandler(svc.timelines)
	api.Post("/cases", requireAuth, client, caseH.Create)
	api.Get("/cases/mine", requireAuth, client, caseH.ListMine)
	api.Get("/cases/:id", requireAuth, anyParty, caseH.Get)
	api.Get("/cases/:id/suggested-lawyers", requireAuth, client, caseH.SuggestedLawyers)
	api.Patch("/cases/:id/status", requireAuth, client, caseH.UpdateStatus)
	api.Post("/cases/:id/invitations", requireAuth, client, inviteH.Invite)

	// Timeline
	api.Get("/cases/:id/timeline", requireAuth, anyParty, timelineH.Get)
	api.Post("/cases/:id/phases/court-hearing/subphases", requireAuth, lawyer, timelineH.AddSubPhase)
	api.Post("/cases/:id/phases/court-hearing/complete", requireAuth, lawyer, timelineH.CompleteCourtHearing)
	api.Post("/cases/:id/phases/:phaseKey/submit", requireAuth, lawyer, timelineH.SubmitPhase)

	// Invitations
	api.Get("/invitations/received", requireAuth, lawyer, inviteH.ListReceived)
	api.Get("/invitations/:id", requireAuth, lawyer, inviteH.Get)
	api.Patch("/invitations/:id", requireAuth, lawyer, inviteH.Respond)

	// Proposals
	proposalH := proposals.NewHandler(svc.offers)
	api.Post("/proposals", requireAuth, lawyer, proposalH.Create)
	api.Get("/proposals/sent", requireAuth, lawyer, proposalH.ListSent)
	api.Get("/proposals/received", requireAuth, client, proposalH.ListReceived)
	api.Get("/proposals/:id", requireAuth, anyParty, proposalH.Get)
	api.Patch("/proposals/:id/respond", requireAuth, client, proposalH.Respond)
	api.Patch("/proposals/:id/withdraw", requireAuth, lawyer, proposalH.Withdraw)

	return app
}

// timelineStore builds the configured timeline store and its cleanup.
func timelineStore(ctx context.Context, cfg config.Config, db *gorm.DB, logger *zap.Logger) (timeline.Store, func(), error) {
	if cfg.TimelineStore != config.TimelineMongo {
		return timeline.NewPostgresStore(db, logger), func() {}, nil
	}

	client, err := database.ConnectMongo(ctx, cfg.MongoURI, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(c)
	}
	store := timeline.NewMongoStore(client.Database(cfg.MongoDatabase), logger)
	if err := store.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return store, closeFn, nil
}
