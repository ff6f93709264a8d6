package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/config"
	"github.com/noah-isme/praxis-api/internal/database"
	"github.com/noah-isme/praxis-api/internal/handler"
	"github.com/noah-isme/praxis-api/internal/middleware"
	"github.com/noah-isme/praxis-api/internal/repository"
	"github.com/noah-isme/praxis-api/internal/router"
	"github.com/noah-isme/praxis-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; compliance results are not cached")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load requirement catalog: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	traineeRepo := repository.NewTraineeRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	logbookRepo := repository.NewLogbookRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	events := service.NewNATSEventPublisher(natsConn, cfg.NATSSubject, logger)
	complianceService := service.NewComplianceService(traineeRepo, entryRepo, auditRepo, catalog, service.ComplianceServiceConfig{
		Cache:            redisClient,
		CacheTTL:         cfg.ComplianceCacheTTL,
		RecencyReference: cfg.RecencyReference,
	}, logger)
	entryService := service.NewEntryService(traineeRepo, entryRepo, complianceService, events, validate, logger)
	logbookService := service.NewLogbookService(logbookRepo, entryRepo, traineeRepo, auditRepo, commentRepo, validate, service.LogbookServiceConfig{
		Compliance: complianceService,
		Events:     events,
	}, logger)

	versions := make([]string, 0)
	for _, ref := range catalog.Profiles() {
		versions = append(versions, fmt.Sprintf("%s/%s@%s", ref.Program, ref.Track, ref.Version))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ComplianceHandler: handler.NewComplianceHandler(complianceService, validate, logger),
		EntryHandler:      handler.NewEntryHandler(entryService, logger),
		LogbookHandler:    handler.NewLogbookHandler(logbookService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		CatalogVersions:   versions,
		HealthProbes:      healthProbes(db, redisClient),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

// loadCatalog starts from the built-in profiles and layers the optional
// catalog file on top.
func loadCatalog(path string) (*compliance.Catalog, error) {
	catalog := compliance.DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := catalog.Load(file); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
