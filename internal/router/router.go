package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/praxis-api/internal/config"
	"github.com/noah-isme/praxis-api/internal/handler"
	"github.com/noah-isme/praxis-api/internal/middleware"
	"github.com/noah-isme/praxis-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ComplianceHandler *handler.ComplianceHandler
	EntryHandler      *handler.EntryHandler
	LogbookHandler    *handler.LogbookHandler
	JWTMiddleware     fiber.Handler
	CatalogVersions   []string
	HealthProbes      map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.CatalogVersions, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware, middleware.RequireActor())

	if deps.ComplianceHandler != nil {
		deps.ComplianceHandler.Register(v2.Group("/compliance"))
	}

	if deps.EntryHandler != nil {
		deps.EntryHandler.Register(v2.Group("/entries"))
	}

	if deps.LogbookHandler != nil {
		logbooks := v2.Group("/logbooks")
		window := cfg.TransitionRateWindow
		if window <= 0 {
			window = time.Minute
		}
		logbooks.Use("/:id/transitions", middleware.RateLimit("logbook-transitions", cfg.TransitionRateLimit, window))
		logbooks.Use("/:id/close", middleware.RateLimit("logbook-close", cfg.TransitionRateLimit, window))
		deps.LogbookHandler.Register(logbooks)
	}
}
