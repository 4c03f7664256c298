package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/travigo/railtracker/pkg/api/routes"
	"github.com/travigo/railtracker/pkg/metrics"
	"github.com/travigo/railtracker/pkg/railway"
	"github.com/travigo/railtracker/pkg/sink"
)

// Dependencies are the parts of a running tracker the API reads from. Index,
// Metrics, Health and QueueStats are optional.
type Dependencies struct {
	Latest     *sink.LatestStore
	Index      railway.Index
	Metrics    *metrics.Collector
	Health     func(ctx context.Context) error
	QueueStats http.Handler
}

func NewApp(dependencies Dependencies) *fiber.App {
	webApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	webApp.Use(NewLogger())

	webApp.Get("/health", healthCheck(dependencies.Health))
	if dependencies.Metrics != nil {
		webApp.Get("/metrics", adaptor.HTTPHandler(dependencies.Metrics.Handler()))
	}

	group := webApp.Group("/railtracker")

	group.Get("version", routes.APIVersion)

	routes.SessionsRouter(group.Group("/sessions"), dependencies.Latest)

	if dependencies.Index != nil {
		routes.RailwaysRouter(group.Group("/railways"), dependencies.Index)
	}
	if dependencies.QueueStats != nil {
		group.Get("/queue", adaptor.HTTPHandler(dependencies.QueueStats))
	}

	return webApp
}

func SetupServer(listen string, dependencies Dependencies) error {
	return NewApp(dependencies).Listen(listen)
}

func healthCheck(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				c.Status(fiber.StatusInternalServerError)
				return c.JSON(fiber.Map{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}

		return c.JSON(fiber.Map{
			"status": "ok",
		})
	}
}
