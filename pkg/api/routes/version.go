package routes

import "github.com/gofiber/fiber/v2"

// Version is set at build time with -ldflags "-X github.com/travigo/railtracker/pkg/api/routes.Version=..."
var Version = "v0.1"

func APIVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "railtracker",
		"version": Version,
	})
}
