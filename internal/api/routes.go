package api

import (
	"github.com/bilgisen/newscurator/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, adminKey string) {
	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", h.HealthCheck)

	list := middleware.ValidateQueryParams(newListQuery)
	api.Get("/candidates", list, h.ListCandidates)
	api.Get("/approved", list, h.ListApproved)

	// Admin endpoints
	admin := api.Group("/admin", middleware.AdminOnly(adminKey))
	{
		admin.Post("/ingest", h.TriggerIngest)
		admin.Post("/promote", h.TriggerPromote)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
