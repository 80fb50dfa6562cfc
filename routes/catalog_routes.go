package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
)

func SetupCatalogRoutes(router fiber.Router, controller *controllers.CatalogController, admin fiber.Handler) {
	api := router.Group("/catalog", admin)

	api.Post("/sync", controller.Sync)
	api.Post("/sync/upload", controller.Upload)
	api.Get("/sync/logs", controller.Logs)
}
