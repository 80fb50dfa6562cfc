package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
)

func SetupInventoryRoutes(router fiber.Router, controller *controllers.InventoryRunController, admin fiber.Handler) {
	api := router.Group("/runs")

	api.Get("/check-consecutive", admin, controller.CheckConsecutive)
	api.Post("/upload", admin, controller.Upload)
	api.Post("/", admin, controller.Create)
	api.Get("/", controller.List)
	api.Get("/:id", controller.Get)
	api.Post("/:id/finalize", admin, controller.Finalize)
	api.Post("/:id/review", admin, controller.Review)
	api.Get("/:id/totals", admin, controller.Totals)
}
