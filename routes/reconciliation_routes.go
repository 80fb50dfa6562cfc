package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
)

func SetupReconciliationRoutes(router fiber.Router, controller *controllers.ReconciliationController, admin fiber.Handler) {
	api := router.Group("/reconciliation", admin)

	api.Get("/", controller.Report)
	api.Get("/notable", controller.Notable)
	api.Post("/adjustments", controller.RecordAdjustment)
	api.Post("/adjustments/promote", controller.PromoteAdjustment)
	api.Get("/adjustments/history", controller.AdjustmentHistory)
}
