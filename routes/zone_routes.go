package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
)

func SetupZoneRoutes(router fiber.Router, controller *controllers.ZoneController, admin fiber.Handler) {
	api := router.Group("/zones")

	api.Get("/", admin, controller.ListZones)
	api.Post("/start", controller.Start)
	api.Get("/:id", controller.GetZone)
	api.Get("/:id/events", controller.ListEvents)
	api.Post("/:id/events", controller.SubmitEvent)
	api.Delete("/:id/events/:eventId", controller.DeleteEvent)
	api.Get("/:id/pending-items", controller.PendingItems)
	api.Post("/:id/no-stock", controller.MarkNoStock)
	api.Post("/:id/finalize", controller.Finalize)
	api.Post("/:id/review", admin, controller.Review)
}
