package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
)

func SetupProductRoutes(router fiber.Router, controller *controllers.ProductController) {
	api := router.Group("/products")
	api.Post("/resolve", controller.Resolve)
}
