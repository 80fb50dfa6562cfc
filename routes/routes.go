package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/config"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers"
	"github.com/kevinpineda22/backend-inventario-sub000/middleware"
)

type Controllers struct {
	Zones          *controllers.ZoneController
	Products       *controllers.ProductController
	Runs           *controllers.InventoryRunController
	Reconciliation *controllers.ReconciliationController
	Catalog        *controllers.CatalogController
}

// Setup mounts every route under MAIN_ROUTES behind token identity extraction.
func Setup(app *fiber.App, c Controllers, jwtSecret string) {
	api := app.Group(config.MAIN_ROUTES, middleware.AuthMiddleware(jwtSecret))
	admin := middleware.RequireRole(middleware.RoleAdmin)

	SetupZoneRoutes(api, c.Zones, admin)
	SetupProductRoutes(api, c.Products)
	SetupInventoryRoutes(api, c.Runs, admin)
	SetupReconciliationRoutes(api, c.Reconciliation, admin)
	SetupCatalogRoutes(api, c.Catalog, admin)
}
