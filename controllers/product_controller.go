package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
)

type ProductController struct {
	resolver *services.ProductResolver
}

func NewProductController(resolver *services.ProductResolver) *ProductController {
	return &ProductController{resolver: resolver}
}

type resolvePayload struct {
	Code string `json:"code" validate:"required,max=64"`
}

// Resolve runs the barcode, item id and similarity cascade. Several similar
// barcodes answer 300 with the candidates to pick from.
func (c *ProductController) Resolve(ctx *fiber.Ctx) error {
	var payload resolvePayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	resolution, err := c.resolver.Resolve(ctx.UserContext(), payload.Code)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Product found", resolution)
}
