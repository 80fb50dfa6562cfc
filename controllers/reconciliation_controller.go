package controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
)

// AdjustmentHistory reads the recount audit trail.
type AdjustmentHistory interface {
	History(ctx context.Context, consecutive int, site, itemID string) ([]models.RecountAdjustmentLog, error)
}

type ReconciliationController struct {
	engine  *services.ReconciliationEngine
	history AdjustmentHistory
}

func NewReconciliationController(engine *services.ReconciliationEngine, history AdjustmentHistory) *ReconciliationController {
	return &ReconciliationController{engine: engine, history: history}
}

func (c *ReconciliationController) Report(ctx *fiber.Ctx) error {
	consecutive, site, err := runKey(ctx)
	if err != nil {
		return handleError(ctx, err)
	}
	rows, err := c.engine.Reconcile(ctx.UserContext(), consecutive, site)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Reconciliation report", rows)
}

func (c *ReconciliationController) Notable(ctx *fiber.Ctx) error {
	consecutive, site, err := runKey(ctx)
	if err != nil {
		return handleError(ctx, err)
	}
	rows, err := c.engine.Notable(ctx.UserContext(), consecutive, site)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Notable differences", rows)
}

type adjustmentPayload struct {
	ConsecutiveNumber int      `json:"consecutive_number" validate:"required,gt=0"`
	Site              string   `json:"site" validate:"required"`
	ItemID            string   `json:"item_id" validate:"required"`
	AdjustedQuantity  *float64 `json:"adjusted_quantity" validate:"required,gte=0"`
	PreviousQuantity  *float64 `json:"previous_quantity"`
	RecordedBy        string   `json:"recorded_by"`
}

func (c *ReconciliationController) RecordAdjustment(ctx *fiber.Ctx) error {
	var payload adjustmentPayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	adj, err := c.engine.RecordAdjustment(ctx.UserContext(), services.AdjustmentInput{
		ConsecutiveNumber: payload.ConsecutiveNumber,
		Site:              payload.Site,
		ItemID:            payload.ItemID,
		AdjustedQuantity:  *payload.AdjustedQuantity,
		PreviousQuantity:  payload.PreviousQuantity,
		RecordedBy:        actor(ctx, payload.RecordedBy),
	})
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusCreated, "Recount recorded", adj)
}

type promotePayload struct {
	ConsecutiveNumber int    `json:"consecutive_number" validate:"required,gt=0"`
	Site              string `json:"site" validate:"required"`
	ItemID            string `json:"item_id" validate:"required"`
	PromotedBy        string `json:"promoted_by"`
}

func (c *ReconciliationController) PromoteAdjustment(ctx *fiber.Ctx) error {
	var payload promotePayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	adj, err := c.engine.PromoteAdjustment(ctx.UserContext(), payload.ConsecutiveNumber, payload.Site, payload.ItemID, actor(ctx, payload.PromotedBy))
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Recount promoted", adj)
}

func (c *ReconciliationController) AdjustmentHistory(ctx *fiber.Ctx) error {
	consecutive, site, err := runKey(ctx)
	if err != nil {
		return handleError(ctx, err)
	}
	itemID := strings.TrimSpace(ctx.Query("item_id"))
	if itemID == "" {
		return handleError(ctx, &services.ValidationError{Field: "item_id", Message: "is required"})
	}
	entries, err := c.history.History(ctx.UserContext(), consecutive, site, itemID)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Recount history", entries)
}
