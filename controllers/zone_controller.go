package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
)

type ZoneController struct {
	session *services.CountingSession
}

func NewZoneController(session *services.CountingSession) *ZoneController {
	return &ZoneController{session: session}
}

type startZonePayload struct {
	OperatorID          string            `json:"operator_id"`
	InventoryRunID      types.SnowflakeID `json:"inventory_run_id"`
	LocationDescription string            `json:"location_description" validate:"max=255"`
}

func (c *ZoneController) Start(ctx *fiber.Ctx) error {
	var payload startZonePayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}

	result, err := c.session.Start(ctx.UserContext(), services.StartInput{
		Operator:            actor(ctx, payload.OperatorID),
		InventoryRunID:      payload.InventoryRunID,
		LocationDescription: payload.LocationDescription,
	})
	if err != nil {
		return handleError(ctx, err)
	}

	if result.Resumed {
		return success(ctx, fiber.StatusOK, "Zone resumed", result)
	}
	return success(ctx, fiber.StatusCreated, "Zone started", result)
}

func (c *ZoneController) GetZone(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	zone, err := c.session.GetZone(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Zone found", zone)
}

func (c *ZoneController) ListZones(ctx *fiber.Ctx) error {
	runID, err := queryID(ctx, "run_id")
	if err != nil {
		return handleError(ctx, err)
	}
	zones, err := c.session.ListZones(ctx.UserContext(), services.ZoneFilter{
		RunID:             runID,
		Operator:          ctx.Query("operator"),
		State:             ctx.Query("state"),
		VerificationState: ctx.Query("verification_state"),
	})
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Zones found", zones)
}

func (c *ZoneController) ListEvents(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	events, err := c.session.ListEvents(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Events found", events)
}

type submitEventPayload struct {
	ScannedCode        string  `json:"scanned_code" validate:"required,max=64"`
	UnitSelection      string  `json:"unit_selection" validate:"max=20"`
	QuantityMultiplier float64 `json:"quantity_multiplier" validate:"gt=0"`
	LocationTag        string  `json:"location_tag"`
	OperatorID         string  `json:"operator_id"`
}

func (c *ZoneController) SubmitEvent(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	var payload submitEventPayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}

	result, err := c.session.Submit(ctx.UserContext(), services.SubmitInput{
		ZoneID:             id,
		ScannedCode:        payload.ScannedCode,
		UnitSelection:      payload.UnitSelection,
		QuantityMultiplier: payload.QuantityMultiplier,
		LocationTag:        payload.LocationTag,
		Operator:           actor(ctx, payload.OperatorID),
	})
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusCreated, "Count registered", result)
}

func (c *ZoneController) DeleteEvent(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	eventID, err := paramID(ctx, "eventId")
	if err != nil {
		return handleError(ctx, err)
	}
	if err := c.session.DeleteEvent(ctx.UserContext(), id, eventID); err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Count deleted", fiber.Map{"event_id": eventID})
}

func (c *ZoneController) PendingItems(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	items, err := c.session.PendingItems(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Pending items", fiber.Map{"item_ids": items})
}

type noStockPayload struct {
	ItemID     string `json:"item_id" validate:"required"`
	OperatorID string `json:"operator_id"`
}

func (c *ZoneController) MarkNoStock(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	var payload noStockPayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	if err := c.session.MarkNoStock(ctx.UserContext(), id, payload.ItemID, actor(ctx, payload.OperatorID)); err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Item marked without stock", fiber.Map{"item_id": payload.ItemID})
}

func (c *ZoneController) Finalize(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	result, err := c.session.Finalize(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Zone finalized", result)
}

type reviewPayload struct {
	Decision   string `json:"decision" validate:"required"`
	ReviewerID string `json:"reviewer_id"`
}

func (c *ZoneController) Review(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	var payload reviewPayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	zone, err := c.session.Verify(ctx.UserContext(), id, payload.Decision, actor(ctx, payload.ReviewerID))
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Zone "+zone.VerificationState, zone)
}
