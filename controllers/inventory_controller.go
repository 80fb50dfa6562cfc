package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/snapshot"
)

type InventoryRunController struct {
	runs *services.InventoryRunService
}

func NewInventoryRunController(runs *services.InventoryRunService) *InventoryRunController {
	return &InventoryRunController{runs: runs}
}

// CheckConsecutive is advisory. A store failure answers 503 so the client can
// ask the administrator to confirm the number by hand.
func (c *InventoryRunController) CheckConsecutive(ctx *fiber.Ctx) error {
	check, err := c.runs.CheckConsecutive(ctx.UserContext(), ctx.Query("site"), ctx.QueryInt("consecutive", 0))
	if err != nil {
		var validation *services.ValidationError
		if errors.As(err, &validation) {
			return handleError(ctx, err)
		}
		return failure(ctx, fiber.StatusServiceUnavailable, "Consecutive number could not be verified", fiber.Map{
			"confirmation_required": true,
			"error":                 err.Error(),
		})
	}
	return success(ctx, fiber.StatusOK, "Consecutive checked", check)
}

type createRunPayload struct {
	ConsecutiveNumber int                      `json:"consecutive_number" validate:"required,gt=0"`
	Site              string                   `json:"site" validate:"required,max=64"`
	Category          string                   `json:"category" validate:"max=100"`
	StartDate         string                   `json:"start_date"`
	Expected          []services.ExpectedInput `json:"expected" validate:"required,min=1,dive"`
	Confirmed         bool                     `json:"confirmed"`
	CreatedBy         string                   `json:"created_by"`
}

func (c *InventoryRunController) Create(ctx *fiber.Ctx) error {
	var payload createRunPayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	start, err := parseStartDate(payload.StartDate)
	if err != nil {
		return handleError(ctx, err)
	}

	run, err := c.runs.Create(ctx.UserContext(), services.CreateRunInput{
		ConsecutiveNumber: payload.ConsecutiveNumber,
		Site:              payload.Site,
		Category:          payload.Category,
		StartDate:         start,
		Expected:          payload.Expected,
		Confirmed:         payload.Confirmed,
		CreatedBy:         actor(ctx, payload.CreatedBy),
	})
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusCreated, "Inventory run created", run)
}

// Upload creates a run from a multipart form whose "file" holds the theoretical quantities.
func (c *InventoryRunController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: "is required"})
	}
	if !snapshot.Supported(fileHeader.Filename) {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: "must be .xlsx or .csv"})
	}
	consecutive, err := strconv.Atoi(strings.TrimSpace(ctx.FormValue("consecutive_number")))
	if err != nil {
		return handleError(ctx, &services.ValidationError{Field: "consecutive_number", Message: "must be a number"})
	}
	start, err := parseStartDate(ctx.FormValue("start_date"))
	if err != nil {
		return handleError(ctx, err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return handleError(ctx, err)
	}
	defer file.Close()

	rows, err := snapshot.ReadRows(file, fileHeader.Filename)
	if err != nil {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: err.Error()})
	}
	expected, err := snapshot.ParseExpected(rows)
	if err != nil {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: err.Error()})
	}

	confirmed, _ := strconv.ParseBool(ctx.FormValue("confirmed"))
	run, err := c.runs.Create(ctx.UserContext(), services.CreateRunInput{
		ConsecutiveNumber: consecutive,
		Site:              ctx.FormValue("site"),
		Category:          ctx.FormValue("category"),
		StartDate:         start,
		Expected:          expected,
		Confirmed:         confirmed,
		CreatedBy:         actor(ctx, ctx.FormValue("created_by")),
	})
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusCreated, "Inventory run created", fiber.Map{
		"run":            run,
		"expected_items": len(expected),
	})
}

func parseStartDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &services.ValidationError{Field: "start_date", Message: "must be YYYY-MM-DD or RFC3339"}
}

func (c *InventoryRunController) List(ctx *fiber.Ctx) error {
	runs, err := c.runs.List(ctx.UserContext(), services.RunFilter{
		Site:          ctx.Query("site"),
		State:         ctx.Query("state"),
		ApprovalState: ctx.Query("approval_state"),
	})
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Inventory runs found", runs)
}

func (c *InventoryRunController) Get(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	run, err := c.runs.Get(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Inventory run found", run)
}

func (c *InventoryRunController) Finalize(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	run, err := c.runs.Finalize(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Inventory run finalized", run)
}

func (c *InventoryRunController) Review(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	var payload reviewPayload
	if err := bind(ctx, &payload); err != nil {
		return handleError(ctx, err)
	}
	run, err := c.runs.Review(ctx.UserContext(), id, payload.Decision, actor(ctx, payload.ReviewerID))
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Inventory run "+run.ApprovalState, run)
}

func (c *InventoryRunController) Totals(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return handleError(ctx, err)
	}
	totals, err := c.runs.Totals(ctx.UserContext(), id)
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Inventory run totals", totals)
}
