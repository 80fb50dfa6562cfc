package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/snapshot"
)

type SyncLogReader interface {
	Recent(ctx context.Context, syncID string, limit int) ([]models.SyncLog, error)
}

type CatalogController struct {
	sync *services.CatalogSynchronizer
	logs SyncLogReader
}

func NewCatalogController(sync *services.CatalogSynchronizer, logs SyncLogReader) *CatalogController {
	return &CatalogController{sync: sync, logs: logs}
}

// Sync applies a JSON catalog snapshot.
func (c *CatalogController) Sync(ctx *fiber.Ctx) error {
	var snap services.CatalogSnapshot
	if err := bind(ctx, &snap); err != nil {
		return handleError(ctx, err)
	}
	if snap.Source == "" {
		snap.Source = "api"
	}
	return c.apply(ctx, snap)
}

// Upload applies a catalog snapshot sent as an .xlsx or .csv file in the "file" field.
func (c *CatalogController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: "is required"})
	}
	if !snapshot.Supported(fileHeader.Filename) {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: "must be .xlsx or .csv"})
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
	snap, err := snapshot.ParseCatalog(rows, fileHeader.Filename)
	if err != nil {
		return handleError(ctx, &services.ValidationError{Field: "file", Message: err.Error()})
	}
	return c.apply(ctx, snap)
}

func (c *CatalogController) apply(ctx *fiber.Ctx, snap services.CatalogSnapshot) error {
	result, err := c.sync.Sync(ctx.UserContext(), snap)
	var partial *services.PartialBatchFailure
	if errors.As(err, &partial) {
		return failure(ctx, fiber.StatusMultiStatus, "Catalog synced with failed batches", fiber.Map{
			"result":   result,
			"failures": batchFailures(partial.Failures),
		})
	}
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Catalog synced", result)
}

func (c *CatalogController) Logs(ctx *fiber.Ctx) error {
	entries, err := c.logs.Recent(ctx.UserContext(), ctx.Query("sync_id"), ctx.QueryInt("limit", 100))
	if err != nil {
		return handleError(ctx, err)
	}
	return success(ctx, fiber.StatusOK, "Sync logs", entries)
}
