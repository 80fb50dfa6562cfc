package services

import (
	"context"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
)

// Lookups return a nil record and a nil error when nothing matches.

// CatalogLookup is the read side of the catalog used by the resolver and reports.
type CatalogLookup interface {
	FindActiveBarcode(ctx context.Context, barcode string) (*models.BarcodeUnit, error)
	FindActiveItem(ctx context.Context, itemID string) (*models.Item, error)
	// ActiveUnits returns the item's active barcode units ordered by barcode.
	ActiveUnits(ctx context.Context, itemID string) ([]models.BarcodeUnit, error)
	// BarcodesByLength returns active barcodes whose length is within [minLen, maxLen].
	BarcodesByLength(ctx context.Context, minLen, maxLen int) ([]models.BarcodeUnit, error)
	ItemsByIDs(ctx context.Context, itemIDs []string) ([]models.Item, error)
}

// CatalogStore is the write side used by the synchronizer. Every call is its own transaction.
type CatalogStore interface {
	// LoadCatalog returns every item and barcode, active or not.
	LoadCatalog(ctx context.Context) ([]models.Item, []models.BarcodeUnit, error)
	UpsertItems(ctx context.Context, items []models.Item) error
	UpsertBarcodes(ctx context.Context, barcodes []models.BarcodeUnit) error
	DeactivateItems(ctx context.Context, itemIDs []string) error
	DeactivateBarcodes(ctx context.Context, barcodes []string) error
}

type RunFilter struct {
	Site          string
	State         string
	ApprovalState string
}

type RunStore interface {
	ConsecutiveExists(ctx context.Context, site string, consecutive int) (bool, error)
	// CreateRun inserts the run and its expected quantities together.
	// A taken (consecutive, site) pair surfaces as gorm.ErrDuplicatedKey.
	CreateRun(ctx context.Context, run *models.InventoryRun, expected []models.ExpectedQuantity) error
	GetRun(ctx context.Context, id types.SnowflakeID) (*models.InventoryRun, error)
	FindRun(ctx context.Context, consecutive int, site string) (*models.InventoryRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]models.InventoryRun, error)
	// FinalizeRun and ReviewRun are conditioned updates; false means the run was not in the required state.
	FinalizeRun(ctx context.Context, id types.SnowflakeID) (bool, error)
	ReviewRun(ctx context.Context, id types.SnowflakeID, decision, reviewer string, at time.Time) (bool, error)
	ExpectedQuantities(ctx context.Context, consecutive int, site string) ([]models.ExpectedQuantity, error)
	ScopeContains(ctx context.Context, consecutive int, site, itemID string) (bool, error)
	RunTotals(ctx context.Context, runID types.SnowflakeID) ([]models.RunTotal, error)
}

type ZoneFilter struct {
	RunID             types.SnowflakeID
	Operator          string
	State             string
	VerificationState string
}

type ZoneStore interface {
	ActiveZoneFor(ctx context.Context, operator string) (*models.Zone, error)
	// CreateZone inserts the zone and the operator's active session together.
	// gorm.ErrDuplicatedKey means the operator already holds an in-progress zone.
	CreateZone(ctx context.Context, zone *models.Zone) error
	GetZone(ctx context.Context, id types.SnowflakeID) (*models.Zone, error)
	ListZones(ctx context.Context, filter ZoneFilter) ([]models.Zone, error)
	FinalizeZone(ctx context.Context, id types.SnowflakeID, at time.Time) (bool, error)
	// ApproveZone flips finalized+pending to approved and merges the zone
	// sums into the run totals in one transaction.
	ApproveZone(ctx context.Context, id types.SnowflakeID, reviewer string, at time.Time) (bool, error)
	RejectZone(ctx context.Context, id types.SnowflakeID, reviewer string, at time.Time) (bool, error)

	AddEvent(ctx context.Context, event *models.CountEvent) (bool, error)
	ListEvents(ctx context.Context, zoneID types.SnowflakeID) ([]models.CountEvent, error)
	// DeleteEvent only deletes while the zone verification is still pending.
	DeleteEvent(ctx context.Context, zoneID, eventID types.SnowflakeID) (bool, error)
	CountEvents(ctx context.Context, zoneID types.SnowflakeID) (int64, error)

	MarkZeroStock(ctx context.Context, mark *models.ZeroStockMark) error
	ZeroStockItems(ctx context.Context, zoneID types.SnowflakeID) ([]string, error)
}

// EventStore groups count events by item and location tag.
type EventStore interface {
	SumsByZone(ctx context.Context, zoneID types.SnowflakeID) ([]models.QuantityRow, error)
	// SumsByRun only includes approved zones.
	SumsByRun(ctx context.Context, runID types.SnowflakeID) ([]models.QuantityRow, error)
	// CountedItemsInRun lists items with events in any non-rejected zone.
	CountedItemsInRun(ctx context.Context, runID types.SnowflakeID) ([]string, error)
}

type AdjustmentStore interface {
	// RecordAdjustment upserts the record for its key and appends the audit log.
	RecordAdjustment(ctx context.Context, adjustment *models.RecountAdjustment) error
	Adjustments(ctx context.Context, consecutive int, site string) ([]models.RecountAdjustment, error)
	// PromoteAdjustment marks the adjustment promoted and writes it into the run totals.
	PromoteAdjustment(ctx context.Context, runID types.SnowflakeID, consecutive int, site, itemID, by string, at time.Time) (*models.RecountAdjustment, error)
}

type SyncLogStore interface {
	WriteSyncLogs(ctx context.Context, logs []models.SyncLog) error
}

// Notifier delivers administrator notices. Failures never roll back the operation.
type Notifier interface {
	ZoneFinalized(ctx context.Context, zone models.Zone, pendingItems []string) error
	SyncCompleted(ctx context.Context, source string, result *SyncResult, syncErr error) error
}

// NopNotifier discards every notice.
type NopNotifier struct{}

func (NopNotifier) ZoneFinalized(context.Context, models.Zone, []string) error { return nil }

func (NopNotifier) SyncCompleted(context.Context, string, *SyncResult, error) error { return nil }
