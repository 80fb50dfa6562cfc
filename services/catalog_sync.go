package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"go.uber.org/zap"
)

// Sync phases, in execution order.
const (
	PhaseItemUpserts          = "item_upserts"
	PhaseBarcodeUpserts       = "barcode_upserts"
	PhaseBarcodeDeactivations = "barcode_deactivations"
	PhaseItemDeactivations    = "item_deactivations"
	DefaultSyncBatchSize      = 500
)

type SnapshotItem struct {
	ItemID      string `json:"item_id" validate:"required"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

type SnapshotBarcode struct {
	Barcode       string `json:"barcode" validate:"required"`
	ItemID        string `json:"item_id" validate:"required"`
	UnitOfMeasure string `json:"unit_of_measure"`
}

// CatalogSnapshot is the full external catalog. Anything missing from it is deactivated.
type CatalogSnapshot struct {
	Source   string            `json:"source"`
	Items    []SnapshotItem    `json:"items" validate:"dive"`
	Barcodes []SnapshotBarcode `json:"barcodes" validate:"dive"`
}

// Normalize trims keys, keeps the first occurrence of each key and drops
// barcodes whose item is not in the snapshot. It returns the number of rows dropped.
func (s CatalogSnapshot) Normalize() (CatalogSnapshot, int) {
	out := CatalogSnapshot{Source: s.Source}
	skipped := 0

	items := make(map[string]struct{}, len(s.Items))
	for _, it := range s.Items {
		it.ItemID = strings.TrimSpace(it.ItemID)
		it.Description = strings.TrimSpace(it.Description)
		it.Group = strings.TrimSpace(it.Group)
		if it.ItemID == "" {
			skipped++
			continue
		}
		if _, dup := items[it.ItemID]; dup {
			skipped++
			continue
		}
		items[it.ItemID] = struct{}{}
		out.Items = append(out.Items, it)
	}

	barcodes := make(map[string]struct{}, len(s.Barcodes))
	for _, b := range s.Barcodes {
		b.Barcode = strings.TrimSpace(b.Barcode)
		b.ItemID = strings.TrimSpace(b.ItemID)
		b.UnitOfMeasure = normalizeUnit(b.UnitOfMeasure)
		if b.UnitOfMeasure == "" {
			b.UnitOfMeasure = BaseUnit
		}
		if b.Barcode == "" {
			skipped++
			continue
		}
		if _, known := items[b.ItemID]; !known {
			skipped++
			continue
		}
		if _, dup := barcodes[b.Barcode]; dup {
			skipped++
			continue
		}
		barcodes[b.Barcode] = struct{}{}
		out.Barcodes = append(out.Barcodes, b)
	}
	return out, skipped
}

type SyncResult struct {
	SyncID              string `json:"sync_id"`
	ItemsUpserted       int    `json:"items_upserted"`
	BarcodesUpserted    int    `json:"barcodes_upserted"`
	ItemsDeactivated    int    `json:"items_deactivated"`
	BarcodesDeactivated int    `json:"barcodes_deactivated"`
	Skipped             int    `json:"skipped"`
}

type CatalogSynchronizer struct {
	store     CatalogStore
	logs      SyncLogStore
	batchSize int
	log       *zap.Logger
}

func NewCatalogSynchronizer(store CatalogStore, logs SyncLogStore, batchSize int, log *zap.Logger) *CatalogSynchronizer {
	if batchSize <= 0 {
		batchSize = DefaultSyncBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogSynchronizer{store: store, logs: logs, batchSize: batchSize, log: log}
}

// Sync applies the snapshot as a set difference against the stored catalog.
// Only new, changed or reactivated rows are written, so repeating a sync is a no-op.
// Failed batches are reported in a *PartialBatchFailure while the rest commit.
func (s *CatalogSynchronizer) Sync(ctx context.Context, snapshot CatalogSnapshot) (*SyncResult, error) {
	snap, skipped := snapshot.Normalize()
	if len(snap.Items) == 0 {
		return nil, invalid("items", "snapshot has no items, refusing to deactivate the whole catalog")
	}

	items, barcodes, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	plan := diffCatalog(snap, items, barcodes)

	result := &SyncResult{SyncID: uuid.NewString(), Skipped: skipped}
	run := &syncRun{sync: s, id: result.SyncID, source: snap.Source}

	result.ItemsUpserted = run.batches(ctx, PhaseItemUpserts, itemKeys(plan.upsertItems), func(ctx context.Context, lo, hi int) error {
		return s.store.UpsertItems(ctx, plan.upsertItems[lo:hi])
	})
	result.BarcodesUpserted = run.batches(ctx, PhaseBarcodeUpserts, barcodeKeys(plan.upsertBarcodes), func(ctx context.Context, lo, hi int) error {
		return s.store.UpsertBarcodes(ctx, plan.upsertBarcodes[lo:hi])
	})
	result.BarcodesDeactivated = run.batches(ctx, PhaseBarcodeDeactivations, plan.deactivateBarcodes, func(ctx context.Context, lo, hi int) error {
		return s.store.DeactivateBarcodes(ctx, plan.deactivateBarcodes[lo:hi])
	})
	result.ItemsDeactivated = run.batches(ctx, PhaseItemDeactivations, plan.deactivateItems, func(ctx context.Context, lo, hi int) error {
		return s.store.DeactivateItems(ctx, plan.deactivateItems[lo:hi])
	})

	if s.logs != nil && len(run.entries) > 0 {
		if err := s.logs.WriteSyncLogs(ctx, run.entries); err != nil {
			s.log.Warn("write sync logs", zap.String("sync_id", result.SyncID), zap.Error(err))
		}
	}

	s.log.Info("catalog synced",
		zap.String("sync_id", result.SyncID),
		zap.String("source", snap.Source),
		zap.Int("items_upserted", result.ItemsUpserted),
		zap.Int("barcodes_upserted", result.BarcodesUpserted),
		zap.Int("items_deactivated", result.ItemsDeactivated),
		zap.Int("barcodes_deactivated", result.BarcodesDeactivated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed_batches", len(run.failures)))

	if len(run.failures) > 0 {
		return result, &PartialBatchFailure{SyncID: result.SyncID, Failures: run.failures}
	}
	return result, nil
}

type catalogPlan struct {
	upsertItems        []models.Item
	upsertBarcodes     []models.BarcodeUnit
	deactivateItems    []string
	deactivateBarcodes []string
}

func diffCatalog(snap CatalogSnapshot, items []models.Item, barcodes []models.BarcodeUnit) catalogPlan {
	var plan catalogPlan

	storedItems := make(map[string]models.Item, len(items))
	for _, it := range items {
		storedItems[it.ItemID] = it
	}
	seenItems := make(map[string]struct{}, len(snap.Items))
	for _, it := range snap.Items {
		seenItems[it.ItemID] = struct{}{}
		cur, ok := storedItems[it.ItemID]
		if ok && cur.Active && cur.Description == it.Description && cur.Group == it.Group {
			continue
		}
		plan.upsertItems = append(plan.upsertItems, models.Item{
			ItemID:      it.ItemID,
			Description: it.Description,
			Group:       it.Group,
			Active:      true,
		})
	}
	for _, it := range items {
		if _, ok := seenItems[it.ItemID]; !ok && it.Active {
			plan.deactivateItems = append(plan.deactivateItems, it.ItemID)
		}
	}

	storedBarcodes := make(map[string]models.BarcodeUnit, len(barcodes))
	for _, b := range barcodes {
		storedBarcodes[b.Barcode] = b
	}
	seenBarcodes := make(map[string]struct{}, len(snap.Barcodes))
	for _, b := range snap.Barcodes {
		seenBarcodes[b.Barcode] = struct{}{}
		cur, ok := storedBarcodes[b.Barcode]
		if ok && cur.Active && cur.ItemID == b.ItemID && cur.UnitOfMeasure == b.UnitOfMeasure {
			continue
		}
		plan.upsertBarcodes = append(plan.upsertBarcodes, models.BarcodeUnit{
			Barcode:       b.Barcode,
			ItemID:        b.ItemID,
			UnitOfMeasure: b.UnitOfMeasure,
			Active:        true,
		})
	}
	for _, b := range barcodes {
		if _, ok := seenBarcodes[b.Barcode]; !ok && b.Active {
			plan.deactivateBarcodes = append(plan.deactivateBarcodes, b.Barcode)
		}
	}

	sort.Slice(plan.upsertItems, func(i, j int) bool { return plan.upsertItems[i].ItemID < plan.upsertItems[j].ItemID })
	sort.Slice(plan.upsertBarcodes, func(i, j int) bool { return plan.upsertBarcodes[i].Barcode < plan.upsertBarcodes[j].Barcode })
	sort.Strings(plan.deactivateItems)
	sort.Strings(plan.deactivateBarcodes)
	return plan
}

func itemKeys(items []models.Item) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.ItemID
	}
	return keys
}

func barcodeKeys(barcodes []models.BarcodeUnit) []string {
	keys := make([]string, len(barcodes))
	for i, b := range barcodes {
		keys[i] = b.Barcode
	}
	return keys
}

// syncRun accumulates batch outcomes for one Sync call.
type syncRun struct {
	sync     *CatalogSynchronizer
	id       string
	source   string
	failures []BatchFailure
	entries  []models.SyncLog
}

// batches applies fn to consecutive windows of keys and returns how many keys committed.
func (r *syncRun) batches(ctx context.Context, phase string, keys []string, fn func(ctx context.Context, lo, hi int) error) int {
	size := r.sync.batchSize
	applied := 0
	for batch, lo := 0, 0; lo < len(keys); batch, lo = batch+1, lo+size {
		hi := lo + size
		if hi > len(keys) {
			hi = len(keys)
		}
		entry := models.SyncLog{
			SyncID:     r.id,
			Source:     r.source,
			Phase:      phase,
			BatchIndex: batch,
			KeyCount:   hi - lo,
			FirstKey:   keys[lo],
			LastKey:    keys[hi-1],
			Status:     models.SyncStatusOK,
		}
		if err := fn(ctx, lo, hi); err != nil {
			batchKeys := append([]string(nil), keys[lo:hi]...)
			r.failures = append(r.failures, BatchFailure{Phase: phase, Batch: batch, Keys: batchKeys, Err: err})
			entry.Status = models.SyncStatusFailed
			entry.Message = err.Error()
			r.sync.log.Error("catalog sync batch failed",
				zap.String("sync_id", r.id),
				zap.String("phase", phase),
				zap.Int("batch", batch),
				zap.Error(err))
		} else {
			applied += hi - lo
		}
		r.entries = append(r.entries, entry)
	}
	return applied
}
