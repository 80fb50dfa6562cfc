package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// ReconciliationRow compares theoretical, first physical and recount figures for one item.
type ReconciliationRow struct {
	ItemID         string   `json:"item_id"`
	Description    string   `json:"description"`
	Group          string   `json:"group"`
	Expected       float64  `json:"expected"`
	FirstPhysical  float64  `json:"first_physical"`
	PointOfSale    float64  `json:"conteo_punto_venta"`
	Warehouse      float64  `json:"conteo_bodega"`
	Adjusted       *float64 `json:"adjusted"`
	Promoted       bool     `json:"promoted"`
	EffectiveCount float64  `json:"effective_count"`
	Variance       float64  `json:"variance"`
	Notable        bool     `json:"notable"`
}

// Thresholds decide when a variance deserves a second count.
type Thresholds struct {
	Absolute float64
	Relative float64
}

var DefaultThresholds = Thresholds{Absolute: 5, Relative: 0.10}

// IsNotable flags a variance by absolute size, by ratio to expected, or any count against zero expected.
func (t Thresholds) IsNotable(expected, variance float64) bool {
	if variance == 0 {
		return false
	}
	if math.Abs(variance) >= t.Absolute {
		return true
	}
	if expected == 0 {
		return true
	}
	return math.Abs(variance)/math.Abs(expected) >= t.Relative
}

type AdjustmentInput struct {
	ConsecutiveNumber int
	Site              string
	ItemID            string
	AdjustedQuantity  float64
	PreviousQuantity  *float64
	RecordedBy        string
}

type ReconciliationEngine struct {
	runs        RunStore
	catalog     CatalogLookup
	aggregator  *Aggregator
	adjustments AdjustmentStore
	thresholds  Thresholds
	log         *zap.Logger
	now         func() time.Time
}

func NewReconciliationEngine(runs RunStore, catalog CatalogLookup, aggregator *Aggregator, adjustments AdjustmentStore, thresholds Thresholds, log *zap.Logger) *ReconciliationEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationEngine{
		runs:        runs,
		catalog:     catalog,
		aggregator:  aggregator,
		adjustments: adjustments,
		thresholds:  thresholds,
		log:         log,
		now:         time.Now,
	}
}

func (e *ReconciliationEngine) findRun(ctx context.Context, consecutive int, site string) (*models.InventoryRun, error) {
	site = strings.TrimSpace(site)
	if consecutive <= 0 {
		return nil, invalid("consecutive_number", "must be positive")
	}
	if site == "" {
		return nil, invalid("site", "must not be blank")
	}
	run, err := e.runs.FindRun(ctx, consecutive, site)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, notFound("inventory run", fmt.Sprintf("%d@%s", consecutive, site))
	}
	return run, nil
}

// Reconcile builds one row per item in the run's theoretical snapshot.
func (e *ReconciliationEngine) Reconcile(ctx context.Context, consecutive int, site string) ([]ReconciliationRow, error) {
	run, err := e.findRun(ctx, consecutive, site)
	if err != nil {
		return nil, err
	}
	expected, err := e.runs.ExpectedQuantities(ctx, run.ConsecutiveNumber, run.Site)
	if err != nil {
		return nil, fmt.Errorf("load expected quantities: %w", err)
	}
	physical, err := e.aggregator.Aggregate(ctx, RunScope(run.ID))
	if err != nil {
		return nil, err
	}
	adjustments, err := e.adjustments.Adjustments(ctx, run.ConsecutiveNumber, run.Site)
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}
	byItem := make(map[string]models.RecountAdjustment, len(adjustments))
	for _, a := range adjustments {
		byItem[a.ItemID] = a
	}

	ids := make([]string, 0, len(expected))
	for _, x := range expected {
		ids = append(ids, x.ItemID)
	}
	items, err := e.catalog.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	catalog := make(map[string]models.Item, len(items))
	for _, it := range items {
		catalog[it.ItemID] = it
	}

	rows := make([]ReconciliationRow, 0, len(expected))
	for _, x := range expected {
		totals := physical[x.ItemID]
		row := ReconciliationRow{
			ItemID:         x.ItemID,
			Description:    catalog[x.ItemID].Description,
			Group:          catalog[x.ItemID].Group,
			Expected:       x.Quantity,
			FirstPhysical:  totals.Total,
			PointOfSale:    totals.PointOfSale,
			Warehouse:      totals.Warehouse,
			EffectiveCount: totals.Total,
			Variance:       totals.Total - x.Quantity,
		}
		if adj, ok := byItem[x.ItemID]; ok {
			v := adj.AdjustedQuantity
			row.Adjusted = &v
			row.Promoted = adj.Promoted
			row.EffectiveCount = v
		}
		row.Notable = e.thresholds.IsNotable(row.Expected, row.Variance)
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b ReconciliationRow) int {
		va, vb := math.Abs(a.Variance), math.Abs(b.Variance)
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return strings.Compare(a.ItemID, b.ItemID)
	})
	return rows, nil
}

// Notable keeps only the rows that need a second count.
func (e *ReconciliationEngine) Notable(ctx context.Context, consecutive int, site string) ([]ReconciliationRow, error) {
	rows, err := e.Reconcile(ctx, consecutive, site)
	if err != nil {
		return nil, err
	}
	notable := make([]ReconciliationRow, 0, len(rows))
	for _, r := range rows {
		if r.Notable {
			notable = append(notable, r)
		}
	}
	return notable, nil
}

// RecordAdjustment stores the recount for a notable item. The latest recount wins.
func (e *ReconciliationEngine) RecordAdjustment(ctx context.Context, in AdjustmentInput) (*models.RecountAdjustment, error) {
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, invalid("item_id", "must not be blank")
	}
	if in.AdjustedQuantity < 0 || math.IsNaN(in.AdjustedQuantity) {
		return nil, invalid("adjusted_quantity", "must be zero or greater")
	}
	rows, err := e.Reconcile(ctx, in.ConsecutiveNumber, in.Site)
	if err != nil {
		return nil, err
	}
	var row *ReconciliationRow
	for i := range rows {
		if rows[i].ItemID == itemID {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return nil, invalid("item_id", "item %s is not part of inventory %d at %s", itemID, in.ConsecutiveNumber, in.Site)
	}
	if !row.Notable {
		return nil, invalid("item_id", "item %s has no notable difference", itemID)
	}

	previous := row.FirstPhysical
	if in.PreviousQuantity != nil {
		previous = *in.PreviousQuantity
	}
	adj := &models.RecountAdjustment{
		ConsecutiveNumber: in.ConsecutiveNumber,
		Site:              strings.TrimSpace(in.Site),
		ItemID:            itemID,
		AdjustedQuantity:  in.AdjustedQuantity,
		PreviousQuantity:  previous,
		RecordedBy:        strings.TrimSpace(in.RecordedBy),
	}
	if err := e.adjustments.RecordAdjustment(ctx, adj); err != nil {
		return nil, fmt.Errorf("record adjustment: %w", err)
	}
	e.log.Info("recount recorded",
		zap.Int("consecutive", adj.ConsecutiveNumber),
		zap.String("site", adj.Site),
		zap.String("item_id", itemID),
		zap.Float64("adjusted", adj.AdjustedQuantity),
		zap.Float64("previous", previous))
	return adj, nil
}

// PromoteAdjustment makes the recount the run's official figure for the item.
func (e *ReconciliationEngine) PromoteAdjustment(ctx context.Context, consecutive int, site, itemID, by string) (*models.RecountAdjustment, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, invalid("item_id", "must not be blank")
	}
	run, err := e.findRun(ctx, consecutive, site)
	if err != nil {
		return nil, err
	}
	adj, err := e.adjustments.PromoteAdjustment(ctx, run.ID, run.ConsecutiveNumber, run.Site, itemID, strings.TrimSpace(by), e.now())
	if err != nil {
		return nil, fmt.Errorf("promote adjustment: %w", err)
	}
	if adj == nil {
		return nil, notFound("recount adjustment", itemID)
	}
	e.log.Info("recount promoted", zap.String("run_id", run.ID.String()), zap.String("item_id", itemID))
	return adj, nil
}
