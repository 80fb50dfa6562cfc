package repositories

import (
	"context"
	"testing"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCountingFlowOnSQLite drives the services over the gorm stores.
func TestCountingFlowOnSQLite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	catalog := NewCatalogRepository(db)
	runs := NewInventoryRunRepository(db)
	zones := NewZoneRepository(db)
	adjustments := NewAdjustmentRepository(db)

	syncer := services.NewCatalogSynchronizer(catalog, NewSyncLogRepository(db), 2, nil)
	_, err := syncer.Sync(ctx, services.CatalogSnapshot{
		Items: []services.SnapshotItem{{ItemID: "A100", Description: "Arroz"}, {ItemID: "B200", Description: "Frijol"}},
		Barcodes: []services.SnapshotBarcode{
			{Barcode: "770100", ItemID: "A100", UnitOfMeasure: "UND"},
			{Barcode: "770105", ItemID: "A100", UnitOfMeasure: "X5"},
			{Barcode: "880200", ItemID: "B200"},
		},
	})
	require.NoError(t, err)

	again, err := syncer.Sync(ctx, services.CatalogSnapshot{
		Items: []services.SnapshotItem{{ItemID: "A100", Description: "Arroz"}, {ItemID: "B200", Description: "Frijol"}},
		Barcodes: []services.SnapshotBarcode{
			{Barcode: "770100", ItemID: "A100", UnitOfMeasure: "UND"},
			{Barcode: "770105", ItemID: "A100", UnitOfMeasure: "X5"},
			{Barcode: "880200", ItemID: "B200"},
		},
	})
	require.NoError(t, err)
	assert.Zero(t, again.ItemsUpserted+again.BarcodesUpserted+again.ItemsDeactivated+again.BarcodesDeactivated)

	runService := services.NewInventoryRunService(runs, services.RetryPolicy{Attempts: 1}, nil)
	run, err := runService.Create(ctx, services.CreateRunInput{
		ConsecutiveNumber: 12,
		Site:              "S1",
		Expected:          []services.ExpectedInput{{ItemID: "A100", Quantity: 50}, {ItemID: "B200", Quantity: 10}},
	})
	require.NoError(t, err)

	resolver := services.NewProductResolver(catalog, 0.6, nil)
	session := services.NewCountingSession(zones, runs, zones, resolver, nil, nil)

	started, err := session.Start(ctx, services.StartInput{Operator: "op@site.co", InventoryRunID: run.ID})
	require.NoError(t, err)
	resumed, err := session.Start(ctx, services.StartInput{Operator: "op@site.co"})
	require.NoError(t, err)
	assert.Equal(t, started.ZoneID, resumed.ZoneID)

	for _, in := range []services.SubmitInput{
		{ScannedCode: "770100", QuantityMultiplier: 20, LocationTag: models.LocationPointOfSale},
		{ScannedCode: "770105", QuantityMultiplier: 5, LocationTag: models.LocationWarehouse},
		{ScannedCode: "B200", QuantityMultiplier: 10},
	} {
		in.ZoneID = started.ZoneID
		_, err := session.Submit(ctx, in)
		require.NoError(t, err)
	}

	finalized, err := session.Finalize(ctx, started.ZoneID)
	require.NoError(t, err)
	assert.Empty(t, finalized.PendingZeroCountItems)
	_, err = session.Verify(ctx, started.ZoneID, services.DecisionApprove, "admin@site.co")
	require.NoError(t, err)

	engine := services.NewReconciliationEngine(runs, catalog, services.NewAggregator(zones), adjustments, services.DefaultThresholds, nil)
	notable, err := engine.Notable(ctx, 12, "S1")
	require.NoError(t, err)
	require.Len(t, notable, 1)
	assert.Equal(t, "A100", notable[0].ItemID)
	assert.Equal(t, 45.0, notable[0].FirstPhysical)
	assert.Equal(t, 20.0, notable[0].PointOfSale)
	assert.Equal(t, 25.0, notable[0].Warehouse)
	assert.Equal(t, -5.0, notable[0].Variance)

	_, err = engine.RecordAdjustment(ctx, services.AdjustmentInput{ConsecutiveNumber: 12, Site: "S1", ItemID: "A100", AdjustedQuantity: 50})
	require.NoError(t, err)
	rows, err := engine.Reconcile(ctx, 12, "S1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rows[0].EffectiveCount)
	assert.Equal(t, -5.0, rows[0].Variance)

	totals, err := runService.Totals(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, totals, 2)
}
