package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSnapshot() CatalogSnapshot {
	return CatalogSnapshot{
		Source: "test",
		Items: []SnapshotItem{
			{ItemID: "A100", Description: "Arroz", Group: "Granos"},
			{ItemID: "B200", Description: "Frijol", Group: "Granos"},
		},
		Barcodes: []SnapshotBarcode{
			{Barcode: "770100", ItemID: "A100", UnitOfMeasure: "und"},
			{Barcode: "770112", ItemID: "A100", UnitOfMeasure: "X12"},
			{Barcode: "880200", ItemID: "B200"},
		},
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	m := newMemStore()
	s := NewCatalogSynchronizer(m, m, 0, nil)
	ctx := context.Background()

	first, err := s.Sync(ctx, baseSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 2, first.ItemsUpserted)
	assert.Equal(t, 3, first.BarcodesUpserted)
	assert.NotEmpty(t, first.SyncID)
	assert.Equal(t, "UND", m.barcodes["770100"].UnitOfMeasure)
	assert.Equal(t, BaseUnit, m.barcodes["880200"].UnitOfMeasure)

	writes := m.catalogWrites
	second, err := s.Sync(ctx, baseSnapshot())
	require.NoError(t, err)
	assert.Zero(t, second.ItemsUpserted)
	assert.Zero(t, second.BarcodesUpserted)
	assert.Zero(t, second.ItemsDeactivated)
	assert.Zero(t, second.BarcodesDeactivated)
	assert.Equal(t, writes, m.catalogWrites)
	assert.NotEqual(t, first.SyncID, second.SyncID)
}

func TestSyncDeactivatesAndReactivates(t *testing.T) {
	m := newMemStore()
	s := NewCatalogSynchronizer(m, m, 0, nil)
	ctx := context.Background()
	_, err := s.Sync(ctx, baseSnapshot())
	require.NoError(t, err)

	shrunk := baseSnapshot()
	shrunk.Items = shrunk.Items[:1]
	shrunk.Barcodes = shrunk.Barcodes[:1]
	res, err := s.Sync(ctx, shrunk)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsDeactivated)
	assert.Equal(t, 2, res.BarcodesDeactivated)
	assert.False(t, m.items["B200"].Active)
	assert.False(t, m.barcodes["880200"].Active)
	assert.Len(t, m.items, 2, "rows are deactivated, never deleted")

	res, err = s.Sync(ctx, baseSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsUpserted)
	assert.Equal(t, 2, res.BarcodesUpserted)
	assert.True(t, m.items["B200"].Active)
}

func TestSyncUpdatesChangedRows(t *testing.T) {
	m := newMemStore()
	s := NewCatalogSynchronizer(m, m, 0, nil)
	ctx := context.Background()
	_, err := s.Sync(ctx, baseSnapshot())
	require.NoError(t, err)

	changed := baseSnapshot()
	changed.Items[0].Description = "Arroz blanco"
	changed.Barcodes[1].UnitOfMeasure = "X24"
	res, err := s.Sync(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsUpserted)
	assert.Equal(t, 1, res.BarcodesUpserted)
	assert.Equal(t, "Arroz blanco", m.items["A100"].Description)
	assert.Equal(t, "X24", m.barcodes["770112"].UnitOfMeasure)
}

func TestNormalizeSnapshot(t *testing.T) {
	snap := CatalogSnapshot{
		Items: []SnapshotItem{
			{ItemID: " A100 ", Description: "first"},
			{ItemID: "A100", Description: "second"},
			{ItemID: ""},
		},
		Barcodes: []SnapshotBarcode{
			{Barcode: "770100", ItemID: "A100"},
			{Barcode: "770100", ItemID: "A100", UnitOfMeasure: "X6"},
			{Barcode: "999", ItemID: "Z999"},
			{Barcode: " ", ItemID: "A100"},
		},
	}
	out, skipped := snap.Normalize()
	require.Len(t, out.Items, 1)
	assert.Equal(t, "A100", out.Items[0].ItemID)
	assert.Equal(t, "first", out.Items[0].Description)
	require.Len(t, out.Barcodes, 1)
	assert.Equal(t, BaseUnit, out.Barcodes[0].UnitOfMeasure)
	assert.Equal(t, 5, skipped)
}

func TestSyncPartialBatchFailure(t *testing.T) {
	m := newMemStore()
	boom := errors.New("deadlock victim")
	m.failItemBatch = func(batch []models.Item) error {
		for _, it := range batch {
			if it.ItemID == "I03" {
				return boom
			}
		}
		return nil
	}
	s := NewCatalogSynchronizer(m, m, 2, nil)

	snap := CatalogSnapshot{Source: "batches.csv"}
	for _, id := range []string{"I05", "I01", "I04", "I02", "I03"} {
		snap.Items = append(snap.Items, SnapshotItem{ItemID: id})
	}

	res, err := s.Sync(context.Background(), snap)
	require.Error(t, err)
	var partial *PartialBatchFailure
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, boom)
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, PhaseItemUpserts, partial.Failures[0].Phase)
	assert.Equal(t, 1, partial.Failures[0].Batch)
	assert.Equal(t, []string{"I03", "I04"}, partial.Failures[0].Keys)

	require.NotNil(t, res)
	assert.Equal(t, 3, res.ItemsUpserted)
	assert.Contains(t, m.items, "I01")
	assert.Contains(t, m.items, "I05")
	assert.NotContains(t, m.items, "I03")

	require.Len(t, m.syncLogs, 3)
	assert.Equal(t, models.SyncStatusFailed, m.syncLogs[1].Status)
	assert.Equal(t, "I03", m.syncLogs[1].FirstKey)
	assert.Equal(t, "batches.csv", m.syncLogs[1].Source)

	// the retry only rewrites what is still missing
	m.failItemBatch = nil
	res, err = s.Sync(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ItemsUpserted)
}

func TestSyncRefusesEmptySnapshot(t *testing.T) {
	m := newMemStore()
	m.addItem("A100", "Arroz", true)
	s := NewCatalogSynchronizer(m, m, 0, nil)

	_, err := s.Sync(context.Background(), CatalogSnapshot{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, m.items["A100"].Active)
}
