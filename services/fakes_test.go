package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kevinpineda22/backend-inventario-sub000/controllers/idgen"
	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for every store port.
type memStore struct {
	mu sync.Mutex

	items    map[string]models.Item
	barcodes map[string]models.BarcodeUnit

	runs     map[types.SnowflakeID]*models.InventoryRun
	expected []models.ExpectedQuantity
	totals   map[types.SnowflakeID]map[string]*models.RunTotal

	zones    map[types.SnowflakeID]*models.Zone
	sessions map[string]types.SnowflakeID
	events   []models.CountEvent
	marks    []models.ZeroStockMark

	adjustments    map[string]*models.RecountAdjustment
	adjustmentLogs []models.RecountAdjustmentLog
	syncLogs       []models.SyncLog

	existsErr       error
	existsCalls     int
	failItemBatch   func(batch []models.Item) error
	catalogWrites   int
	createZoneCalls int
	beforeAddEvent  func()
	beforeFinalize  func()
}

func newMemStore() *memStore {
	return &memStore{
		items:       map[string]models.Item{},
		barcodes:    map[string]models.BarcodeUnit{},
		runs:        map[types.SnowflakeID]*models.InventoryRun{},
		totals:      map[types.SnowflakeID]map[string]*models.RunTotal{},
		zones:       map[types.SnowflakeID]*models.Zone{},
		sessions:    map[string]types.SnowflakeID{},
		adjustments: map[string]*models.RecountAdjustment{},
	}
}

func (m *memStore) addItem(itemID, description string, active bool) {
	m.items[itemID] = models.Item{ItemID: itemID, Description: description, Active: active}
}

func (m *memStore) addBarcode(barcode, itemID, unit string, active bool) {
	m.barcodes[barcode] = models.BarcodeUnit{Barcode: barcode, ItemID: itemID, UnitOfMeasure: unit, Active: active}
}

func (m *memStore) addRun(consecutive int, site string, expected map[string]float64) *models.InventoryRun {
	run := &models.InventoryRun{
		ID:                idgen.GenerateID(),
		ConsecutiveNumber: consecutive,
		Site:              site,
		State:             models.RunStateActive,
		ApprovalState:     models.ApprovalPending,
	}
	m.runs[run.ID] = run
	for itemID, qty := range expected {
		m.expected = append(m.expected, models.ExpectedQuantity{ConsecutiveNumber: consecutive, Site: site, ItemID: itemID, Quantity: qty})
	}
	return run
}

// CatalogLookup

func (m *memStore) FindActiveBarcode(_ context.Context, barcode string) (*models.BarcodeUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.barcodes[barcode]; ok && b.Active {
		return &b, nil
	}
	return nil, nil
}

func (m *memStore) FindActiveItem(_ context.Context, itemID string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[itemID]; ok && it.Active {
		return &it, nil
	}
	return nil, nil
}

func (m *memStore) ActiveUnits(_ context.Context, itemID string) ([]models.BarcodeUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BarcodeUnit
	for _, b := range m.barcodes {
		if b.ItemID == itemID && b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

func (m *memStore) BarcodesByLength(_ context.Context, minLen, maxLen int) ([]models.BarcodeUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BarcodeUnit
	for _, b := range m.barcodes {
		n := utf8.RuneCountInString(b.Barcode)
		if b.Active && n >= minLen && n <= maxLen {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ItemsByIDs(_ context.Context, ids []string) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// CatalogStore

func (m *memStore) LoadCatalog(context.Context) ([]models.Item, []models.BarcodeUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	barcodes := make([]models.BarcodeUnit, 0, len(m.barcodes))
	for _, b := range m.barcodes {
		barcodes = append(barcodes, b)
	}
	return items, barcodes, nil
}

func (m *memStore) UpsertItems(_ context.Context, items []models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failItemBatch != nil {
		if err := m.failItemBatch(items); err != nil {
			return err
		}
	}
	m.catalogWrites++
	for _, it := range items {
		m.items[it.ItemID] = it
	}
	return nil
}

func (m *memStore) UpsertBarcodes(_ context.Context, barcodes []models.BarcodeUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogWrites++
	for _, b := range barcodes {
		m.barcodes[b.Barcode] = b
	}
	return nil
}

func (m *memStore) DeactivateItems(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogWrites++
	for _, id := range ids {
		it := m.items[id]
		it.Active = false
		m.items[id] = it
	}
	return nil
}

func (m *memStore) DeactivateBarcodes(_ context.Context, codes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogWrites++
	for _, c := range codes {
		b := m.barcodes[c]
		b.Active = false
		m.barcodes[c] = b
	}
	return nil
}

// RunStore

func (m *memStore) ConsecutiveExists(_ context.Context, site string, consecutive int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, r := range m.runs {
		if r.Site == site && r.ConsecutiveNumber == consecutive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateRun(_ context.Context, run *models.InventoryRun, expected []models.ExpectedQuantity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.Site == run.Site && r.ConsecutiveNumber == run.ConsecutiveNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	run.ID = idgen.GenerateID()
	cp := *run
	m.runs[run.ID] = &cp
	m.expected = append(m.expected, expected...)
	return nil
}

func (m *memStore) GetRun(_ context.Context, id types.SnowflakeID) (*models.InventoryRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) FindRun(_ context.Context, consecutive int, site string) (*models.InventoryRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.Site == site && r.ConsecutiveNumber == consecutive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListRuns(_ context.Context, f RunFilter) ([]models.InventoryRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InventoryRun
	for _, r := range m.runs {
		if (f.Site == "" || r.Site == f.Site) && (f.State == "" || r.State == f.State) && (f.ApprovalState == "" || r.ApprovalState == f.ApprovalState) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) FinalizeRun(_ context.Context, id types.SnowflakeID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.State != models.RunStateActive {
		return false, nil
	}
	r.State = models.RunStateFinalized
	return true, nil
}

func (m *memStore) ReviewRun(_ context.Context, id types.SnowflakeID, decision, reviewer string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.State != models.RunStateFinalized || r.ApprovalState != models.ApprovalPending {
		return false, nil
	}
	r.ApprovalState = decision
	r.ReviewedBy = reviewer
	r.ReviewedAt = &at
	return true, nil
}

func (m *memStore) ExpectedQuantities(_ context.Context, consecutive int, site string) ([]models.ExpectedQuantity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExpectedQuantity
	for _, e := range m.expected {
		if e.ConsecutiveNumber == consecutive && e.Site == site {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *memStore) ScopeContains(ctx context.Context, consecutive int, site, itemID string) (bool, error) {
	expected, _ := m.ExpectedQuantities(ctx, consecutive, site)
	for _, e := range expected {
		if e.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RunTotals(_ context.Context, runID types.SnowflakeID) ([]models.RunTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RunTotal
	for _, t := range m.totals[runID] {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

// ZoneStore

func (m *memStore) ActiveZoneFor(_ context.Context, operator string) (*models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sessions[operator]
	if !ok {
		return nil, nil
	}
	cp := *m.zones[id]
	return &cp, nil
}

func (m *memStore) CreateZone(_ context.Context, zone *models.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createZoneCalls++
	if _, taken := m.sessions[zone.OperatorEmail]; taken {
		return gorm.ErrDuplicatedKey
	}
	zone.ID = idgen.GenerateID()
	cp := *zone
	m.zones[zone.ID] = &cp
	m.sessions[zone.OperatorEmail] = zone.ID
	return nil
}

func (m *memStore) GetZone(_ context.Context, id types.SnowflakeID) (*models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[id]
	if !ok {
		return nil, nil
	}
	cp := *z
	return &cp, nil
}

func (m *memStore) ListZones(_ context.Context, f ZoneFilter) ([]models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Zone
	for _, z := range m.zones {
		if (f.RunID.IsZero() || z.InventoryRunID == f.RunID) && (f.State == "" || z.State == f.State) &&
			(f.VerificationState == "" || z.VerificationState == f.VerificationState) && (f.Operator == "" || z.OperatorEmail == f.Operator) {
			out = append(out, *z)
		}
	}
	return out, nil
}

func (m *memStore) FinalizeZone(_ context.Context, id types.SnowflakeID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeFinalize != nil {
		m.beforeFinalize()
	}
	z, ok := m.zones[id]
	if !ok || z.State != models.ZoneStateInProgress || !m.hasEvents(id) {
		return false, nil
	}
	z.State = models.ZoneStateFinalized
	z.FinalizedAt = &at
	delete(m.sessions, z.OperatorEmail)
	return true, nil
}

func (m *memStore) ApproveZone(_ context.Context, id types.SnowflakeID, reviewer string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[id]
	if !ok || z.State != models.ZoneStateFinalized || z.VerificationState != models.ApprovalPending {
		return false, nil
	}
	z.VerificationState = models.ApprovalApproved
	z.ReviewerID = reviewer
	z.ReviewedAt = &at
	if m.totals[z.InventoryRunID] == nil {
		m.totals[z.InventoryRunID] = map[string]*models.RunTotal{}
	}
	for _, e := range m.events {
		if e.ZoneID != id {
			continue
		}
		t := m.totals[z.InventoryRunID][e.ItemID]
		if t == nil {
			t = &models.RunTotal{InventoryRunID: z.InventoryRunID, ItemID: e.ItemID}
			m.totals[z.InventoryRunID][e.ItemID] = t
		}
		var it models.ItemTotals
		it.Add(e.LocationTag, e.Quantity)
		t.Quantity += it.Total
		t.PointOfSale += it.PointOfSale
		t.Warehouse += it.Warehouse
	}
	return true, nil
}

func (m *memStore) RejectZone(_ context.Context, id types.SnowflakeID, reviewer string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zones[id]
	if !ok || z.State != models.ZoneStateFinalized || z.VerificationState != models.ApprovalPending {
		return false, nil
	}
	z.VerificationState = models.ApprovalRejected
	z.ReviewerID = reviewer
	z.ReviewedAt = &at
	return true, nil
}

func (m *memStore) AddEvent(_ context.Context, e *models.CountEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeAddEvent != nil {
		m.beforeAddEvent()
	}
	if z, ok := m.zones[e.ZoneID]; !ok || z.State != models.ZoneStateInProgress {
		return false, nil
	}
	m.putEvent(e)
	return true, nil
}

// putEvent stores an event regardless of zone state. Callers hold m.mu or
// own the store.
func (m *memStore) putEvent(e *models.CountEvent) {
	e.ID = idgen.GenerateID()
	e.CreatedAt = time.Now()
	m.events = append(m.events, *e)
}

func (m *memStore) hasEvents(zoneID types.SnowflakeID) bool {
	for _, e := range m.events {
		if e.ZoneID == zoneID {
			return true
		}
	}
	return false
}

func (m *memStore) ListEvents(_ context.Context, zoneID types.SnowflakeID) ([]models.CountEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CountEvent
	for _, e := range m.events {
		if e.ZoneID == zoneID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) DeleteEvent(_ context.Context, zoneID, eventID types.SnowflakeID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if z, ok := m.zones[zoneID]; !ok || z.VerificationState != models.ApprovalPending {
		return false, nil
	}
	for i, e := range m.events {
		if e.ZoneID == zoneID && e.ID == eventID {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountEvents(ctx context.Context, zoneID types.SnowflakeID) (int64, error) {
	events, _ := m.ListEvents(ctx, zoneID)
	return int64(len(events)), nil
}

func (m *memStore) MarkZeroStock(_ context.Context, mark *models.ZeroStockMark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.marks {
		if x.ZoneID == mark.ZoneID && x.ItemID == mark.ItemID {
			return nil
		}
	}
	m.marks = append(m.marks, *mark)
	return nil
}

func (m *memStore) ZeroStockItems(_ context.Context, zoneID types.SnowflakeID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, x := range m.marks {
		if x.ZoneID == zoneID {
			out = append(out, x.ItemID)
		}
	}
	return out, nil
}

// EventStore

func (m *memStore) SumsByZone(_ context.Context, zoneID types.SnowflakeID) ([]models.QuantityRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows(func(z *models.Zone) bool { return z.ID == zoneID }), nil
}

func (m *memStore) SumsByRun(_ context.Context, runID types.SnowflakeID) ([]models.QuantityRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows(func(z *models.Zone) bool {
		return z.InventoryRunID == runID && z.VerificationState == models.ApprovalApproved
	}), nil
}

func (m *memStore) rows(keep func(*models.Zone) bool) []models.QuantityRow {
	var out []models.QuantityRow
	for _, e := range m.events {
		z, ok := m.zones[e.ZoneID]
		if !ok || !keep(z) {
			continue
		}
		out = append(out, models.QuantityRow{ItemID: e.ItemID, LocationTag: e.LocationTag, Quantity: e.Quantity})
	}
	return out
}

func (m *memStore) CountedItemsInRun(_ context.Context, runID types.SnowflakeID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, e := range m.events {
		z := m.zones[e.ZoneID]
		if z == nil || z.InventoryRunID != runID || z.VerificationState == models.ApprovalRejected {
			continue
		}
		if _, ok := seen[e.ItemID]; !ok {
			seen[e.ItemID] = struct{}{}
			out = append(out, e.ItemID)
		}
	}
	return out, nil
}

// AdjustmentStore

func adjustmentKey(consecutive int, site, itemID string) string {
	return fmt.Sprintf("%d|%s|%s", consecutive, site, itemID)
}

func (m *memStore) RecordAdjustment(_ context.Context, a *models.RecountAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := adjustmentKey(a.ConsecutiveNumber, a.Site, a.ItemID)
	cp := *a
	m.adjustments[key] = &cp
	m.adjustmentLogs = append(m.adjustmentLogs, models.RecountAdjustmentLog{
		ConsecutiveNumber: a.ConsecutiveNumber,
		Site:              a.Site,
		ItemID:            a.ItemID,
		AdjustedQuantity:  a.AdjustedQuantity,
		PreviousQuantity:  a.PreviousQuantity,
		RecordedBy:        a.RecordedBy,
	})
	return nil
}

func (m *memStore) Adjustments(_ context.Context, consecutive int, site string) ([]models.RecountAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecountAdjustment
	for _, a := range m.adjustments {
		if a.ConsecutiveNumber == consecutive && a.Site == site {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) PromoteAdjustment(_ context.Context, runID types.SnowflakeID, consecutive int, site, itemID, by string, at time.Time) (*models.RecountAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.adjustments[adjustmentKey(consecutive, site, itemID)]
	if !ok {
		return nil, nil
	}
	a.Promoted = true
	a.PromotedBy = by
	a.PromotedAt = &at
	if m.totals[runID] == nil {
		m.totals[runID] = map[string]*models.RunTotal{}
	}
	t := m.totals[runID][itemID]
	if t == nil {
		t = &models.RunTotal{InventoryRunID: runID, ItemID: itemID}
		m.totals[runID][itemID] = t
	}
	t.Quantity = a.AdjustedQuantity
	t.Promoted = true
	cp := *a
	return &cp, nil
}

// SyncLogStore

func (m *memStore) WriteSyncLogs(_ context.Context, logs []models.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncLogs = append(m.syncLogs, logs...)
	return nil
}

// recordingNotifier captures finalize notices.
type recordingNotifier struct {
	mu        sync.Mutex
	finalized []types.SnowflakeID
	err       error
}

func (n *recordingNotifier) ZoneFinalized(_ context.Context, zone models.Zone, _ []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finalized = append(n.finalized, zone.ID)
	return n.err
}

func (n *recordingNotifier) SyncCompleted(context.Context, string, *SyncResult, error) error {
	return nil
}

var errStoreDown = errors.New("store unavailable")
