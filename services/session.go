package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type StartInput struct {
	Operator            string
	InventoryRunID      types.SnowflakeID
	LocationDescription string
}

type StartResult struct {
	ZoneID       types.SnowflakeID `json:"zone_id"`
	Resumed      bool              `json:"resumed"`
	ScopeItemIDs []string          `json:"scope_item_ids"`
}

type SubmitInput struct {
	ZoneID             types.SnowflakeID
	ScannedCode        string
	UnitSelection      string
	QuantityMultiplier float64
	LocationTag        string
	Operator           string
}

type SubmitResult struct {
	Accepted         bool              `json:"accepted"`
	ResolvedItemID   string            `json:"resolved_item_id"`
	UnitOfMeasure    string            `json:"unit_of_measure"`
	ComputedQuantity float64           `json:"computed_quantity"`
	EventID          types.SnowflakeID `json:"event_id"`
}

type FinalizeResult struct {
	ZoneID                types.SnowflakeID `json:"zone_id"`
	PendingZeroCountItems []string          `json:"pending_zero_count_items"`
}

// CountingSession drives a zone from in_progress to a verification decision.
type CountingSession struct {
	zones    ZoneStore
	runs     RunStore
	events   EventStore
	resolver *ProductResolver
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewCountingSession(zones ZoneStore, runs RunStore, events EventStore, resolver *ProductResolver, notifier Notifier, log *zap.Logger) *CountingSession {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CountingSession{
		zones:    zones,
		runs:     runs,
		events:   events,
		resolver: resolver,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Start resumes the operator's in-progress zone or opens a new one on an active run.
func (s *CountingSession) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	operator := strings.TrimSpace(in.Operator)
	if operator == "" {
		return nil, invalid("operator_id", "must not be blank")
	}

	if zone, err := s.zones.ActiveZoneFor(ctx, operator); err != nil {
		return nil, fmt.Errorf("find active zone: %w", err)
	} else if zone != nil {
		return s.resume(ctx, zone)
	}

	if in.InventoryRunID.IsZero() {
		return nil, invalid("inventory_run_id", "is required to open a new zone")
	}
	run, err := s.runs.GetRun(ctx, in.InventoryRunID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, notFound("inventory run", in.InventoryRunID)
	}
	if run.State != models.RunStateActive {
		return nil, conflict("inventory run %s is %s", run.ID, run.State)
	}

	zone := &models.Zone{
		InventoryRunID:      run.ID,
		OperatorEmail:       operator,
		LocationDescription: strings.TrimSpace(in.LocationDescription),
		State:               models.ZoneStateInProgress,
		VerificationState:   models.ApprovalPending,
	}
	if err := s.zones.CreateZone(ctx, zone); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create zone: %w", err)
		}
		// another request for the same operator won the race
		winner, err := s.zones.ActiveZoneFor(ctx, operator)
		if err != nil {
			return nil, fmt.Errorf("find active zone: %w", err)
		}
		if winner == nil {
			return nil, conflict("operator %s is opening another zone", operator)
		}
		return s.resume(ctx, winner)
	}
	zone.InventoryRun = run

	s.log.Info("zone opened",
		zap.String("zone_id", zone.ID.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("operator", operator))

	scope, err := s.scopeItems(ctx, run)
	if err != nil {
		return nil, err
	}
	return &StartResult{ZoneID: zone.ID, ScopeItemIDs: scope}, nil
}

func (s *CountingSession) resume(ctx context.Context, zone *models.Zone) (*StartResult, error) {
	run := zone.InventoryRun
	if run == nil {
		var err error
		if run, err = s.runs.GetRun(ctx, zone.InventoryRunID); err != nil {
			return nil, fmt.Errorf("load run: %w", err)
		}
		if run == nil {
			return nil, notFound("inventory run", zone.InventoryRunID)
		}
	}
	scope, err := s.scopeItems(ctx, run)
	if err != nil {
		return nil, err
	}
	return &StartResult{ZoneID: zone.ID, Resumed: true, ScopeItemIDs: scope}, nil
}

func (s *CountingSession) scopeItems(ctx context.Context, run *models.InventoryRun) ([]string, error) {
	expected, err := s.runs.ExpectedQuantities(ctx, run.ConsecutiveNumber, run.Site)
	if err != nil {
		return nil, fmt.Errorf("load run scope: %w", err)
	}
	ids := make([]string, 0, len(expected))
	for _, e := range expected {
		ids = append(ids, e.ItemID)
	}
	sort.Strings(ids)
	return ids, nil
}

// loadOpenZone returns the zone and its run, refusing closed zones and finalized runs.
func (s *CountingSession) loadOpenZone(ctx context.Context, id types.SnowflakeID) (*models.Zone, *models.InventoryRun, error) {
	zone, err := s.GetZone(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if zone.State != models.ZoneStateInProgress {
		return nil, nil, conflict("zone %s is %s", zone.ID, zone.State)
	}
	run := zone.InventoryRun
	if run == nil {
		if run, err = s.runs.GetRun(ctx, zone.InventoryRunID); err != nil {
			return nil, nil, fmt.Errorf("load run: %w", err)
		}
		if run == nil {
			return nil, nil, notFound("inventory run", zone.InventoryRunID)
		}
	}
	if run.State != models.RunStateActive {
		return nil, nil, conflict("inventory run %s is %s", run.ID, run.State)
	}
	return zone, run, nil
}

// Submit registers one count. Nothing is written unless every check passes.
func (s *CountingSession) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.QuantityMultiplier <= 0 {
		return nil, invalid("quantity_multiplier", "must be greater than zero")
	}
	var tag *string
	switch t := strings.TrimSpace(in.LocationTag); t {
	case "":
	case models.LocationPointOfSale, models.LocationWarehouse:
		tag = &t
	default:
		return nil, invalid("location_tag", "must be %s or %s", models.LocationPointOfSale, models.LocationWarehouse)
	}

	zone, run, err := s.loadOpenZone(ctx, in.ZoneID)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, in.ScannedCode)
	if err != nil {
		return nil, err
	}

	inScope, err := s.runs.ScopeContains(ctx, run.ConsecutiveNumber, run.Site, res.Item.ItemID)
	if err != nil {
		return nil, fmt.Errorf("check run scope: %w", err)
	}
	if !inScope {
		return nil, invalid("scanned_code", "item %s is not part of inventory %d at %s", res.Item.ItemID, run.ConsecutiveNumber, run.Site)
	}

	unit := normalizeUnit(in.UnitSelection)
	if unit == "" {
		unit = res.DefaultUnit
	} else if !res.HasUnit(unit) {
		return nil, invalid("unit_selection", "%s is not a unit of item %s", unit, res.Item.ItemID)
	}

	operator := strings.TrimSpace(in.Operator)
	if operator == "" {
		operator = zone.OperatorEmail
	}
	event := &models.CountEvent{
		ZoneID:             zone.ID,
		ItemID:             res.Item.ItemID,
		ScannedCode:        strings.TrimSpace(in.ScannedCode),
		UnitOfMeasure:      unit,
		QuantityMultiplier: in.QuantityMultiplier,
		Quantity:           float64(UnitMultiplier(unit)) * in.QuantityMultiplier,
		LocationTag:        tag,
		OperatorEmail:      operator,
	}
	saved, err := s.zones.AddEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("save count event: %w", err)
	}
	if !saved {
		return nil, conflict("zone %s is no longer in progress", zone.ID)
	}

	return &SubmitResult{
		Accepted:         true,
		ResolvedItemID:   event.ItemID,
		UnitOfMeasure:    unit,
		ComputedQuantity: event.Quantity,
		EventID:          event.ID,
	}, nil
}

// DeleteEvent removes an operator mistake while the zone is still unverified.
func (s *CountingSession) DeleteEvent(ctx context.Context, zoneID, eventID types.SnowflakeID) error {
	zone, err := s.GetZone(ctx, zoneID)
	if err != nil {
		return err
	}
	if zone.VerificationState != models.ApprovalPending {
		return conflict("zone %s is already %s", zone.ID, zone.VerificationState)
	}
	deleted, err := s.zones.DeleteEvent(ctx, zoneID, eventID)
	if err != nil {
		return fmt.Errorf("delete count event: %w", err)
	}
	if !deleted {
		return notFound("count event", eventID)
	}
	return nil
}

// PendingItems lists scope items with expected stock that nobody in the run has counted yet.
func (s *CountingSession) PendingItems(ctx context.Context, zoneID types.SnowflakeID) ([]string, error) {
	zone, err := s.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	return s.pendingItems(ctx, zone)
}

func (s *CountingSession) pendingItems(ctx context.Context, zone *models.Zone) ([]string, error) {
	run := zone.InventoryRun
	if run == nil {
		var err error
		if run, err = s.runs.GetRun(ctx, zone.InventoryRunID); err != nil {
			return nil, fmt.Errorf("load run: %w", err)
		}
		if run == nil {
			return nil, notFound("inventory run", zone.InventoryRunID)
		}
	}
	expected, err := s.runs.ExpectedQuantities(ctx, run.ConsecutiveNumber, run.Site)
	if err != nil {
		return nil, fmt.Errorf("load run scope: %w", err)
	}
	counted, err := s.events.CountedItemsInRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load counted items: %w", err)
	}
	marked, err := s.zones.ZeroStockItems(ctx, zone.ID)
	if err != nil {
		return nil, fmt.Errorf("load no-stock marks: %w", err)
	}

	skip := make(map[string]struct{}, len(counted)+len(marked))
	for _, id := range counted {
		skip[id] = struct{}{}
	}
	for _, id := range marked {
		skip[id] = struct{}{}
	}
	pending := []string{}
	for _, e := range expected {
		if e.Quantity == 0 {
			continue
		}
		if _, ok := skip[e.ItemID]; ok {
			continue
		}
		pending = append(pending, e.ItemID)
	}
	sort.Strings(pending)
	return pending, nil
}

// MarkNoStock records that the operator looked for the item and found none.
func (s *CountingSession) MarkNoStock(ctx context.Context, zoneID types.SnowflakeID, itemID, operator string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return invalid("item_id", "must not be blank")
	}
	zone, run, err := s.loadOpenZone(ctx, zoneID)
	if err != nil {
		return err
	}
	inScope, err := s.runs.ScopeContains(ctx, run.ConsecutiveNumber, run.Site, itemID)
	if err != nil {
		return fmt.Errorf("check run scope: %w", err)
	}
	if !inScope {
		return invalid("item_id", "item %s is not part of inventory %d at %s", itemID, run.ConsecutiveNumber, run.Site)
	}
	if operator = strings.TrimSpace(operator); operator == "" {
		operator = zone.OperatorEmail
	}
	if err := s.zones.MarkZeroStock(ctx, &models.ZeroStockMark{ZoneID: zone.ID, ItemID: itemID, OperatorEmail: operator}); err != nil {
		return fmt.Errorf("save no-stock mark: %w", err)
	}
	return nil
}

// Finalize closes the zone. Pending items are reported but never block.
func (s *CountingSession) Finalize(ctx context.Context, zoneID types.SnowflakeID) (*FinalizeResult, error) {
	zone, err := s.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if zone.State != models.ZoneStateInProgress {
		return nil, conflict("zone %s is %s", zone.ID, zone.State)
	}
	count, err := s.zones.CountEvents(ctx, zone.ID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	if count == 0 {
		return nil, invalid("zone_id", "zone %s has no count events", zone.ID)
	}

	pending, err := s.pendingItems(ctx, zone)
	if err != nil {
		return nil, err
	}

	ok, err := s.zones.FinalizeZone(ctx, zone.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("finalize zone: %w", err)
	}
	if !ok {
		if count, err = s.zones.CountEvents(ctx, zone.ID); err == nil && count == 0 {
			return nil, invalid("zone_id", "zone %s has no count events", zone.ID)
		}
		return nil, conflict("zone %s is no longer in progress", zone.ID)
	}
	zone.State = models.ZoneStateFinalized

	s.log.Info("zone finalized",
		zap.String("zone_id", zone.ID.String()),
		zap.Int64("events", count),
		zap.Int("pending_items", len(pending)))

	if err := s.notifier.ZoneFinalized(ctx, *zone, pending); err != nil {
		s.log.Warn("zone finalized notice failed", zap.String("zone_id", zone.ID.String()), zap.Error(err))
	}
	return &FinalizeResult{ZoneID: zone.ID, PendingZeroCountItems: pending}, nil
}

// Verify applies an administrator decision to a finalized zone.
func (s *CountingSession) Verify(ctx context.Context, zoneID types.SnowflakeID, decision, reviewer string) (*models.Zone, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, invalid("reviewer_id", "must not be blank")
	}
	zone, err := s.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	var ok bool
	now := s.now()
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case DecisionApprove, models.ApprovalApproved:
		ok, err = s.zones.ApproveZone(ctx, zone.ID, reviewer, now)
	case DecisionReject, models.ApprovalRejected:
		ok, err = s.zones.RejectZone(ctx, zone.ID, reviewer, now)
	default:
		return nil, invalid("decision", "must be %s or %s", DecisionApprove, DecisionReject)
	}
	if err != nil {
		return nil, fmt.Errorf("verify zone: %w", err)
	}
	if !ok {
		return nil, conflict("zone %s is not awaiting verification (state %s, verification %s)", zone.ID, zone.State, zone.VerificationState)
	}

	s.log.Info("zone verified",
		zap.String("zone_id", zone.ID.String()),
		zap.String("decision", decision),
		zap.String("reviewer", reviewer))
	return s.GetZone(ctx, zone.ID)
}

func (s *CountingSession) GetZone(ctx context.Context, id types.SnowflakeID) (*models.Zone, error) {
	zone, err := s.zones.GetZone(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load zone: %w", err)
	}
	if zone == nil {
		return nil, notFound("zone", id)
	}
	return zone, nil
}

func (s *CountingSession) ListZones(ctx context.Context, filter ZoneFilter) ([]models.Zone, error) {
	return s.zones.ListZones(ctx, filter)
}

func (s *CountingSession) ListEvents(ctx context.Context, zoneID types.SnowflakeID) ([]models.CountEvent, error) {
	if _, err := s.GetZone(ctx, zoneID); err != nil {
		return nil, err
	}
	return s.zones.ListEvents(ctx, zoneID)
}
