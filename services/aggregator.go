package services

import (
	"context"
	"fmt"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
)

// Scope selects the events to aggregate: one zone, or every approved zone of a run.
type Scope struct {
	ZoneID types.SnowflakeID
	RunID  types.SnowflakeID
}

func ZoneScope(id types.SnowflakeID) Scope { return Scope{ZoneID: id} }

func RunScope(id types.SnowflakeID) Scope { return Scope{RunID: id} }

type Aggregator struct {
	events EventStore
}

func NewAggregator(events EventStore) *Aggregator {
	return &Aggregator{events: events}
}

func (a *Aggregator) Aggregate(ctx context.Context, scope Scope) (map[string]models.ItemTotals, error) {
	var (
		rows []models.QuantityRow
		err  error
	)
	switch {
	case !scope.ZoneID.IsZero():
		rows, err = a.events.SumsByZone(ctx, scope.ZoneID)
	case !scope.RunID.IsZero():
		rows, err = a.events.SumsByRun(ctx, scope.RunID)
	default:
		return nil, invalid("scope", "a zone or run id is required")
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	return FoldRows(rows), nil
}

// Fold sums count events per item. Order does not matter and nothing is deduplicated.
func Fold(events []models.CountEvent) map[string]models.ItemTotals {
	out := make(map[string]models.ItemTotals)
	for _, e := range events {
		t := out[e.ItemID]
		t.Add(e.LocationTag, e.Quantity)
		out[e.ItemID] = t
	}
	return out
}

func FoldRows(rows []models.QuantityRow) map[string]models.ItemTotals {
	out := make(map[string]models.ItemTotals)
	for _, r := range rows {
		t := out[r.ItemID]
		t.Add(r.LocationTag, r.Quantity)
		out[r.ItemID] = t
	}
	return out
}
