package repositories

import (
	"context"
	"errors"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
)

// Count events live under their zone, so ZoneRepository also serves them.

// touchZone bumps the zone revision when cond holds. Nothing matched means
// the zone is gone or no longer accepts the write.
func touchZone(tx *gorm.DB, zoneID types.SnowflakeID, cond string, args ...interface{}) error {
	res := tx.Model(&models.Zone{}).
		Where("id = ?", zoneID).
		Where(cond, args...).
		UpdateColumn("event_revision", gorm.Expr("event_revision + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errNoTransition
	}
	return nil
}

// AddEvent inserts the event only while its zone is in progress. It reports
// false when the zone was finalized first.
func (r *ZoneRepository) AddEvent(ctx context.Context, event *models.CountEvent) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchZone(tx, event.ZoneID, "state = ?", models.ZoneStateInProgress); err != nil {
			return err
		}
		return tx.Omit("Zone").Create(event).Error
	})
	if errors.Is(err, errNoTransition) {
		return false, nil
	}
	return err == nil, err
}

func (r *ZoneRepository) ListEvents(ctx context.Context, zoneID types.SnowflakeID) ([]models.CountEvent, error) {
	var events []models.CountEvent
	err := r.db.WithContext(ctx).
		Where("zone_id = ?", zoneID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// DeleteEvent is conditioned on the zone still awaiting verification.
func (r *ZoneRepository) DeleteEvent(ctx context.Context, zoneID, eventID types.SnowflakeID) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchZone(tx, zoneID, "verification_state = ?", models.ApprovalPending); err != nil {
			return err
		}
		res := tx.Where("id = ? AND zone_id = ?", eventID, zoneID).Delete(&models.CountEvent{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoTransition
		}
		return nil
	})
	if errors.Is(err, errNoTransition) {
		return false, nil
	}
	return err == nil, err
}

func (r *ZoneRepository) CountEvents(ctx context.Context, zoneID types.SnowflakeID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CountEvent{}).Where("zone_id = ?", zoneID).Count(&count).Error
	return count, err
}

func (r *ZoneRepository) SumsByZone(ctx context.Context, zoneID types.SnowflakeID) ([]models.QuantityRow, error) {
	var rows []models.QuantityRow
	err := r.db.WithContext(ctx).Model(&models.CountEvent{}).
		Select("item_id, location_tag, SUM(quantity) AS quantity").
		Where("zone_id = ?", zoneID).
		Group("item_id, location_tag").
		Scan(&rows).Error
	return rows, err
}

func (r *ZoneRepository) SumsByRun(ctx context.Context, runID types.SnowflakeID) ([]models.QuantityRow, error) {
	var rows []models.QuantityRow
	err := r.db.WithContext(ctx).Table("count_events AS e").
		Select("e.item_id AS item_id, e.location_tag AS location_tag, SUM(e.quantity) AS quantity").
		Joins("JOIN zones z ON z.id = e.zone_id").
		Where("z.inventory_run_id = ? AND z.verification_state = ?", runID, models.ApprovalApproved).
		Group("e.item_id, e.location_tag").
		Scan(&rows).Error
	return rows, err
}

func (r *ZoneRepository) CountedItemsInRun(ctx context.Context, runID types.SnowflakeID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Table("count_events AS e").
		Joins("JOIN zones z ON z.id = e.zone_id").
		Where("z.inventory_run_id = ? AND z.verification_state <> ?", runID, models.ApprovalRejected).
		Distinct().
		Pluck("e.item_id", &ids).Error
	return ids, err
}
