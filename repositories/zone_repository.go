package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ZoneRepository struct {
	db *gorm.DB
}

func NewZoneRepository(db *gorm.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

func (r *ZoneRepository) ActiveZoneFor(ctx context.Context, operator string) (*models.Zone, error) {
	var session models.ActiveSession
	err := r.db.WithContext(ctx).Where("operator_email = ?", operator).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetZone(ctx, session.ZoneID)
}

// CreateZone claims the operator's active session in the same transaction,
// so two concurrent starts cannot both succeed.
func (r *ZoneRepository) CreateZone(ctx context.Context, zone *models.Zone) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("InventoryRun").Create(zone).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActiveSession{OperatorEmail: zone.OperatorEmail, ZoneID: zone.ID}).Error
	})
	return normalizeDuplicate(err)
}

func (r *ZoneRepository) GetZone(ctx context.Context, id types.SnowflakeID) (*models.Zone, error) {
	var zone models.Zone
	err := r.db.WithContext(ctx).Preload("InventoryRun").Where("id = ?", id).Take(&zone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *ZoneRepository) ListZones(ctx context.Context, filter services.ZoneFilter) ([]models.Zone, error) {
	q := r.db.WithContext(ctx).Model(&models.Zone{})
	if !filter.RunID.IsZero() {
		q = q.Where("inventory_run_id = ?", filter.RunID)
	}
	if filter.Operator != "" {
		q = q.Where("operator_email = ?", filter.Operator)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.VerificationState != "" {
		q = q.Where("verification_state = ?", filter.VerificationState)
	}
	var zones []models.Zone
	err := q.Order("created_at DESC").Find(&zones).Error
	return zones, err
}

// FinalizeZone requires the zone to be in progress and to hold at least one event.
func (r *ZoneRepository) FinalizeZone(ctx context.Context, id types.SnowflakeID, at time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counted := tx.Model(&models.CountEvent{}).Select("1").Where("zone_id = ?", id)
		res := tx.Model(&models.Zone{}).
			Where("id = ? AND state = ?", id, models.ZoneStateInProgress).
			Where("EXISTS (?)", counted).
			Updates(map[string]interface{}{
				"state":          models.ZoneStateFinalized,
				"finalized_at":   at,
				"event_revision": gorm.Expr("event_revision + ?", 1),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoTransition
		}
		return tx.Where("zone_id = ?", id).Delete(&models.ActiveSession{}).Error
	})
	if errors.Is(err, errNoTransition) {
		return false, nil
	}
	return err == nil, err
}

// ApproveZone bumps the run's approved counter first so approvals of the same
// run serialize on that row, then merges the zone sums into run_totals.
func (r *ZoneRepository) ApproveZone(ctx context.Context, id types.SnowflakeID, reviewer string, at time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var zone models.Zone
		if err := tx.Select("id", "inventory_run_id").Where("id = ?", id).Take(&zone).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoTransition
			}
			return err
		}

		if err := tx.Model(&models.InventoryRun{}).
			Where("id = ?", zone.InventoryRunID).
			UpdateColumn("approved_zones", gorm.Expr("approved_zones + ?", 1)).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Zone{}).
			Where("id = ? AND state = ? AND verification_state = ?", id, models.ZoneStateFinalized, models.ApprovalPending).
			Updates(map[string]interface{}{
				"verification_state": models.ApprovalApproved,
				"reviewer_id":        reviewer,
				"reviewed_at":        at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errNoTransition
		}

		rows, err := NewZoneRepository(tx).SumsByZone(ctx, id)
		if err != nil {
			return err
		}
		return mergeRunTotals(tx, zone.InventoryRunID, services.FoldRows(rows))
	})
	if errors.Is(err, errNoTransition) {
		return false, nil
	}
	return err == nil, err
}

func (r *ZoneRepository) RejectZone(ctx context.Context, id types.SnowflakeID, reviewer string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Zone{}).
		Where("id = ? AND state = ? AND verification_state = ?", id, models.ZoneStateFinalized, models.ApprovalPending).
		Updates(map[string]interface{}{
			"verification_state": models.ApprovalRejected,
			"reviewer_id":        reviewer,
			"reviewed_at":        at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *ZoneRepository) MarkZeroStock(ctx context.Context, mark *models.ZeroStockMark) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "zone_id"}, {Name: "item_id"}},
		DoNothing: true,
	}).Create(mark).Error
}

func (r *ZoneRepository) ZeroStockItems(ctx context.Context, zoneID types.SnowflakeID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ZeroStockMark{}).
		Where("zone_id = ?", zoneID).
		Order("item_id ASC").
		Pluck("item_id", &ids).Error
	return ids, err
}
