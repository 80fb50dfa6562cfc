package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
)

type InventoryRunRepository struct {
	db *gorm.DB
}

func NewInventoryRunRepository(db *gorm.DB) *InventoryRunRepository {
	return &InventoryRunRepository{db: db}
}

func (r *InventoryRunRepository) ConsecutiveExists(ctx context.Context, site string, consecutive int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InventoryRun{}).
		Where("site = ? AND consecutive_number = ?", site, consecutive).
		Count(&count).Error
	return count > 0, err
}

func (r *InventoryRunRepository) CreateRun(ctx context.Context, run *models.InventoryRun, expected []models.ExpectedQuantity) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(expected, 500).Error
	})
	return normalizeDuplicate(err)
}

func (r *InventoryRunRepository) GetRun(ctx context.Context, id types.SnowflakeID) (*models.InventoryRun, error) {
	var run models.InventoryRun
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *InventoryRunRepository) FindRun(ctx context.Context, consecutive int, site string) (*models.InventoryRun, error) {
	var run models.InventoryRun
	err := r.db.WithContext(ctx).Where("consecutive_number = ? AND site = ?", consecutive, site).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *InventoryRunRepository) ListRuns(ctx context.Context, filter services.RunFilter) ([]models.InventoryRun, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryRun{})
	if filter.Site != "" {
		q = q.Where("site = ?", filter.Site)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.ApprovalState != "" {
		q = q.Where("approval_state = ?", filter.ApprovalState)
	}
	var runs []models.InventoryRun
	err := q.Order("created_at DESC").Find(&runs).Error
	return runs, err
}

func (r *InventoryRunRepository) FinalizeRun(ctx context.Context, id types.SnowflakeID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryRun{}).
		Where("id = ? AND state = ?", id, models.RunStateActive).
		Update("state", models.RunStateFinalized)
	return res.RowsAffected > 0, res.Error
}

func (r *InventoryRunRepository) ReviewRun(ctx context.Context, id types.SnowflakeID, decision, reviewer string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryRun{}).
		Where("id = ? AND state = ? AND approval_state = ?", id, models.RunStateFinalized, models.ApprovalPending).
		Updates(map[string]interface{}{
			"approval_state": decision,
			"reviewed_by":    reviewer,
			"reviewed_at":    at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *InventoryRunRepository) ExpectedQuantities(ctx context.Context, consecutive int, site string) ([]models.ExpectedQuantity, error) {
	var rows []models.ExpectedQuantity
	err := r.db.WithContext(ctx).
		Where("consecutive_number = ? AND site = ?", consecutive, site).
		Order("item_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *InventoryRunRepository) ScopeContains(ctx context.Context, consecutive int, site, itemID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExpectedQuantity{}).
		Where("consecutive_number = ? AND site = ? AND item_id = ?", consecutive, site, itemID).
		Count(&count).Error
	return count > 0, err
}

func (r *InventoryRunRepository) RunTotals(ctx context.Context, runID types.SnowflakeID) ([]models.RunTotal, error) {
	var totals []models.RunTotal
	err := r.db.WithContext(ctx).
		Where("inventory_run_id = ?", runID).
		Order("item_id ASC").
		Find(&totals).Error
	return totals, err
}

// mergeRunTotals adds zone sums into the run totals. Callers hold the run row lock.
func mergeRunTotals(tx *gorm.DB, runID types.SnowflakeID, sums map[string]models.ItemTotals) error {
	for itemID, t := range sums {
		res := tx.Model(&models.RunTotal{}).
			Where("inventory_run_id = ? AND item_id = ?", runID, itemID).
			Updates(map[string]interface{}{
				"quantity":      gorm.Expr("quantity + ?", t.Total),
				"point_of_sale": gorm.Expr("point_of_sale + ?", t.PointOfSale),
				"warehouse":     gorm.Expr("warehouse + ?", t.Warehouse),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			continue
		}
		total := models.RunTotal{
			InventoryRunID: runID,
			ItemID:         itemID,
			Quantity:       t.Total,
			PointOfSale:    t.PointOfSale,
			Warehouse:      t.Warehouse,
		}
		if err := tx.Create(&total).Error; err != nil {
			return err
		}
	}
	return nil
}
