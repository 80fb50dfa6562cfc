package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdjustmentRepository struct {
	db *gorm.DB
}

func NewAdjustmentRepository(db *gorm.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// RecordAdjustment overwrites the key's adjustment, clears any previous
// promotion and appends the audit row.
func (r *AdjustmentRepository) RecordAdjustment(ctx context.Context, adjustment *models.RecountAdjustment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adjustment.Promoted = false
		adjustment.PromotedBy = ""
		adjustment.PromotedAt = nil
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "consecutive_number"}, {Name: "site"}, {Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"adjusted_quantity", "previous_quantity", "recorded_by",
				"promoted", "promoted_by", "promoted_at", "updated_at",
			}),
		}).Create(adjustment).Error; err != nil {
			return err
		}
		entry := models.RecountAdjustmentLog{
			ConsecutiveNumber: adjustment.ConsecutiveNumber,
			Site:              adjustment.Site,
			ItemID:            adjustment.ItemID,
			AdjustedQuantity:  adjustment.AdjustedQuantity,
			PreviousQuantity:  adjustment.PreviousQuantity,
			RecordedBy:        adjustment.RecordedBy,
		}
		return tx.Create(&entry).Error
	})
}

func (r *AdjustmentRepository) Adjustments(ctx context.Context, consecutive int, site string) ([]models.RecountAdjustment, error) {
	var rows []models.RecountAdjustment
	err := r.db.WithContext(ctx).
		Where("consecutive_number = ? AND site = ?", consecutive, site).
		Order("item_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AdjustmentRepository) History(ctx context.Context, consecutive int, site, itemID string) ([]models.RecountAdjustmentLog, error) {
	var rows []models.RecountAdjustmentLog
	err := r.db.WithContext(ctx).
		Where("consecutive_number = ? AND site = ? AND item_id = ?", consecutive, site, itemID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AdjustmentRepository) PromoteAdjustment(ctx context.Context, runID types.SnowflakeID, consecutive int, site, itemID, by string, at time.Time) (*models.RecountAdjustment, error) {
	var adjustment models.RecountAdjustment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("consecutive_number = ? AND site = ? AND item_id = ?", consecutive, site, itemID).
			Take(&adjustment).Error; err != nil {
			return err
		}
		if err := tx.Model(&adjustment).Updates(map[string]interface{}{
			"promoted":    true,
			"promoted_by": by,
			"promoted_at": at,
		}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.RunTotal{}).
			Where("inventory_run_id = ? AND item_id = ?", runID, itemID).
			Updates(map[string]interface{}{
				"quantity": adjustment.AdjustedQuantity,
				"promoted": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&models.RunTotal{
			InventoryRunID: runID,
			ItemID:         itemID,
			Quantity:       adjustment.AdjustedQuantity,
			Promoted:       true,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	adjustment.Promoted = true
	adjustment.PromotedBy = by
	adjustment.PromotedAt = &at
	return &adjustment, nil
}
