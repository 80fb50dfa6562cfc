package repositories

import (
	"context"

	"github.com/kevinpineda22/backend-inventario-sub000/models"
	"gorm.io/gorm"
)

type SyncLogRepository struct {
	db *gorm.DB
}

func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

func (r *SyncLogRepository) WriteSyncLogs(ctx context.Context, logs []models.SyncLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// Recent returns the latest batch outcomes, optionally for one sync run.
func (r *SyncLogRepository) Recent(ctx context.Context, syncID string, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Model(&models.SyncLog{})
	if syncID != "" {
		q = q.Where("sync_id = ?", syncID)
	}
	var logs []models.SyncLog
	err := q.Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
