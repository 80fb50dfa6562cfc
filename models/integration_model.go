package models

import "time"

const (
	SyncStatusOK     = "ok"
	SyncStatusFailed = "failed"
)

// SyncLog records the outcome of one catalog sync batch.
type SyncLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SyncID     string    `gorm:"size:36;not null;index" json:"sync_id"`
	Source     string    `gorm:"size:255" json:"source"`
	Phase      string    `gorm:"size:40;not null" json:"phase"`
	BatchIndex int       `json:"batch_index"`
	KeyCount   int       `json:"key_count"`
	FirstKey   string    `gorm:"size:64" json:"first_key"`
	LastKey    string    `gorm:"size:64" json:"last_key"`
	Status     string    `gorm:"size:10;not null" json:"status"`
	Message    string    `gorm:"type:text" json:"message"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
