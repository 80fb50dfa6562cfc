package models

import "time"

// RecountAdjustment keeps the latest second-pass count per run and item.
type RecountAdjustment struct {
	ID                uint       `json:"-" gorm:"primaryKey"`
	ConsecutiveNumber int        `json:"consecutive_number" gorm:"not null;uniqueIndex:idx_adjustment_key"`
	Site              string     `json:"site" gorm:"size:64;not null;uniqueIndex:idx_adjustment_key"`
	ItemID            string     `json:"item_id" gorm:"size:64;not null;uniqueIndex:idx_adjustment_key"`
	AdjustedQuantity  float64    `json:"adjusted_quantity" gorm:"not null"`
	PreviousQuantity  float64    `json:"previous_quantity"`
	RecordedBy        string     `json:"recorded_by" gorm:"size:150"`
	Promoted          bool       `json:"promoted" gorm:"not null"`
	PromotedBy        string     `json:"promoted_by" gorm:"size:150"`
	PromotedAt        *time.Time `json:"promoted_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RecountAdjustmentLog is the append-only audit trail behind RecountAdjustment.
type RecountAdjustmentLog struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ConsecutiveNumber int       `json:"consecutive_number" gorm:"not null;index:idx_adjustment_log_key"`
	Site              string    `json:"site" gorm:"size:64;not null;index:idx_adjustment_log_key"`
	ItemID            string    `json:"item_id" gorm:"size:64;not null;index:idx_adjustment_log_key"`
	AdjustedQuantity  float64   `json:"adjusted_quantity"`
	PreviousQuantity  float64   `json:"previous_quantity"`
	RecordedBy        string    `json:"recorded_by" gorm:"size:150"`
	CreatedAt         time.Time `json:"created_at"`
}
