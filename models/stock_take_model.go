package models

import (
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/controllers/idgen"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
)

// Zone is one operator counting one area of one run.
type Zone struct {
	ID                  types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	InventoryRunID      types.SnowflakeID `json:"inventory_run_id" gorm:"not null;index"`
	InventoryRun        *InventoryRun     `json:"inventory_run,omitempty" gorm:"foreignKey:InventoryRunID"`
	OperatorEmail       string            `json:"operator_email" gorm:"size:150;not null;index"`
	LocationDescription string            `json:"location_description" gorm:"size:255"`
	State               string            `json:"state" gorm:"size:20;not null;index"`
	VerificationState   string            `json:"verification_state" gorm:"size:20;not null"`
	ReviewerID          string            `json:"reviewer_id" gorm:"size:150"`
	FinalizedAt         *time.Time        `json:"finalized_at"`
	ReviewedAt          *time.Time        `json:"reviewed_at"`
	// EventRevision is bumped by every event write so those writes and the
	// state transitions lock the same row.
	EventRevision int64     `json:"-" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (z *Zone) BeforeCreate(tx *gorm.DB) error {
	if z.ID.IsZero() {
		z.ID = idgen.GenerateID()
	}
	return nil
}

// ActiveSession holds one row per operator with an in-progress zone.
type ActiveSession struct {
	OperatorEmail string            `json:"operator_email" gorm:"primaryKey;size:150"`
	ZoneID        types.SnowflakeID `json:"zone_id" gorm:"not null"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ZeroStockMark records an operator's "no physical stock" disposition.
type ZeroStockMark struct {
	ID            uint              `json:"-" gorm:"primaryKey"`
	ZoneID        types.SnowflakeID `json:"zone_id" gorm:"not null;uniqueIndex:idx_zero_stock_zone_item"`
	ItemID        string            `json:"item_id" gorm:"size:64;not null;uniqueIndex:idx_zero_stock_zone_item"`
	OperatorEmail string            `json:"operator_email" gorm:"size:150"`
	CreatedAt     time.Time         `json:"created_at"`
}

// CountEvent is one registered count. Quantity is already unit-converted.
type CountEvent struct {
	ID                 types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ZoneID             types.SnowflakeID `json:"zone_id" gorm:"not null;index"`
	Zone               *Zone             `json:"-" gorm:"foreignKey:ZoneID"`
	ItemID             string            `json:"item_id" gorm:"size:64;not null;index"`
	ScannedCode        string            `json:"scanned_code" gorm:"size:64"`
	UnitOfMeasure      string            `json:"unit_of_measure" gorm:"size:20"`
	QuantityMultiplier float64           `json:"quantity_multiplier"`
	Quantity           float64           `json:"quantity" gorm:"not null"`
	LocationTag        *string           `json:"location_tag" gorm:"size:20"`
	OperatorEmail      string            `json:"operator_email" gorm:"size:150"`
	CreatedAt          time.Time         `json:"created_at" gorm:"index"`
}

func (e *CountEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID.IsZero() {
		e.ID = idgen.GenerateID()
	}
	return nil
}
