package models

import (
	"time"

	"github.com/kevinpineda22/backend-inventario-sub000/controllers/idgen"
	"github.com/kevinpineda22/backend-inventario-sub000/types"
	"gorm.io/gorm"
)

// InventoryRun is one counting campaign. ConsecutiveNumber is unique per site only.
type InventoryRun struct {
	ID                types.SnowflakeID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ConsecutiveNumber int               `json:"consecutive_number" gorm:"not null;uniqueIndex:idx_run_site_consecutive"`
	Site              string            `json:"site" gorm:"size:64;not null;uniqueIndex:idx_run_site_consecutive"`
	Category          string            `json:"category" gorm:"size:100"`
	StartDate         time.Time         `json:"start_date"`
	State             string            `json:"state" gorm:"size:20;not null"`
	ApprovalState     string            `json:"approval_state" gorm:"size:20;not null"`
	ApprovedZones     int               `json:"approved_zones" gorm:"not null"`
	CreatedBy         string            `json:"created_by" gorm:"size:150"`
	ReviewedBy        string            `json:"reviewed_by" gorm:"size:150"`
	ReviewedAt        *time.Time        `json:"reviewed_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (r *InventoryRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = idgen.GenerateID()
	}
	return nil
}

// ExpectedQuantity is the theoretical snapshot row, immutable once the run starts.
type ExpectedQuantity struct {
	ID                uint    `json:"-" gorm:"primaryKey"`
	ConsecutiveNumber int     `json:"consecutive_number" gorm:"not null;uniqueIndex:idx_expected_key"`
	Site              string  `json:"site" gorm:"size:64;not null;uniqueIndex:idx_expected_key"`
	ItemID            string  `json:"item_id" gorm:"size:64;not null;uniqueIndex:idx_expected_key"`
	Quantity          float64 `json:"quantity" gorm:"not null"`
}

// RunTotal is the running total merged from approved zones.
type RunTotal struct {
	ID             uint              `json:"-" gorm:"primaryKey"`
	InventoryRunID types.SnowflakeID `json:"inventory_run_id" gorm:"not null;uniqueIndex:idx_run_total_item"`
	ItemID         string            `json:"item_id" gorm:"size:64;not null;uniqueIndex:idx_run_total_item"`
	Quantity       float64           `json:"quantity" gorm:"not null"`
	PointOfSale    float64           `json:"point_of_sale" gorm:"not null"`
	Warehouse      float64           `json:"warehouse" gorm:"not null"`
	Promoted       bool              `json:"promoted" gorm:"not null"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
