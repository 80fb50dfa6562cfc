package models

import "time"

// BarcodeUnit maps a scannable code to an item and a pack size.
type BarcodeUnit struct {
	ID            uint      `json:"-" gorm:"primaryKey"`
	Barcode       string    `json:"barcode" gorm:"size:64;not null;uniqueIndex"`
	ItemID        string    `json:"item_id" gorm:"size:64;not null;index"`
	Item          *Item     `json:"-" gorm:"foreignKey:ItemID;references:ItemID"`
	UnitOfMeasure string    `json:"unit_of_measure" gorm:"size:20"`
	Active        bool      `json:"active" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
