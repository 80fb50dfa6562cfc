package models

import "time"

// Item is the catalog entry. Rows are deactivated, never deleted.
type Item struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	ItemID      string    `json:"item_id" gorm:"size:64;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"size:255"`
	Group       string    `json:"group" gorm:"column:item_group;size:100"`
	Active      bool      `json:"active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
