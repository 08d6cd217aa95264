package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory - a dated stock-count snapshot. QtyAmount and TotalAmount are
// server-computed sums over the child entries.
type Inventory struct {
	ID          uint             `gorm:"primaryKey"`
	Date        time.Time        `gorm:"type:date;index;not null"` // date only, no time
	QtyAmount   int              `gorm:"not null"`
	TotalAmount decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Entries     []InventoryEntry `gorm:"foreignKey:InventoryID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InventoryEntry stores no price of its own, the product price is read
// live at serialization time.
type InventoryEntry struct {
	ID          uint `gorm:"primaryKey"`
	InventoryID uint `gorm:"index;not null"`
	ProductID   uint `gorm:"index;not null"`
	Product     Product
	Qty         int `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
