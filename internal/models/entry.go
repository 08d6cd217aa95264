package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry - one sold line item within a batch. Price is copied at sale time
// and stays fixed even if the product price changes later.
type Entry struct {
	ID        uint `gorm:"primaryKey"`
	BatchID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Qty       int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	Size      string          `gorm:"size:40"`
	Payments  []Payment       `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment - one tender (cash/card) applied against an entry.
type Payment struct {
	ID          uint            `gorm:"primaryKey"`
	EntryID     uint            `gorm:"index;not null"`
	PaymentType string          `gorm:"size:10;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
