package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch - one day's register session. The card/cash/total amounts are
// whatever the register reported, they are never recomputed from entries.
type Batch struct {
	ID          uint            `gorm:"primaryKey"`
	Date        time.Time       `gorm:"type:date;index;not null"` // date only, no time
	CardAmount  decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	CashAmount  decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	Entries     []Entry         `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
