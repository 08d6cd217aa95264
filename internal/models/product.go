package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"size:80;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"` // price per unit
	AttrNum   string          `gorm:"size:40"`                     // optional product number
	CreatedAt time.Time
	UpdatedAt time.Time
}
