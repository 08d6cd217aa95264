package sales

import (
	"sales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PaymentListItem struct {
	ID          uint    `json:"id"`
	EntryID     uint    `json:"entry_id"`
	PaymentType string  `json:"payment_type"`
	Amount      float64 `json:"amount"`
}

// GET /payments
//
// Read-only view across all entries; payments are mutated only through
// their owning entry.
func ListPaymentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payments []models.Payment
		if err := db.Find(&payments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "payments could not be listed")
		}

		resp := make([]PaymentListItem, 0, len(payments))
		for _, p := range payments {
			resp = append(resp, PaymentListItem{
				ID:          p.ID,
				EntryID:     p.EntryID,
				PaymentType: p.PaymentType,
				Amount:      p.Amount.InexactFloat64(),
			})
		}
		return c.JSON(resp)
	}
}
