package sales

import (
	"errors"
	"fmt"
	"log"

	"sales-backend/internal/audit"
	"sales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreatePaymentInput struct {
	PaymentType string  `json:"payment_type"`
	Amount      float64 `json:"amount"`
}

type CreateEntryRequest struct {
	BatchID   uint                 `json:"batch_id"`
	ProductID uint                 `json:"product_id"`
	Qty       *int                 `json:"qty"`
	Price     *float64             `json:"price"`
	Discount  float64              `json:"discount"`
	Size      string               `json:"size"`
	Payments  []CreatePaymentInput `json:"payments"`
}

type UpdatePaymentInput struct {
	ID          *uint    `json:"id"`
	PaymentType *string  `json:"payment_type"`
	Amount      *float64 `json:"amount"`
}

type UpdateEntryRequest struct {
	BatchID   *uint                 `json:"batch_id"`
	ProductID *uint                 `json:"product_id"`
	Qty       *int                  `json:"qty"`
	Price     *float64              `json:"price"`
	Discount  *float64              `json:"discount"`
	Size      *string               `json:"size"`
	Payments  *[]UpdatePaymentInput `json:"payments"`
}

type PaymentResponse struct {
	ID          uint    `json:"id"`
	PaymentType string  `json:"payment_type"`
	Amount      float64 `json:"amount"`
}

type EntryResponse struct {
	ID          uint              `json:"id"`
	BatchID     uint              `json:"batch_id"`
	ProductID   uint              `json:"product_id"`
	ProductName string            `json:"product_name"`
	Qty         int               `json:"qty"`
	Price       float64           `json:"price"`
	Discount    float64           `json:"discount"`
	Size        string            `json:"size"`
	Payments    []PaymentResponse `json:"payments"`
}

func entryToResponse(e models.Entry) EntryResponse {
	payments := make([]PaymentResponse, 0, len(e.Payments))
	for _, p := range e.Payments {
		payments = append(payments, PaymentResponse{
			ID:          p.ID,
			PaymentType: p.PaymentType,
			Amount:      p.Amount.InexactFloat64(),
		})
	}
	return EntryResponse{
		ID:          e.ID,
		BatchID:     e.BatchID,
		ProductID:   e.ProductID,
		ProductName: e.Product.Name,
		Qty:         e.Qty,
		Price:       e.Price.InexactFloat64(),
		Discount:    e.Discount.InexactFloat64(),
		Size:        e.Size,
		Payments:    payments,
	}
}

// POST /api/entries
func CreateEntryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateEntryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.BatchID == 0 || body.ProductID == 0 || body.Qty == nil || body.Price == nil {
			return fiber.NewError(fiber.StatusBadRequest, "batch_id, product_id, qty and price are required")
		}

		var batch models.Batch
		if err := db.First(&batch, "id = ?", body.BatchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("unknown batch_id %d", body.BatchID))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be loaded")
		}
		var product models.Product
		if err := db.First(&product, "id = ?", body.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("unknown product_id %d", body.ProductID))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "product could not be loaded")
		}

		entry := models.Entry{
			BatchID:   body.BatchID,
			ProductID: body.ProductID,
			Qty:       *body.Qty,
			Price:     decimal.NewFromFloat(*body.Price),
			Discount:  decimal.NewFromFloat(body.Discount),
			Size:      body.Size,
		}

		// Entry insert and payment inserts are one logical unit.
		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}
		if err := tx.Create(&entry).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be created")
		}
		for _, p := range body.Payments {
			payment := models.Payment{
				EntryID:     entry.ID,
				PaymentType: p.PaymentType,
				Amount:      decimal.NewFromFloat(p.Amount),
			}
			if err := tx.Create(&payment).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "payment could not be created")
			}
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be created")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "entry",
			EntityID:    entry.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("entry created: %s x%d", product.Name, entry.Qty),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": entry.ID})
	}
}

// GET /api/entries?batch_id=...
func ListEntriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.Entry{}).
			Preload("Product").
			Preload("Payments")

		if batchIDStr := c.Query("batch_id"); batchIDStr != "" {
			var bid uint
			if _, err := fmt.Sscan(batchIDStr, &bid); err != nil || bid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid batch_id")
			}
			dbq = dbq.Where("batch_id = ?", bid)
		}

		var entries []models.Entry
		if err := dbq.Find(&entries).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "entries could not be listed")
		}

		resp := make([]EntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, entryToResponse(e))
		}
		return c.JSON(resp)
	}
}

// PUT|PATCH /api/entries/:id
//
// A 'payments' array reconciles the entry's payments against the submitted
// list: items carrying a known id are updated in place, items without one
// are inserted, and every existing payment left unmentioned is deleted.
// Omitting 'payments' entirely leaves the payments untouched.
func UpdateEntryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid entry id")
		}

		var entry models.Entry
		if err := db.Preload("Payments").First(&entry, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "entry not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be loaded")
		}

		var body UpdateEntryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		updates := map[string]any{}
		if body.BatchID != nil {
			var batch models.Batch
			if err := db.First(&batch, "id = ?", *body.BatchID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("unknown batch_id %d", *body.BatchID))
				}
				return fiber.NewError(fiber.StatusInternalServerError, "batch could not be loaded")
			}
			updates["batch_id"] = *body.BatchID
		}
		if body.ProductID != nil {
			var product models.Product
			if err := db.First(&product, "id = ?", *body.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("unknown product_id %d", *body.ProductID))
				}
				return fiber.NewError(fiber.StatusInternalServerError, "product could not be loaded")
			}
			updates["product_id"] = *body.ProductID
		}
		if body.Qty != nil {
			updates["qty"] = *body.Qty
		}
		if body.Price != nil {
			updates["price"] = decimal.NewFromFloat(*body.Price)
		}
		if body.Discount != nil {
			updates["discount"] = decimal.NewFromFloat(*body.Discount)
		}
		if body.Size != nil {
			updates["size"] = *body.Size
		}

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Entry{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "entry could not be updated")
			}
		}

		if body.Payments != nil {
			existing := make(map[uint]*models.Payment, len(entry.Payments))
			for i := range entry.Payments {
				existing[entry.Payments[i].ID] = &entry.Payments[i]
			}
			retained := make(map[uint]bool)

			for _, p := range *body.Payments {
				if p.ID != nil {
					if current, ok := existing[*p.ID]; ok {
						if p.PaymentType != nil {
							current.PaymentType = *p.PaymentType
						}
						if p.Amount != nil {
							current.Amount = decimal.NewFromFloat(*p.Amount)
						}
						if err := tx.Save(current).Error; err != nil {
							tx.Rollback()
							return fiber.NewError(fiber.StatusInternalServerError, "payment could not be updated")
						}
						retained[current.ID] = true
						continue
					}
				}
				if p.PaymentType == nil || p.Amount == nil {
					tx.Rollback()
					return fiber.NewError(fiber.StatusBadRequest, "payment_type and amount are required for new payments")
				}
				payment := models.Payment{
					EntryID:     entry.ID,
					PaymentType: *p.PaymentType,
					Amount:      decimal.NewFromFloat(*p.Amount),
				}
				if err := tx.Create(&payment).Error; err != nil {
					tx.Rollback()
					return fiber.NewError(fiber.StatusInternalServerError, "payment could not be created")
				}
				retained[payment.ID] = true
			}

			for _, current := range entry.Payments {
				if !retained[current.ID] {
					if err := tx.Delete(&models.Payment{}, current.ID).Error; err != nil {
						tx.Rollback()
						return fiber.NewError(fiber.StatusInternalServerError, "payment could not be deleted")
					}
				}
			}
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be updated")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "entry",
			EntityID:    entry.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("entry %d updated", entry.ID),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.JSON(fiber.Map{"id": entry.ID})
	}
}

// DELETE /api/entries/:id
func DeleteEntryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid entry id")
		}

		var entry models.Entry
		if err := db.First(&entry, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "entry not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be loaded")
		}

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}
		if err := tx.Where("entry_id = ?", entry.ID).Delete(&models.Payment{}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be deleted")
		}
		if err := tx.Delete(&entry).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be deleted")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "entry could not be deleted")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "entry",
			EntityID:    entry.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("entry %d deleted", entry.ID),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.JSON(fiber.Map{"result": "deleted"})
	}
}
