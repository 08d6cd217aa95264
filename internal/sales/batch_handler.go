package sales

import (
	"errors"
	"fmt"
	"log"
	"time"

	"sales-backend/internal/audit"
	"sales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type CreateBatchRequest struct {
	Date string `json:"date"` // "2025-12-09"
}

type UpdateBatchRequest struct {
	Date        *string  `json:"date"`
	CardAmount  *float64 `json:"card_amount"`
	CashAmount  *float64 `json:"cash_amount"`
	TotalAmount *float64 `json:"total_amount"`
}

type BatchSummaryResponse struct {
	ID   uint   `json:"id"`
	Date string `json:"date"`
}

type BatchDetailResponse struct {
	ID          uint            `json:"id"`
	Date        string          `json:"date"`
	CardAmount  float64         `json:"card_amount"`
	CashAmount  float64         `json:"cash_amount"`
	TotalAmount float64         `json:"total_amount"`
	Entries     []EntryResponse `json:"entries"`
}

func parseBatchID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid batch id")
	}
	return id, nil
}

// POST /batches
func CreateBatchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		d, err := time.Parse(dateLayout, body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		}

		batch := models.Batch{
			Date:        d,
			CardAmount:  decimal.Zero,
			CashAmount:  decimal.Zero,
			TotalAmount: decimal.Zero,
		}

		if err := db.Create(&batch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be created")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "batch",
			EntityID:    batch.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("batch created for %s", batch.Date.Format(dateLayout)),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(BatchSummaryResponse{
			ID:   batch.ID,
			Date: batch.Date.Format(dateLayout),
		})
	}
}

// GET /batches
func ListBatchesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var batches []models.Batch
		if err := db.Order("date desc").Find(&batches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "batches could not be listed")
		}

		resp := make([]BatchSummaryResponse, 0, len(batches))
		for _, b := range batches {
			resp = append(resp, BatchSummaryResponse{ID: b.ID, Date: b.Date.Format(dateLayout)})
		}
		return c.JSON(resp)
	}
}

// GET /batches/by-date/:date
func GetBatchByDateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := time.Parse(dateLayout, c.Params("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		}

		// Dates carry no unique constraint; if duplicates exist the first
		// batch wins.
		var batch models.Batch
		if err := db.Where("date = ?", d).
			Preload("Entries.Product").
			Preload("Entries.Payments").
			First(&batch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no batch found for this date")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be loaded")
		}

		entries := make([]EntryResponse, 0, len(batch.Entries))
		for _, e := range batch.Entries {
			entries = append(entries, entryToResponse(e))
		}

		return c.JSON(BatchDetailResponse{
			ID:          batch.ID,
			Date:        batch.Date.Format(dateLayout),
			CardAmount:  batch.CardAmount.InexactFloat64(),
			CashAmount:  batch.CashAmount.InexactFloat64(),
			TotalAmount: batch.TotalAmount.InexactFloat64(),
			Entries:     entries,
		})
	}
}

// PUT|PATCH /batches/:id
func UpdateBatchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseBatchID(c)
		if err != nil {
			return err
		}

		var batch models.Batch
		if err := db.First(&batch, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "batch not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be loaded")
		}

		var body UpdateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		before := BatchDetailResponse{
			ID:          batch.ID,
			Date:        batch.Date.Format(dateLayout),
			CardAmount:  batch.CardAmount.InexactFloat64(),
			CashAmount:  batch.CashAmount.InexactFloat64(),
			TotalAmount: batch.TotalAmount.InexactFloat64(),
		}

		if body.Date != nil {
			d, err := time.Parse(dateLayout, *body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
			}
			batch.Date = d
		}
		if body.CardAmount != nil {
			batch.CardAmount = decimal.NewFromFloat(*body.CardAmount)
		}
		if body.CashAmount != nil {
			batch.CashAmount = decimal.NewFromFloat(*body.CashAmount)
		}
		if body.TotalAmount != nil {
			batch.TotalAmount = decimal.NewFromFloat(*body.TotalAmount)
		}

		if err := db.Omit("Entries").Save(&batch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be updated")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "batch",
			EntityID:    batch.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("batch %d updated", batch.ID),
			Before:      before,
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.JSON(BatchSummaryResponse{ID: batch.ID, Date: batch.Date.Format(dateLayout)})
	}
}

// DELETE /batches/:id
func DeleteBatchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseBatchID(c)
		if err != nil {
			return err
		}

		var batch models.Batch
		if err := db.First(&batch, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "batch not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be loaded")
		}

		// Delete entries and their payments together with the batch, so no
		// orphan rows remain even on stores without FK enforcement.
		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}

		var entryIDs []uint
		if err := tx.Model(&models.Entry{}).Where("batch_id = ?", batch.ID).Pluck("id", &entryIDs).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be deleted")
		}
		if len(entryIDs) > 0 {
			if err := tx.Where("entry_id IN ?", entryIDs).Delete(&models.Payment{}).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "batch could not be deleted")
			}
			if err := tx.Where("batch_id = ?", batch.ID).Delete(&models.Entry{}).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "batch could not be deleted")
			}
		}
		if err := tx.Delete(&batch).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be deleted")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "batch could not be deleted")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "batch",
			EntityID:    batch.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("batch %d deleted with %d entries", batch.ID, len(entryIDs)),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.JSON(fiber.Map{"result": "deleted"})
	}
}
