package inventory

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"sales-backend/internal/audit"
	"sales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type importBlock struct {
	Date  string      `json:"date"`
	Items []ItemInput `json:"items"`
}

// POST /api/inventory/import
//
// Accepts a multipart CSV upload (field name "file", columns date,
// product_id, qty; the export format works too) or a raw JSON array of
// {date, items} blocks. Rows are grouped by date and each date's inventory
// is replaced, not merged. The whole import is one transaction: an unknown
// product anywhere rolls back every date already applied.
func ImportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var blocks []importBlock

		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "uploaded file could not be read")
			}
			defer f.Close()
			blocks, err = parseImportCSV(f)
			if err != nil {
				return err
			}
		} else {
			if err := json.Unmarshal(c.Body(), &blocks); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "CSV file (field name: file) or JSON body required")
			}
		}

		imported, err := applyImport(db, blocks)
		if err != nil {
			return err
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "inventory",
			Action:      models.AuditActionImport,
			Description: fmt.Sprintf("imported %d inventories", len(imported)),
			After:       imported,
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"imported_dates": imported})
	}
}

func parseImportCSV(r io.Reader) ([]importBlock, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "CSV file is empty or unreadable")
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"date", "product_id", "qty"} {
		if _, ok := col[required]; !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("CSV is missing the %q column", required))
		}
	}

	// Group rows by date, first-seen order.
	blockIdx := map[string]int{}
	var blocks []importBlock
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "CSV could not be parsed")
		}

		date := record[col["date"]]
		productID, err := strconv.Atoi(record[col["product_id"]])
		if err != nil || productID <= 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid product_id %q", record[col["product_id"]]))
		}
		qty, err := strconv.Atoi(record[col["qty"]])
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid qty %q", record[col["qty"]]))
		}

		pid := uint(productID)
		item := ItemInput{ProductID: &pid, Qty: &qty}

		idx, ok := blockIdx[date]
		if !ok {
			blockIdx[date] = len(blocks)
			blocks = append(blocks, importBlock{Date: date, Items: []ItemInput{item}})
			continue
		}
		blocks[idx].Items = append(blocks[idx].Items, item)
	}
	return blocks, nil
}

func applyImport(db *gorm.DB, blocks []importBlock) ([]string, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
	}

	imported := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Items == nil {
			tx.Rollback()
			return nil, fiber.NewError(fiber.StatusBadRequest, "each block needs date and items")
		}
		d, err := time.Parse(dateLayout, block.Date)
		if err != nil {
			tx.Rollback()
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
		}

		// Replace semantics: drop any inventory already stored for that date.
		var existingIDs []uint
		if err := tx.Model(&models.Inventory{}).Where("date = ?", d).Pluck("id", &existingIDs).Error; err != nil {
			tx.Rollback()
			return nil, fiber.NewError(fiber.StatusInternalServerError, "import failed")
		}
		if len(existingIDs) > 0 {
			if err := tx.Where("inventory_id IN ?", existingIDs).Delete(&models.InventoryEntry{}).Error; err != nil {
				tx.Rollback()
				return nil, fiber.NewError(fiber.StatusInternalServerError, "import failed")
			}
			if err := tx.Where("id IN ?", existingIDs).Delete(&models.Inventory{}).Error; err != nil {
				tx.Rollback()
				return nil, fiber.NewError(fiber.StatusInternalServerError, "import failed")
			}
		}

		inv := models.Inventory{Date: d, QtyAmount: 0, TotalAmount: decimal.Zero}
		if err := tx.Create(&inv).Error; err != nil {
			tx.Rollback()
			return nil, fiber.NewError(fiber.StatusInternalServerError, "import failed")
		}
		if err := appendItems(tx, &inv, block.Items); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Omit("Entries").Save(&inv).Error; err != nil {
			tx.Rollback()
			return nil, fiber.NewError(fiber.StatusInternalServerError, "import failed")
		}

		imported = append(imported, d.Format(dateLayout))
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "import failed")
	}
	return imported, nil
}

// GET /api/inventory/import-template
func ImportTemplateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		_ = cw.Write([]string{"date", "product_id", "qty"})
		_ = cw.Write([]string{time.Now().Format(dateLayout), "1", "10"}) // example row
		cw.Flush()

		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="inventory_import_template.csv"`)
		return c.Send(buf.Bytes())
	}
}
