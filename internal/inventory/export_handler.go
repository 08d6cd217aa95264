package inventory

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"sales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var exportHeader = []string{"date", "inventory_id", "item_id", "product_id", "attr_num", "name", "price", "qty"}

type exportRow struct {
	Date        time.Time
	InventoryID uint
	ItemID      uint
	ProductID   uint
	AttrNum     string
	Name        string
	Price       decimal.Decimal
	Qty         int
}

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	start := c.Query("start")
	end := c.Query("end")
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "start and end query params required")
	}
	startD, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
	}
	endD, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
	}
	return startD, endD, nil
}

// exportRows opens a cursor over every (inventory x item) pair in the range,
// inventory date ascending then item insertion order.
func exportRows(db *gorm.DB, startD, endD time.Time) (*sql.Rows, error) {
	return db.Model(&models.InventoryEntry{}).
		Select("inventories.date, inventories.id, inventory_entries.id, products.id, products.attr_num, products.name, products.price, inventory_entries.qty").
		Joins("JOIN inventories ON inventories.id = inventory_entries.inventory_id").
		Joins("JOIN products ON products.id = inventory_entries.product_id").
		Where("inventories.date >= ? AND inventories.date <= ?", startD, endD).
		Order("inventories.date asc, inventories.id asc, inventory_entries.id asc").
		Rows()
}

func scanExportRow(rows *sql.Rows) (exportRow, error) {
	var r exportRow
	err := rows.Scan(&r.Date, &r.InventoryID, &r.ItemID, &r.ProductID, &r.AttrNum, &r.Name, &r.Price, &r.Qty)
	return r, err
}

// GET /api/inventory/export?start=yyyy-mm-dd&end=yyyy-mm-dd
//
// Streams the CSV row by row so large exports never buffer the whole result
// set in memory.
func ExportCSVHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		startD, endD, err := parseRange(c)
		if err != nil {
			return err
		}

		start := c.Query("start")
		end := c.Query("end")
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="inventory_%s_%s.csv"`, start, end))

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			cw := csv.NewWriter(w)
			if err := cw.Write(exportHeader); err != nil {
				log.Printf("csv export aborted: %v", err)
				return
			}
			cw.Flush()

			rows, err := exportRows(db, startD, endD)
			if err != nil {
				log.Printf("csv export aborted: %v", err)
				return
			}
			defer rows.Close()

			for rows.Next() {
				r, err := scanExportRow(rows)
				if err != nil {
					log.Printf("csv export aborted: %v", err)
					return
				}
				record := []string{
					r.Date.Format(dateLayout),
					strconv.FormatUint(uint64(r.InventoryID), 10),
					strconv.FormatUint(uint64(r.ItemID), 10),
					strconv.FormatUint(uint64(r.ProductID), 10),
					r.AttrNum,
					r.Name,
					r.Price.StringFixed(2),
					strconv.Itoa(r.Qty),
				}
				if err := cw.Write(record); err != nil {
					log.Printf("csv export aborted: %v", err)
					return
				}
				cw.Flush()
				if err := w.Flush(); err != nil {
					return // client went away
				}
			}
			if err := rows.Err(); err != nil {
				log.Printf("csv export aborted: %v", err)
			}
		})
		return nil
	}
}

// GET /api/inventory/export-xlsx?start=yyyy-mm-dd&end=yyyy-mm-dd
func ExportXLSXHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		startD, endD, err := parseRange(c)
		if err != nil {
			return err
		}

		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)

		header := make([]any, len(exportHeader))
		for i, h := range exportHeader {
			header[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
		}

		rows, err := exportRows(db, startD, endD)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
		}
		defer rows.Close()

		rowIdx := 2
		for rows.Next() {
			r, err := scanExportRow(rows)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
			}
			cell, err := excelize.CoordinatesToCellName(1, rowIdx)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
			}
			record := []any{
				r.Date.Format(dateLayout),
				r.InventoryID,
				r.ItemID,
				r.ProductID,
				r.AttrNum,
				r.Name,
				r.Price.StringFixed(2),
				r.Qty,
			}
			if err := f.SetSheetRow(sheet, cell, &record); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
			}
			rowIdx++
		}
		if err := rows.Err(); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "export could not be generated")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="inventory_%s_%s.xlsx"`, c.Query("start"), c.Query("end")))
		return c.Send(buf.Bytes())
	}
}
