package inventory

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

type ItemInput struct {
	ProductID *uint `json:"product_id"`
	Qty       *int  `json:"qty"`
}

type UpsertInventoryRequest struct {
	Date  *string     `json:"date"`
	Items []ItemInput `json:"items"`
}

type InventoryItemResponse struct {
	ID         uint    `json:"id"`
	ProductID  uint    `json:"product_id"`
	AttrNumber string  `json:"attrNumber"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
}

type InventoryResponse struct {
	ID    uint                    `json:"id"`
	Date  string                  `json:"date"`
	Qty   int                     `json:"qty"`
	Total float64                 `json:"total"`
	Items []InventoryItemResponse `json:"items"`
}

func inventoryToResponse(inv models.Inventory) InventoryResponse {
	items := make([]InventoryItemResponse, 0, len(inv.Entries))
	for _, e := range inv.Entries {
		items = append(items, InventoryItemResponse{
			ID:         e.ID,
			ProductID:  e.ProductID,
			AttrNumber: e.Product.AttrNum,
			Name:       e.Product.Name,
			Price:      e.Product.Price.Round(2).InexactFloat64(),
			Qty:        e.Qty,
		})
	}
	return InventoryResponse{
		ID:    inv.ID,
		Date:  inv.Date.Format(dateLayout),
		Qty:   inv.QtyAmount,
		Total: inv.TotalAmount.Round(2).InexactFloat64(),
		Items: items,
	}
}

func parseInventoryID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid inventory id")
	}
	return id, nil
}

// appendItems resolves each item against the product catalog, persists the
// child rows and accumulates the snapshot aggregates on inv. The total is a
// snapshot of qty x product price at this moment.
func appendItems(tx *gorm.DB, inv *models.Inventory, items []ItemInput) error {
	for _, item := range items {
		if item.ProductID == nil || item.Qty == nil {
			return fiber.NewError(fiber.StatusBadRequest, "each item needs product_id & qty")
		}
		var product models.Product
		if err := tx.First(&product, "id = ?", *item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("unknown product_id %d", *item.ProductID))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "product could not be loaded")
		}

		entry := models.InventoryEntry{
			InventoryID: inv.ID,
			ProductID:   product.ID,
			Qty:         *item.Qty,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory item could not be created")
		}

		inv.QtyAmount += *item.Qty
		inv.TotalAmount = inv.TotalAmount.Add(product.Price.Mul(decimal.NewFromInt(int64(*item.Qty))))
	}
	return nil
}

func loadInventory(db *gorm.DB, id uint) (models.Inventory, error) {
	var inv models.Inventory
	err := db.Preload("Entries.Product").First(&inv, "id = ?", id).Error
	return inv, err
}

// GET /api/inventory?start=yyyy-mm-dd&end=yyyy-mm-dd
func ListInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := c.Query("start")
		end := c.Query("end")
		if start == "" || end == "" {
			return fiber.NewError(fiber.StatusBadRequest, "start and end query params required")
		}
		startD, err := time.Parse(dateLayout, start)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid start format, expected YYYY-MM-DD")
		}
		endD, err := time.Parse(dateLayout, end)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid end format, expected YYYY-MM-DD")
		}

		var inventories []models.Inventory
		if err := db.
			Where("date >= ? AND date <= ?", startD, endD).
			Order("date asc").
			Preload("Entries.Product").
			Find(&inventories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventories could not be listed")
		}

		resp := make([]InventoryResponse, 0, len(inventories))
		for _, inv := range inventories {
			resp = append(resp, inventoryToResponse(inv))
		}
		return c.JSON(resp)
	}
}

// GET /api/inventory/:id
func GetInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseInventoryID(c)
		if err != nil {
			return err
		}
		inv, err := loadInventory(db, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "inventory not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be loaded")
		}
		return c.JSON(inventoryToResponse(inv))
	}
}

// POST /api/inventory   { date:"YYYY-MM-DD", items:[{product_id, qty}] }
func CreateInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpsertInventoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Date == nil || body.Items == nil {
			return fiber.NewError(fiber.StatusBadRequest, "date and items required")
		}
		d, err := time.Parse(dateLayout, *body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		}

		inv := models.Inventory{Date: d, QtyAmount: 0, TotalAmount: decimal.Zero}

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}
		if err := tx.Create(&inv).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be created")
		}
		if err := appendItems(tx, &inv, body.Items); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Omit("Entries").Save(&inv).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be created")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be created")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "inventory",
			EntityID:    inv.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("inventory created for %s with %d items", inv.Date.Format(dateLayout), len(body.Items)),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		created, err := loadInventory(db, inv.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be loaded")
		}
		return c.Status(fiber.StatusCreated).JSON(inventoryToResponse(created))
	}
}

// PUT /api/inventory/:id (full replace: all existing items are dropped and
// the aggregates rebuilt from the submitted list)
func UpdateInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseInventoryID(c)
		if err != nil {
			return err
		}

		var inv models.Inventory
		if err := db.First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "inventory not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be loaded")
		}

		var body UpsertInventoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Date == nil || body.Items == nil {
			return fiber.NewError(fiber.StatusBadRequest, "date and items required")
		}
		d, err := time.Parse(dateLayout, *body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		}

		inv.Date = d
		inv.QtyAmount = 0
		inv.TotalAmount = decimal.Zero

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}
		if err := tx.Where("inventory_id = ?", inv.ID).Delete(&models.InventoryEntry{}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be updated")
		}
		if err := appendItems(tx, &inv, body.Items); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Omit("Entries").Save(&inv).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be updated")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be updated")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "inventory",
			EntityID:    inv.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("inventory %d replaced with %d items", inv.ID, len(body.Items)),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		updated, err := loadInventory(db, inv.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be loaded")
		}
		return c.JSON(inventoryToResponse(updated))
	}
}

// DELETE /api/inventory/:id
func DeleteInventoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseInventoryID(c)
		if err != nil {
			return err
		}

		var inv models.Inventory
		if err := db.First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "inventory not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be loaded")
		}

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}
		if err := tx.Where("inventory_id = ?", inv.ID).Delete(&models.InventoryEntry{}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be deleted")
		}
		if err := tx.Delete(&inv).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be deleted")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be deleted")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "inventory",
			EntityID:    inv.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("inventory %d deleted", inv.ID),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.JSON(fiber.Map{"result": "deleted"})
	}
}

// DELETE /api/inventory/items/:id
//
// Removes a single item and recomputes the owning inventory's aggregates in
// the same transaction, so qty/total never go stale.
func DeleteInventoryItemHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
		}

		var item models.InventoryEntry
		if err := db.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "inventory item not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "inventory item could not be loaded")
		}

		tx := db.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "transaction could not be started")
		}
		if err := tx.Delete(&item).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory item could not be deleted")
		}

		var remaining []models.InventoryEntry
		if err := tx.Preload("Product").Where("inventory_id = ?", item.InventoryID).Find(&remaining).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be recomputed")
		}
		qty := 0
		total := decimal.Zero
		for _, e := range remaining {
			qty += e.Qty
			total = total.Add(e.Product.Price.Mul(decimal.NewFromInt(int64(e.Qty))))
		}
		if err := tx.Model(&models.Inventory{}).Where("id = ?", item.InventoryID).
			Updates(map[string]any{"qty_amount": qty, "total_amount": total}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "inventory could not be recomputed")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "inventory item could not be deleted")
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("inventory item %d removed from inventory %d", item.ID, item.InventoryID),
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.JSON(fiber.Map{"result": "deleted"})
	}
}
