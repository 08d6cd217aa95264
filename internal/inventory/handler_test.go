package inventory_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"sales-backend/internal/database"
	"sales-backend/internal/models"
	"sales-backend/internal/server"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return server.New(db, ""), db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, attrNum string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.NewFromFloat(price), AttrNum: attrNum}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedInventory(t *testing.T, app *fiber.App, date string, items []fiber.Map) InventoryView {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/inventory", fiber.Map{"date": date, "items": items})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inv InventoryView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&inv))
	return inv
}

type InventoryItemView struct {
	ID         uint    `json:"id"`
	ProductID  uint    `json:"product_id"`
	AttrNumber string  `json:"attrNumber"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
}

type InventoryView struct {
	ID    uint                `json:"id"`
	Date  string              `json:"date"`
	Qty   int                 `json:"qty"`
	Total float64             `json:"total"`
	Items []InventoryItemView `json:"items"`
}

func TestCreateInventory(t *testing.T) {
	app, db := newTestApp(t)
	shirt := seedProduct(t, db, "Shirt", 10, "A-1")
	pants := seedProduct(t, db, "Pants", 25.50, "A-2")

	t.Run("aggregates snapshot price times qty", func(t *testing.T) {
		inv := seedInventory(t, app, "2025-09-01", []fiber.Map{
			{"product_id": shirt.ID, "qty": 3},
			{"product_id": pants.ID, "qty": 2},
		})
		assert.Equal(t, "2025-09-01", inv.Date)
		assert.Equal(t, 5, inv.Qty)
		assert.InDelta(t, 81.0, inv.Total, 0.001) // 3*10 + 2*25.50
		require.Len(t, inv.Items, 2)
		assert.Equal(t, "Shirt", inv.Items[0].Name)
		assert.Equal(t, "A-1", inv.Items[0].AttrNumber)
		assert.InDelta(t, 10.0, inv.Items[0].Price, 0.001)
	})

	t.Run("empty items list is a valid zero snapshot", func(t *testing.T) {
		inv := seedInventory(t, app, "2025-09-02", []fiber.Map{})
		assert.Zero(t, inv.Qty)
		assert.Zero(t, inv.Total)
		assert.Empty(t, inv.Items)
	})

	t.Run("unknown product rolls everything back", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/inventory", fiber.Map{
			"date": "2025-09-03",
			"items": []fiber.Map{
				{"product_id": shirt.ID, "qty": 1},
				{"product_id": 9999, "qty": 1},
			},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Inventory{}).
			Where("date = ?", mustDate(t, "2025-09-03")).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("item missing qty", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/inventory", fiber.Map{
			"date":  "2025-09-04",
			"items": []fiber.Map{{"product_id": shirt.ID}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("string qty is rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/inventory", fiber.Map{
			"date":  "2025-09-04",
			"items": []fiber.Map{{"product_id": shirt.ID, "qty": "3"}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing date", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/inventory", fiber.Map{
			"items": []fiber.Map{},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListInventory(t *testing.T) {
	app, db := newTestApp(t)
	shirt := seedProduct(t, db, "Shirt", 10, "")
	seedInventory(t, app, "2025-09-05", []fiber.Map{{"product_id": shirt.ID, "qty": 1}})
	seedInventory(t, app, "2025-09-01", []fiber.Map{{"product_id": shirt.ID, "qty": 1}})
	seedInventory(t, app, "2025-10-01", []fiber.Map{{"product_id": shirt.ID, "qty": 1}})

	t.Run("range filter, oldest first", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/inventory?start=2025-09-01&end=2025-09-30", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var list []InventoryView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		require.Len(t, list, 2)
		assert.Equal(t, "2025-09-01", list[0].Date)
		assert.Equal(t, "2025-09-05", list[1].Date)
	})

	t.Run("missing range params", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/inventory?start=2025-09-01", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad date format", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/inventory?start=bogus&end=2025-09-30", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetInventory(t *testing.T) {
	app, db := newTestApp(t)
	shirt := seedProduct(t, db, "Shirt", 10, "")
	inv := seedInventory(t, app, "2025-09-10", []fiber.Map{{"product_id": shirt.ID, "qty": 4}})

	t.Run("found", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/inventory/"+itoa(inv.ID), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got InventoryView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, inv.ID, got.ID)
		assert.Equal(t, 4, got.Qty)
	})

	t.Run("not found", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/inventory/9999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateInventoryReplacesItems(t *testing.T) {
	app, db := newTestApp(t)
	shirt := seedProduct(t, db, "Shirt", 10, "")
	pants := seedProduct(t, db, "Pants", 20, "")
	inv := seedInventory(t, app, "2025-09-11", []fiber.Map{
		{"product_id": shirt.ID, "qty": 3},
		{"product_id": pants.ID, "qty": 1},
	})

	resp := doJSON(t, app, http.MethodPut, "/api/inventory/"+itoa(inv.ID), fiber.Map{
		"date":  "2025-09-12",
		"items": []fiber.Map{{"product_id": pants.ID, "qty": 5}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated InventoryView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "2025-09-12", updated.Date)
	assert.Equal(t, 5, updated.Qty)
	assert.InDelta(t, 100.0, updated.Total, 0.001)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, pants.ID, updated.Items[0].ProductID)

	var rows int64
	require.NoError(t, db.Model(&models.InventoryEntry{}).
		Where("inventory_id = ?", inv.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	t.Run("empty items zeroes the snapshot", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/inventory/"+itoa(inv.ID), fiber.Map{
			"date":  "2025-09-12",
			"items": []fiber.Map{},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var emptied InventoryView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&emptied))
		assert.Zero(t, emptied.Qty)
		assert.Zero(t, emptied.Total)
		assert.Empty(t, emptied.Items)
	})

	t.Run("not found", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/inventory/9999", fiber.Map{
			"date": "2025-09-12", "items": []fiber.Map{},
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteInventoryCascades(t *testing.T) {
	app, db := newTestApp(t)
	shirt := seedProduct(t, db, "Shirt", 10, "")
	inv := seedInventory(t, app, "2025-09-13", []fiber.Map{{"product_id": shirt.ID, "qty": 2}})

	resp := doJSON(t, app, http.MethodDelete, "/api/inventory/"+itoa(inv.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "deleted", body["result"])

	var invCount, itemCount int64
	require.NoError(t, db.Model(&models.Inventory{}).Where("id = ?", inv.ID).Count(&invCount).Error)
	require.NoError(t, db.Model(&models.InventoryEntry{}).Where("inventory_id = ?", inv.ID).Count(&itemCount).Error)
	assert.Zero(t, invCount)
	assert.Zero(t, itemCount)

	t.Run("second delete is a 404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, "/api/inventory/"+itoa(inv.ID), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteInventoryItemRecomputesAggregates(t *testing.T) {
	app, db := newTestApp(t)
	shirt := seedProduct(t, db, "Shirt", 10, "")
	pants := seedProduct(t, db, "Pants", 20, "")
	inv := seedInventory(t, app, "2025-09-14", []fiber.Map{
		{"product_id": shirt.ID, "qty": 3},
		{"product_id": pants.ID, "qty": 2},
	})
	require.Len(t, inv.Items, 2)

	var victim uint
	for _, item := range inv.Items {
		if item.ProductID == shirt.ID {
			victim = item.ID
		}
	}
	require.NotZero(t, victim)

	resp := doJSON(t, app, http.MethodDelete, "/api/inventory/items/"+itoa(victim), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Inventory
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.Equal(t, 2, stored.QtyAmount)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(40)))

	t.Run("unknown item", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, "/api/inventory/items/9999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
