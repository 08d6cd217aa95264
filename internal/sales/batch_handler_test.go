package sales_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: decimal.NewFromFloat(price)}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedBatch(t *testing.T, db *gorm.DB, date string) models.Batch {
	t.Helper()
	b := models.Batch{Date: mustDate(t, date)}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func seedEntry(t *testing.T, db *gorm.DB, batchID, productID uint, qty int, price float64) models.Entry {
	t.Helper()
	e := models.Entry{BatchID: batchID, ProductID: productID, Qty: qty, Price: decimal.NewFromFloat(price)}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func seedPayment(t *testing.T, db *gorm.DB, entryID uint, paymentType string, amount float64) models.Payment {
	t.Helper()
	p := models.Payment{EntryID: entryID, PaymentType: paymentType, Amount: decimal.NewFromFloat(amount)}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestCreateBatch(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("valid", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/batches", fiber.Map{"date": "2025-08-01"})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var created struct {
			ID   uint   `json:"id"`
			Date string `json:"date"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.NotZero(t, created.ID)
		assert.Equal(t, "2025-08-01", created.Date)
	})

	t.Run("malformed date", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/batches", fiber.Map{"date": "01.08.2025"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListBatchesNewestFirst(t *testing.T) {
	app, db := newTestApp(t)
	seedBatch(t, db, "2025-08-01")
	seedBatch(t, db, "2025-08-03")
	seedBatch(t, db, "2025-08-02")

	resp := doJSON(t, app, http.MethodGet, "/batches", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var batches []struct {
		ID   uint   `json:"id"`
		Date string `json:"date"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&batches))
	require.Len(t, batches, 3)
	assert.Equal(t, "2025-08-03", batches[0].Date)
	assert.Equal(t, "2025-08-02", batches[1].Date)
	assert.Equal(t, "2025-08-01", batches[2].Date)
}

func TestGetBatchByDate(t *testing.T) {
	app, db := newTestApp(t)
	product := seedProduct(t, db, "Jeans", 45.50)
	batch := seedBatch(t, db, "2025-08-05")
	entry := seedEntry(t, db, batch.ID, product.ID, 2, 45.50)
	seedPayment(t, db, entry.ID, "cash", 50)
	seedPayment(t, db, entry.ID, "card", 41)

	t.Run("found with nested entries", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/batches/by-date/2025-08-05", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var detail struct {
			ID      uint   `json:"id"`
			Date    string `json:"date"`
			Entries []struct {
				ProductName string `json:"product_name"`
				Qty         int    `json:"qty"`
				Payments    []struct {
					PaymentType string  `json:"payment_type"`
					Amount      float64 `json:"amount"`
				} `json:"payments"`
			} `json:"entries"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
		assert.Equal(t, batch.ID, detail.ID)
		require.Len(t, detail.Entries, 1)
		assert.Equal(t, "Jeans", detail.Entries[0].ProductName)
		assert.Len(t, detail.Entries[0].Payments, 2)
	})

	t.Run("no batch for date", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/batches/by-date/2025-01-01", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed date", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/batches/by-date/yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdateBatchPartial(t *testing.T) {
	app, db := newTestApp(t)
	batch := seedBatch(t, db, "2025-08-10")

	resp := doJSON(t, app, http.MethodPatch, "/batches/"+itoa(batch.ID), fiber.Map{"card_amount": 120.50})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Batch
	require.NoError(t, db.First(&stored, batch.ID).Error)
	assert.Equal(t, "2025-08-10", stored.Date.Format("2006-01-02"))
	assert.True(t, stored.CardAmount.Equal(decimal.NewFromFloat(120.50)))
	assert.True(t, stored.CashAmount.IsZero())

	t.Run("unknown id", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/batches/9999", fiber.Map{"card_amount": 1})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed date", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/batches/"+itoa(batch.ID), fiber.Map{"date": "nope"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteBatchCascades(t *testing.T) {
	app, db := newTestApp(t)
	product := seedProduct(t, db, "Socks", 5)
	batch := seedBatch(t, db, "2025-08-15")
	for i := 0; i < 2; i++ {
		entry := seedEntry(t, db, batch.ID, product.ID, 1, 5)
		seedPayment(t, db, entry.ID, "cash", 2.5)
		seedPayment(t, db, entry.ID, "card", 2.5)
	}

	resp := doJSON(t, app, http.MethodDelete, "/batches/"+itoa(batch.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "deleted", result["result"])

	var entryCount, paymentCount int64
	require.NoError(t, db.Model(&models.Entry{}).Where("batch_id = ?", batch.ID).Count(&entryCount).Error)
	require.NoError(t, db.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Zero(t, entryCount)
	assert.Zero(t, paymentCount)

	t.Run("already gone", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, "/batches/"+itoa(batch.ID), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
