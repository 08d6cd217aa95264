package catalog

import (
	"fmt"
	"log"
	"strings"

	"sales-backend/internal/audit"
	"sales-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductResponse struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	AttrNum string  `json:"attr_num"`
}

type CreateProductRequest struct {
	Name    string   `json:"name"`
	Price   *float64 `json:"price"`
	AttrNum string   `json:"attr_num"`
}

// POST /api/products
func CreateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" || body.Price == nil {
			return fiber.NewError(fiber.StatusBadRequest, "name and price are required")
		}

		p := models.Product{
			Name:    body.Name,
			Price:   decimal.NewFromFloat(*body.Price),
			AttrNum: body.AttrNum,
		}

		if err := db.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "product could not be created")
		}

		resp := ProductResponse{
			ID:      p.ID,
			Name:    p.Name,
			Price:   p.Price.InexactFloat64(),
			AttrNum: p.AttrNum,
		}

		if logErr := audit.WriteLog(db, audit.LogOptions{
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("product created: %s", p.Name),
			After:       resp,
		}); logErr != nil {
			log.Printf("audit log write failed: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/products
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := db.Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "products could not be listed")
		}

		resp := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, ProductResponse{
				ID:      p.ID,
				Name:    p.Name,
				Price:   p.Price.InexactFloat64(),
				AttrNum: p.AttrNum,
			})
		}
		return c.JSON(resp)
	}
}
