package server

import (
	"log"
	"strings"

	"sales-backend/internal/audit"
	"sales-backend/internal/catalog"
	"sales-backend/internal/inventory"
	"sales-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// New builds the fiber app with all routes registered. corsOrigins is a
// comma-separated origin list; empty skips the CORS middleware.
func New(db *gorm.DB, corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	app.Use(recover.New())

	if corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(origins, ","),
			AllowHeaders: "Origin, Content-Type, Accept",
			AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		}))
	}

	api := app.Group("/api")

	// Product catalog (create + list only, there is no update/delete surface)
	api.Post("/products", catalog.CreateProductHandler(db))
	api.Get("/products", catalog.ListProductsHandler(db))

	// Sales batches
	app.Post("/batches", sales.CreateBatchHandler(db))
	app.Get("/batches", sales.ListBatchesHandler(db))
	app.Get("/batches/by-date/:date", sales.GetBatchByDateHandler(db))
	app.Put("/batches/:id", sales.UpdateBatchHandler(db))
	app.Patch("/batches/:id", sales.UpdateBatchHandler(db))
	app.Delete("/batches/:id", sales.DeleteBatchHandler(db))

	// Entries (payments are managed through their entry)
	api.Post("/entries", sales.CreateEntryHandler(db))
	api.Get("/entries", sales.ListEntriesHandler(db))
	api.Put("/entries/:id", sales.UpdateEntryHandler(db))
	api.Patch("/entries/:id", sales.UpdateEntryHandler(db))
	api.Delete("/entries/:id", sales.DeleteEntryHandler(db))

	app.Get("/payments", sales.ListPaymentsHandler(db))

	// Inventory. Static paths first so /:id does not swallow them.
	api.Get("/inventory/export", inventory.ExportCSVHandler(db))
	api.Get("/inventory/export-xlsx", inventory.ExportXLSXHandler(db))
	api.Get("/inventory/import-template", inventory.ImportTemplateHandler())
	api.Post("/inventory/import", inventory.ImportHandler(db))
	api.Get("/inventory", inventory.ListInventoryHandler(db))
	api.Post("/inventory", inventory.CreateInventoryHandler(db))
	api.Delete("/inventory/items/:id", inventory.DeleteInventoryItemHandler(db))
	api.Get("/inventory/:id", inventory.GetInventoryHandler(db))
	api.Put("/inventory/:id", inventory.UpdateInventoryHandler(db))
	api.Delete("/inventory/:id", inventory.DeleteInventoryHandler(db))

	// Audit trail
	api.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	return app
}
