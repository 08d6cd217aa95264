package database

import (
	"strings"

	"sales-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to the store selected by the DSN and runs the migrations.
// A Postgres DSN ("host=..." or "postgres://...") uses the postgres driver,
// anything else is treated as a SQLite file path.
func Open(dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "host=") ||
		strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") {
		dial = postgres.Open(dsn)
	} else {
		dial = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.Batch{},
		&models.Entry{},
		&models.Payment{},
		&models.Inventory{},
		&models.InventoryEntry{},
		&models.AuditLog{},
	)
}
