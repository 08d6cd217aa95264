package main

import (
	"log"

	"sales-backend/internal/config"
	"sales-backend/internal/database"
	"sales-backend/internal/server"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	app := server.New(db, cfg.CORSOrigins)

	log.Println("server listening on port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
