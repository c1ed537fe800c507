package main

import (
	"log"

	"orderdesk/config"
	"orderdesk/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	gormDB, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}

	log.Println("migration completed")
}
