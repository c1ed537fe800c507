package main

import (
	"log"
	"os"

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

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@orderdesk.local"
	}
	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD must be set")
	}

	if err := db.SeedAdmin(gormDB, email, name, password); err != nil {
		log.Fatalf("seed admin failed: %v", err)
	}

	log.Println("admin seeded")
}
