package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/nmalenkov/storefront/internal/config"
	"github.com/nmalenkov/storefront/pkg/hash"
)

// Seeds an admin account and a small demo catalog. Safe to re-run:
// every statement is an upsert keyed on the natural identifier.
func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	adminEmail := config.EnvDefault("SEED_ADMIN_EMAIL", "admin@storefront.local")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Ping database: %v", err)
	}

	pwHash, err := hash.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("Hash admin password: %v", err)
	}

	if _, err := db.Exec(`
		INSERT INTO users (email, name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, 'admin', NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = 'admin'`,
		adminEmail, "Administrator", pwHash,
	); err != nil {
		log.Fatalf("Seed admin user: %v", err)
	}
	log.Printf("Seeded admin user %s", adminEmail)

	products := []struct {
		name        string
		description string
		price       string
		stock       int
	}{
		{"Classic Tee", "Plain cotton t-shirt", "19.00", 100},
		{"Canvas Tote", "Heavy duty shopping bag", "12.50", 200},
		{"Enamel Mug", "350ml camping mug", "9.90", 80},
		{"Wool Beanie", "One size knit hat", "15.00", 60},
	}

	for _, p := range products {
		if _, err := db.Exec(`
			INSERT INTO products (name, description, price, stock, created_at, updated_at)
			SELECT $1, $2, $3::numeric, $4, NOW(), NOW()
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1)`,
			p.name, p.description, p.price, p.stock,
		); err != nil {
			log.Fatalf("Seed product %s: %v", p.name, err)
		}
	}

	log.Printf("Seeded %d product(s)", len(products))
}
