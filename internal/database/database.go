package database

import (
	"fmt"
	"log"

	"recipegram_22520060/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Connect opens the application database used by request-scoped reads/writes.
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Connected to database successfully")
	return db, nil
}

// ConnectServiceRole opens the privileged connection the push notifier uses to
// read follower and device-token data across all users. Returns (nil, nil)
// when SERVICE_ROLE_DSN is unset so the caller can run with push disabled.
func ConnectServiceRole(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.ServiceRoleDSN == "" {
		return nil, nil
	}

	db, err := sqlx.Connect("postgres", cfg.ServiceRoleDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect with service role: %w", err)
	}

	log.Println("Connected service-role database handle")
	return db, nil
}
