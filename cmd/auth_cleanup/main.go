package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"rentspace/internal/database"
	"rentspace/internal/repository"
)

// Retention sweep for the refresh-token ledger. Rotated and revoked rows
// are kept well past their expiry for audit and reuse detection; this job
// hard-deletes only rows beyond the retention window.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	retention := 30 * 24 * time.Hour
	if v := strings.TrimSpace(os.Getenv("REFRESH_TOKEN_RETENTION")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid REFRESH_TOKEN_RETENTION %q: %v", v, err)
		}
		retention = d
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	tokenRepo := repository.NewRefreshTokenRepository(db)
	deleted, err := tokenRepo.DeleteExpired(context.Background(), retention)
	if err != nil {
		log.Fatalf("cleanup refresh_tokens failed: %v", err)
	}

	log.Printf("auth cleanup completed: refresh_tokens=%d retention=%s", deleted, retention)
}
