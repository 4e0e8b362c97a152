package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"rentspace/internal/database"
	"rentspace/internal/domain"
)

// Seeds a couple of dev accounts. Not for production.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := []struct {
		email    string
		username string
		password string
		role     domain.UserRole
	}{
		{"admin@rentspace.local", "admin", "admin-dev-password", domain.RoleAdmin},
		{"owner@rentspace.local", "owner", "owner-dev-password", domain.RoleSpaceOwner},
		{"client@rentspace.local", "client", "client-dev-password", domain.RoleClient},
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password: %v", err)
		}
		user := domain.User{
			Email:         u.email,
			Username:      u.username,
			PasswordHash:  string(hash),
			Role:          u.role,
			Active:        true,
			EmailVerified: true,
		}
		if err := db.Where("email = ?", u.email).FirstOrCreate(&user).Error; err != nil {
			log.Fatalf("seed %s: %v", u.email, err)
		}
		log.Printf("seeded user %s (%s)", u.email, u.role)
	}
}
