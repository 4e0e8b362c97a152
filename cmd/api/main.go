package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"rentspace/internal/challenge"
	"rentspace/internal/config"
	"rentspace/internal/database"
	"rentspace/internal/domain"
	"rentspace/internal/middleware"
	"rentspace/internal/modules/auth"
	jwtsvc "rentspace/internal/pkg/jwt"
	"rentspace/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	var challengeStore challenge.Store
	if cfg.RedisAddr != "" {
		log.Printf("challenge store: redis at %s", cfg.RedisAddr)
		challengeStore = challenge.NewRedisStore(
			redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			cfg.ChallengeTTL,
		)
	} else {
		log.Println("challenge store: in-process memory (single instance only)")
		challengeStore = challenge.NewMemoryStore(cfg.ChallengeTTL)
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)
	mailer := auth.NewDevConsoleMailer(cfg.AppEnv == "dev")

	authService := auth.NewService(
		userRepo,
		tokenRepo,
		challengeStore,
		j,
		mailer,
		cfg.RefreshTokenHashKey,
		cfg.RefreshTTL,
		cfg.TOTPIssuer,
	)
	authHandler := auth.NewHandler(authService)

	r := gin.Default()

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
		}
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
