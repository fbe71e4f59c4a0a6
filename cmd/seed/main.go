package main

import (
	"CXRaide/database/postgres"
	"CXRaide/internal/api/auth"
	authRepository "CXRaide/internal/api/auth/repository"
	authService "CXRaide/internal/api/auth/service"
	"CXRaide/internal/config"
	"CXRaide/pkg/bcrypt"
	"CXRaide/pkg/log"
	"CXRaide/pkg/utils"
	"context"
	"flag"
	"github.com/joho/godotenv"
	"os"
	"time"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	username := flag.String("username", envOr("ADMIN_USERNAME", "admin"), "username of the seeded user")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password of the seeded user")
	flag.Parse()

	req := auth.CreateUserRequest{Username: *username, Password: *password}
	if err := config.NewValidator().Struct(&req); err != nil {
		logger.Fatalf("Invalid seed user: %v", err)
	}

	db, err := postgres.New()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	svc := authService.New(logger, authRepository.New(db, logger), bcrypt.New(), utils.New())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := svc.User().EnsureUser(ctx, req)
	if err != nil {
		logger.Fatalf("Failed to seed user: %v", err)
	}

	log.Info(log.Fields{
		"username": req.Username,
		"created":  created,
	}, "Seed finished")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
