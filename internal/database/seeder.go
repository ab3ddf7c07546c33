package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pest-tracker-api-server/config"
	"pest-tracker-api-server/internal/auth"
	"pest-tracker-api-server/internal/log"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"
)

// SeedAdmin creates the administrator account from config when it does not
// exist yet. Admins cannot self-register, so this is the only way to get one.
func SeedAdmin(ctx context.Context, users repository.UserRepository, cfg config.AdminConfig) error {
	logger := log.WithComponent("seeder")
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info().Msg("ADMIN_EMAIL/ADMIN_PASSWORD not set, admin seeding skipped")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		logger.Info().Str("email", email).Msg("admin already exists, seeding skipped")
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hashedPassword, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now().UTC()
	admin := &models.User{
		Name:      cfg.Name,
		Email:     email,
		Password:  hashedPassword,
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	logger.Info().Str("email", email).Msg("admin seeded successfully")
	return nil
}
