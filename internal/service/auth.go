package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/auth"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/repository"
)

type TokenIssuer interface {
	GenerateJWT(userID, role string) (string, error)
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	now    func() time.Time
}

type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         string
	FarmLocation string
}

// Register creates a farmer or pest-control account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	switch in.Role {
	case models.RoleFarmer, models.RolePestControl:
	case models.RoleAdmin:
		return nil, "", apperror.Validation("admin accounts cannot be self-registered")
	default:
		return nil, "", apperror.Validation("invalid role: %q", in.Role)
	}
	farmLocation := strings.TrimSpace(in.FarmLocation)
	if in.Role == models.RoleFarmer && farmLocation == "" {
		return nil, "", apperror.Validation("farmLocation is required for farmers")
	}
	if in.Role != models.RoleFarmer {
		farmLocation = ""
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		Password:     hashed,
		Role:         in.Role,
		FarmLocation: farmLocation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, "", apperror.Conflict("Email already registered")
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// Login checks credentials. Unknown email and wrong password are reported the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperror.Unauthorized("Invalid credentials")
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.Password) {
		return nil, "", apperror.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
