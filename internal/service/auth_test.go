package service

import (
	"context"
	"testing"

	"pest-tracker-api-server/internal/apperror"
	"pest-tracker-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, token, err := f.svc.Auth.Register(ctx, RegisterInput{
		Name:         "Amina",
		Email:        " Amina@Example.com ",
		Password:     "secret123",
		Role:         models.RoleFarmer,
		FarmLocation: "Nakuru",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "amina@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.Password)

	logged, token, err := f.svc.Auth.Login(ctx, "amina@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = f.svc.Auth.Login(ctx, "amina@example.com", "nope")
	requireKind(t, err, apperror.KindUnauthorized)

	_, _, err = f.svc.Auth.Login(ctx, "ghost@example.com", "secret123")
	requireKind(t, err, apperror.KindUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		kind apperror.Kind
	}{
		{"admin cannot self-register", RegisterInput{Name: "a", Email: "a@x.io", Password: "p", Role: models.RoleAdmin}, apperror.KindValidation},
		{"unknown role", RegisterInput{Name: "a", Email: "a@x.io", Password: "p", Role: "gardener"}, apperror.KindValidation},
		{"farmer needs a location", RegisterInput{Name: "a", Email: "a@x.io", Password: "p", Role: models.RoleFarmer}, apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Auth.Register(ctx, tt.in)
			requireKind(t, err, tt.kind)
		})
	}

	agent := RegisterInput{Name: "Bo", Email: "bo@x.io", Password: "p", Role: models.RolePestControl, FarmLocation: "ignored"}
	user, _, err := f.svc.Auth.Register(ctx, agent)
	require.NoError(t, err)
	assert.Empty(t, user.FarmLocation)

	_, _, err = f.svc.Auth.Register(ctx, agent)
	requireKind(t, err, apperror.KindConflict)
}
