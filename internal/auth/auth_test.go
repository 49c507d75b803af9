package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, exp, err := tm.GenerateToken("user-1", domain.RoleTechnician)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleTechnician, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken("user-1", domain.RoleEndUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, ComparePassword("", "anything"), ErrPasswordMismatch)
}

func TestHashPasswordFallsBackToDefaultCost(t *testing.T) {
	hash, err := HashPassword("s3cret!", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c.UserContext())
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.SendString(string(actor.Role))
	})
	app.Get("/staff", mw.Handle, RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm, store
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, store := newTestApp(t)
	ctx := context.Background()

	tech := &domain.User{ID: "tech-1", Name: "T", Email: "t@example.com", Role: domain.RoleTechnician, Active: true}
	require.NoError(t, store.Users().Create(ctx, tech))
	disabled := &domain.User{ID: "gone-1", Name: "G", Email: "g@example.com", Role: domain.RoleSecretary, Active: false}
	require.NoError(t, store.Users().Create(ctx, disabled))

	techToken, _, err := tm.GenerateToken(tech.ID, tech.Role)
	require.NoError(t, err)
	disabledToken, _, err := tm.GenerateToken(disabled.ID, disabled.Role)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + techToken, http.StatusOK},
		{"disabled account", "/me", "Bearer " + disabledToken, http.StatusUnauthorized},
		{"technician on staff route", "/staff", "Bearer " + techToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
