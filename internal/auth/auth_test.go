package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type stubUsers struct {
	repository.UserRepository
	users map[string]*domain.User
}

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	area := "A1"
	user := &domain.User{ID: "u1", Role: domain.RoleManager, AreaID: &area}

	token, exp, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, domain.RoleManager, claims.Role)
	require.NotNil(t, claims.AreaID)
	assert.Equal(t, "A1", *claims.AreaID)
}

func TestParseTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	user := &domain.User{ID: "u1", Role: domain.RoleCommon}
	token, _, err := NewTokenManager("other", 30).GenerateToken(user)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 30).ParseToken(token)
	assert.Error(t, err)

	tm := NewTokenManager("secret", 1)
	token, _, err = tm.GenerateToken(user)
	require.NoError(t, err)
	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, ComparePassword("not-a-hash", "s3cret!"))

	hash, err = HashPassword("s3cret!", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

func newTestApp(tm *TokenManager, users repository.UserRepository, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.HTTPStatus(err))
		},
	})
	mw := NewAuthMiddleware(tm, users)
	app.Get("/protected", mw.Handle, guard, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Caller().ID)
	})
	return app
}

func TestMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	common := &domain.User{ID: "c1", Role: domain.RoleCommon}
	admin := &domain.User{ID: "a1", Role: domain.RoleSuperAdmin}
	users := stubUsers{users: map[string]*domain.User{"c1": common, "a1": admin}}
	app := newTestApp(tm, users, RequireRole(domain.RoleSuperAdmin))

	bearer := func(u *domain.User) string {
		tok, _, err := tm.GenerateToken(u)
		require.NoError(t, err)
		return "Bearer " + tok
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "deleted user", header: bearer(&domain.User{ID: "gone", Role: domain.RoleSuperAdmin}), want: http.StatusUnauthorized},
		{name: "insufficient role", header: bearer(common), want: http.StatusForbidden},
		{name: "admin", header: bearer(admin), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRoleReadFromStoredUser(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	demoted := &domain.User{ID: "u1", Role: domain.RoleCommon}
	token, _, err := tm.GenerateToken(&domain.User{ID: "u1", Role: domain.RoleSuperAdmin})
	require.NoError(t, err)

	app := newTestApp(tm, stubUsers{users: map[string]*domain.User{"u1": demoted}}, RequireRole(domain.RoleSuperAdmin))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
