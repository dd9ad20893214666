package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUserRepo struct {
	ensured []models.User
}

func (r *countingUserRepo) EnsureExists(user *models.User) error {
	r.ensured = append(r.ensured, *user)
	return nil
}

func (r *countingUserRepo) FindByID(id uint) (*models.User, error) {
	return nil, testutil.GetRecordNotFoundError()
}

func (r *countingUserRepo) FindByIDs(ids []uint) ([]models.User, error) {
	return nil, nil
}

func newAuthApp(extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append([]fiber.Handler{AuthRequired(testutil.TestJWTSecret)}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID"), "tier": c.Locals("tier")})
	})
	app.Get("/me", handlers...)
	return app
}

func TestAuthRequired(t *testing.T) {
	app := newAuthApp()
	valid := testutil.SignToken(7, "Asha", models.TierPremium, time.Hour)
	expired := testutil.SignToken(7, "Asha", models.TierPremium, -time.Hour)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "bearer header", header: "Bearer " + valid, want: fiber.StatusOK},
		{name: "query token", query: "?token=" + valid, want: fiber.StatusOK},
		{name: "missing", want: fiber.StatusUnauthorized},
		{name: "malformed header", header: "Token " + valid, want: fiber.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: fiber.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestParseTokenDefaultsTier(t *testing.T) {
	token := testutil.SignToken(3, "Ravi", "", time.Hour)
	claims, err := ParseToken(token, testutil.TestJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, models.TierFree, claims.Tier)
}

func TestRequireAdmin(t *testing.T) {
	app := newAuthApp(RequireAdmin())

	for tier, want := range map[models.Tier]int{
		models.TierAdmin:   fiber.StatusOK,
		models.TierPremium: fiber.StatusForbidden,
		models.TierFree:    fiber.StatusForbidden,
	} {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+testutil.SignToken(1, "x", tier, time.Hour))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "tier %s", tier)
	}
}

func TestMirrorUserWritesOncePerClaims(t *testing.T) {
	repo := &countingUserRepo{}
	app := newAuthApp(MirrorUser(repo))

	call := func(tier models.Tier) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+testutil.SignToken(4, "Meera", tier, time.Hour))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	call(models.TierFree)
	call(models.TierFree)
	require.Len(t, repo.ensured, 1)

	call(models.TierPremium)
	require.Len(t, repo.ensured, 2)
	want := testutil.NewTestHelper(t).CreateTestUser(4, "Meera", models.TierPremium)
	got := repo.ensured[1]
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Phone, got.Phone)
	assert.Equal(t, want.Tier, got.Tier)
}

func TestOriginAllowed(t *testing.T) {
	app := fiber.New()
	app.Get("/", OriginAllowed("https://app.example.com, https://admin.example.com"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for origin, want := range map[string]int{
		"":                          fiber.StatusNoContent,
		"https://admin.example.com": fiber.StatusNoContent,
		"https://evil.example.com":  fiber.StatusForbidden,
	} {
		req := httptest.NewRequest("GET", "/", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "origin %q", origin)
	}
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, SplitCSV(""))
	assert.Equal(t, []string{"a", "b"}, SplitCSV(" a, ,b "))
}
