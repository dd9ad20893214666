package middleware

import (
	"strings"
	"sync"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are issued by the identity service after OTP login.
type Claims struct {
	UserID uint        `json:"user_id"`
	Name   string      `json:"name"`
	Phone  string      `json:"phone"`
	Tier   models.Tier `json:"tier"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 session token.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Tier == "" {
		claims.Tier = models.TierFree
	}
	return claims, nil
}

// AuthRequired reads the bearer token, or the token query parameter on
// websocket upgrades where browsers cannot set headers.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		var tokenString string
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
		}

		claims, err := ParseToken(tokenString, secret)
		if err != nil {
			return httpx.Unauthorized(c, "invalid_access_token", "Invalid or expired token")
		}

		// Store user info in context
		c.Locals("userID", claims.UserID)
		c.Locals("tier", claims.Tier)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// MirrorUser keeps the local user row in step with the session claims.
// Unchanged claims are written once per process.
func MirrorUser(users repository.UserRepositoryInterface) fiber.Handler {
	var synced sync.Map
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok {
			return httpx.Unauthorized(c, "missing_access_token", "Missing access token")
		}
		key := string(claims.Tier) + "|" + claims.Name + "|" + claims.Phone
		if prev, ok := synced.Load(claims.UserID); ok && prev.(string) == key {
			return c.Next()
		}
		user := &models.User{ID: claims.UserID, Name: claims.Name, Phone: claims.Phone, Tier: claims.Tier}
		if err := users.EnsureExists(user); err != nil {
			logging.Error().Err(err).Uint("user_id", claims.UserID).Msg("user mirror failed")
			return httpx.Internal(c, "user_sync_failed")
		}
		synced.Store(claims.UserID, key)
		return c.Next()
	}
}
