package middleware

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/gofiber/fiber/v2"
)

// RequireTier admits sessions whose tier is one of tiers.
func RequireTier(tiers ...models.Tier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userTier, _ := c.Locals("tier").(models.Tier)
		for _, t := range tiers {
			if userTier == t {
				return c.Next()
			}
		}
		return httpx.Forbidden(c, "forbidden", "Insufficient permissions")
	}
}

func RequireAdmin() fiber.Handler {
	return RequireTier(models.TierAdmin)
}
