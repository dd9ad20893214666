package handlers

import (
	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/models"
	"github.com/gofiber/fiber/v2"
)

func currentUser(c *fiber.Ctx) (uint, error) {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return 0, httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	return userID, nil
}

func isAdmin(c *fiber.Ctx) bool {
	tier, _ := c.Locals("tier").(models.Tier)
	return tier == models.TierAdmin
}

func leadResponses(leads []models.Lead) []models.LeadResponse {
	out := make([]models.LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, leads[i].ToResponse())
	}
	return out
}
