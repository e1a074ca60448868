package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/LukasBrandt/Loopline/internal/pkg/metrics/counter"
	"github.com/LukasBrandt/Loopline/internal/pkg/statistics"
)

// HandleGetStats returns aggregate platform numbers plus webhook delivery
// counters. Served without authentication; everything here is non-personal.
func HandleGetStats(c *fiber.Ctx) error {
	stats := statistics.GetStatistics()

	totals, err := counter.ReadWebhookTotals()
	if err != nil {
		fiberlog.Warnw("[API] reading webhook counters failed", "error", err)
	}

	return c.JSON(fiber.Map{
		"total_users":        stats.TotalUsers,
		"active_subscribers": stats.ActiveSubscribers,
		"webhook_deliveries": totals,
	})
}
