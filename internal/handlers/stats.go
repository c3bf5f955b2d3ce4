package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/vehicle"
)

// StatsHandler serves the aggregate contest counters shown on the UI.
// These endpoints are read-only and degrade to zeros when the ledger is not
// configured, so the page still renders during setup.
type StatsHandler struct {
	ledger ledger.Ledger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(ldg ledger.Ledger) *StatsHandler {
	return &StatsHandler{
		ledger: ldg,
	}
}

// VerifiedCount returns the all-time and today's number of verified entries
func (h *StatsHandler) VerifiedCount(c *fiber.Ctx) error {
	count, err := h.ledger.GetVerifiedCount()
	if err == nil {
		var today int
		today, err = h.ledger.GetVerifiedCountToday()
		if err == nil {
			return c.JSON(fiber.Map{
				"verified_count":       count,
				"verified_count_today": today,
			})
		}
	}

	if errors.Is(err, ledger.ErrNotConfigured) {
		return c.JSON(fiber.Map{
			"verified_count":       0,
			"verified_count_today": 0,
			"degraded":             true,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to fetch verified count",
	})
}

// VehicleTotal returns the all-time verified prize total for one vehicle
func (h *StatsHandler) VehicleTotal(c *fiber.Ctx) error {
	normalized, err := vehicle.Canonical(c.Params("vehicle"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	total, err := h.ledger.GetTotalVerifiedAmount(normalized)
	if err != nil {
		if errors.Is(err, ledger.ErrNotConfigured) {
			return c.JSON(fiber.Map{
				"vehicleNumber": normalized,
				"total":         0,
				"degraded":      true,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch verified total",
		})
	}

	return c.JSON(fiber.Map{
		"vehicleNumber": normalized,
		"total":         total,
	})
}
