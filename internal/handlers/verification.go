package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/services"
	"github.com/mysterybox-promo/mysterybox-backend/internal/vehicle"
)

// VerificationHandler handles the employee verification endpoints and the
// UI's verification-status polling
type VerificationHandler struct {
	service *services.VerificationService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(service *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		service: service,
	}
}

// Verify runs the verification workflow for a vehicle
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	vehicleNo := c.Params("vehicle")

	var req struct {
		VerifiedBy string `json:"verified_by"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.VerifiedBy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "verified_by is required",
		})
	}

	result, err := h.service.Verify(vehicleNo, req.VerifiedBy)
	if err != nil {
		return verificationError(c, err)
	}

	return c.JSON(result)
}

// Status is the UI poll: re-reads ledger state, no side effects
func (h *VerificationHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.Status(c.Params("vehicle"))
	if err != nil {
		return verificationError(c, err)
	}
	return c.JSON(status)
}

// Remove takes a vehicle out of the pending-verification queue (soft remove)
func (h *VerificationHandler) Remove(c *fiber.Ctx) error {
	normalized, err := h.service.Remove(c.Params("vehicle"))
	if err != nil {
		return verificationError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"vehicleNumber": normalized,
		"message":       "Removed from verification queue",
	})
}

// Pending lists today's entries still awaiting verification
func (h *VerificationHandler) Pending(c *fiber.Ctx) error {
	pending, err := h.service.PendingVerifications()
	if err != nil {
		if errors.Is(err, ledger.ErrNotConfigured) {
			return c.JSON(fiber.Map{
				"pending":  []interface{}{},
				"count":    0,
				"degraded": true,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch pending verifications",
		})
	}

	return c.JSON(fiber.Map{
		"pending": pending,
		"count":   len(pending),
	})
}

// verificationError maps workflow errors to HTTP statuses: 400 for bad
// vehicle numbers, 404 for missing entries, 503 for an unconfigured ledger,
// 500 for the rest.
func verificationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, vehicle.ErrTooShort),
		errors.Is(err, vehicle.ErrTooLong),
		errors.Is(err, vehicle.ErrWideSpace):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrCustomerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No contest entry found for this vehicle today",
		})
	case errors.Is(err, ledger.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Ledger not configured",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
