package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
	"github.com/mysterybox-promo/mysterybox-backend/internal/storage"
	"github.com/mysterybox-promo/mysterybox-backend/internal/vehicle"
)

// CustomerHandler handles customer registration and the box-open flow
type CustomerHandler struct {
	store  storage.Store
	ledger ledger.Ledger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(store storage.Store, ldg ledger.Ledger) *CustomerHandler {
	return &CustomerHandler{
		store:  store,
		ledger: ldg,
	}
}

// Register handles customer registration
func (h *CustomerHandler) Register(c *fiber.Ctx) error {
	var reg models.CustomerRegistration

	if err := c.BodyParser(&reg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if reg.Name == "" || reg.Phone == "" || reg.VehicleNo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name, phone, and vehicle number are required",
		})
	}

	normalized, err := vehicle.Canonical(reg.VehicleNo)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// Check the ledger for an entry today. A ledger outage must not block
	// registration; the verification step will see the truth later.
	alreadyPlayed := false
	existing, err := h.ledger.GetTodayByVehicle(normalized)
	if err != nil {
		log.Printf("Ledger check skipped during registration of %s: %v", normalized, err)
	} else if existing != nil {
		alreadyPlayed = true
	}

	customer, err := h.store.CreateCustomer(&reg, normalized)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to register customer",
		})
	}

	if alreadyPlayed {
		_ = h.store.MarkAlreadyPlayed(customer.CustomerID)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "Customer registered successfully",
		"customer":       customer,
		"already_played": alreadyPlayed,
	})
}

// GetCustomer retrieves the session record by customer ID
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Customer ID is required",
		})
	}

	customer, err := h.store.GetCustomer(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}

	return c.JSON(customer)
}

// AssignReward records the prize revealed when the customer opens the box.
// The amount is written once; re-assigning is rejected.
func (h *CustomerHandler) AssignReward(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		Amount int `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Amount must be a positive number",
		})
	}

	customer, err := h.store.GetCustomer(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Customer not found",
		})
	}
	if customer.RewardAmount != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Reward already assigned",
		})
	}

	entry := &models.ContestEntry{
		Name:          customer.Name,
		PhoneNumber:   customer.PhoneNumber,
		VehicleNumber: customer.VehicleNumber,
		PrizeAmount:   req.Amount,
		Verified:      false,
		EnteredAt:     time.Now(),
	}
	if err := h.ledger.AddEntry(entry); err != nil {
		if errors.Is(err, ledger.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Ledger not configured",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record reward",
		})
	}

	if err := h.store.UpdateReward(id, req.Amount); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update customer",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"amount":  req.Amount,
	})
}
