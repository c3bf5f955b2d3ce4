package storage

import (
	"time"

	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
)

// Store is the process-lifetime session store behind the UI. It is a
// derived, possibly-stale mirror of the ledger scoped to the active browser
// session; nothing here survives a restart and nothing here is
// authoritative.
type Store interface {
	CreateCustomer(reg *models.CustomerRegistration, vehicleNumber string) (*models.CustomerSession, error)
	GetCustomer(id string) (*models.CustomerSession, error)

	// UpdateReward sets the reward amount; it never touches the verified
	// flag.
	UpdateReward(id string, amount int) error
	// MarkVerified sets the verified flag; it never touches the amount.
	MarkVerified(id string) error
	MarkVerifiedByVehicle(vehicleNumber string) error
	MarkAlreadyPlayed(id string) error

	// DeleteExpired removes sessions older than the given age, returning
	// how many were dropped.
	DeleteExpired(olderThan time.Duration) (int, error)
	ActiveCount() int
}
