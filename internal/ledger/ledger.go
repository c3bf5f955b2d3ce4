package ledger

import (
	"errors"
	"time"

	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
)

// ErrNotConfigured means the ledger endpoint is missing or answered with
// something other than JSON (the spreadsheet webhook serves an HTML setup
// page until it is deployed). Callers can treat this as degraded mode and
// substitute empty defaults on read-only paths instead of failing outright.
var ErrNotConfigured = errors.New("ledger not configured")

// VPAInfo is the cached payment address recovered from a previous successful
// transaction log row.
type VPAInfo struct {
	Address           string `json:"vpa_address"`
	AccountHolderName string `json:"vpa_account_holder_name"`
}

// Ledger is the contest system of record. Vehicle numbers passed in must
// already be canonical (uppercase, no spaces).
//
// Lookups return (nil, nil) when no row matches; errors are reserved for
// transport and configuration failures.
type Ledger interface {
	// GetByVehicle returns the oldest row for the vehicle.
	GetByVehicle(vehicle string) (*models.ContestEntry, error)
	// GetTodayByVehicle returns the most recent row for the vehicle whose
	// entry date matches the caller's current day.
	GetTodayByVehicle(vehicle string) (*models.ContestEntry, error)
	GetAll() ([]models.ContestEntry, error)

	AddEntry(entry *models.ContestEntry) error
	// UpdateReward sets the prize on the most recent row for the vehicle.
	UpdateReward(vehicle string, amount int) error
	// VerifyAndSetAmount marks the most recent row for the vehicle as
	// verified, recording the amount, the verifying employee, and the
	// verification time.
	VerifyAndSetAmount(vehicle string, amount int, verifierName string, verifiedAt time.Time) error
	// RemoveFromVerification is a soft remove: the prize is set to 0 rather
	// than deleting the row, so the audit history stays intact while the
	// vehicle drops out of pending-verification listings.
	RemoveFromVerification(vehicle string) error

	GetVerifiedCount() (int, error)
	// GetVerifiedCountToday counts verified rows entered on the caller's
	// current day.
	GetVerifiedCountToday() (int, error)
	// GetTotalVerifiedAmount sums the prize over all verified rows for the
	// vehicle, across all days.
	GetTotalVerifiedAmount(vehicle string) (int, error)

	LogTransaction(entry *models.TransactionLog) error
	// GetTransactionByPhone returns the VPA from the most recent successful
	// payout to the phone number, or (nil, nil) when there is none.
	GetTransactionByPhone(phone string) (*VPAInfo, error)
}
