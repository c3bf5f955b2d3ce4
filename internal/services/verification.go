package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mysterybox-promo/mysterybox-backend/internal/ledger"
	"github.com/mysterybox-promo/mysterybox-backend/internal/models"
	"github.com/mysterybox-promo/mysterybox-backend/internal/payout"
	"github.com/mysterybox-promo/mysterybox-backend/internal/storage"
	"github.com/mysterybox-promo/mysterybox-backend/internal/utils"
	"github.com/mysterybox-promo/mysterybox-backend/internal/vehicle"
)

// ErrCustomerNotFound means there is no ledger entry for the vehicle today.
// Nothing has been written when this is returned.
var ErrCustomerNotFound = errors.New("no contest entry found for vehicle today")

// Payment statuses reported to the caller. Skipped is deliberately distinct
// from failed: a skipped payout was never owed (no provider, zero prize, no
// phone), a failed one needs a human follow-up.
const (
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusNoPayout = "no_payout"
)

// Verification attempt states. Every attempt ends in stateLogged; there are
// no automatic retries from any state.
const (
	statePending         = "pending"
	stateVerifying       = "verifying"
	statePayoutSucceeded = "payout_succeeded"
	statePayoutFailed    = "payout_failed"
	statePayoutSkipped   = "payout_skipped"
	stateLogged          = "logged"
)

// PayoutProvider initiates a disbursement for one verification attempt.
// *payout.Client satisfies this; tests substitute fakes.
type PayoutProvider interface {
	Payout(req payout.Request) (*payout.TransferResult, error)
}

// VerificationService runs the employee-verification workflow: mark the
// ledger entry verified, pay the customer, log the attempt. The ordering is
// deliberate and must not be collapsed into one transaction: verification
// records the employee's physical confirmation and stands even when the
// payout after it fails.
type VerificationService struct {
	ledger   ledger.Ledger
	provider PayoutProvider // nil when no payout provider is configured
	store    storage.Store  // nil is allowed; session mirror is best-effort
	alerts   *AlertService
}

// NewVerificationService creates the verification orchestrator.
func NewVerificationService(ldg ledger.Ledger, provider PayoutProvider, store storage.Store, alerts *AlertService) *VerificationService {
	return &VerificationService{
		ledger:   ldg,
		provider: provider,
		store:    store,
		alerts:   alerts,
	}
}

// Result is the unified outcome of one verification attempt.
type Result struct {
	Success         bool                   `json:"success"`
	VehicleNumber   string                 `json:"vehicleNumber"`
	Amount          int                    `json:"amount"`
	PaymentStatus   string                 `json:"paymentStatus"` // success | failed | no_payout
	Payment         *payout.TransferResult `json:"payment,omitempty"`
	PayoutError     string                 `json:"payoutError,omitempty"`
	AlreadyVerified bool                   `json:"alreadyVerified,omitempty"`
}

// Verify runs one verification attempt for a vehicle.
//
// Steps, in order: canonicalize the vehicle number, load today's ledger
// entry (absent means ErrCustomerNotFound with zero writes), write the
// verification to the ledger, then attempt the payout if a provider is
// configured, the ledger prize is positive, and a phone number is on file.
// The payout amount always comes from the ledger entry, never from the
// caller. The transaction log write afterwards is best-effort.
func (s *VerificationService) Verify(vehicleInput, verifierName string) (*Result, error) {
	state := statePending

	normalized, err := vehicle.Canonical(vehicleInput)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.GetTodayByVehicle(normalized)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup failed: %w", err)
	}
	if entry == nil {
		return nil, ErrCustomerNotFound
	}

	// Best-effort idempotency guard against double-clicks: an entry that is
	// already verified gets its verification re-recorded but never a second
	// payout. A small race window remains on the webhook ledger; the
	// database ledger closes it with row locking.
	alreadyVerified := entry.Verified
	amount := entry.PrizeAmount

	state = stateVerifying
	log.Printf("🔎 Verifying %s (prize ₹%d, by %s)", normalized, amount, verifierName)

	verifiedAt := time.Now()
	if err := s.ledger.VerifyAndSetAmount(normalized, amount, verifierName, verifiedAt); err != nil {
		return nil, fmt.Errorf("ledger verification write failed: %w", err)
	}

	result := &Result{
		Success:         true,
		VehicleNumber:   normalized,
		Amount:          amount,
		PaymentStatus:   PaymentStatusNoPayout,
		AlreadyVerified: alreadyVerified,
	}

	if s.provider == nil || amount <= 0 || entry.PhoneNumber == "" || alreadyVerified {
		state = statePayoutSkipped
		log.Printf("💤 Payout skipped for %s (state=%s)", normalized, state)
	} else {
		state = s.attemptPayout(entry, normalized, verifierName, result)
	}

	if s.store != nil {
		if err := s.store.MarkVerifiedByVehicle(normalized); err != nil {
			// The session mirror may have expired or belong to another
			// process; the ledger already holds the truth.
			log.Printf("Session mirror update skipped for %s: %v", normalized, err)
		}
	}

	state = stateLogged
	log.Printf("🏁 Verification of %s complete (payment=%s, state=%s)", normalized, result.PaymentStatus, state)
	return result, nil
}

// attemptPayout runs the resolve-and-transfer step and records the attempt
// in the transaction log. It returns the terminal payout state.
func (s *VerificationService) attemptPayout(entry *models.ContestEntry, normalized, verifierName string, result *Result) string {
	referenceID := utils.GenerateReferenceID("MB")

	// Reuse the VPA from the customer's last successful payout when one is
	// on file. A cache miss or a ledger hiccup here just means a live
	// resolution.
	var cached *payout.VPAResolution
	if info, err := s.ledger.GetTransactionByPhone(entry.PhoneNumber); err == nil && info != nil {
		cached = &payout.VPAResolution{
			Address:           info.Address,
			AccountHolderName: info.AccountHolderName,
		}
	}

	transfer, payoutErr := s.provider.Payout(payout.Request{
		Amount:          float64(entry.PrizeAmount),
		Phone:           entry.PhoneNumber,
		BeneficiaryName: entry.Name,
		ReferenceID:     referenceID,
		CachedVPA:       cached,
	})

	logEntry := &models.TransactionLog{
		VehicleNumber:   normalized,
		CustomerName:    entry.Name,
		PhoneNumber:     entry.PhoneNumber,
		Amount:          float64(entry.PrizeAmount),
		ReferenceID:     referenceID,
		BeneficiaryName: entry.Name,
		TransferMode:    "upi",
		VerifiedBy:      verifierName,
		LoggedAt:        time.Now(),
	}

	var state string
	if payoutErr != nil {
		state = statePayoutFailed
		result.PaymentStatus = PaymentStatusFailed
		result.PayoutError = payoutErr.Error()

		logEntry.Status = models.TransactionStatusFailed
		logEntry.TransactionID = models.FailedTransactionID
		logEntry.ErrorMessage = payoutErr.Error()

		log.Printf("❌ Payout failed for %s: %v", normalized, payoutErr)
		s.alerts.PayoutFailed(normalized, referenceID, entry.PrizeAmount, payoutErr)
	} else {
		state = statePayoutSucceeded
		result.PaymentStatus = PaymentStatusSuccess
		result.Payment = transfer

		logEntry.Status = models.TransactionStatusSuccess
		logEntry.TransactionID = transfer.TransactionID
		logEntry.VPAAddress = transfer.VPAAddress
		logEntry.VPAAccountHolderName = transfer.VPAAccountHolderName
		logEntry.UTR = transfer.UTR
		logEntry.ProviderStatus = transfer.Status
		logEntry.ProviderMessage = transfer.Message
		logEntry.ResolvedVia = transfer.ResolvedVia

		log.Printf("💸 Payout of ₹%d to %s succeeded (txn %s)", entry.PrizeAmount, normalized, transfer.TransactionID)
	}

	if err := s.ledger.LogTransaction(logEntry); err != nil {
		log.Printf("Transaction log write failed for %s: %v", referenceID, err)
		s.alerts.TransactionLogFailed(normalized, referenceID, logEntry.Status, err)
	}

	return state
}

// VerificationStatus is the side-effect-free poll result for the UI.
type VerificationStatus struct {
	Found    bool `json:"found"`
	Verified bool `json:"verified"`
	Amount   int  `json:"amount"`
}

// Status re-reads today's ledger entry for the vehicle. It performs no
// writes, so the UI can poll it at any interval.
func (s *VerificationService) Status(vehicleInput string) (*VerificationStatus, error) {
	normalized, err := vehicle.Canonical(vehicleInput)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.GetTodayByVehicle(normalized)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &VerificationStatus{}, nil
	}
	return &VerificationStatus{
		Found:    true,
		Verified: entry.Verified,
		Amount:   entry.PrizeAmount,
	}, nil
}

// Remove drops a vehicle from the pending-verification queue via the
// ledger's soft remove (prize set to 0, row preserved for audit).
func (s *VerificationService) Remove(vehicleInput string) (string, error) {
	normalized, err := vehicle.Canonical(vehicleInput)
	if err != nil {
		return "", err
	}
	if err := s.ledger.RemoveFromVerification(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// PendingVerifications lists today's entries still awaiting an employee:
// unverified rows with a positive prize. A vehicle with any verified row
// today is excluded entirely, so a verified customer never reappears in the
// queue even if duplicate rows exist.
func (s *VerificationService) PendingVerifications() ([]models.ContestEntry, error) {
	entries, err := s.ledger.GetAll()
	if err != nil {
		return nil, err
	}

	today := time.Now()
	verifiedToday := make(map[string]bool)
	for i := range entries {
		if entries[i].Verified && entries[i].EnteredOn(today) {
			verifiedToday[entries[i].VehicleNumber] = true
		}
	}

	var pending []models.ContestEntry
	for i := range entries {
		e := entries[i]
		if !e.EnteredOn(today) || e.Verified || e.PrizeAmount <= 0 {
			continue
		}
		if verifiedToday[e.VehicleNumber] {
			continue
		}
		pending = append(pending, e)
	}
	return pending, nil
}
