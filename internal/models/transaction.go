package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction log statuses.
const (
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"

	// FailedTransactionID is the sentinel stored when the provider never
	// returned a transaction ID for the attempt.
	FailedTransactionID = "FAILED"
)

// TransactionLog is one payout attempt, append-only. Rows double as the VPA
// cache: the most recent successful row for a phone number supplies the
// cached address for the next payout to that customer.
type TransactionLog struct {
	gorm.Model

	VehicleNumber        string    `json:"vehicle_number" gorm:"index"`
	CustomerName         string    `json:"customer_name"`
	PhoneNumber          string    `json:"phone_number" gorm:"index"`
	Amount               float64   `json:"amount"`
	ReferenceID          string    `json:"reference_id" gorm:"uniqueIndex"`
	TransactionID        string    `json:"transaction_id"`
	Status               string    `json:"status"` // success | failed
	VPAAddress           string    `json:"vpa_address"`
	VPAAccountHolderName string    `json:"vpa_account_holder_name"`
	BeneficiaryName      string    `json:"beneficiary_name"`
	TransferMode         string    `json:"transfer_mode"`
	UTR                  string    `json:"utr"`
	ProviderStatus       string    `json:"provider_status"`
	ProviderMessage      string    `json:"provider_message"`
	ErrorMessage         string    `json:"error_message"`
	Note                 string    `json:"note"`
	ResolvedVia          string    `json:"resolved_via"` // cache | live
	VerifiedBy           string    `json:"verified_by"`
	LoggedAt             time.Time `json:"logged_at"`
}
