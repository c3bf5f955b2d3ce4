package models

import (
	"time"

	"gorm.io/gorm"
)

// ContestEntry is one customer's play for one day, keyed by the normalized
// vehicle number plus the entry date. The ledger (spreadsheet webhook or
// Postgres) is the system of record for these rows; everything else mirrors
// them.
type ContestEntry struct {
	gorm.Model

	Name          string     `json:"name"`
	PhoneNumber   string     `json:"phone_number" gorm:"index"`
	VehicleNumber string     `json:"vehicle_number" gorm:"index"` // canonical form: uppercase, no spaces
	PrizeAmount   int        `json:"prize_amount"`                // rupees; 0 is the soft-remove sentinel
	Verified      bool       `json:"verified" gorm:"default:false"`
	VerifiedBy    string     `json:"verified_by"`
	VerifiedAt    *time.Time `json:"verified_at"`
	EnteredAt     time.Time  `json:"entered_at" gorm:"index"`
}

// EnteredOn reports whether the entry was created on the given calendar day
// in that day's location.
func (e *ContestEntry) EnteredOn(day time.Time) bool {
	y1, m1, d1 := e.EnteredAt.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CustomerRegistration is the request body for new customer registration.
type CustomerRegistration struct {
	Name      string `json:"name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	VehicleNo string `json:"vehicle_no" validate:"required"`
}
