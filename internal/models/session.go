package models

import "time"

// CustomerSession is the in-memory registration record backing the UI for
// the current browser session. The ledger stays authoritative; this record
// only spares the UI a remote round trip on every poll. It does not survive
// a process restart.
type CustomerSession struct {
	CustomerID    string    `json:"customer_id"`
	Name          string    `json:"name"`
	PhoneNumber   string    `json:"phone_number"`
	VehicleNumber string    `json:"vehicle_number"`
	RewardAmount  *int      `json:"reward_amount"` // nil until the box is opened
	Verified      bool      `json:"verified"`
	AlreadyPlayed bool      `json:"already_played"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
