package models

import "time"

// OTP is the single live one-time code for a phone. Only the hash of the
// code is stored.
type OTP struct {
	ID        int64
	Phone     string
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}
