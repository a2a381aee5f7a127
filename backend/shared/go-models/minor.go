package models

import "time"

type MinorStatus int

const (
	MinorStatusInactive MinorStatus = 0
	MinorStatusActive   MinorStatus = 1
)

// Minor is a dependent owned by exactly one customer. Inactive minors are
// kept for history and may be reactivated on a later visit.
type Minor struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	DOB        string      `json:"dob"`
	Status     MinorStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// MinorInput is one entry of the desired minors set sent by a form. IsNew is
// a client-side editing hint only.
type MinorInput struct {
	ID        *int64
	FirstName string
	LastName  string
	DOB       string
	IsNew     bool
}

// Snapshot freezes the fields that appear on a signed waiver.
func (m *Minor) Snapshot() MinorSnapshot {
	return MinorSnapshot{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		DOB:       m.DOB,
	}
}
