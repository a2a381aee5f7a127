package models

import "time"

type Feedback struct {
	ID               int64     `json:"id"`
	CustomerID       int64     `json:"customer_id"`
	WaiverID         *int64    `json:"waiver_id,omitempty"`
	Rating           int       `json:"rating"`
	Issue            *string   `json:"issue,omitempty"`
	StaffName        *string   `json:"staff_name,omitempty"`
	Message          *string   `json:"message,omitempty"`
	DetailsSubmitted bool      `json:"details_submitted"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
