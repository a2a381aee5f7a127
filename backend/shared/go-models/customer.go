package models

import (
	"time"
)

type CustomerStatus int

const (
	CustomerStatusUnverified CustomerStatus = 0
	CustomerStatusVerified   CustomerStatus = 1
)

// Customer is the adult signing a waiver. CellPhone holds digits only and
// is the natural lookup key.
type Customer struct {
	Versioned

	ID         int64          `json:"id"`
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	DOB        string         `json:"dob"`
	Address    string         `json:"address"`
	City       string         `json:"city"`
	Province   string         `json:"province"`
	PostalCode string         `json:"postal_code"`
	Country    string         `json:"country"`
	CellPhone  string         `json:"cell_phone"`
	Email      *string        `json:"email,omitempty"`
	CanEmail   bool           `json:"can_email"`
	Status     CustomerStatus `json:"status"`

	// SignatureImage is encrypted at rest.
	SignatureImage string `json:"signature_image,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Customer) GetID() int64 {
	return c.ID
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// CustomerFields is the writable part of a Customer as submitted on the
// intake and confirm-info forms.
type CustomerFields struct {
	FirstName  string
	LastName   string
	DOB        string
	Address    string
	City       string
	Province   string
	PostalCode string
	Country    string
	CellPhone  string
	Email      *string
	CanEmail   bool
}

// Apply copies the editable fields onto c.
func (f CustomerFields) Apply(c *Customer) {
	c.FirstName = f.FirstName
	c.LastName = f.LastName
	c.DOB = f.DOB
	c.Address = f.Address
	c.City = f.City
	c.Province = f.Province
	c.PostalCode = f.PostalCode
	c.Country = f.Country
	c.CellPhone = f.CellPhone
	c.Email = f.Email
	c.CanEmail = f.CanEmail
}
