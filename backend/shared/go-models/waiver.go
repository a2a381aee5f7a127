package models

import "time"

// WaiverStatus is the explicit lifecycle state of a waiver.
type WaiverStatus string

const (
	WaiverStatusCreated       WaiverStatus = "created"
	WaiverStatusSigned        WaiverStatus = "signed"
	WaiverStatusRulesAccepted WaiverStatus = "rules_accepted"
	WaiverStatusVerified      WaiverStatus = "verified"
	WaiverStatusFlagged       WaiverStatus = "flagged"
)

// IsCompleted reports whether rules were accepted, i.e. the customer part of
// the flow is done and only staff verification can still change.
func (s WaiverStatus) IsCompleted() bool {
	switch s {
	case WaiverStatusRulesAccepted, WaiverStatusVerified, WaiverStatusFlagged:
		return true
	}
	return false
}

// StaffVerification is the tri-state verified_by_staff column.
type StaffVerification int

const (
	StaffVerificationPending StaffVerification = 0
	StaffVerificationOK      StaffVerification = 1
	StaffVerificationFlagged StaffVerification = 2
)

func (v StaffVerification) Valid() bool {
	return v >= StaffVerificationPending && v <= StaffVerificationFlagged
}

// Status is the waiver state a verification decision leads to.
func (v StaffVerification) Status() WaiverStatus {
	switch v {
	case StaffVerificationOK:
		return WaiverStatusVerified
	case StaffVerificationFlagged:
		return WaiverStatusFlagged
	default:
		return WaiverStatusRulesAccepted
	}
}

// NotifyMarker records the outcome of the rating request on one channel.
type NotifyMarker int

const (
	NotifyNotAttempted NotifyMarker = 0
	NotifySent         NotifyMarker = 1
	NotifyFailed       NotifyMarker = 2 // failed or no contact info
)

// MinorSnapshot is a minor as it appeared at signing time.
type MinorSnapshot struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
}

// CustomerSnapshot is the signer as they appeared at signing time.
type CustomerSnapshot struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	DOB        string  `json:"dob"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	Province   string  `json:"province"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	CellPhone  string  `json:"cell_phone"`
	Email      *string `json:"email,omitempty"`
}

func NewCustomerSnapshot(c *Customer) *CustomerSnapshot {
	return &CustomerSnapshot{
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		DOB:        c.DOB,
		Address:    c.Address,
		City:       c.City,
		Province:   c.Province,
		PostalCode: c.PostalCode,
		Country:    c.Country,
		CellPhone:  c.CellPhone,
		Email:      c.Email,
	}
}

// Waiver is one signing event. Once signed, MinorsSnapshot and
// CustomerSnapshot are the only source for what the document said.
type Waiver struct {
	ID         int64        `json:"id"`
	CustomerID int64        `json:"customer_id"`
	Status     WaiverStatus `json:"status"`
	SignedAt   *time.Time   `json:"signed_at,omitempty"`

	// SignatureImage is encrypted at rest.
	SignatureImage string `json:"signature_image,omitempty"`

	RulesAccepted   bool              `json:"rules_accepted"`
	Completed       bool              `json:"completed"`
	VerifiedByStaff StaffVerification `json:"verified_by_staff"`
	StaffID         *int64            `json:"staff_id,omitempty"`
	VerifiedAt      *time.Time        `json:"verified_at,omitempty"`

	MinorsSnapshot   []MinorSnapshot   `json:"minors_snapshot"`
	CustomerSnapshot *CustomerSnapshot `json:"customer_snapshot,omitempty"`

	RatingEmailSent NotifyMarker `json:"rating_email_sent"`
	RatingSMSSent   NotifyMarker `json:"rating_sms_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
