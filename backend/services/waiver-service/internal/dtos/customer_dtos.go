package dtos

import (
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

// CustomerFields is the intake form shared by create-waiver and confirm-info.
type CustomerFields struct {
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	DOB        string  `json:"dob" validate:"required,datetime=2006-01-02"`
	Address    string  `json:"address" validate:"max=255"`
	City       string  `json:"city" validate:"max=100"`
	Province   string  `json:"province" validate:"max=100"`
	PostalCode string  `json:"postal_code" validate:"max=20"`
	Country    string  `json:"country" validate:"max=100"`
	CellPhone  string  `json:"cell_phone" validate:"required,min=10,max=32"`
	Email      *string `json:"email" validate:"omitempty,max=254"`
	CanEmail   bool    `json:"can_email"`
}

func (f CustomerFields) ToModel() models.CustomerFields {
	return models.CustomerFields{
		FirstName:  f.FirstName,
		LastName:   f.LastName,
		DOB:        f.DOB,
		Address:    f.Address,
		City:       f.City,
		Province:   f.Province,
		PostalCode: f.PostalCode,
		Country:    f.Country,
		CellPhone:  f.CellPhone,
		Email:      f.Email,
		CanEmail:   f.CanEmail,
	}
}

// MinorRequest is one entry of the desired minors set. IsNew and Checked are
// form-editing hints; an entry with checked=false is left out of the set.
type MinorRequest struct {
	ID        *int64 `json:"id" validate:"omitempty,gt=0"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	DOB       string `json:"dob" validate:"required,datetime=2006-01-02"`
	IsNew     bool   `json:"isNew"`
	Checked   *bool  `json:"checked"`
}

// ToMinorInputs keeps nil as nil so callers can tell "field absent" from an
// empty list.
func ToMinorInputs(in []MinorRequest) []models.MinorInput {
	if in == nil {
		return nil
	}
	out := make([]models.MinorInput, 0, len(in))
	for _, m := range in {
		if m.Checked != nil && !*m.Checked {
			continue
		}
		out = append(out, models.MinorInput{
			ID:        m.ID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			DOB:       m.DOB,
			IsNew:     m.IsNew,
		})
	}
	return out
}

type CustomerLookupRequest struct {
	Phone string `json:"phone" validate:"required,min=10,max=32"`
}

// CustomerLookupResponse says whether a phone belongs to a customer. The
// profile itself is only released after OTP verification.
type CustomerLookupResponse struct {
	Exists bool `json:"exists"`
}

type ConfirmInfoRequest struct {
	CustomerFields
	Minors []MinorRequest `json:"minors" validate:"omitempty,max=20,dive"`
}

type MinorResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	Status    int    `json:"status"`
}

type CustomerResponse struct {
	ID         int64           `json:"id"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	DOB        string          `json:"dob"`
	Address    string          `json:"address"`
	City       string          `json:"city"`
	Province   string          `json:"province"`
	PostalCode string          `json:"postal_code"`
	Country    string          `json:"country"`
	CellPhone  string          `json:"cell_phone"`
	Email      *string         `json:"email,omitempty"`
	CanEmail   bool            `json:"can_email"`
	Status     int             `json:"status"`
	Minors     []MinorResponse `json:"minors"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func NewCustomerResponse(c *models.Customer, minors []*models.Minor) *CustomerResponse {
	resp := &CustomerResponse{
		ID:         c.ID,
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
		CanEmail:   c.CanEmail,
		Status:     int(c.Status),
		Minors:     make([]MinorResponse, 0, len(minors)),
		UpdatedAt:  c.UpdatedAt,
	}
	for _, m := range minors {
		resp.Minors = append(resp.Minors, MinorResponse{
			ID:        m.ID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			DOB:       m.DOB,
			Status:    int(m.Status),
		})
	}
	return resp
}
