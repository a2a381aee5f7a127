package testhelpers

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

var phoneSeq atomic.Int64

func init() {
	phoneSeq.Store(rand.New(rand.NewSource(time.Now().UnixNano())).Int63n(1e6))
}

// UniquePhone returns a 10 digit test number. Numbers starting with the
// test prefix get the fixed code when accept_fake_phones is on.
func UniquePhone() string {
	return fmt.Sprintf("%s%07d", utils.TestPhonePrefix, phoneSeq.Add(1)%1e7)
}

// UniqueEmail generates a unique email for testing.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// TestSignature is a 1x1 PNG as a data URL.
const TestSignature = "data:image/png;base64," +
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// CreateTestCustomer persists a verified customer with the given phone.
func (h *TestHelper) CreateTestCustomer(phone string) *models.Customer {
	c := &models.Customer{
		FirstName:  "Test",
		LastName:   "Customer",
		DOB:        "1990-04-12",
		Address:    "1 Test St",
		City:       "Testville",
		Province:   "ON",
		PostalCode: "A1A 1A1",
		Country:    "Canada",
		CellPhone:  phone,
		Email:      utils.Ptr(UniqueEmail("customer")),
		CanEmail:   true,
		Status:     models.CustomerStatusVerified,
	}
	require.NoError(h.T, h.CustomerRepo.Create(h.Ctx, c), "Failed to create test customer")
	return c
}

// CreateTestMinor attaches an active minor to customerID.
func (h *TestHelper) CreateTestMinor(customerID int64, first, last, dob string) *models.Minor {
	m := &models.Minor{
		CustomerID: customerID,
		FirstName:  first,
		LastName:   last,
		DOB:        dob,
		Status:     models.MinorStatusActive,
	}
	require.NoError(h.T, h.MinorRepo.Create(h.Ctx, m), "Failed to create test minor")
	return m
}

// CreateCompletedWaiver inserts a waiver for c that is signed and has its
// rules accepted, signedAt in the past.
func (h *TestHelper) CreateCompletedWaiver(c *models.Customer, signedAt time.Time, minors ...*models.Minor) *models.Waiver {
	w := &models.Waiver{CustomerID: c.ID}
	require.NoError(h.T, h.WaiverRepo.Create(h.Ctx, w))

	snaps := make([]models.MinorSnapshot, 0, len(minors))
	for _, m := range minors {
		snaps = append(snaps, m.Snapshot())
	}
	require.NoError(h.T, h.WaiverRepo.MarkSigned(
		h.Ctx, w.ID, TestSignature, signedAt, snaps, models.NewCustomerSnapshot(c),
	))
	require.NoError(h.T, h.WaiverRepo.MarkRulesAccepted(h.Ctx, w.ID))

	out, err := h.WaiverRepo.GetByID(h.Ctx, w.ID)
	require.NoError(h.T, err)
	require.NotNil(h.T, out)
	return out
}

// CreateTestStaff persists a staff member with password "P@ssword123".
func (h *TestHelper) CreateTestStaff(role models.StaffRole) *models.Staff {
	hash, err := utils.HashPassword("P@ssword123")
	require.NoError(h.T, err)
	s := &models.Staff{
		Name:         "Test Staff",
		Email:        UniqueEmail("staff"),
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(h.T, h.StaffRepo.Create(h.Ctx, s), "Failed to create test staff")
	return s
}
