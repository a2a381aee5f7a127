package testhelpers

import (
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-middleware"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

// CreateStaffJWT signs a 15 minute staff token the way the auth service does.
func (h *TestHelper) CreateStaffJWT(staffID int64, role models.StaffRole) string {
	signed, err := middleware.IssueToken(h.JWTSecret, staffID, role, 15*time.Minute)
	require.NoError(h.T, err, "Failed to sign test staff JWT")
	return signed
}

// CreateCustomerSession signs the token verify-otp hands to the kiosk.
func (h *TestHelper) CreateCustomerSession(customerID int64) string {
	signed, err := middleware.IssueCustomerSession(h.JWTSecret, customerID, 15*time.Minute)
	require.NoError(h.T, err, "Failed to sign test customer session")
	return signed
}
