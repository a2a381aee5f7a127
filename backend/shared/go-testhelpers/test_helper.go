package testhelpers

import (
	"context"
	"encoding/base64"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// TestHelper encapsulates the components integration tests share: a real
// Postgres pool, the repositories on top of it and HTTP helpers pointed at
// BaseURL.
type TestHelper struct {
	T               *testing.T
	Ctx             context.Context
	BaseURL         string
	DB              *pgxpool.Pool
	DBEncryptionKey []byte
	JWTSecret       []byte

	// Repositories
	CustomerRepo     repositories.CustomerRepository
	MinorRepo        repositories.MinorRepository
	WaiverRepo       repositories.WaiverRepository
	OTPRepo          repositories.OTPRepository
	RatingTokenRepo  repositories.RatingTokenRepository
	FeedbackRepo     repositories.FeedbackRepository
	StaffRepo        repositories.StaffRepository
	NotificationRepo repositories.NotificationRepository
	TxManager        repositories.TxManager
}

// testEncryptionKey is used when TEST_DB_ENCRYPTION_KEY_BASE64 is unset.
var testEncryptionKey = []byte("0123456789abcdef0123456789abcdef")

// NewTestHelper connects to TEST_DB_URL, applies the schema at schemaPath
// and resets every table. The test is skipped when TEST_DB_URL is unset.
func NewTestHelper(t *testing.T, schemaPath string) *TestHelper {
	dbURL := os.Getenv("TEST_DB_URL")
	if dbURL == "" {
		t.Skip("TEST_DB_URL not set; skipping integration test")
	}

	// 1. Encryption + JWT secrets
	encKey := testEncryptionKey
	if b64 := os.Getenv("TEST_DB_ENCRYPTION_KEY_BASE64"); b64 != "" {
		var err error
		encKey, err = base64.StdEncoding.DecodeString(b64)
		require.NoError(t, err)
		require.Len(t, encKey, 32, "DB encryption key must be 32 bytes")
	}
	jwtSecret := []byte(os.Getenv("TEST_JWT_SECRET"))
	if len(jwtSecret) == 0 {
		jwtSecret = []byte("integration-jwt-secret-integration")
	}

	// 2. Optional isolated role, one per CI runner
	if role := os.Getenv("TEST_DB_ROLE"); role != "" {
		var err error
		dbURL, err = utils.WithRole(dbURL, role)
		require.NoError(t, err)
	}

	ctx := context.Background()
	dbPool, err := pgxpool.Connect(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { dbPool.Close() })

	// 3. Schema
	schema, err := os.ReadFile(schemaPath)
	require.NoError(t, err, "Failed to read schema")
	_, err = dbPool.Exec(ctx, string(schema))
	require.NoError(t, err, "Failed to apply schema")

	h := &TestHelper{
		T:                t,
		Ctx:              ctx,
		DB:               dbPool,
		DBEncryptionKey:  encKey,
		JWTSecret:        jwtSecret,
		CustomerRepo:     repositories.NewCustomerRepository(dbPool, encKey),
		MinorRepo:        repositories.NewMinorRepository(dbPool),
		WaiverRepo:       repositories.NewWaiverRepository(dbPool, encKey),
		OTPRepo:          repositories.NewOTPRepository(dbPool),
		RatingTokenRepo:  repositories.NewRatingTokenRepository(dbPool),
		FeedbackRepo:     repositories.NewFeedbackRepository(dbPool),
		StaffRepo:        repositories.NewStaffRepository(dbPool),
		NotificationRepo: repositories.NewNotificationRepository(dbPool),
		TxManager:        repositories.NewTxManager(dbPool),
	}
	h.ResetDB()
	return h
}

// ResetDB empties every table and restarts the id sequences.
func (h *TestHelper) ResetDB() {
	_, err := h.DB.Exec(h.Ctx, `
		TRUNCATE notification_outbox, rate_limit_attempts, feedback, rating_tokens,
		         otps, waivers, minors, customers, staff
		RESTART IDENTITY CASCADE`)
	require.NoError(h.T, err, "Failed to reset database")
}
