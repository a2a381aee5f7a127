package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

const testIP = "10.0.0.1"

const testSignature = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg=="

type testEnv struct {
	ctx     context.Context
	cfg     *config.Config
	clock   *fakeClock
	store   *memStore
	metrics *metrics.Registry
	kicker  *countingKicker
	sms     *recordingSender
	email   *recordingSender

	customerRepo *memCustomerRepo
	minorRepo    *memMinorRepo
	waiverRepo   *memWaiverRepo
	otpRepo      *memOTPRepo
	tokenRepo    *memTokenRepo
	feedbackRepo *memFeedbackRepo
	outbox       *memOutboxRepo
	staffRepo    *memStaffRepo
	rateLimits   *memRateLimitRepo

	customers  *customerService
	otp        *otpService
	waivers    *waiverService
	ratings    *ratingService
	sweep      *ratingSweepService
	dispatcher *DispatcherService
	cleanup    CleanupService
	staff      StaffService
}

func testConfig() *config.Config {
	return &config.Config{
		OrganizationName:         "Waiver Desk",
		AppName:                  "waiver-service",
		AppUrl:                   "https://waivers.example.com",
		ReviewURL:                "https://g.page/r/waiver-desk/review",
		DefaultCountryCode:       "1",
		OTPExpiry:                config.DefaultOTPExpiry,
		RatingTokenTTL:           config.DefaultRatingTokenTTL,
		RatingDelay:              config.DefaultRatingDelay,
		RatingLookback:           config.DefaultRatingLookback,
		RatingBatchSize:          config.DefaultRatingBatchSize,
		OutboxBatchSize:          config.DefaultOutboxBatchSize,
		OutboxStaleAfter:         config.DefaultOutboxStaleAfter,
		DeliveredRetention:       config.DefaultDeliveredRetention,
		RatingTokenRetention:     config.DefaultRatingTokenRetention,
		SMSLimitPerIPPerHour:     config.DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour: config.DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:    config.DefaultGlobalSMSLimitPerHour,
		VerifyLimitPerIPPerHour:  config.DefaultVerifyLimitPerIPPerHour,
		VerifyLimitPerPhone:      config.DefaultVerifyLimitPerPhone,
		RateLimitWindow:          config.DefaultRateLimitWindow,
		OTPMaxVerifyAttempts:     config.DefaultOTPMaxVerifyAttempts,
		CustomerSessionTTL:       config.DefaultCustomerSessionTTL,
		JWTSecret:                []byte("unit-test-jwt-secret-unit-test-jwt"),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	store := newMemStore(clock)
	e := &testEnv{
		ctx:     context.Background(),
		cfg:     testConfig(),
		clock:   clock,
		store:   store,
		metrics: metrics.NewRegistry(),
		kicker:  &countingKicker{},
		sms:     &recordingSender{},
		email:   &recordingSender{},

		customerRepo: &memCustomerRepo{s: store},
		minorRepo:    &memMinorRepo{s: store},
		waiverRepo:   &memWaiverRepo{s: store},
		otpRepo:      &memOTPRepo{s: store},
		tokenRepo:    &memTokenRepo{s: store},
		feedbackRepo: &memFeedbackRepo{s: store},
		outbox:       &memOutboxRepo{s: store},
		staffRepo:    &memStaffRepo{s: store},
		rateLimits:   &memRateLimitRepo{s: store},
	}
	tx := &memTxManager{store: store}
	limiter := NewRateLimiterService(e.rateLimits, e.cfg)

	e.customers = NewCustomerService(tx, e.customerRepo, e.minorRepo).(*customerService)
	e.customers.now = clock.Now

	e.otp = NewOTPService(e.cfg, tx, e.otpRepo, e.customerRepo, e.minorRepo, e.outbox,
		limiter, e.kicker, nil, e.metrics).(*otpService)
	e.otp.now = clock.Now

	e.waivers = NewWaiverService(tx, e.waiverRepo, e.customerRepo, e.minorRepo,
		e.customers, e.otp, limiter, e.kicker, e.metrics).(*waiverService)
	e.waivers.now = clock.Now

	e.ratings = NewRatingService(e.cfg, tx, e.tokenRepo, e.waiverRepo, e.feedbackRepo, e.metrics).(*ratingService)
	e.ratings.now = clock.Now

	e.sweep = NewRatingSweepService(e.cfg, tx, e.waiverRepo, e.outbox, e.ratings, e.kicker, e.metrics).(*ratingSweepService)
	e.sweep.now = clock.Now

	e.dispatcher = NewDispatcherService(e.cfg, e.outbox, e.waiverRepo, Senders{
		models.ChannelSMS:   e.sms,
		models.ChannelEmail: e.email,
	}, e.metrics)

	e.cleanup = NewCleanupService(e.cfg, e.otpRepo, e.rateLimits, e.tokenRepo, e.outbox)
	e.staff = NewStaffService(e.staffRepo)
	return e
}

func sampleFields(phone string) models.CustomerFields {
	return models.CustomerFields{
		FirstName:  "Jordan",
		LastName:   "Lee",
		DOB:        "1988-04-12",
		Address:    "12 King St",
		City:       "Toronto",
		Province:   "ON",
		PostalCode: "m5v 1a1",
		Country:    "Canada",
		CellPhone:  phone,
		Email:      utils.Ptr("jordan@example.com"),
		CanEmail:   true,
	}
}

// completedWaiver walks a new customer through create, sign and accept.
func (e *testEnv) completedWaiver(t *testing.T, phone string, minors ...models.MinorInput) *models.Waiver {
	t.Helper()
	res, err := e.waivers.CreateWaiver(e.ctx, sampleFields(phone), minors, false)
	require.NoError(t, err)
	_, err = e.waivers.SaveSignature(e.ctx, res.CustomerID, testSignature, true, nil)
	require.NoError(t, err)
	w, err := e.waivers.AcceptRules(e.ctx, res.CustomerID)
	require.NoError(t, err)
	return w
}

// lastOTP returns the code from the newest queued OTP SMS.
func (e *testEnv) lastOTP(t *testing.T) string {
	t.Helper()
	rows := e.store.outboxRows(models.PurposeOTP)
	require.NotEmpty(t, rows)
	body := rows[len(rows)-1].Body
	require.GreaterOrEqual(t, len(body), 4)
	return body[len(body)-4:]
}

