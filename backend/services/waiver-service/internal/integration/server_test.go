//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/controllers"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	waiver_repositories "github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/routes"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-middleware"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-testhelpers"
)

const schemaPath = "../../migrations/0001_init.sql"

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// captureSender records what would have gone to Twilio or SendGrid.
type captureSender struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (c *captureSender) Send(_ context.Context, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, *n)
	return nil
}

func (c *captureSender) Sent() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification(nil), c.sent...)
}

type suite struct {
	h          *testhelpers.TestHelper
	cfg        *config.Config
	sms        *captureSender
	email      *captureSender
	dispatcher *services.DispatcherService
	sweep      services.RatingSweepService
	cleanup    services.CleanupService
}

func integrationConfig(h *testhelpers.TestHelper) *config.Config {
	return &config.Config{
		OrganizationName:         "Waiver Desk",
		AppName:                  config.AppName,
		AppUrl:                   "https://waivers.example.com",
		ReviewURL:                "https://g.page/r/waiver-desk/review",
		DefaultCountryCode:       "1",
		DBEncryptionKey:          h.DBEncryptionKey,
		JWTSecret:                h.JWTSecret,
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
		LDFlag_AcceptFakePhones:  true,
	}
}

// newSuite wires the service against the test database and serves it from
// an httptest server. The dispatcher loop is not started; tests call
// DispatchOnce so delivery is deterministic.
func newSuite(t *testing.T) *suite {
	h := testhelpers.NewTestHelper(t, schemaPath)
	cfg := integrationConfig(h)
	reg := metrics.NewRegistry()

	s := &suite{h: h, cfg: cfg, sms: &captureSender{}, email: &captureSender{}}

	rateLimitRepo := waiver_repositories.NewRateLimitRepository(h.DB)
	s.dispatcher = services.NewDispatcherService(cfg, h.NotificationRepo, h.WaiverRepo, services.Senders{
		models.ChannelSMS:   s.sms,
		models.ChannelEmail: s.email,
	}, reg)
	limiter := services.NewRateLimiterService(rateLimitRepo, cfg)
	customers := services.NewCustomerService(h.TxManager, h.CustomerRepo, h.MinorRepo)
	otp := services.NewOTPService(cfg, h.TxManager, h.OTPRepo, h.CustomerRepo, h.MinorRepo,
		h.NotificationRepo, limiter, s.dispatcher, nil, reg)
	waivers := services.NewWaiverService(h.TxManager, h.WaiverRepo, h.CustomerRepo, h.MinorRepo,
		customers, otp, limiter, s.dispatcher, reg)
	ratings := services.NewRatingService(cfg, h.TxManager, h.RatingTokenRepo, h.WaiverRepo, h.FeedbackRepo, reg)
	s.sweep = services.NewRatingSweepService(cfg, h.TxManager, h.WaiverRepo, h.NotificationRepo, ratings, s.dispatcher, reg)
	s.cleanup = services.NewCleanupService(cfg, h.OTPRepo, rateLimitRepo, h.RatingTokenRepo, h.NotificationRepo)
	staff := services.NewStaffService(h.StaffRepo)

	health := controllers.NewHealthController(pingerFunc(func(ctx context.Context) error { return h.DB.Ping(ctx) }))
	waiverController := controllers.NewWaiverController(waivers)
	otpController := controllers.NewOTPController(otp)
	customerController := controllers.NewCustomerController(customers)
	ratingController := controllers.NewRatingController(ratings, cfg.ReviewURL)
	adminController := controllers.NewAdminController(waivers, staff)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware, middleware.RecoveryMiddleware, reg.Middleware)
	router.HandleFunc(routes.Health, health.HealthCheckHandler).Methods("GET")
	router.HandleFunc(routes.Waivers, waiverController.CreateWaiverHandler).Methods("POST")
	router.HandleFunc(routes.WaiverSaveSignature, waiverController.SaveSignatureHandler).Methods("POST")
	router.HandleFunc(routes.WaiverAcceptRules, waiverController.AcceptRulesHandler).Methods("POST")
	router.HandleFunc(routes.AuthSendOTP, otpController.SendOTPHandler).Methods("POST")
	router.HandleFunc(routes.AuthVerifyOTP, otpController.VerifyOTPHandler).Methods("POST")
	router.HandleFunc(routes.CustomerLookup, customerController.LookupHandler).Methods("POST")
	customerSession := middleware.CustomerSessionMiddleware(cfg.JWTSecret)
	router.Handle(routes.Customer, customerSession(http.HandlerFunc(customerController.GetHandler))).Methods("GET")
	router.Handle(routes.Customer, customerSession(http.HandlerFunc(customerController.ConfirmInfoHandler))).Methods("PUT")
	router.HandleFunc(routes.RatingValidateToken, ratingController.ValidateTokenHandler).Methods("GET")
	router.HandleFunc(routes.RatingSubmitFiveStar, ratingController.SubmitFiveStarHandler).Methods("POST")
	router.HandleFunc(routes.RatingSubmitFeedback, ratingController.SubmitFeedbackHandler).Methods("POST")
	router.HandleFunc(routes.RatingFeedbackDetail, ratingController.FeedbackDetailsHandler).Methods("POST")

	staffOnly := middleware.StaffAuthMiddleware(cfg.JWTSecret)
	adminOnly := middleware.AdminAuthMiddleware(cfg.JWTSecret)
	router.Handle(routes.AdminWaiver, staffOnly(http.HandlerFunc(adminController.GetWaiverHandler))).Methods("GET")
	router.Handle(routes.AdminWaiverVerify, staffOnly(http.HandlerFunc(adminController.VerifyWaiverHandler))).Methods("POST")
	router.Handle(routes.AdminStaff, adminOnly(http.HandlerFunc(adminController.AddStaffHandler))).Methods("POST")

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	h.BaseURL = srv.URL
	return s
}

// tokenFor reads the raw rating token issued for waiverID.
func (s *suite) tokenFor(waiverID int64) string {
	var token string
	err := s.h.DB.QueryRow(s.h.Ctx,
		`SELECT token FROM rating_tokens WHERE waiver_id=$1 ORDER BY id DESC LIMIT 1`, waiverID).Scan(&token)
	if err != nil {
		s.h.T.Fatalf("no rating token for waiver %d: %v", waiverID, err)
	}
	return token
}

func hoursAgo(n int) time.Time { return time.Now().Add(-time.Duration(n) * time.Hour) }
