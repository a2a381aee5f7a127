package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/twilio/twilio-go"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/app"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/controllers"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	waiver_repositories "github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/routes"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-middleware"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-seeding"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	reg := metrics.NewRegistry()

	//----------------------------------------------------------------------
	// External clients
	//----------------------------------------------------------------------
	var twilioClient *twilio.RestClient
	if cfg.SMSEnabled() {
		twilioClient = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	} else {
		utils.Logger.Warn("Twilio credentials not set; SMS delivery disabled")
	}

	var sendgridClient *sendgrid.Client
	if cfg.EmailEnabled() {
		sendgridClient = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	} else {
		utils.Logger.Warn("SendGrid API key not set; email delivery disabled")
	}

	//----------------------------------------------------------------------
	// Repositories
	//----------------------------------------------------------------------
	txManager := repositories.NewTxManager(application.DB)
	customerRepo := repositories.NewCustomerRepository(application.DB, cfg.DBEncryptionKey)
	minorRepo := repositories.NewMinorRepository(application.DB)
	waiverRepo := repositories.NewWaiverRepository(application.DB, cfg.DBEncryptionKey)
	otpRepo := repositories.NewOTPRepository(application.DB)
	ratingTokenRepo := repositories.NewRatingTokenRepository(application.DB)
	feedbackRepo := repositories.NewFeedbackRepository(application.DB)
	staffRepo := repositories.NewStaffRepository(application.DB)
	outboxRepo := repositories.NewNotificationRepository(application.DB)
	rateLimitRepo := waiver_repositories.NewRateLimitRepository(application.DB)

	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		if err := seeding.SeedDefaultAdmin(context.Background(), staffRepo, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			utils.Logger.WithError(err).Fatal("Failed to seed default admin")
		}
	}

	//----------------------------------------------------------------------
	// Services
	//----------------------------------------------------------------------
	dispatcher := services.NewDispatcherService(
		cfg, outboxRepo, waiverRepo,
		services.NewSenders(cfg, twilioClient, sendgridClient),
		reg,
	)
	rateLimiterService := services.NewRateLimiterService(rateLimitRepo, cfg)
	customerService := services.NewCustomerService(txManager, customerRepo, minorRepo)
	otpService := services.NewOTPService(
		cfg, txManager, otpRepo, customerRepo, minorRepo, outboxRepo,
		rateLimiterService, dispatcher, twilioClient, reg,
	)
	waiverService := services.NewWaiverService(
		txManager, waiverRepo, customerRepo, minorRepo,
		customerService, otpService, rateLimiterService, dispatcher, reg,
	)
	ratingService := services.NewRatingService(cfg, txManager, ratingTokenRepo, waiverRepo, feedbackRepo, reg)
	sweepService := services.NewRatingSweepService(cfg, txManager, waiverRepo, outboxRepo, ratingService, dispatcher, reg)
	cleanupService := services.NewCleanupService(cfg, otpRepo, rateLimitRepo, ratingTokenRepo, outboxRepo)
	staffService := services.NewStaffService(staffRepo)

	//----------------------------------------------------------------------
	// Controllers
	//----------------------------------------------------------------------
	healthController := controllers.NewHealthController(application)
	waiverController := controllers.NewWaiverController(waiverService)
	otpController := controllers.NewOTPController(otpService)
	customerController := controllers.NewCustomerController(customerService)
	ratingController := controllers.NewRatingController(ratingService, cfg.ReviewURL)
	adminController := controllers.NewAdminController(waiverService, staffService)

	//----------------------------------------------------------------------
	// Router
	//----------------------------------------------------------------------
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware, middleware.RecoveryMiddleware, reg.Middleware)

	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods("GET")
	router.Handle(routes.Metrics, reg.Handler()).Methods("GET")

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

	//----------------------------------------------------------------------
	// Background work
	//----------------------------------------------------------------------
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go dispatcher.Run(bgCtx)
	// Pick up anything left queued by a previous process.
	dispatcher.Kick()

	c := cron.New()

	_, schErr1 := c.AddFunc(config.RatingSweepSchedule, func() {
		if _, e := sweepService.Sweep(bgCtx); e != nil {
			utils.Logger.WithError(e).Error("Scheduled rating sweep failed")
		}
	})
	if schErr1 != nil {
		utils.Logger.WithError(schErr1).Fatal("Failed to schedule rating sweep job")
	}

	_, schErr2 := c.AddFunc(config.DispatchSchedule, dispatcher.Kick)
	if schErr2 != nil {
		utils.Logger.WithError(schErr2).Fatal("Failed to schedule outbox dispatch job")
	}

	_, schErr3 := c.AddFunc(config.CleanupSchedule, func() {
		if e := cleanupService.CleanupDaily(bgCtx); e != nil {
			utils.Logger.WithError(e).Error("Scheduled cleanup failed")
		}
	})
	if schErr3 != nil {
		utils.Logger.WithError(schErr3).Fatal("Failed to schedule cleanup job")
	}

	c.Start()

	//----------------------------------------------------------------------
	// HTTP server
	//----------------------------------------------------------------------
	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Failed to start server:", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	utils.Logger.Info("Shutting down")

	<-c.Stop().Done()
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.WithError(err).Error("HTTP server shutdown failed")
	}
}
