package services

import (
	"context"
	"errors"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	waiver_repositories "github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// CleanupService purges expired codes, counters, tokens and delivered outbox rows.
type CleanupService interface {
	CleanupDaily(ctx context.Context) error
}

type cleanupService struct {
	cfg           *config.Config
	otpRepo       repositories.OTPRepository
	rateLimitRepo waiver_repositories.RateLimitRepository
	tokenRepo     repositories.RatingTokenRepository
	outbox        repositories.NotificationRepository
}

func NewCleanupService(
	cfg *config.Config,
	otpRepo repositories.OTPRepository,
	rateLimitRepo waiver_repositories.RateLimitRepository,
	tokenRepo repositories.RatingTokenRepository,
	outbox repositories.NotificationRepository,
) CleanupService {
	return &cleanupService{
		cfg:           cfg,
		otpRepo:       otpRepo,
		rateLimitRepo: rateLimitRepo,
		tokenRepo:     tokenRepo,
		outbox:        outbox,
	}
}

// CleanupDaily runs every purge even when an earlier one fails and reports
// all failures together.
func (s *cleanupService) CleanupDaily(ctx context.Context) error {
	logger := utils.Logger
	var errs []error

	run := func(table string, fn func() (int64, error)) {
		n, err := fn()
		if err != nil {
			logger.WithError(err).Errorf("Failed to cleanup %s", table)
			errs = append(errs, err)
			return
		}
		logger.Infof("Removed %d rows from %s", n, table)
	}

	run("otps", func() (int64, error) { return s.otpRepo.CleanupExpired(ctx) })
	run("rate_limit_attempts", func() (int64, error) { return s.rateLimitRepo.CleanupExpired(ctx) })
	run("rating_tokens", func() (int64, error) {
		return s.tokenRepo.CleanupExpired(ctx, s.cfg.RatingTokenRetention)
	})
	run("notification_outbox", func() (int64, error) {
		return s.outbox.CleanupDelivered(ctx, s.cfg.DeliveredRetention)
	})

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("Daily cleanup completed successfully.")
	return nil
}
