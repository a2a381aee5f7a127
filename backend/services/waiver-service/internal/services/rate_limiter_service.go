package services

import (
	"context"
	"fmt"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// RateLimiterService provides a high-level interface for checking OTP send limits.
type RateLimiterService interface {
	CheckSMSRateLimits(ctx context.Context, ip, phone string) error
	CheckPhoneRateLimit(ctx context.Context, phone string) error
	CheckVerifyRateLimits(ctx context.Context, ip, phone string) error
}

type rateLimiterService struct {
	repo repositories.RateLimitRepository
	cfg  *config.Config
}

func NewRateLimiterService(repo repositories.RateLimitRepository, cfg *config.Config) RateLimiterService {
	return &rateLimiterService{repo: repo, cfg: cfg}
}

// CheckSMSRateLimits checks global, per-IP, and per-phone limits for OTP requests.
func (s *rateLimiterService) CheckSMSRateLimits(ctx context.Context, ip, phone string) error {
	// 1. Global limit
	if err := s.check(ctx, "sms:global", s.cfg.GlobalSMSLimitPerHour, "Global SMS"); err != nil {
		return err
	}

	// 2. Per-IP limit
	if err := s.check(ctx, fmt.Sprintf("sms:ip:%s", ip), s.cfg.SMSLimitPerIPPerHour, "Per-IP SMS"); err != nil {
		return err
	}

	// 3. Per-destination limit
	return s.CheckPhoneRateLimit(ctx, phone)
}

// CheckPhoneRateLimit is the per-destination check alone, used when a code
// is sent as part of create-waiver.
func (s *rateLimiterService) CheckPhoneRateLimit(ctx context.Context, phone string) error {
	return s.check(ctx, fmt.Sprintf("sms:phone:%s", phone), s.cfg.SMSLimitPerNumberPerHour, "Per-phone SMS")
}

// CheckVerifyRateLimits caps code guesses per client IP and per phone,
// across reissued codes.
func (s *rateLimiterService) CheckVerifyRateLimits(ctx context.Context, ip, phone string) error {
	if err := s.check(ctx, fmt.Sprintf("verify:ip:%s", ip), s.cfg.VerifyLimitPerIPPerHour, "Per-IP OTP verify"); err != nil {
		return err
	}
	return s.check(ctx, fmt.Sprintf("verify:phone:%s", phone), s.cfg.VerifyLimitPerPhone, "Per-phone OTP verify")
}

func (s *rateLimiterService) check(ctx context.Context, key string, limit int, label string) error {
	allowed, err := s.repo.IncrementAndCheck(ctx, key, limit, s.cfg.RateLimitWindow)
	if err != nil {
		return err
	}
	if !allowed {
		utils.Logger.Warnf("%s rate limit exceeded (limit: %d)", label, limit)
		return utils.ErrRateLimitExceeded
	}
	return nil
}
