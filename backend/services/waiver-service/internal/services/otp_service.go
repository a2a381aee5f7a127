package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-middleware"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// Kicker wakes the outbox dispatcher after a commit.
type Kicker interface {
	Kick()
}

// VerifyResult is the outcome of an OTP check. Profile and SessionToken
// are set only when Authenticated is true and the phone has a customer.
type VerifyResult struct {
	Authenticated bool
	Profile       *CustomerProfile
	SessionToken  string
}

type OTPService interface {
	// SendOTP rate-limits, issues a fresh code and queues the SMS.
	SendOTP(ctx context.Context, rawPhone, clientIP string) error
	// Issue replaces any code for phone (normalized digits) and enqueues the
	// SMS in the caller's transaction. The caller kicks the dispatcher.
	Issue(ctx context.Context, phone string) error
	// Verify checks a code. Each miss counts against the live code, which is
	// discarded after OTPMaxVerifyAttempts misses.
	Verify(ctx context.Context, rawPhone, code, clientIP string) (*VerifyResult, error)
}

type otpService struct {
	cfg          *config.Config
	tx           repositories.TxManager
	otpRepo      repositories.OTPRepository
	customerRepo repositories.CustomerRepository
	minorRepo    repositories.MinorRepository
	outbox       repositories.NotificationRepository
	limiter      RateLimiterService
	kicker       Kicker
	twilio       *twilio.RestClient
	metrics      *metrics.Registry
	now          func() time.Time
}

func NewOTPService(
	cfg *config.Config,
	tx repositories.TxManager,
	otpRepo repositories.OTPRepository,
	customerRepo repositories.CustomerRepository,
	minorRepo repositories.MinorRepository,
	outbox repositories.NotificationRepository,
	limiter RateLimiterService,
	kicker Kicker,
	tw *twilio.RestClient,
	m *metrics.Registry,
) OTPService {
	return &otpService{
		cfg:          cfg,
		tx:           tx,
		otpRepo:      otpRepo,
		customerRepo: customerRepo,
		minorRepo:    minorRepo,
		outbox:       outbox,
		limiter:      limiter,
		kicker:       kicker,
		twilio:       tw,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *otpService) SendOTP(ctx context.Context, rawPhone, clientIP string) error {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		s.metrics.OTPIssued.WithLabelValues("invalid").Inc()
		return utils.NewValidationError("invalid phone number")
	}

	if err := s.limiter.CheckSMSRateLimits(ctx, clientIP, phone); err != nil {
		s.metrics.OTPIssued.WithLabelValues("rate_limited").Inc()
		return err
	}

	if !s.isTestPhone(phone) {
		e164 := utils.ToE164(phone, s.cfg.DefaultCountryCode)
		ok, err := utils.ValidatePhoneNumber(ctx, e164, s.cfg.LDFlag_ValidatePhoneWithTwilio, s.twilio)
		if err != nil {
			return utils.NewInternalError("phone validation failed", err)
		}
		if !ok {
			s.metrics.OTPIssued.WithLabelValues("invalid").Inc()
			return utils.NewValidationError("invalid phone number")
		}
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.Issue(ctx, phone)
	}); err != nil {
		return err
	}

	s.kicker.Kick()
	return nil
}

func (s *otpService) Issue(ctx context.Context, phone string) error {
	code, err := s.generateCode(phone)
	if err != nil {
		return utils.NewInternalError("failed to generate code", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.otpRepo.LockPhone(ctx, phone); err != nil {
			return err
		}
		if err := s.otpRepo.DeleteByPhone(ctx, phone); err != nil {
			return err
		}
		expiresAt := s.now().Add(s.cfg.OTPExpiry)
		if err := s.otpRepo.Create(ctx, phone, hashOTP(phone, code), expiresAt); err != nil {
			return err
		}

		if s.isTestPhone(phone) {
			utils.Logger.Debugf("Test phone %s; no SMS queued", utils.MaskPhone(phone))
			return nil
		}
		return s.outbox.Enqueue(ctx, &models.Notification{
			Channel:     models.ChannelSMS,
			Purpose:     models.PurposeOTP,
			Recipient:   utils.ToE164(phone, s.cfg.DefaultCountryCode),
			Body:        fmt.Sprintf("Your %s verification code is %s", s.cfg.OrganizationName, code),
			MaxAttempts: config.OTPMaxAttempts,
		})
	})
	if err != nil {
		s.metrics.OTPIssued.WithLabelValues("error").Inc()
		return err
	}

	s.metrics.OTPIssued.WithLabelValues("issued").Inc()
	utils.Logger.Infof("Issued OTP for %s", utils.MaskPhone(phone))
	return nil
}

func (s *otpService) Verify(ctx context.Context, rawPhone, code, clientIP string) (*VerifyResult, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return nil, utils.NewValidationError("invalid phone number")
	}
	code = strings.TrimSpace(code)

	if err := s.limiter.CheckVerifyRateLimits(ctx, clientIP, phone); err != nil {
		s.metrics.OTPVerifications.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	var result VerifyResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.otpRepo.Consume(ctx, phone, hashOTP(phone, code))
		if err != nil {
			return err
		}
		if !ok {
			discarded, err := s.otpRepo.IncrementAttempts(ctx, phone, s.cfg.OTPMaxVerifyAttempts)
			if err != nil {
				return err
			}
			if discarded {
				utils.Logger.Warnf("OTP for %s discarded after %d wrong attempts",
					utils.MaskPhone(phone), s.cfg.OTPMaxVerifyAttempts)
			}
			return nil
		}
		result.Authenticated = true

		c, err := s.customerRepo.GetByPhone(ctx, phone)
		if err != nil || c == nil {
			return err
		}
		if err := s.customerRepo.SetStatus(ctx, c.ID, models.CustomerStatusVerified); err != nil {
			return err
		}
		c.Status = models.CustomerStatusVerified

		minors, err := s.minorRepo.ListByCustomer(ctx, c.ID, true)
		if err != nil {
			return err
		}
		result.Profile = &CustomerProfile{Customer: c, Minors: minors}

		result.SessionToken, err = middleware.IssueCustomerSession(s.cfg.JWTSecret, c.ID, s.cfg.CustomerSessionTTL)
		return err
	})
	if err != nil {
		s.metrics.OTPVerifications.WithLabelValues("error").Inc()
		return nil, err
	}

	if result.Authenticated {
		s.metrics.OTPVerifications.WithLabelValues("authenticated").Inc()
	} else {
		s.metrics.OTPVerifications.WithLabelValues("rejected").Inc()
	}
	return &result, nil
}

func (s *otpService) isTestPhone(phone string) bool {
	return s.cfg.LDFlag_AcceptFakePhones && strings.HasPrefix(phone, utils.TestPhonePrefix)
}

func (s *otpService) generateCode(phone string) (string, error) {
	if s.isTestPhone(phone) {
		return utils.TestPhoneCode, nil
	}
	n, err := utils.RandomIntInRange(config.OTPMin, config.OTPMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n), nil
}

// hashOTP binds the code to its phone so a stored hash is useless on its own.
func hashOTP(phone, code string) string {
	return utils.HashToken(phone + ":" + code)
}
