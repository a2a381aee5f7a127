package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type SweepResult struct {
	Candidates int
	Queued     int
	NoContact  int
}

// RatingSweepService queues rating requests for recently completed waivers.
type RatingSweepService interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

type ratingSweepService struct {
	cfg        *config.Config
	tx         repositories.TxManager
	waiverRepo repositories.WaiverRepository
	outbox     repositories.NotificationRepository
	ratings    RatingService
	kicker     Kicker
	metrics    *metrics.Registry
	now        func() time.Time
}

func NewRatingSweepService(
	cfg *config.Config,
	tx repositories.TxManager,
	waiverRepo repositories.WaiverRepository,
	outbox repositories.NotificationRepository,
	ratings RatingService,
	kicker Kicker,
	m *metrics.Registry,
) RatingSweepService {
	return &ratingSweepService{
		cfg:        cfg,
		tx:         tx,
		waiverRepo: waiverRepo,
		outbox:     outbox,
		ratings:    ratings,
		kicker:     kicker,
		metrics:    m,
		now:        time.Now,
	}
}

// Sweep looks at waivers signed between RatingLookback and RatingDelay ago.
// Each candidate gets its token and outbox rows in one transaction; a
// channel without contact info is marked failed right away.
func (s *ratingSweepService) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	var res SweepResult
	now := s.now()
	candidates, err := s.waiverRepo.ListRatingCandidates(
		ctx, now.Add(-s.cfg.RatingLookback), now.Add(-s.cfg.RatingDelay), s.cfg.RatingBatchSize,
	)
	if err != nil {
		return res, err
	}
	res.Candidates = len(candidates)

	var errs []error
	for _, c := range candidates {
		queued, noContact, err := s.sweepOne(ctx, c, now)
		if err != nil {
			utils.Logger.WithError(err).Errorf("Rating sweep failed for waiver %d", c.WaiverID)
			errs = append(errs, fmt.Errorf("waiver %d: %w", c.WaiverID, err))
			continue
		}
		res.Queued += queued
		res.NoContact += noContact
	}

	if res.Queued > 0 {
		s.kicker.Kick()
	}
	utils.Logger.Infof("Rating sweep: candidates=%d queued=%d no_contact=%d",
		res.Candidates, res.Queued, res.NoContact)
	return res, errors.Join(errs...)
}

func (s *ratingSweepService) sweepOne(
	ctx context.Context,
	c *repositories.RatingCandidate,
	now time.Time,
) (queued, noContact int, err error) {
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		queued, noContact = 0, 0

		token, err := s.ratings.IssueOrReuse(ctx, c.WaiverID)
		if err != nil {
			return err
		}
		link := s.cfg.AppUrl + "/rating/" + token.Token
		waiverID := c.WaiverID

		if c.RatingEmailSent == models.NotifyNotAttempted {
			if c.Email != nil && *c.Email != "" && c.CanEmail {
				subject, plain, htmlBody := ratingEmail(s.cfg.OrganizationName, c.FirstName, link, now)
				if err := s.outbox.Enqueue(ctx, &models.Notification{
					Channel:     models.ChannelEmail,
					Purpose:     models.PurposeRating,
					Recipient:   *c.Email,
					Subject:     subject,
					Body:        plain,
					HTML:        htmlBody,
					WaiverID:    &waiverID,
					MaxAttempts: config.RatingMaxAttempts,
				}); err != nil {
					return err
				}
				queued++
			} else {
				if err := s.waiverRepo.SetRatingMarker(ctx, waiverID, models.ChannelEmail, models.NotifyFailed); err != nil {
					return err
				}
				noContact++
			}
		}

		if c.RatingSMSSent == models.NotifyNotAttempted {
			if c.CellPhone != "" {
				if err := s.outbox.Enqueue(ctx, &models.Notification{
					Channel:     models.ChannelSMS,
					Purpose:     models.PurposeRating,
					Recipient:   utils.ToE164(c.CellPhone, s.cfg.DefaultCountryCode),
					Body:        ratingSMS(s.cfg.OrganizationName, c.FirstName, link),
					WaiverID:    &waiverID,
					MaxAttempts: config.RatingMaxAttempts,
				}); err != nil {
					return err
				}
				queued++
			} else {
				if err := s.waiverRepo.SetRatingMarker(ctx, waiverID, models.ChannelSMS, models.NotifyFailed); err != nil {
					return err
				}
				noContact++
			}
		}
		return nil
	})
	return queued, noContact, err
}
