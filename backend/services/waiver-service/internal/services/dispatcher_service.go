package services

import (
	"context"
	"errors"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// DispatchResult counts what one pass did.
type DispatchResult struct {
	Claimed   int
	Sent      int
	Retried   int
	Failed    int
	Abandoned int
}

// DispatcherService drains the notification outbox. Delivery never touches
// the write that queued the row; it only updates the row and, for rating
// requests, the waiver's per-channel marker.
type DispatcherService struct {
	cfg        *config.Config
	outbox     repositories.NotificationRepository
	waiverRepo repositories.WaiverRepository
	senders    Senders
	metrics    *metrics.Registry
	kick       chan struct{}
}

func NewDispatcherService(
	cfg *config.Config,
	outbox repositories.NotificationRepository,
	waiverRepo repositories.WaiverRepository,
	senders Senders,
	m *metrics.Registry,
) *DispatcherService {
	return &DispatcherService{
		cfg:        cfg,
		outbox:     outbox,
		waiverRepo: waiverRepo,
		senders:    senders,
		metrics:    m,
		kick:       make(chan struct{}, 1),
	}
}

// Kick asks Run for a pass without blocking. Kicks coalesce.
func (d *DispatcherService) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run dispatches on every kick until ctx is done.
func (d *DispatcherService) Run(ctx context.Context) {
	utils.Logger.Info("Notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			utils.Logger.Info("Notification dispatcher stopped")
			return
		case <-d.kick:
			if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				utils.Logger.WithError(err).Error("Outbox dispatch failed")
			}
		}
	}
}

// DispatchOnce fails abandoned rows, then claims one batch and tries each
// row once.
func (d *DispatcherService) DispatchOnce(ctx context.Context) (DispatchResult, error) {
	var res DispatchResult

	abandoned, err := d.outbox.FailAbandoned(ctx, d.cfg.OutboxStaleAfter)
	if err != nil {
		return res, err
	}
	for _, n := range abandoned {
		utils.Logger.Warnf("Notification %d (%s %s) abandoned in sending after %d attempts",
			n.ID, n.Purpose, n.Channel, n.Attempts)
		res.Abandoned++
		d.record(n, "failed")
		d.mark(ctx, n, models.NotifyFailed)
	}

	batch, err := d.outbox.ClaimBatch(ctx, d.cfg.OutboxBatchSize, d.cfg.OutboxStaleAfter)
	if err != nil {
		return res, err
	}
	res.Claimed = len(batch)

	var errs []error
	for _, n := range batch {
		sendErr := d.send(ctx, n)
		if sendErr == nil {
			if err := d.outbox.MarkSent(ctx, n.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			res.Sent++
			d.record(n, "sent")
			d.mark(ctx, n, models.NotifySent)
			continue
		}

		terminal := n.Attempts >= n.MaxAttempts
		utils.Logger.WithError(sendErr).Warnf(
			"Delivery of %s %s notification %d failed (attempt %d/%d)",
			n.Purpose, n.Channel, n.ID, n.Attempts, n.MaxAttempts,
		)
		if err := d.outbox.MarkFailed(ctx, n.ID, sendErr.Error(), terminal); err != nil {
			errs = append(errs, err)
			continue
		}
		if terminal {
			res.Failed++
			d.record(n, "failed")
			d.mark(ctx, n, models.NotifyFailed)
		} else {
			res.Retried++
			d.record(n, "retry")
		}
	}

	if res.Claimed > 0 || res.Abandoned > 0 {
		utils.Logger.Infof("Outbox pass: claimed=%d sent=%d retried=%d failed=%d abandoned=%d",
			res.Claimed, res.Sent, res.Retried, res.Failed, res.Abandoned)
	}
	return res, errors.Join(errs...)
}

func (d *DispatcherService) send(ctx context.Context, n *models.Notification) error {
	sender, ok := d.senders[n.Channel]
	if !ok {
		return ErrChannelDisabled
	}
	return sender.Send(ctx, n)
}

func (d *DispatcherService) mark(ctx context.Context, n *models.Notification, marker models.NotifyMarker) {
	if n.Purpose != models.PurposeRating || n.WaiverID == nil {
		return
	}
	if err := d.waiverRepo.SetRatingMarker(ctx, *n.WaiverID, n.Channel, marker); err != nil {
		utils.Logger.WithError(err).Errorf("Failed to set %s rating marker on waiver %d", n.Channel, *n.WaiverID)
	}
}

func (d *DispatcherService) record(n *models.Notification, result string) {
	d.metrics.Notifications.WithLabelValues(string(n.Channel), string(n.Purpose), result).Inc()
}
