package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

// NotificationRepository is the outbox. Rows are enqueued inside the
// business transaction and claimed by the dispatcher afterwards.
type NotificationRepository interface {
	Enqueue(ctx context.Context, n *models.Notification) error
	ClaimBatch(ctx context.Context, limit int, staleAfter time.Duration) ([]*models.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string, terminal bool) error
	FailAbandoned(ctx context.Context, staleAfter time.Duration) ([]*models.Notification, error)
	CleanupDelivered(ctx context.Context, olderThan time.Duration) (int64, error)
}

type notificationRepository struct {
	db DB
}

func NewNotificationRepository(db DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Enqueue(ctx context.Context, n *models.Notification) error {
	if n.MaxAttempts <= 0 {
		n.MaxAttempts = 1
	}
	n.Status = models.NotificationPending
	return conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO notification_outbox (
			channel, purpose, recipient, subject, body, html, waiver_id,
			status, attempts, max_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', 0, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		string(n.Channel), string(n.Purpose), n.Recipient, n.Subject, n.Body, n.HTML, n.WaiverID,
		n.MaxAttempts,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

// ClaimBatch moves up to limit deliverable rows to 'sending' and bumps their
// attempt count. SKIP LOCKED lets several dispatchers run side by side;
// rows stuck in 'sending' longer than staleAfter are picked up again.
func (r *notificationRepository) ClaimBatch(
	ctx context.Context,
	limit int,
	staleAfter time.Duration,
) ([]*models.Notification, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		UPDATE notification_outbox SET status='sending', attempts=attempts+1, updated_at=NOW()
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE (status='pending' OR (status='sending' AND updated_at < $2))
			  AND attempts < max_attempts
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, channel, purpose, recipient, subject, body, html, waiver_id,
		          status, attempts, max_attempts, last_error, created_at, updated_at, sent_at`,
		limit, time.Now().Add(-staleAfter),
	)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

// FailAbandoned fails rows that were claimed on their last attempt and never
// reported back. ClaimBatch skips them once attempts reach max_attempts.
func (r *notificationRepository) FailAbandoned(
	ctx context.Context,
	staleAfter time.Duration,
) ([]*models.Notification, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		UPDATE notification_outbox SET
			status='failed',
			last_error=COALESCE(last_error, 'delivery abandoned after final attempt'),
			updated_at=NOW()
		WHERE status='sending' AND attempts >= max_attempts AND updated_at < $1
		RETURNING id, channel, purpose, recipient, subject, body, html, waiver_id,
		          status, attempts, max_attempts, last_error, created_at, updated_at, sent_at`,
		time.Now().Add(-staleAfter),
	)
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

func scanNotifications(rows pgx.Rows) ([]*models.Notification, error) {
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var channel, purpose, status string
		if err := rows.Scan(
			&n.ID, &channel, &purpose, &n.Recipient, &n.Subject, &n.Body, &n.HTML, &n.WaiverID,
			&status, &n.Attempts, &n.MaxAttempts, &n.LastError, &n.CreatedAt, &n.UpdatedAt, &n.SentAt,
		); err != nil {
			return nil, err
		}
		n.Channel = models.NotificationChannel(channel)
		n.Purpose = models.NotificationPurpose(purpose)
		n.Status = models.NotificationStatus(status)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkSent also blanks OTP bodies, which hold a live code.
func (r *notificationRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE notification_outbox SET
			status='sent', sent_at=NOW(), last_error=NULL, updated_at=NOW(),
			body=CASE WHEN purpose='otp' THEN '' ELSE body END
		WHERE id=$1`, id)
	return err
}

// MarkFailed records the error. Non-terminal failures go back to pending for
// another attempt.
func (r *notificationRepository) MarkFailed(ctx context.Context, id int64, reason string, terminal bool) error {
	status := models.NotificationPending
	if terminal {
		status = models.NotificationFailed
	}
	_, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE notification_outbox SET status=$1, last_error=$2, updated_at=NOW()
		WHERE id=$3`, string(status), reason, id)
	return err
}

// CleanupDelivered removes finished rows older than olderThan. Rating rows
// are kept while their waiver exists since the sweep uses them to avoid
// re-sending.
func (r *notificationRepository) CleanupDelivered(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM notification_outbox
		WHERE purpose='otp' AND status IN ('sent', 'failed') AND updated_at < $1`,
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
