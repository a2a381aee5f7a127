package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// RatingCandidate is a completed waiver still missing a rating request on at
// least one channel, joined with the contact data needed to send it.
type RatingCandidate struct {
	WaiverID        int64
	CustomerID      int64
	FirstName       string
	CellPhone       string
	Email           *string
	CanEmail        bool
	RatingEmailSent models.NotifyMarker
	RatingSMSSent   models.NotifyMarker
}

// SnapshotGap is a signed waiver whose snapshot columns are missing.
type SnapshotGap struct {
	WaiverID     int64
	CustomerID   int64
	SignedAt     time.Time
	ActiveMinors int
	MissingParts []string
}

type WaiverRepository interface {
	Create(ctx context.Context, w *models.Waiver) error
	GetByID(ctx context.Context, id int64) (*models.Waiver, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Waiver, error)
	GetLatestByCustomer(ctx context.Context, customerID int64, forUpdate bool) (*models.Waiver, error)
	MarkSigned(ctx context.Context, id int64, signature string, signedAt time.Time,
		minors []models.MinorSnapshot, customer *models.CustomerSnapshot) error
	MarkRulesAccepted(ctx context.Context, id int64) error
	SetStaffVerification(ctx context.Context, id int64, v models.StaffVerification, staffID int64) error
	SetRatingMarker(ctx context.Context, id int64, channel models.NotificationChannel, marker models.NotifyMarker) error
	ListRatingCandidates(ctx context.Context, signedAfter, signedBefore time.Time, limit int) ([]*RatingCandidate, error)
	ListSnapshotGaps(ctx context.Context) ([]*SnapshotGap, error)
}

type waiverRepository struct {
	db     DB
	encKey []byte
}

func NewWaiverRepository(db DB, key []byte) WaiverRepository {
	return &waiverRepository{db: db, encKey: key}
}

func (r *waiverRepository) Create(ctx context.Context, w *models.Waiver) error {
	w.Status = models.WaiverStatusCreated
	row := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO waivers (customer_id, status, created_at, updated_at)
		VALUES ($1, $2, clock_timestamp(), clock_timestamp())
		RETURNING id, created_at, updated_at`,
		w.CustomerID, string(w.Status),
	)
	return row.Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

func (r *waiverRepository) GetByID(ctx context.Context, id int64) (*models.Waiver, error) {
	row := conn(ctx, r.db).QueryRow(ctx, baseSelectWaiver()+" WHERE id=$1", id)
	return r.scanWaiver(row)
}

func (r *waiverRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Waiver, error) {
	row := conn(ctx, r.db).QueryRow(ctx, baseSelectWaiver()+" WHERE id=$1 FOR UPDATE", id)
	return r.scanWaiver(row)
}

// GetLatestByCustomer returns the most recently created waiver, the only
// one the customer-facing steps may touch.
func (r *waiverRepository) GetLatestByCustomer(ctx context.Context, customerID int64, forUpdate bool) (*models.Waiver, error) {
	q := baseSelectWaiver() + " WHERE customer_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1"
	if forUpdate {
		q += " FOR UPDATE"
	}
	row := conn(ctx, r.db).QueryRow(ctx, q, customerID)
	return r.scanWaiver(row)
}

// MarkSigned writes the signature, timestamp and both snapshots in one
// statement. It only applies to a waiver still in the created state.
func (r *waiverRepository) MarkSigned(
	ctx context.Context,
	id int64,
	signature string,
	signedAt time.Time,
	minors []models.MinorSnapshot,
	customer *models.CustomerSnapshot,
) error {
	encSig, err := utils.Encrypt(r.encKey, signature)
	if err != nil {
		return err
	}
	if minors == nil {
		minors = []models.MinorSnapshot{}
	}
	minorsJSON, err := json.Marshal(minors)
	if err != nil {
		return err
	}
	customerJSON, err := json.Marshal(customer)
	if err != nil {
		return err
	}

	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE waivers SET
			signature_image=$1, signed_at=$2, minors_snapshot=$3, customer_snapshot=$4,
			status='signed', updated_at=NOW()
		WHERE id=$5 AND status='created'`,
		encSig, signedAt, minorsJSON, customerJSON, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrInvalidTransition
	}
	return nil
}

func (r *waiverRepository) MarkRulesAccepted(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE waivers SET rules_accepted=TRUE, completed=TRUE, status='rules_accepted', updated_at=NOW()
		WHERE id=$1 AND status='signed'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrInvalidTransition
	}
	return nil
}

func (r *waiverRepository) SetStaffVerification(
	ctx context.Context,
	id int64,
	v models.StaffVerification,
	staffID int64,
) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE waivers SET
			verified_by_staff=$1, staff_id=$2, verified_at=NOW(), status=$3, updated_at=NOW()
		WHERE id=$4 AND completed=TRUE`,
		int(v), staffID, string(v.Status()), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrInvalidTransition
	}
	return nil
}

func (r *waiverRepository) SetRatingMarker(
	ctx context.Context,
	id int64,
	channel models.NotificationChannel,
	marker models.NotifyMarker,
) error {
	col := "rating_sms_sent"
	if channel == models.ChannelEmail {
		col = "rating_email_sent"
	}
	_, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE waivers SET `+col+`=$1, updated_at=NOW() WHERE id=$2`, int(marker), id)
	return err
}

// ListRatingCandidates finds completed waivers signed inside the window that
// still have a channel marked not-attempted and no rating outbox row yet.
func (r *waiverRepository) ListRatingCandidates(
	ctx context.Context,
	signedAfter, signedBefore time.Time,
	limit int,
) ([]*RatingCandidate, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT w.id, w.customer_id, c.first_name, c.cell_phone, c.email, c.can_email,
		       w.rating_email_sent, w.rating_sms_sent
		FROM waivers w
		JOIN customers c ON c.id = w.customer_id
		WHERE w.completed = TRUE
		  AND w.signed_at BETWEEN $1 AND $2
		  AND (w.rating_email_sent = 0 OR w.rating_sms_sent = 0)
		  AND NOT EXISTS (
		      SELECT 1 FROM notification_outbox n
		      WHERE n.waiver_id = w.id AND n.purpose = 'rating'
		  )
		ORDER BY w.signed_at
		LIMIT $3`,
		signedAfter, signedBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RatingCandidate
	for rows.Next() {
		var c RatingCandidate
		var emailSent, smsSent int
		if err := rows.Scan(
			&c.WaiverID, &c.CustomerID, &c.FirstName, &c.CellPhone, &c.Email, &c.CanEmail,
			&emailSent, &smsSent,
		); err != nil {
			return nil, err
		}
		c.RatingEmailSent = models.NotifyMarker(emailSent)
		c.RatingSMSSent = models.NotifyMarker(smsSent)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ListSnapshotGaps reports signed waivers with a NULL snapshot column.
func (r *waiverRepository) ListSnapshotGaps(ctx context.Context) ([]*SnapshotGap, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT w.id, w.customer_id, w.signed_at,
		       (SELECT COUNT(*) FROM minors m WHERE m.customer_id = w.customer_id AND m.status = 1),
		       w.minors_snapshot IS NULL, w.customer_snapshot IS NULL
		FROM waivers w
		WHERE w.signed_at IS NOT NULL
		  AND (w.minors_snapshot IS NULL OR w.customer_snapshot IS NULL)
		ORDER BY w.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SnapshotGap
	for rows.Next() {
		var g SnapshotGap
		var noMinors, noCustomer bool
		if err := rows.Scan(&g.WaiverID, &g.CustomerID, &g.SignedAt, &g.ActiveMinors, &noMinors, &noCustomer); err != nil {
			return nil, err
		}
		if noMinors {
			g.MissingParts = append(g.MissingParts, "minors_snapshot")
		}
		if noCustomer {
			g.MissingParts = append(g.MissingParts, "customer_snapshot")
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

func baseSelectWaiver() string {
	return `
		SELECT id, customer_id, status, signed_at, signature_image,
		       rules_accepted, completed, verified_by_staff, staff_id, verified_at,
		       minors_snapshot, customer_snapshot,
		       rating_email_sent, rating_sms_sent, created_at, updated_at
		FROM waivers`
}

func (r *waiverRepository) scanWaiver(row pgx.Row) (*models.Waiver, error) {
	var w models.Waiver
	var status string
	var encSig *string
	var verified, emailSent, smsSent int
	var minorsJSON, customerJSON []byte

	err := row.Scan(
		&w.ID, &w.CustomerID, &status, &w.SignedAt, &encSig,
		&w.RulesAccepted, &w.Completed, &verified, &w.StaffID, &w.VerifiedAt,
		&minorsJSON, &customerJSON,
		&emailSent, &smsSent, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	w.Status = models.WaiverStatus(status)
	w.VerifiedByStaff = models.StaffVerification(verified)
	w.RatingEmailSent = models.NotifyMarker(emailSent)
	w.RatingSMSSent = models.NotifyMarker(smsSent)

	if encSig != nil {
		sig, decErr := utils.Decrypt(r.encKey, *encSig)
		if decErr != nil {
			return nil, decErr
		}
		w.SignatureImage = sig
	}
	if len(minorsJSON) > 0 {
		if err := json.Unmarshal(minorsJSON, &w.MinorsSnapshot); err != nil {
			return nil, err
		}
	}
	if len(customerJSON) > 0 {
		w.CustomerSnapshot = &models.CustomerSnapshot{}
		if err := json.Unmarshal(customerJSON, w.CustomerSnapshot); err != nil {
			return nil, err
		}
	}
	return &w, nil
}
