package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

type RatingTokenRepository interface {
	Create(ctx context.Context, t *models.RatingToken) error
	GetByToken(ctx context.Context, token string) (*models.RatingToken, error)
	GetUsableByWaiver(ctx context.Context, waiverID int64) (*models.RatingToken, error)
	DeleteExpiredUnused(ctx context.Context, waiverID int64) error
	Consume(ctx context.Context, token string) (bool, error)
	CleanupExpired(ctx context.Context, retention time.Duration) (int64, error)
}

type ratingTokenRepository struct {
	db DB
}

func NewRatingTokenRepository(db DB) RatingTokenRepository {
	return &ratingTokenRepository{db: db}
}

func (r *ratingTokenRepository) Create(ctx context.Context, t *models.RatingToken) error {
	row := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO rating_tokens (waiver_id, token, used, expires_at, created_at)
		VALUES ($1, $2, FALSE, $3, NOW())
		RETURNING id, created_at`,
		t.WaiverID, t.Token, t.ExpiresAt,
	)
	return row.Scan(&t.ID, &t.CreatedAt)
}

func (r *ratingTokenRepository) GetByToken(ctx context.Context, token string) (*models.RatingToken, error) {
	row := conn(ctx, r.db).QueryRow(ctx, baseSelectRatingToken()+" WHERE token=$1", token)
	return scanRatingToken(row)
}

func (r *ratingTokenRepository) GetUsableByWaiver(ctx context.Context, waiverID int64) (*models.RatingToken, error) {
	row := conn(ctx, r.db).QueryRow(ctx, baseSelectRatingToken()+`
		WHERE waiver_id=$1 AND used=FALSE AND expires_at > NOW()
		ORDER BY created_at DESC LIMIT 1`, waiverID)
	return scanRatingToken(row)
}

func (r *ratingTokenRepository) DeleteExpiredUnused(ctx context.Context, waiverID int64) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM rating_tokens WHERE waiver_id=$1 AND used=FALSE AND expires_at <= NOW()`, waiverID)
	return err
}

// Consume flips used only while the token is unused and unexpired. A false
// result means another caller won or the token cannot be used; the caller
// reloads the row to tell which.
func (r *ratingTokenRepository) Consume(ctx context.Context, token string) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE rating_tokens SET used=TRUE, used_at=NOW()
		WHERE token=$1 AND used=FALSE AND expires_at > NOW()`, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CleanupExpired drops tokens that expired more than retention ago.
func (r *ratingTokenRepository) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM rating_tokens WHERE expires_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func baseSelectRatingToken() string {
	return `SELECT id, waiver_id, token, used, used_at, expires_at, created_at FROM rating_tokens`
}

func scanRatingToken(row pgx.Row) (*models.RatingToken, error) {
	var t models.RatingToken
	err := row.Scan(&t.ID, &t.WaiverID, &t.Token, &t.Used, &t.UsedAt, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
