package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
)

// RateLimitRepository provides an atomic way to check and increment rate limit counters.
type RateLimitRepository interface {
	// IncrementAndCheck atomically increments a counter for the given key and checks if it exceeds the limit.
	// It returns true if the request is allowed (count <= limit), and false otherwise.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// CleanupExpired removes all counter keys that have expired.
	CleanupExpired(ctx context.Context) (int64, error)
}

type rateLimitRepository struct {
	db repositories.DB
}

func NewRateLimitRepository(db repositories.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	query := `
        INSERT INTO rate_limit_attempts (key, attempt_count, expires_at)
        VALUES ($1, 1, NOW() + make_interval(secs => $2))
        ON CONFLICT (key) DO UPDATE
        SET attempt_count = CASE
            WHEN rate_limit_attempts.expires_at < NOW() THEN 1
            ELSE rate_limit_attempts.attempt_count + 1
        END,
        expires_at = CASE
            WHEN rate_limit_attempts.expires_at < NOW() THEN NOW() + make_interval(secs => $2)
            ELSE rate_limit_attempts.expires_at
        END
        RETURNING attempt_count;
    `

	var currentCount int
	err := r.db.QueryRow(ctx, query, key, window.Seconds()).Scan(&currentCount)
	if err != nil && err != pgx.ErrNoRows {
		return false, err
	}

	return currentCount <= limit, nil
}

func (r *rateLimitRepository) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
