package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
)

// OTPRepository stores at most one live code per phone.
type OTPRepository interface {
	DeleteByPhone(ctx context.Context, phone string) error
	Create(ctx context.Context, phone, codeHash string, expiresAt time.Time) error
	Consume(ctx context.Context, phone, codeHash string) (bool, error)
	IncrementAttempts(ctx context.Context, phone string, maxAttempts int) (bool, error)
	LockPhone(ctx context.Context, phone string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type otpRepository struct {
	db DB
}

func NewOTPRepository(db DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) DeleteByPhone(ctx context.Context, phone string) error {
	_, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM otps WHERE phone = $1`, phone)
	return err
}

func (r *otpRepository) Create(ctx context.Context, phone, codeHash string, expiresAt time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO otps (phone, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())`,
		phone, codeHash, expiresAt,
	)
	return err
}

// Consume deletes the matching unexpired code and reports whether one
// existed. Match and delete are a single statement, so a code can only be
// consumed once even under concurrent requests.
func (r *otpRepository) Consume(ctx context.Context, phone, codeHash string) (bool, error) {
	var id int64
	err := conn(ctx, r.db).QueryRow(ctx, `
		DELETE FROM otps
		WHERE phone = $1 AND code_hash = $2 AND expires_at > NOW()
		RETURNING id`,
		phone, codeHash,
	).Scan(&id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IncrementAttempts counts a wrong guess against the live code for phone
// and deletes the code once maxAttempts guesses have missed. It reports
// whether the code was discarded.
func (r *otpRepository) IncrementAttempts(ctx context.Context, phone string, maxAttempts int) (bool, error) {
	var attempts int
	err := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE otps SET attempts = attempts + 1
		WHERE phone = $1 AND expires_at > NOW()
		RETURNING attempts`,
		phone,
	).Scan(&attempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if attempts < maxAttempts {
		return false, nil
	}

	if _, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM otps WHERE phone = $1`, phone); err != nil {
		return false, err
	}
	return true, nil
}

func (r *otpRepository) LockPhone(ctx context.Context, phone string) error {
	return AdvisoryLock(ctx, r.db, "otp:"+phone)
}

func (r *otpRepository) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM otps WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
