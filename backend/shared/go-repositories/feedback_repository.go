package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

type FeedbackRepository interface {
	Create(ctx context.Context, f *models.Feedback) error
	GetByWaiverID(ctx context.Context, waiverID int64) (*models.Feedback, error)
	SubmitDetails(ctx context.Context, waiverID int64, issue, staffName, message *string) (bool, error)
}

type feedbackRepository struct {
	db DB
}

func NewFeedbackRepository(db DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	row := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO feedback (customer_id, waiver_id, rating, issue, staff_name, message,
		                      details_submitted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		f.CustomerID, f.WaiverID, f.Rating, f.Issue, f.StaffName, f.Message, f.DetailsSubmitted,
	)
	return row.Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

func (r *feedbackRepository) GetByWaiverID(ctx context.Context, waiverID int64) (*models.Feedback, error) {
	var f models.Feedback
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, customer_id, waiver_id, rating, issue, staff_name, message,
		       details_submitted, created_at, updated_at
		FROM feedback WHERE waiver_id=$1
		ORDER BY created_at DESC LIMIT 1`, waiverID,
	).Scan(
		&f.ID, &f.CustomerID, &f.WaiverID, &f.Rating, &f.Issue, &f.StaffName, &f.Message,
		&f.DetailsSubmitted, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// SubmitDetails applies the one-time follow-up. It returns false when the
// details were already submitted or no feedback exists for the waiver.
func (r *feedbackRepository) SubmitDetails(
	ctx context.Context,
	waiverID int64,
	issue, staffName, message *string,
) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE feedback SET
			issue=COALESCE($1, issue), staff_name=COALESCE($2, staff_name), message=COALESCE($3, message),
			details_submitted=TRUE, updated_at=NOW()
		WHERE waiver_id=$4 AND details_submitted=FALSE`,
		issue, staffName, message, waiverID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
