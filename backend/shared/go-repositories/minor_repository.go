package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

type MinorRepository interface {
	Create(ctx context.Context, m *models.Minor) error
	Update(ctx context.Context, m *models.Minor) error
	ListByCustomer(ctx context.Context, customerID int64, activeOnly bool) ([]*models.Minor, error)
	DeactivateExcept(ctx context.Context, customerID int64, keep []int64) error
}

type minorRepository struct {
	db DB
}

func NewMinorRepository(db DB) MinorRepository {
	return &minorRepository{db: db}
}

func (r *minorRepository) Create(ctx context.Context, m *models.Minor) error {
	row := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO minors (customer_id, first_name, last_name, dob, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		m.CustomerID, m.FirstName, m.LastName, m.DOB, int(m.Status),
	)
	return row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

// Update rewrites name, dob and status. The customer_id predicate keeps a
// caller from editing another customer's minor.
func (r *minorRepository) Update(ctx context.Context, m *models.Minor) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE minors
		SET first_name=$1, last_name=$2, dob=$3::date, status=$4, updated_at=NOW()
		WHERE id=$5 AND customer_id=$6`,
		m.FirstName, m.LastName, m.DOB, int(m.Status), m.ID, m.CustomerID,
	)
	return err
}

func (r *minorRepository) ListByCustomer(ctx context.Context, customerID int64, activeOnly bool) ([]*models.Minor, error) {
	q := `
		SELECT id, customer_id, first_name, last_name, to_char(dob, 'YYYY-MM-DD'), status, created_at, updated_at
		FROM minors
		WHERE customer_id=$1`
	if activeOnly {
		q += ` AND status=1`
	}
	q += ` ORDER BY id`

	rows, err := conn(ctx, r.db).Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Minor
	for rows.Next() {
		m, err := scanMinor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeactivateExcept sets status=0 on every active minor of the customer whose
// id is not in keep.
func (r *minorRepository) DeactivateExcept(ctx context.Context, customerID int64, keep []int64) error {
	if keep == nil {
		keep = []int64{}
	}
	_, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE minors SET status=0, updated_at=NOW()
		WHERE customer_id=$1 AND status=1 AND NOT (id = ANY($2))`,
		customerID, keep,
	)
	return err
}

func scanMinor(row pgx.Row) (*models.Minor, error) {
	var m models.Minor
	var status int
	if err := row.Scan(
		&m.ID, &m.CustomerID, &m.FirstName, &m.LastName, &m.DOB, &status, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Status = models.MinorStatus(status)
	return &m, nil
}
