package repositories

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type StaffRepository interface {
	Create(ctx context.Context, s *models.Staff) error
	GetByEmail(ctx context.Context, email string) (*models.Staff, error)
	GetByID(ctx context.Context, id int64) (*models.Staff, error)
}

type staffRepository struct {
	db DB
}

func NewStaffRepository(db DB) StaffRepository {
	return &staffRepository{db: db}
}

// Create stores an already-hashed password. A duplicate email yields
// utils.ErrEmailExists.
func (r *staffRepository) Create(ctx context.Context, s *models.Staff) error {
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO staff (name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		s.Name, s.Email, s.PasswordHash, string(s.Role),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return utils.ErrEmailExists
	}
	return err
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	return scanStaff(conn(ctx, r.db).QueryRow(ctx, baseSelectStaff()+" WHERE email=$1", email))
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	return scanStaff(conn(ctx, r.db).QueryRow(ctx, baseSelectStaff()+" WHERE id=$1", id))
}

func baseSelectStaff() string {
	return `SELECT id, name, email, password_hash, role, created_at, updated_at FROM staff`
}

func scanStaff(row pgx.Row) (*models.Staff, error) {
	var s models.Staff
	var role string
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &role, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.Role = models.StaffRole(role)
	return &s, nil
}
