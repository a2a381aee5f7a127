package repositories

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// CustomerRepository defines the interface for customer persistence. Lookups
// return (nil, nil) when nothing matches.
type CustomerRepository interface {
	Create(ctx context.Context, c *models.Customer) error
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	UpdateIfVersion(ctx context.Context, c *models.Customer, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id int64, mutate func(*models.Customer) error) error
	UpdateSignature(ctx context.Context, id int64, signature string) error
	SetStatus(ctx context.Context, id int64, status models.CustomerStatus) error
	LockPhone(ctx context.Context, phone string) error
}

type customerRepo struct {
	*BaseVersionedRepo[*models.Customer]
	db     DB
	encKey []byte
}

func NewCustomerRepository(db DB, key []byte) CustomerRepository {
	r := &customerRepo{db: db, encKey: key}
	selectStmt := baseSelectCustomer() + " WHERE id=$1"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, r.scanCustomer)
	return r
}

func (r *customerRepo) Create(ctx context.Context, c *models.Customer) error {
	encSig, err := utils.EncryptOptional(r.encKey, c.SignatureImage)
	if err != nil {
		return err
	}

	row := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO customers (
			first_name, last_name, dob, address, city, province, postal_code, country,
			cell_phone, email, can_email, status, signature_image,
			created_at, updated_at, row_version
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), NOW(), NOW(), 1)
		RETURNING id, created_at, updated_at, row_version`,
		c.FirstName, c.LastName, c.DOB, c.Address, c.City, c.Province, c.PostalCode, c.Country,
		c.CellPhone, c.Email, c.CanEmail, int(c.Status), encSig,
	)
	return row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.RowVersion)
}

func (r *customerRepo) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id)
}

// GetByPhone returns the most recently updated customer with this phone.
func (r *customerRepo) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	row := conn(ctx, r.db).QueryRow(ctx,
		baseSelectCustomer()+" WHERE cell_phone=$1 ORDER BY updated_at DESC, id DESC LIMIT 1", phone)
	return r.scanCustomer(row)
}

// UpdateIfVersion writes the profile fields. The signature has its own
// writer so a profile edit never touches it.
func (r *customerRepo) UpdateIfVersion(ctx context.Context, c *models.Customer, expected int64) (pgconn.CommandTag, error) {
	return conn(ctx, r.db).Exec(ctx, `
		UPDATE customers SET
			first_name=$1, last_name=$2, dob=$3::date, address=$4, city=$5, province=$6,
			postal_code=$7, country=$8, cell_phone=$9, email=$10, can_email=$11, status=$12,
			updated_at=NOW(), row_version=row_version+1
		WHERE id=$13 AND row_version=$14`,
		c.FirstName, c.LastName, c.DOB, c.Address, c.City, c.Province,
		c.PostalCode, c.Country, c.CellPhone, c.Email, c.CanEmail, int(c.Status),
		c.ID, expected,
	)
}

func (r *customerRepo) UpdateWithRetry(ctx context.Context, id int64, mutate func(*models.Customer) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id, mutate, r.UpdateIfVersion)
}

func (r *customerRepo) UpdateSignature(ctx context.Context, id int64, signature string) error {
	enc, err := utils.Encrypt(r.encKey, signature)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE customers SET signature_image=$1, updated_at=NOW(), row_version=row_version+1
		WHERE id=$2`, enc, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return utils.ErrNoRowsUpdated
	}
	return nil
}

func (r *customerRepo) SetStatus(ctx context.Context, id int64, status models.CustomerStatus) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE customers SET status=$1, updated_at=NOW(), row_version=row_version+1
		WHERE id=$2 AND status<>$1`, int(status), id)
	return err
}

// LockPhone serializes writers for one phone until the surrounding
// transaction ends, which keeps phone unique among customers.
func (r *customerRepo) LockPhone(ctx context.Context, phone string) error {
	return AdvisoryLock(ctx, r.db, "customer:"+phone)
}

func baseSelectCustomer() string {
	return `
		SELECT id, first_name, last_name, to_char(dob, 'YYYY-MM-DD'),
		       address, city, province, postal_code, country,
		       cell_phone, email, can_email, status, signature_image,
		       row_version, created_at, updated_at
		FROM customers`
}

func (r *customerRepo) scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	var status int
	var encSig *string

	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.DOB,
		&c.Address, &c.City, &c.Province, &c.PostalCode, &c.Country,
		&c.CellPhone, &c.Email, &c.CanEmail, &status, &encSig,
		&c.RowVersion, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Status = models.CustomerStatus(status)

	if encSig != nil {
		sig, decErr := utils.Decrypt(r.encKey, *encSig)
		if decErr != nil {
			return nil, decErr
		}
		c.SignatureImage = sig
	}
	return &c, nil
}
