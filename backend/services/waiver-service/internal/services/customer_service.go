package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

const dateLayout = "2006-01-02"

// CustomerProfile is a customer with its currently active minors.
type CustomerProfile struct {
	Customer *models.Customer
	Minors   []*models.Minor
}

// CustomerService owns customers and minors. UpsertCustomer and
// ReplaceMinors join the caller's transaction when ctx carries one.
type CustomerService interface {
	LookupByPhone(ctx context.Context, rawPhone string) (*CustomerProfile, error)
	GetCustomer(ctx context.Context, id int64) (*CustomerProfile, error)
	UpsertCustomer(ctx context.Context, fields models.CustomerFields) (*models.Customer, error)
	ReplaceMinors(ctx context.Context, customerID int64, desired []models.MinorInput) ([]*models.Minor, error)
	ConfirmInfo(ctx context.Context, id int64, fields models.CustomerFields, minors []models.MinorInput) (*CustomerProfile, error)
}

type customerService struct {
	tx           repositories.TxManager
	customerRepo repositories.CustomerRepository
	minorRepo    repositories.MinorRepository
	now          func() time.Time
}

func NewCustomerService(
	tx repositories.TxManager,
	customerRepo repositories.CustomerRepository,
	minorRepo repositories.MinorRepository,
) CustomerService {
	return &customerService{
		tx:           tx,
		customerRepo: customerRepo,
		minorRepo:    minorRepo,
		now:          time.Now,
	}
}

func (s *customerService) LookupByPhone(ctx context.Context, rawPhone string) (*CustomerProfile, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return nil, utils.NewValidationError("invalid phone number")
	}
	c, err := s.customerRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, utils.NewNotFoundError("no customer with this phone number")
	}
	return s.profile(ctx, c)
}

func (s *customerService) GetCustomer(ctx context.Context, id int64) (*CustomerProfile, error) {
	c, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, utils.NewNotFoundError("customer not found")
	}
	return s.profile(ctx, c)
}

func (s *customerService) profile(ctx context.Context, c *models.Customer) (*CustomerProfile, error) {
	minors, err := s.minorRepo.ListByCustomer(ctx, c.ID, true)
	if err != nil {
		return nil, err
	}
	return &CustomerProfile{Customer: c, Minors: minors}, nil
}

// UpsertCustomer updates the customer holding the same phone in place, or
// inserts a new unverified one.
func (s *customerService) UpsertCustomer(ctx context.Context, fields models.CustomerFields) (*models.Customer, error) {
	fields, err := normalizeCustomerFields(fields, s.now())
	if err != nil {
		return nil, err
	}

	var out *models.Customer
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.customerRepo.LockPhone(ctx, fields.CellPhone); err != nil {
			return err
		}
		existing, err := s.customerRepo.GetByPhone(ctx, fields.CellPhone)
		if err != nil {
			return err
		}

		if existing == nil {
			c := &models.Customer{Status: models.CustomerStatusUnverified}
			fields.Apply(c)
			if err := s.customerRepo.Create(ctx, c); err != nil {
				return err
			}
			out = c
			return nil
		}

		if err := s.customerRepo.UpdateWithRetry(ctx, existing.ID, func(c *models.Customer) error {
			fields.Apply(c)
			return nil
		}); err != nil {
			return err
		}
		out, err = s.customerRepo.GetByID(ctx, existing.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceMinors makes desired the customer's active minors set:
//   - an entry with an id updates that minor, which must belong to the customer
//   - an entry without id reactivates a minor with the same name and dob, or inserts one
//   - active minors not in the set are deactivated, never deleted
func (s *customerService) ReplaceMinors(
	ctx context.Context,
	customerID int64,
	desired []models.MinorInput,
) ([]*models.Minor, error) {
	now := s.now()
	normalized := make([]models.MinorInput, 0, len(desired))
	for _, d := range desired {
		n, err := normalizeMinor(d, now)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, n)
	}
	desired = normalized

	var active []*models.Minor
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.minorRepo.ListByCustomer(ctx, customerID, false)
		if err != nil {
			return err
		}
		byID := make(map[int64]*models.Minor, len(existing))
		for _, m := range existing {
			byID[m.ID] = m
		}

		kept := make(map[int64]bool, len(desired))
		keep := make([]int64, 0, len(desired))
		active = make([]*models.Minor, 0, len(desired))

		for _, d := range desired {
			var target *models.Minor
			if d.ID != nil {
				m, ok := byID[*d.ID]
				if !ok {
					return utils.NewValidationError(fmt.Sprintf("minor %d does not belong to this customer", *d.ID))
				}
				target = m
			} else {
				target = matchMinor(existing, kept, d)
			}
			if target != nil && kept[target.ID] {
				continue
			}

			if target == nil {
				m := &models.Minor{
					CustomerID: customerID,
					FirstName:  d.FirstName,
					LastName:   d.LastName,
					DOB:        d.DOB,
					Status:     models.MinorStatusActive,
				}
				if err := s.minorRepo.Create(ctx, m); err != nil {
					return err
				}
				target = m
			} else {
				target.FirstName = d.FirstName
				target.LastName = d.LastName
				target.DOB = d.DOB
				target.Status = models.MinorStatusActive
				if err := s.minorRepo.Update(ctx, target); err != nil {
					return err
				}
			}

			kept[target.ID] = true
			keep = append(keep, target.ID)
			active = append(active, target)
		}

		return s.minorRepo.DeactivateExcept(ctx, customerID, keep)
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}

// ConfirmInfo is the returning-customer edit step. A phone change that
// collides with another customer is rejected.
func (s *customerService) ConfirmInfo(
	ctx context.Context,
	id int64,
	fields models.CustomerFields,
	minors []models.MinorInput,
) (*CustomerProfile, error) {
	fields, err := normalizeCustomerFields(fields, s.now())
	if err != nil {
		return nil, err
	}

	var profile *CustomerProfile
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.customerRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return utils.NewNotFoundError("customer not found")
		}

		if fields.CellPhone != current.CellPhone {
			if err := s.customerRepo.LockPhone(ctx, fields.CellPhone); err != nil {
				return err
			}
			other, err := s.customerRepo.GetByPhone(ctx, fields.CellPhone)
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return utils.NewConflictError("phone number belongs to another customer", nil)
			}
		}

		if err := s.customerRepo.UpdateWithRetry(ctx, id, func(c *models.Customer) error {
			fields.Apply(c)
			return nil
		}); err != nil {
			return err
		}

		if minors != nil {
			if _, err := s.ReplaceMinors(ctx, id, minors); err != nil {
				return err
			}
		}

		updated, err := s.customerRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		profile, err = s.profile(ctx, updated)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func matchMinor(existing []*models.Minor, kept map[int64]bool, d models.MinorInput) *models.Minor {
	for _, m := range existing {
		if kept[m.ID] {
			continue
		}
		if strings.EqualFold(m.FirstName, d.FirstName) &&
			strings.EqualFold(m.LastName, d.LastName) &&
			m.DOB == d.DOB {
			return m
		}
	}
	return nil
}

func normalizeCustomerFields(f models.CustomerFields, now time.Time) (models.CustomerFields, error) {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	if f.FirstName == "" || f.LastName == "" {
		return f, utils.NewValidationError("first_name and last_name are required")
	}
	if err := validateDOB(f.DOB, now); err != nil {
		return f, err
	}

	phone, err := utils.NormalizePhone(f.CellPhone)
	if err != nil {
		return f, utils.NewValidationError("invalid phone number")
	}
	f.CellPhone = phone

	f.Email = utils.TrimPtr(f.Email)
	if f.Email != nil {
		email, err := utils.NormalizeEmail(*f.Email)
		if err != nil {
			return f, utils.NewValidationError("invalid email address")
		}
		f.Email = &email
	}
	if f.Email == nil {
		f.CanEmail = false
	}

	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.PostalCode = strings.ToUpper(strings.TrimSpace(f.PostalCode))
	f.Country = strings.TrimSpace(f.Country)
	f.Province, _ = utils.NormalizeRegion(f.Province)
	return f, nil
}

func normalizeMinor(m models.MinorInput, now time.Time) (models.MinorInput, error) {
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	if m.FirstName == "" || m.LastName == "" {
		return m, utils.NewValidationError("minor first_name and last_name are required")
	}
	if err := validateDOB(m.DOB, now); err != nil {
		return m, err
	}
	return m, nil
}

func validateDOB(dob string, now time.Time) error {
	d, err := time.Parse(dateLayout, dob)
	if err != nil {
		return utils.NewValidationError("dob must be formatted YYYY-MM-DD")
	}
	if d.After(now) {
		return utils.NewValidationError("dob cannot be in the future")
	}
	return nil
}
