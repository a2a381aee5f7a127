package services

import (
	"context"
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

const (
	WaiverSourceSnapshot = "snapshot"
	WaiverSourceLive     = "live"
)

type CreateWaiverResult struct {
	CustomerID int64
	WaiverID   int64
	OTPSent    bool
}

// WaiverView is a waiver with the people it covers. Signed waivers are
// rendered from their snapshots only.
type WaiverView struct {
	Waiver   *models.Waiver
	Source   string
	Customer *models.CustomerSnapshot
	Minors   []models.MinorSnapshot
}

type WaiverService interface {
	CreateWaiver(ctx context.Context, fields models.CustomerFields, minors []models.MinorInput, sendOTP bool) (*CreateWaiverResult, error)
	SaveSignature(ctx context.Context, customerID int64, signature string, consent bool, minors []models.MinorInput) (*models.Waiver, error)
	AcceptRules(ctx context.Context, customerID int64) (*models.Waiver, error)
	GetWaiver(ctx context.Context, id int64) (*WaiverView, error)
	VerifyWaiver(ctx context.Context, id int64, verified int, staffID int64) (*models.Waiver, error)
}

type waiverService struct {
	tx           repositories.TxManager
	waiverRepo   repositories.WaiverRepository
	customerRepo repositories.CustomerRepository
	minorRepo    repositories.MinorRepository
	customers    CustomerService
	otp          OTPService
	limiter      RateLimiterService
	kicker       Kicker
	metrics      *metrics.Registry
	now          func() time.Time
}

func NewWaiverService(
	tx repositories.TxManager,
	waiverRepo repositories.WaiverRepository,
	customerRepo repositories.CustomerRepository,
	minorRepo repositories.MinorRepository,
	customers CustomerService,
	otp OTPService,
	limiter RateLimiterService,
	kicker Kicker,
	m *metrics.Registry,
) WaiverService {
	return &waiverService{
		tx:           tx,
		waiverRepo:   waiverRepo,
		customerRepo: customerRepo,
		minorRepo:    minorRepo,
		customers:    customers,
		otp:          otp,
		limiter:      limiter,
		kicker:       kicker,
		metrics:      m,
		now:          time.Now,
	}
}

// CreateWaiver upserts the customer, replaces its minors and inserts an
// unsigned waiver in one transaction. With sendOTP the code is issued in the
// same transaction and the SMS goes out after commit.
func (s *waiverService) CreateWaiver(
	ctx context.Context,
	fields models.CustomerFields,
	minors []models.MinorInput,
	sendOTP bool,
) (*CreateWaiverResult, error) {
	if sendOTP {
		phone, err := utils.NormalizePhone(fields.CellPhone)
		if err != nil {
			return nil, utils.NewValidationError("invalid phone number")
		}
		if err := s.limiter.CheckPhoneRateLimit(ctx, phone); err != nil {
			return nil, err
		}
	}

	var result CreateWaiverResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.customers.UpsertCustomer(ctx, fields)
		if err != nil {
			return err
		}
		if minors != nil {
			if _, err := s.customers.ReplaceMinors(ctx, c.ID, minors); err != nil {
				return err
			}
		}

		w := &models.Waiver{CustomerID: c.ID}
		if err := s.waiverRepo.Create(ctx, w); err != nil {
			return err
		}

		if sendOTP {
			if err := s.otp.Issue(ctx, c.CellPhone); err != nil {
				return err
			}
		}

		result = CreateWaiverResult{CustomerID: c.ID, WaiverID: w.ID, OTPSent: sendOTP}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sendOTP {
		s.kicker.Kick()
	}
	s.metrics.WaiverTransitions.WithLabelValues(string(models.WaiverStatusCreated)).Inc()
	utils.Logger.Infof("Created waiver %d for customer %d", result.WaiverID, result.CustomerID)
	return &result, nil
}

// SaveSignature signs the customer's newest unsigned waiver, or a new one
// when the newest is already signed, and freezes both snapshots.
// A nil minors slice keeps the current active minors.
func (s *waiverService) SaveSignature(
	ctx context.Context,
	customerID int64,
	signature string,
	consent bool,
	minors []models.MinorInput,
) (*models.Waiver, error) {
	if err := utils.ValidateSignatureImage(signature); err != nil {
		return nil, utils.NewValidationError("a valid signature image is required")
	}
	if !consent {
		return nil, utils.NewValidationError("consent must be given before signing")
	}

	var out *models.Waiver
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.customerRepo.GetByID(ctx, customerID)
		if err != nil {
			return err
		}
		if c == nil {
			return utils.NewNotFoundError("customer not found")
		}
		// Serializes signings for one customer.
		if err := s.customerRepo.LockPhone(ctx, c.CellPhone); err != nil {
			return err
		}

		if minors != nil {
			if _, err := s.customers.ReplaceMinors(ctx, customerID, minors); err != nil {
				return err
			}
		}
		active, err := s.minorRepo.ListByCustomer(ctx, customerID, true)
		if err != nil {
			return err
		}
		snapshot := make([]models.MinorSnapshot, 0, len(active))
		for _, m := range active {
			snapshot = append(snapshot, m.Snapshot())
		}

		w, err := s.waiverRepo.GetLatestByCustomer(ctx, customerID, true)
		if err != nil {
			return err
		}
		if w == nil || w.Status != models.WaiverStatusCreated {
			w = &models.Waiver{CustomerID: customerID}
			if err := s.waiverRepo.Create(ctx, w); err != nil {
				return err
			}
		}

		if err := s.customerRepo.UpdateSignature(ctx, customerID, signature); err != nil {
			return err
		}
		if err := s.waiverRepo.MarkSigned(
			ctx, w.ID, signature, s.now(), snapshot, models.NewCustomerSnapshot(c),
		); err != nil {
			return err
		}

		out, err = s.waiverRepo.GetByID(ctx, w.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WaiverTransitions.WithLabelValues(string(models.WaiverStatusSigned)).Inc()
	utils.Logger.Infof("Waiver %d signed by customer %d (%d minors)", out.ID, customerID, len(out.MinorsSnapshot))
	return out, nil
}

// AcceptRules completes the customer's newest waiver. Older waivers are
// never touched.
func (s *waiverService) AcceptRules(ctx context.Context, customerID int64) (*models.Waiver, error) {
	var out *models.Waiver
	changed := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, err := s.waiverRepo.GetLatestByCustomer(ctx, customerID, true)
		if err != nil {
			return err
		}
		if w == nil {
			return utils.NewNotFoundError("no waiver found for this customer")
		}

		switch {
		case w.Status.IsCompleted():
			out = w
			return nil
		case w.Status != models.WaiverStatusSigned:
			return utils.NewInvalidTransitionError("waiver must be signed before rules can be accepted")
		}

		if err := s.waiverRepo.MarkRulesAccepted(ctx, w.ID); err != nil {
			return err
		}
		changed = true
		out, err = s.waiverRepo.GetByID(ctx, w.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.WaiverTransitions.WithLabelValues(string(models.WaiverStatusRulesAccepted)).Inc()
		utils.Logger.Infof("Rules accepted on waiver %d", out.ID)
	}
	return out, nil
}

func (s *waiverService) GetWaiver(ctx context.Context, id int64) (*WaiverView, error) {
	w, err := s.waiverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, utils.NewNotFoundError("waiver not found")
	}

	if w.Status != models.WaiverStatusCreated {
		if w.CustomerSnapshot == nil {
			utils.Logger.Warnf("Signed waiver %d has no customer snapshot", w.ID)
		}
		minors := w.MinorsSnapshot
		if minors == nil {
			minors = []models.MinorSnapshot{}
		}
		return &WaiverView{
			Waiver:   w,
			Source:   WaiverSourceSnapshot,
			Customer: w.CustomerSnapshot,
			Minors:   minors,
		}, nil
	}

	// Unsigned: nothing is frozen yet, show who it would cover today.
	c, err := s.customerRepo.GetByID(ctx, w.CustomerID)
	if err != nil {
		return nil, err
	}
	view := &WaiverView{Waiver: w, Source: WaiverSourceLive, Minors: []models.MinorSnapshot{}}
	if c == nil {
		return view, nil
	}
	view.Customer = models.NewCustomerSnapshot(c)

	active, err := s.minorRepo.ListByCustomer(ctx, c.ID, true)
	if err != nil {
		return nil, err
	}
	for _, m := range active {
		view.Minors = append(view.Minors, m.Snapshot())
	}
	return view, nil
}

// VerifyWaiver records the staff decision on a completed waiver. 0 resets
// it to pending.
func (s *waiverService) VerifyWaiver(ctx context.Context, id int64, verified int, staffID int64) (*models.Waiver, error) {
	v := models.StaffVerification(verified)
	if !v.Valid() {
		return nil, utils.NewValidationError("verified_by_staff must be 0, 1 or 2")
	}

	var out *models.Waiver
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, err := s.waiverRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return utils.NewNotFoundError("waiver not found")
		}
		if !w.Status.IsCompleted() {
			return utils.NewInvalidTransitionError("waiver must be completed before staff verification")
		}
		if err := s.waiverRepo.SetStaffVerification(ctx, id, v, staffID); err != nil {
			return err
		}
		out, err = s.waiverRepo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WaiverTransitions.WithLabelValues(string(out.Status)).Inc()
	utils.Logger.Infof("Staff %d set verification %d on waiver %d", staffID, verified, id)
	return out, nil
}
