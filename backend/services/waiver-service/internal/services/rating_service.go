package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/config"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/metrics"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// TokenInfo is what a valid rating link shows before submission.
type TokenInfo struct {
	WaiverID     int64
	CustomerName string
	VisitDate    string
}

type FeedbackInput struct {
	Rating    int
	Issue     *string
	StaffName *string
	Message   *string
}

type RatingService interface {
	// IssueOrReuse returns the waiver's usable token, minting one when none
	// exists. Joins the caller's transaction.
	IssueOrReuse(ctx context.Context, waiverID int64) (*models.RatingToken, error)
	Validate(ctx context.Context, token string) (*TokenInfo, error)
	SubmitFiveStar(ctx context.Context, token string) (*models.Feedback, error)
	SubmitFeedback(ctx context.Context, token string, in FeedbackInput) (*models.Feedback, error)
	SubmitDetails(ctx context.Context, token string, issue, staffName, message *string) error
}

type ratingService struct {
	cfg          *config.Config
	tx           repositories.TxManager
	tokenRepo    repositories.RatingTokenRepository
	waiverRepo   repositories.WaiverRepository
	feedbackRepo repositories.FeedbackRepository
	metrics      *metrics.Registry
	now          func() time.Time
}

func NewRatingService(
	cfg *config.Config,
	tx repositories.TxManager,
	tokenRepo repositories.RatingTokenRepository,
	waiverRepo repositories.WaiverRepository,
	feedbackRepo repositories.FeedbackRepository,
	m *metrics.Registry,
) RatingService {
	return &ratingService{
		cfg:          cfg,
		tx:           tx,
		tokenRepo:    tokenRepo,
		waiverRepo:   waiverRepo,
		feedbackRepo: feedbackRepo,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *ratingService) IssueOrReuse(ctx context.Context, waiverID int64) (*models.RatingToken, error) {
	var out *models.RatingToken
	reused := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The waiver row lock makes issuance exactly-once per waiver.
		w, err := s.waiverRepo.GetByIDForUpdate(ctx, waiverID)
		if err != nil {
			return err
		}
		if w == nil {
			return utils.NewNotFoundError("waiver not found")
		}
		if !w.Status.IsCompleted() {
			return utils.NewInvalidTransitionError("rating tokens are only issued for completed waivers")
		}

		existing, err := s.tokenRepo.GetUsableByWaiver(ctx, waiverID)
		if err != nil {
			return err
		}
		if existing != nil {
			out, reused = existing, true
			return nil
		}

		if err := s.tokenRepo.DeleteExpiredUnused(ctx, waiverID); err != nil {
			return err
		}
		t := &models.RatingToken{
			WaiverID:  waiverID,
			Token:     uuid.NewString(),
			ExpiresAt: s.now().Add(s.cfg.RatingTokenTTL),
		}
		if err := s.tokenRepo.Create(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reused {
		s.metrics.RatingTokens.WithLabelValues("reused").Inc()
	} else {
		s.metrics.RatingTokens.WithLabelValues("issued").Inc()
	}
	return out, nil
}

func (s *ratingService) Validate(ctx context.Context, token string) (*TokenInfo, error) {
	t, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		s.metrics.RatingTokens.WithLabelValues("rejected").Inc()
		return nil, utils.NewNotFoundError("invalid token")
	}
	if err := s.usableErr(t); err != nil {
		s.metrics.RatingTokens.WithLabelValues("rejected").Inc()
		return nil, err
	}

	w, err := s.waiverRepo.GetByID(ctx, t.WaiverID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, utils.NewNotFoundError("invalid token")
	}

	info := &TokenInfo{WaiverID: w.ID}
	if w.CustomerSnapshot != nil {
		info.CustomerName = strings.TrimSpace(w.CustomerSnapshot.FirstName + " " + w.CustomerSnapshot.LastName)
	}
	if w.SignedAt != nil {
		info.VisitDate = w.SignedAt.Format(dateLayout)
	}
	return info, nil
}

func (s *ratingService) SubmitFiveStar(ctx context.Context, token string) (*models.Feedback, error) {
	return s.submit(ctx, token, FeedbackInput{Rating: 5})
}

func (s *ratingService) SubmitFeedback(ctx context.Context, token string, in FeedbackInput) (*models.Feedback, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, utils.NewValidationError("rating must be between 1 and 5")
	}
	in.Issue = utils.TrimPtr(in.Issue)
	in.StaffName = utils.TrimPtr(in.StaffName)
	in.Message = utils.TrimPtr(in.Message)
	return s.submit(ctx, token, in)
}

// submit consumes the token and writes the feedback row together. A second
// submission sees the token already used and writes nothing.
func (s *ratingService) submit(ctx context.Context, token string, in FeedbackInput) (*models.Feedback, error) {
	var out *models.Feedback
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.tokenRepo.Consume(ctx, token)
		if err != nil {
			return err
		}
		t, err := s.tokenRepo.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if t == nil {
			return utils.NewNotFoundError("invalid token")
		}
		if !ok {
			if t.Used {
				return utils.ErrTokenAlreadyUsed
			}
			return utils.ErrTokenExpired
		}

		w, err := s.waiverRepo.GetByID(ctx, t.WaiverID)
		if err != nil {
			return err
		}
		if w == nil {
			return utils.NewNotFoundError("waiver not found")
		}

		f := &models.Feedback{
			CustomerID: w.CustomerID,
			WaiverID:   &w.ID,
			Rating:     in.Rating,
			Issue:      in.Issue,
			StaffName:  in.StaffName,
			Message:    in.Message,
		}
		if err := s.feedbackRepo.Create(ctx, f); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		s.metrics.RatingTokens.WithLabelValues("rejected").Inc()
		return nil, err
	}

	s.metrics.RatingTokens.WithLabelValues("consumed").Inc()
	utils.Logger.Infof("Feedback %d (rating %d) recorded for waiver %d", out.ID, out.Rating, utils.Val(out.WaiverID))
	return out, nil
}

// SubmitDetails is the one follow-up allowed after a rating was submitted
// with token.
func (s *ratingService) SubmitDetails(ctx context.Context, token string, issue, staffName, message *string) error {
	t, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if t == nil {
		return utils.NewNotFoundError("invalid token")
	}
	if !t.Used {
		return utils.NewValidationError("submit a rating before adding details")
	}

	f, err := s.feedbackRepo.GetByWaiverID(ctx, t.WaiverID)
	if err != nil {
		return err
	}
	if f == nil {
		return utils.NewNotFoundError("feedback not found")
	}

	ok, err := s.feedbackRepo.SubmitDetails(ctx, t.WaiverID,
		utils.TrimPtr(issue), utils.TrimPtr(staffName), utils.TrimPtr(message))
	if err != nil {
		return err
	}
	if !ok {
		return utils.NewConflictError("feedback details were already submitted", nil)
	}
	return nil
}

func (s *ratingService) usableErr(t *models.RatingToken) error {
	switch {
	case t.Used:
		return utils.ErrTokenAlreadyUsed
	case t.Expired(s.now()):
		return utils.ErrTokenExpired
	}
	return nil
}
