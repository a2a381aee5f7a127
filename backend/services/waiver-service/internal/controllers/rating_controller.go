package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/dtos"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type RatingController struct {
	svc       services.RatingService
	reviewURL string
}

func NewRatingController(s services.RatingService, reviewURL string) *RatingController {
	return &RatingController{svc: s, reviewURL: reviewURL}
}

// -----------------------------------------------------------------------------
// GET /api/v1/rating/validate-token/{token}
// -----------------------------------------------------------------------------
func (c *RatingController) ValidateTokenHandler(w http.ResponseWriter, r *http.Request) {
	info, err := c.svc.Validate(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.ValidateTokenResponse{
		Valid:        true,
		WaiverID:     info.WaiverID,
		CustomerName: info.CustomerName,
		VisitDate:    info.VisitDate,
	})
}

// -----------------------------------------------------------------------------
// POST /api/v1/rating/submit-five-star
// -----------------------------------------------------------------------------
func (c *RatingController) SubmitFiveStarHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.SubmitFiveStarRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	f, err := c.svc.SubmitFiveStar(r.Context(), req.Token)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SubmitFiveStarResponse{
		Message:    "Thanks for the rating!",
		FeedbackID: f.ID,
		ReviewURL:  c.reviewURL,
	})
}

// -----------------------------------------------------------------------------
// POST /api/v1/rating/submit-feedback
// -----------------------------------------------------------------------------
func (c *RatingController) SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.SubmitFeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	f, err := c.svc.SubmitFeedback(r.Context(), req.Token, services.FeedbackInput{
		Rating:    req.Rating,
		Issue:     req.Issue,
		StaffName: req.StaffName,
		Message:   req.Message,
	})
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SubmitFeedbackResponse{
		Message:    "Thanks for your feedback",
		FeedbackID: f.ID,
	})
}

// -----------------------------------------------------------------------------
// POST /api/v1/rating/feedback-details
// -----------------------------------------------------------------------------
func (c *RatingController) FeedbackDetailsHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.FeedbackDetailsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.svc.SubmitDetails(r.Context(), req.Token, req.Issue, req.StaffName, req.Message); err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.FeedbackDetailsResponse{Message: "Details saved"})
}
