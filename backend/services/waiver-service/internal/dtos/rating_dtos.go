package dtos

type ValidateTokenResponse struct {
	Valid        bool   `json:"valid"`
	WaiverID     int64  `json:"waiver_id"`
	CustomerName string `json:"customer_name"`
	VisitDate    string `json:"visit_date"`
}

type SubmitFiveStarRequest struct {
	Token string `json:"token" validate:"required,max=64"`
}
type SubmitFiveStarResponse struct {
	Message    string `json:"message"`
	FeedbackID int64  `json:"feedback_id"`
	ReviewURL  string `json:"review_url,omitempty"`
}

type SubmitFeedbackRequest struct {
	Token     string  `json:"token" validate:"required,max=64"`
	Rating    int     `json:"rating" validate:"required,min=1,max=5"`
	Issue     *string `json:"issue" validate:"omitempty,max=200"`
	StaffName *string `json:"staff_name" validate:"omitempty,max=100"`
	Message   *string `json:"message" validate:"omitempty,max=2000"`
}
type SubmitFeedbackResponse struct {
	Message    string `json:"message"`
	FeedbackID int64  `json:"feedback_id"`
}

type FeedbackDetailsRequest struct {
	Token     string  `json:"token" validate:"required,max=64"`
	Issue     *string `json:"issue" validate:"omitempty,max=200"`
	StaffName *string `json:"staff_name" validate:"omitempty,max=100"`
	Message   *string `json:"message" validate:"omitempty,max=2000"`
}
type FeedbackDetailsResponse struct {
	Message string `json:"message"`
}
