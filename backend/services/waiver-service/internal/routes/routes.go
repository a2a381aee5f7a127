package routes

const (
	// Ops
	Health  = "/health"
	Metrics = "/metrics"

	// Customer-facing kiosk flow
	Waivers             = "/api/v1/waivers"
	WaiverSaveSignature = "/api/v1/waivers/save-signature"
	WaiverAcceptRules   = "/api/v1/waivers/accept-rules"
	AuthSendOTP         = "/api/v1/auth/send-otp"
	AuthVerifyOTP       = "/api/v1/auth/verify-otp"
	CustomerLookup      = "/api/v1/customers/lookup"
	Customer            = "/api/v1/customers/{id}"

	// Rating links
	RatingValidateToken  = "/api/v1/rating/validate-token/{token}"
	RatingSubmitFiveStar = "/api/v1/rating/submit-five-star"
	RatingSubmitFeedback = "/api/v1/rating/submit-feedback"
	RatingFeedbackDetail = "/api/v1/rating/feedback-details"

	// Staff
	AdminWaiver       = "/api/v1/admin/waivers/{id}"
	AdminWaiverVerify = "/api/v1/admin/waivers/{id}/verify"
	AdminStaff        = "/api/v1/admin/staff"
)
