package dtos

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,min=10,max=32"`
}
type SendOTPResponse struct {
	Message string `json:"message"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,min=10,max=32"`
	OTP   string `json:"otp" validate:"required,len=4,numeric"`
}

// VerifyOTPResponse carries the customer profile on success so the kiosk
// can go straight to the confirm-info step. SessionToken authorizes the
// customer profile routes for that customer.
type VerifyOTPResponse struct {
	Authenticated bool              `json:"authenticated"`
	Customer      *CustomerResponse `json:"customer,omitempty"`
	SessionToken  string            `json:"session_token,omitempty"`
}
