package dtos

import (
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

type CreateWaiverRequest struct {
	CustomerFields
	Minors  []MinorRequest `json:"minors" validate:"omitempty,max=20,dive"`
	SendOTP bool           `json:"send_otp"`
}
type CreateWaiverResponse struct {
	CustomerID int64 `json:"customerId"`
	WaiverID   int64 `json:"waiverId"`
	OTPSent    bool  `json:"otp_sent"`
}

type SaveSignatureRequest struct {
	CustomerID int64          `json:"id" validate:"required,gt=0"`
	Signature  string         `json:"signature" validate:"required"`
	Consent    bool           `json:"consent"`
	Minors     []MinorRequest `json:"minors" validate:"omitempty,max=20,dive"`
}
type SaveSignatureResponse struct {
	WaiverID int64     `json:"waiverId"`
	SignedAt time.Time `json:"signed_at"`
}

type AcceptRulesRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}
type AcceptRulesResponse struct {
	Message  string `json:"message"`
	WaiverID int64  `json:"waiverId"`
}

// WaiverDetailResponse is the staff view of one waiver. Customer and Minors
// come from the signing-time snapshot once the waiver is signed.
type WaiverDetailResponse struct {
	ID              int64                    `json:"id"`
	CustomerID      int64                    `json:"customer_id"`
	Status          models.WaiverStatus      `json:"status"`
	SignedAt        *time.Time               `json:"signed_at,omitempty"`
	SignatureImage  string                   `json:"signature_image,omitempty"`
	RulesAccepted   bool                     `json:"rules_accepted"`
	Completed       bool                     `json:"completed"`
	VerifiedByStaff int                      `json:"verified_by_staff"`
	StaffID         *int64                   `json:"staff_id,omitempty"`
	VerifiedAt      *time.Time               `json:"verified_at,omitempty"`
	Source          string                   `json:"source"`
	Customer        *models.CustomerSnapshot `json:"customer"`
	Minors          []models.MinorSnapshot   `json:"minors"`
	RatingEmailSent int                      `json:"rating_email_sent"`
	RatingSMSSent   int                      `json:"rating_sms_sent"`
	CreatedAt       time.Time                `json:"created_at"`
}

type VerifyWaiverRequest struct {
	VerifiedByStaff *int `json:"verified_by_staff" validate:"required"`
}
type VerifyWaiverResponse struct {
	Message string              `json:"message"`
	Status  models.WaiverStatus `json:"status"`
}
