package controllers

import (
	"net/http"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/dtos"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type OTPController struct {
	svc services.OTPService
}

func NewOTPController(s services.OTPService) *OTPController {
	return &OTPController{svc: s}
}

// POST /api/v1/auth/send-otp
func (c *OTPController) SendOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.SendOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := c.svc.SendOTP(r.Context(), req.Phone, utils.ClientIP(r)); err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SendOTPResponse{Message: "Verification code sent"})
}

// POST /api/v1/auth/verify-otp
//
// A wrong, expired or replaced code answers 200 with authenticated=false.
func (c *OTPController) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.svc.Verify(r.Context(), req.Phone, req.OTP, utils.ClientIP(r))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	resp := dtos.VerifyOTPResponse{Authenticated: res.Authenticated, SessionToken: res.SessionToken}
	if res.Profile != nil {
		resp.Customer = dtos.NewCustomerResponse(res.Profile.Customer, res.Profile.Minors)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
