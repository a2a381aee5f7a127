package controllers

import (
	"errors"
	"net/http"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/dtos"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-middleware"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type CustomerController struct {
	svc services.CustomerService
}

func NewCustomerController(s services.CustomerService) *CustomerController {
	return &CustomerController{svc: s}
}

// POST /api/v1/customers/lookup
//
// Answers existence only. The kiosk sends an OTP next and receives the
// profile from verify-otp.
func (c *CustomerController) LookupHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CustomerLookupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := c.svc.LookupByPhone(r.Context(), req.Phone)
	switch {
	case errors.Is(err, utils.ErrNotFound):
		utils.RespondWithJSON(w, http.StatusOK, dtos.CustomerLookupResponse{Exists: false})
	case err != nil:
		utils.HandleAppError(w, err)
	default:
		utils.RespondWithJSON(w, http.StatusOK, dtos.CustomerLookupResponse{Exists: true})
	}
}

// GET /api/v1/customers/{id}
func (c *CustomerController) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionCustomerID(w, r)
	if !ok {
		return
	}

	p, err := c.svc.GetCustomer(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NewCustomerResponse(p.Customer, p.Minors))
}

// PUT /api/v1/customers/{id}
func (c *CustomerController) ConfirmInfoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionCustomerID(w, r)
	if !ok {
		return
	}
	var req dtos.ConfirmInfoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := c.svc.ConfirmInfo(r.Context(), id, req.ToModel(), dtos.ToMinorInputs(req.Minors))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NewCustomerResponse(p.Customer, p.Minors))
}

// sessionCustomerID reads the path id and requires it to match the
// customer the session token was issued for.
func sessionCustomerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, false
	}
	sessionID, ok := middleware.CustomerIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Phone verification required", nil)
		return 0, false
	}
	if sessionID != id {
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, "Session does not belong to this customer", nil)
		return 0, false
	}
	return id, true
}
