package controllers

import (
	"net/http"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/dtos"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type WaiverController struct {
	svc services.WaiverService
}

func NewWaiverController(s services.WaiverService) *WaiverController {
	return &WaiverController{svc: s}
}

// -----------------------------------------------------------------------------
// POST /api/v1/waivers
// -----------------------------------------------------------------------------
func (c *WaiverController) CreateWaiverHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateWaiverRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := c.svc.CreateWaiver(r.Context(), req.ToModel(), dtos.ToMinorInputs(req.Minors), req.SendOTP)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, dtos.CreateWaiverResponse{
		CustomerID: res.CustomerID,
		WaiverID:   res.WaiverID,
		OTPSent:    res.OTPSent,
	})
}

// -----------------------------------------------------------------------------
// POST /api/v1/waivers/save-signature
// -----------------------------------------------------------------------------
func (c *WaiverController) SaveSignatureHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.SaveSignatureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wv, err := c.svc.SaveSignature(r.Context(), req.CustomerID, req.Signature, req.Consent, dtos.ToMinorInputs(req.Minors))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.SaveSignatureResponse{
		WaiverID: wv.ID,
		SignedAt: *wv.SignedAt,
	})
}

// -----------------------------------------------------------------------------
// POST /api/v1/waivers/accept-rules
// -----------------------------------------------------------------------------
func (c *WaiverController) AcceptRulesHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.AcceptRulesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wv, err := c.svc.AcceptRules(r.Context(), req.UserID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.AcceptRulesResponse{
		Message:  "Rules accepted",
		WaiverID: wv.ID,
	})
}
