package controllers

import (
	"net/http"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/dtos"
	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/services"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-middleware"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// AdminController serves the staff-only waiver review and staff management
// routes. Auth middleware runs before every handler here.
type AdminController struct {
	waivers services.WaiverService
	staff   services.StaffService
}

func NewAdminController(waivers services.WaiverService, staff services.StaffService) *AdminController {
	return &AdminController{waivers: waivers, staff: staff}
}

// GET /api/v1/admin/waivers/{id}
func (c *AdminController) GetWaiverHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := c.waivers.GetWaiver(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	wv := view.Waiver
	utils.RespondWithJSON(w, http.StatusOK, dtos.WaiverDetailResponse{
		ID:              wv.ID,
		CustomerID:      wv.CustomerID,
		Status:          wv.Status,
		SignedAt:        wv.SignedAt,
		SignatureImage:  wv.SignatureImage,
		RulesAccepted:   wv.RulesAccepted,
		Completed:       wv.Completed,
		VerifiedByStaff: int(wv.VerifiedByStaff),
		StaffID:         wv.StaffID,
		VerifiedAt:      wv.VerifiedAt,
		Source:          view.Source,
		Customer:        view.Customer,
		Minors:          view.Minors,
		RatingEmailSent: int(wv.RatingEmailSent),
		RatingSMSSent:   int(wv.RatingSMSSent),
		CreatedAt:       wv.CreatedAt,
	})
}

// POST /api/v1/admin/waivers/{id}/verify
func (c *AdminController) VerifyWaiverHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	staffID, ok := middleware.StaffIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}
	var req dtos.VerifyWaiverRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	wv, err := c.waivers.VerifyWaiver(r.Context(), id, *req.VerifiedByStaff, staffID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.VerifyWaiverResponse{
		Message: "Waiver verification updated",
		Status:  wv.Status,
	})
}

// POST /api/v1/admin/staff
func (c *AdminController) AddStaffHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.AddStaffRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	st, err := c.staff.AddStaff(r.Context(), req.Name, req.Email, req.Password, models.StaffRole(req.Role))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, dtos.StaffResponse{
		ID:        st.ID,
		Name:      st.Name,
		Email:     st.Email,
		Role:      st.Role,
		CreatedAt: st.CreatedAt,
	})
}
