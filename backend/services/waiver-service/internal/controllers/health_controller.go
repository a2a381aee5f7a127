package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/services/waiver-service/internal/dtos"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// Pinger is satisfied by *app.App.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	app Pinger
}

func NewHealthController(a Pinger) *HealthController {
	return &HealthController{app: a}
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.app.Ping(ctx); err != nil {
		utils.RespondErrorWithCode(
			w,
			http.StatusServiceUnavailable,
			utils.ErrCodeInternal,
			"Service unhealthy",
			nil,
			err,
		)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.HealthCheckResponse{Status: "OK"})
}
