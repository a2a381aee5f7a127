package dtos

import (
	"time"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
)

type AddStaffRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=staff admin"`
}

type StaffResponse struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      models.StaffRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

type HealthCheckResponse struct {
	Status string `json:"status"`
}
