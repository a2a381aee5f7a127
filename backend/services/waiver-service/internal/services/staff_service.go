package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type StaffService interface {
	AddStaff(ctx context.Context, name, email, password string, role models.StaffRole) (*models.Staff, error)
}

type staffService struct {
	staffRepo repositories.StaffRepository
}

func NewStaffService(staffRepo repositories.StaffRepository) StaffService {
	return &staffService{staffRepo: staffRepo}
}

func (s *staffService) AddStaff(
	ctx context.Context,
	name, email, password string,
	role models.StaffRole,
) (*models.Staff, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.NewValidationError("name is required")
	}
	email, err := utils.NormalizeEmail(email)
	if err != nil {
		return nil, utils.NewValidationError("invalid email address")
	}
	if len(password) < 8 {
		return nil, utils.NewValidationError("password must be at least 8 characters")
	}
	if role != models.StaffRoleStaff && role != models.StaffRoleAdmin {
		return nil, utils.NewValidationError("role must be staff or admin")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, utils.NewInternalError("failed to hash password", err)
	}

	st := &models.Staff{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.staffRepo.Create(ctx, st); err != nil {
		if errors.Is(err, utils.ErrEmailExists) {
			return nil, utils.NewConflictError("a staff member with this email already exists", err)
		}
		return nil, err
	}

	utils.Logger.Infof("Added %s account %d", role, st.ID)
	return st, nil
}
