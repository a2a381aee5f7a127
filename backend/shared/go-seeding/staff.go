package seeding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

const DefaultAdminName = "Default Admin"

// SeedDefaultAdmin makes sure an admin account with email exists. Running it
// again is a no-op, also when another replica inserted the row first.
func SeedDefaultAdmin(ctx context.Context, staffRepo repositories.StaffRepository, email, password string) error {
	email, err := utils.NormalizeEmail(email)
	if err != nil {
		return fmt.Errorf("invalid default admin email: %w", err)
	}
	if len(strings.TrimSpace(password)) < 8 {
		return errors.New("default admin password must be at least 8 characters")
	}

	existing, err := staffRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking for existing admin by email: %w", err)
	}
	if existing != nil {
		utils.Logger.Infof("Default admin already exists (ID=%d); skipping seed.", existing.ID)
		return nil
	}

	hashedPass, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to bcrypt-hash default admin password: %w", err)
	}

	admin := &models.Staff{
		Name:         DefaultAdminName,
		Email:        email,
		PasswordHash: hashedPass,
		Role:         models.StaffRoleAdmin,
	}
	if err := staffRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, utils.ErrEmailExists) {
			utils.Logger.Info("Default admin inserted concurrently; skipping seed.")
			return nil
		}
		return fmt.Errorf("failed to insert default admin: %w", err)
	}

	utils.Logger.Infof("Successfully seeded default admin (ID=%d).", admin.ID)
	return nil
}
