package seeding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

type memStaffRepo struct {
	byEmail map[string]*models.Staff
	creates int
}

func (m *memStaffRepo) Create(_ context.Context, s *models.Staff) error {
	if _, ok := m.byEmail[s.Email]; ok {
		return utils.ErrEmailExists
	}
	m.creates++
	s.ID = int64(len(m.byEmail) + 1)
	m.byEmail[s.Email] = s
	return nil
}

func (m *memStaffRepo) GetByEmail(_ context.Context, email string) (*models.Staff, error) {
	return m.byEmail[email], nil
}

func (m *memStaffRepo) GetByID(_ context.Context, id int64) (*models.Staff, error) {
	for _, s := range m.byEmail {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func TestSeedDefaultAdminIsIdempotent(t *testing.T) {
	repo := &memStaffRepo{byEmail: map[string]*models.Staff{}}
	ctx := context.Background()

	require.NoError(t, SeedDefaultAdmin(ctx, repo, "Admin@Example.com", "P@ssword123"))
	require.NoError(t, SeedDefaultAdmin(ctx, repo, "admin@example.com", "P@ssword123"))
	assert.Equal(t, 1, repo.creates)

	admin := repo.byEmail["admin@example.com"]
	require.NotNil(t, admin)
	assert.Equal(t, models.StaffRoleAdmin, admin.Role)
	assert.True(t, utils.CheckPasswordHash("P@ssword123", admin.PasswordHash))
}

func TestSeedDefaultAdminRejectsBadInput(t *testing.T) {
	repo := &memStaffRepo{byEmail: map[string]*models.Staff{}}
	require.Error(t, SeedDefaultAdmin(context.Background(), repo, "not-an-email", "P@ssword123"))
	require.Error(t, SeedDefaultAdmin(context.Background(), repo, "admin@example.com", "short"))
	assert.Zero(t, repo.creates)
}
