package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

func TestUpsertCustomer_UpdatesInPlaceByPhone(t *testing.T) {
	e := newTestEnv(t)

	first, err := e.customers.UpsertCustomer(e.ctx, sampleFields("(555) 123-4567"))
	require.NoError(t, err)
	require.Equal(t, "5551234567", first.CellPhone)
	require.Equal(t, models.CustomerStatusUnverified, first.Status)
	require.Equal(t, "M5V 1A1", first.PostalCode)

	fields := sampleFields("555.123.4567")
	fields.City = "Ottawa"
	second, err := e.customers.UpsertCustomer(e.ctx, fields)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "same phone must update the existing customer")
	require.Equal(t, "Ottawa", second.City)
	require.Greater(t, second.RowVersion, first.RowVersion)
}

func TestUpsertCustomer_Validation(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name   string
		mutate func(f *models.CustomerFields)
	}{
		{"missing first name", func(f *models.CustomerFields) { f.FirstName = "  " }},
		{"short phone", func(f *models.CustomerFields) { f.CellPhone = "12345" }},
		{"bad dob", func(f *models.CustomerFields) { f.DOB = "12/04/1988" }},
		{"future dob", func(f *models.CustomerFields) { f.DOB = "2099-01-01" }},
		{"bad email", func(f *models.CustomerFields) { f.Email = utils.Ptr("not-an-email") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := sampleFields("5551234567")
			tc.mutate(&f)
			_, err := e.customers.UpsertCustomer(e.ctx, f)
			require.ErrorIs(t, err, utils.ErrValidation)
		})
	}
}

func TestUpsertCustomer_NoEmailDisablesCanEmail(t *testing.T) {
	e := newTestEnv(t)

	f := sampleFields("5551234567")
	f.Email = utils.Ptr("   ")
	c, err := e.customers.UpsertCustomer(e.ctx, f)
	require.NoError(t, err)
	require.Nil(t, c.Email)
	require.False(t, c.CanEmail)
}

func TestLookupByPhone(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.customers.LookupByPhone(e.ctx, "5550000000")
	require.ErrorIs(t, err, utils.ErrNotFound)

	c, err := e.customers.UpsertCustomer(e.ctx, sampleFields("5551234567"))
	require.NoError(t, err)
	_, err = e.customers.ReplaceMinors(e.ctx, c.ID, []models.MinorInput{
		{FirstName: "Sam", LastName: "Lee", DOB: "2015-01-01"},
	})
	require.NoError(t, err)

	p, err := e.customers.LookupByPhone(e.ctx, "(555) 123-4567")
	require.NoError(t, err)
	require.Equal(t, c.ID, p.Customer.ID)
	require.Len(t, p.Minors, 1)

	_, err = e.customers.LookupByPhone(e.ctx, "abc")
	require.ErrorIs(t, err, utils.ErrValidation)
}

func TestReplaceMinors_Diff(t *testing.T) {
	e := newTestEnv(t)
	c, err := e.customers.UpsertCustomer(e.ctx, sampleFields("5551234567"))
	require.NoError(t, err)

	initial, err := e.customers.ReplaceMinors(e.ctx, c.ID, []models.MinorInput{
		{FirstName: "Sam", LastName: "Lee", DOB: "2015-01-01", IsNew: true},
		{FirstName: "Alex", LastName: "Lee", DOB: "2017-03-09", IsNew: true},
	})
	require.NoError(t, err)
	require.Len(t, initial, 2)
	sam, alex := initial[0], initial[1]

	// Rename Sam by id, drop Alex.
	active, err := e.customers.ReplaceMinors(e.ctx, c.ID, []models.MinorInput{
		{ID: &sam.ID, FirstName: "Samuel", LastName: "Lee", DOB: "2015-01-01"},
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, sam.ID, active[0].ID)
	require.Equal(t, "Samuel", active[0].FirstName)

	all, err := e.minorRepo.ListByCustomer(e.ctx, c.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2, "removed minors are deactivated, not deleted")
	for _, m := range all {
		if m.ID == alex.ID {
			require.Equal(t, models.MinorStatusInactive, m.Status)
		}
	}

	// Alex comes back without an id and is matched case-insensitively.
	active, err = e.customers.ReplaceMinors(e.ctx, c.ID, []models.MinorInput{
		{ID: &sam.ID, FirstName: "Samuel", LastName: "Lee", DOB: "2015-01-01"},
		{FirstName: "ALEX", LastName: "lee", DOB: "2017-03-09", IsNew: true},
	})
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, alex.ID, active[1].ID, "matching minor is reactivated instead of duplicated")

	all, err = e.minorRepo.ListByCustomer(e.ctx, c.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// Empty set deactivates everyone.
	active, err = e.customers.ReplaceMinors(e.ctx, c.ID, []models.MinorInput{})
	require.NoError(t, err)
	require.Empty(t, active)
	live, err := e.minorRepo.ListByCustomer(e.ctx, c.ID, true)
	require.NoError(t, err)
	require.Empty(t, live)
}

func TestReplaceMinors_LeavesInputUntouched(t *testing.T) {
	e := newTestEnv(t)
	c, err := e.customers.UpsertCustomer(e.ctx, sampleFields("5551234567"))
	require.NoError(t, err)

	desired := []models.MinorInput{
		{FirstName: "  Sam ", LastName: " Lee", DOB: "2015-01-01", IsNew: true},
	}
	active, err := e.customers.ReplaceMinors(e.ctx, c.ID, desired)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Sam", active[0].FirstName)
	require.Equal(t, "  Sam ", desired[0].FirstName, "caller's slice is not rewritten")
	require.Equal(t, " Lee", desired[0].LastName)
}

func TestReplaceMinors_RejectsForeignMinor(t *testing.T) {
	e := newTestEnv(t)
	a, err := e.customers.UpsertCustomer(e.ctx, sampleFields("5551234567"))
	require.NoError(t, err)
	b, err := e.customers.UpsertCustomer(e.ctx, sampleFields("5559876543"))
	require.NoError(t, err)

	bs, err := e.customers.ReplaceMinors(e.ctx, b.ID, []models.MinorInput{
		{FirstName: "Kim", LastName: "Park", DOB: "2016-02-02"},
	})
	require.NoError(t, err)

	_, err = e.customers.ReplaceMinors(e.ctx, a.ID, []models.MinorInput{
		{ID: &bs[0].ID, FirstName: "Kim", LastName: "Park", DOB: "2016-02-02"},
	})
	require.ErrorIs(t, err, utils.ErrValidation)

	still, err := e.minorRepo.ListByCustomer(e.ctx, b.ID, true)
	require.NoError(t, err)
	require.Len(t, still, 1)
}

func TestConfirmInfo(t *testing.T) {
	e := newTestEnv(t)
	a, err := e.customers.UpsertCustomer(e.ctx, sampleFields("5551234567"))
	require.NoError(t, err)
	_, err = e.customers.UpsertCustomer(e.ctx, sampleFields("5559876543"))
	require.NoError(t, err)

	t.Run("updates profile and minors", func(t *testing.T) {
		f := sampleFields("5551234567")
		f.Address = "99 Queen St"
		p, err := e.customers.ConfirmInfo(e.ctx, a.ID, f, []models.MinorInput{
			{FirstName: "Sam", LastName: "Lee", DOB: "2015-01-01"},
		})
		require.NoError(t, err)
		require.Equal(t, "99 Queen St", p.Customer.Address)
		require.Len(t, p.Minors, 1)
	})

	t.Run("phone owned by someone else", func(t *testing.T) {
		_, err := e.customers.ConfirmInfo(e.ctx, a.ID, sampleFields("5559876543"), nil)
		var appErr *utils.AppError
		require.True(t, errors.As(err, &appErr))
		require.Equal(t, utils.ErrCodeConflict, appErr.Code)

		c, err := e.customerRepo.GetByID(e.ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "5551234567", c.CellPhone)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := e.customers.ConfirmInfo(e.ctx, 424242, sampleFields("5550001111"), nil)
		require.ErrorIs(t, err, utils.ErrNotFound)
	})
}
