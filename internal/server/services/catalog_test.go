package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/timex"
)

func newCatalogFixture(t *testing.T) (*CatalogService, *store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	st := newStore()
	svc := NewCatalogService(db, &fakeRepoManager{st}, nopLogger())
	svc.now = clock
	return svc, st, mock
}

func TestCatalogService_CreatePackage(t *testing.T) {
	svc, st, mock := newCatalogFixture(t)
	expectCommits(mock, 1)

	f := parisFields(2, 10)
	f.Destination = "  Paris  "
	f.Description = " City of light "
	p, err := svc.CreatePackage(context.Background(), admin, f)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Paris", p.Destination)
	assert.Equal(t, "City of light", p.Description)

	require.Len(t, st.audit, 1)
	e := st.audit[0]
	assert.Equal(t, models.ActionPackageCreate, e.Action)
	assert.Equal(t, admin.ID, e.UserID)
	require.NotNil(t, e.PackageID)
	assert.Equal(t, p.ID, *e.PackageID)
	assert.Nil(t, e.ClientID)
	assert.Equal(t, `Package "Paris" created by alice.`, e.Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_CreatePackage_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PackageFields)
		field  string
	}{
		{"start today", func(f *models.PackageFields) { f.StartDate = fixedNow; f.EndDate = fixedNow.AddDate(0, 0, 3) }, "start_date"},
		{"start in past", func(f *models.PackageFields) { f.StartDate = fixedNow.AddDate(0, 0, -2) }, "start_date"},
		{"end before start", func(f *models.PackageFields) { f.EndDate = f.StartDate }, "end_date"},
		{"zero price", func(f *models.PackageFields) { f.Price = 0 }, "price"},
		{"max below min", func(f *models.PackageFields) { f.MinSlots, f.MaxSlots = 5, 4 }, "max_slots"},
		{"unknown category", func(f *models.PackageFields) { f.Category = "Premium" }, "category"},
		{"short destination", func(f *models.PackageFields) { f.Destination = " ab " }, "destination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, mock := newCatalogFixture(t)
			f := parisFields(1, 5)
			tt.mutate(&f)

			_, err := svc.CreatePackage(context.Background(), admin, f)
			var verr *common.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			fields := make([]string, 0, len(verr.Fields))
			for _, fe := range verr.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
			assert.Empty(t, st.packages)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCatalogService_MutationsRequireAdmin(t *testing.T) {
	svc, st, mock := newCatalogFixture(t)
	p := st.addPackage(parisFields(1, 5))

	_, err := svc.CreatePackage(context.Background(), clerk, parisFields(1, 5))
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = svc.UpdatePackage(context.Background(), clerk, p.ID, parisFields(1, 5))
	assert.ErrorIs(t, err, common.ErrorForbidden)

	err = svc.DeletePackage(context.Background(), clerk, p.ID)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	assert.Len(t, st.packages, 1)
	assert.Empty(t, st.audit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_UpdatePackage(t *testing.T) {
	svc, st, mock := newCatalogFixture(t)
	p := st.addPackage(parisFields(1, 5))
	expectCommits(mock, 1)

	f := parisFields(1, 8)
	f.Destination = "Lyon"
	// Updates do not require a future start date.
	f.StartDate = fixedNow.AddDate(0, 0, -1)
	f.EndDate = fixedNow.AddDate(0, 0, 3)

	got, err := svc.UpdatePackage(context.Background(), admin, p.ID, f)
	require.NoError(t, err)
	assert.Equal(t, "Lyon", got.Destination)
	assert.Equal(t, 8, got.MaxSlots)
	assert.Equal(t, "Lyon", st.packages[p.ID].Destination)

	require.Len(t, st.audit, 1)
	assert.Equal(t, models.ActionPackageEdit, st.audit[0].Action)
	assert.Equal(t, `Package "Lyon" edited by alice.`, st.audit[0].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_UpdatePackage_NotFound(t *testing.T) {
	svc, _, mock := newCatalogFixture(t)
	expectRollback(mock)

	_, err := svc.UpdatePackage(context.Background(), admin, 42, parisFields(1, 5))
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_DeletePackage_CascadesReservations(t *testing.T) {
	svc, st, mock := newCatalogFixture(t)
	p := st.addPackage(parisFields(1, 5))
	other := st.addPackage(parisFields(1, 5))
	st.addReservations(p.ID, 2)
	st.addReservations(other.ID, 1)
	expectCommits(mock, 1)

	require.NoError(t, svc.DeletePackage(context.Background(), admin, p.ID))

	assert.NotContains(t, st.packages, p.ID)
	assert.Len(t, st.reservations, 1)
	require.Len(t, st.audit, 1)
	assert.Equal(t, models.ActionPackageDelete, st.audit[0].Action)
	assert.Equal(t, `Package "Paris" deleted by alice. 2 reservation(s) removed.`, st.audit[0].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_DeletePackage_Missing(t *testing.T) {
	svc, st, mock := newCatalogFixture(t)
	expectRollback(mock)

	err := svc.DeletePackage(context.Background(), admin, 7)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Empty(t, st.audit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_DeletePackage_AuditFailureRollsBack(t *testing.T) {
	svc, st, mock := newCatalogFixture(t)
	p := st.addPackage(parisFields(1, 5))
	st.fail["audit.Append"] = errors.New("boom")
	expectRollback(mock)

	err := svc.DeletePackage(context.Background(), admin, p.ID)
	assert.ErrorIs(t, err, common.ErrorPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_AvailableSlots(t *testing.T) {
	svc, st, _ := newCatalogFixture(t)
	p := st.addPackage(parisFields(1, 5))
	st.addReservations(p.ID, 3)

	n, err := svc.AvailableSlots(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, err := svc.GetPackage(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, d.AvailableSlots)
	assert.Equal(t, p.ID, d.ID)

	_, err = svc.AvailableSlots(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCatalogService_GetPackage_StoreError(t *testing.T) {
	svc, st, _ := newCatalogFixture(t)
	p := st.addPackage(parisFields(1, 5))
	st.fail["packages.Get"] = errors.New("connection reset")

	_, err := svc.GetPackage(context.Background(), p.ID)
	assert.ErrorIs(t, err, common.ErrorPersistence)
}

func TestCatalogService_ListPackages(t *testing.T) {
	svc, st, _ := newCatalogFixture(t)
	for i := 0; i < 12; i++ {
		f := parisFields(1, 5)
		f.StartDate = fixedNow.AddDate(0, 0, 12-i)
		f.EndDate = f.StartDate.AddDate(0, 0, 3)
		st.addPackage(f)
	}

	page, err := svc.ListPackages(context.Background(), models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, common.DefaultPackagesPageSize, page.PageSize)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.Pages())
	require.Len(t, page.Items, 10)
	assert.True(t, page.Items[0].StartDate.Before(page.Items[1].StartDate))

	page, err = svc.ListPackages(context.Background(), models.PageRequest{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestCatalogService_OfferablePackages(t *testing.T) {
	svc, st, _ := newCatalogFixture(t)

	rome := parisFields(1, 5)
	rome.Destination = "Rome"
	st.addPackage(rome)

	today := parisFields(1, 5)
	today.Destination = "Berlin"
	today.StartDate = timex.DateOf(fixedNow)
	st.addPackage(today)

	past := parisFields(1, 5)
	past.Destination = "Athens"
	past.StartDate = fixedNow.AddDate(0, 0, -3)
	st.addPackage(past)

	items, err := svc.OfferablePackages(context.Background())
	require.NoError(t, err)
	names := []string{}
	for _, p := range items {
		names = append(names, p.Destination)
	}
	assert.Equal(t, []string{"Berlin", "Rome"}, names)
}

func TestCatalogService_OfferablePackages_EmptyIsNotNil(t *testing.T) {
	svc, _, _ := newCatalogFixture(t)

	items, err := svc.OfferablePackages(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
