package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilpro/tanks-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetInspection_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM inspections WHERE report_number = \$1`).
		WithArgs("IMP-missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetInspectionByReportNumber(context.Background(), "IMP-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetInspection_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	insp := testInspection("IMP-700", "T-7")
	recordJSON, err := json.Marshal(insp)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM inspections WHERE report_number = \$1`).
		WithArgs("IMP-700").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(recordJSON))

	got, err := s.GetInspectionByReportNumber(context.Background(), "IMP-700")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T-7", got.TankID)
	assert.Equal(t, "IMP-700", got.ReportNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveInspection(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO inspections`).
		WithArgs(pgxmock.AnyArg(), "IMP-800", "T-8", "Draft", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	insp := testInspection("IMP-800", "T-8")
	require.NoError(t, s.SaveInspection(context.Background(), insp))
	assert.NotEmpty(t, insp.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListInspections(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	a, err := json.Marshal(testInspection("IMP-900", "T-1"))
	require.NoError(t, err)
	b, err := json.Marshal(testInspection("IMP-901", "T-2"))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM inspections`).
		WithArgs("", "", 100, 0).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(a).AddRow(b))

	got, err := s.ListInspections(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "IMP-900", got[0].ReportNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DashboardEntries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO dashboard_entries`).
		WithArgs(pgxmock.AnyArg(), "IMP-950", "T-3", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.CreateDashboardEntry(context.Background(), model.DashboardEntry{
		ReportNumber: "IMP-950",
		TankID:       "T-3",
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, report_number, tank_id, created_at FROM dashboard_entries`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "report_number", "tank_id", "created_at"}).
			AddRow("row-1", "IMP-950", "T-3", now))

	entries, err := s.ListDashboardEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "IMP-950", entries[0].ReportNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CleanupOrphanedEntries(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM dashboard_entries WHERE report_number NOT IN`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := s.CleanupOrphanedEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
