package importer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/oilpro/tanks-cli/internal/model"
	"github.com/oilpro/tanks-cli/internal/reconcile"
	"github.com/oilpro/tanks-cli/internal/store"
	"github.com/oilpro/tanks-cli/internal/workbook"
)

// fakeStore is an in-memory Store for importer tests.
type fakeStore struct {
	inspections map[string]*model.Inspection
	entries     []model.DashboardEntry
	dropWrites  bool
	saveErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{inspections: map[string]*model.Inspection{}}
}

func (f *fakeStore) SaveInspection(_ context.Context, insp *model.Inspection) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.dropWrites {
		return nil
	}
	cp := *insp
	f.inspections[insp.ReportNumber] = &cp
	return nil
}

func (f *fakeStore) GetInspectionByReportNumber(_ context.Context, reportNumber string) (*model.Inspection, error) {
	insp, ok := f.inspections[reportNumber]
	if !ok {
		return nil, nil
	}
	return insp, nil
}

func (f *fakeStore) ListInspections(_ context.Context, _ store.Filter) ([]model.Inspection, error) {
	var out []model.Inspection
	for _, insp := range f.inspections {
		out = append(out, *insp)
	}
	return out, nil
}

func (f *fakeStore) CreateDashboardEntry(_ context.Context, entry model.DashboardEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) ListDashboardEntries(_ context.Context) ([]model.DashboardEntry, error) {
	return f.entries, nil
}

func (f *fakeStore) CleanupOrphanedEntries(_ context.Context) (int, error) { return 0, nil }
func (f *fakeStore) Migrate(_ context.Context) error                      { return nil }
func (f *fakeStore) Close() error                                         { return nil }

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "inspection.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestImportBag(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	im := New(reconcile.New(), st)

	res, err := im.ImportBag(context.Background(), model.RawFieldBag{
		"tank_id":   "T-12",
		"service":   "crude_oil",
		"inspector": "R. Osei",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Inspection)
	assert.Equal(t, "T-12", res.Inspection.TankID)
	assert.Equal(t, "Crude Oil", res.Inspection.Service)

	require.Len(t, st.entries, 1)
	assert.Equal(t, res.Inspection.ReportNumber, st.entries[0].ReportNumber)
	assert.Equal(t, "T-12", st.entries[0].TankID)
}

func TestImportBagNotVerified(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	st.dropWrites = true
	im := New(reconcile.New(), st)

	_, err := im.ImportBag(context.Background(), model.RawFieldBag{"tank_id": "T-12"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotVerified)
	assert.Empty(t, st.entries)
}

func TestImportBagInvalidInput(t *testing.T) {
	t.Parallel()

	im := New(reconcile.New(), newFakeStore())

	_, err := im.ImportBag(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestImportFile(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]string{
		{"Tank ID", "Service", "Inspector", "Diameter"},
		{"TK-300", "diesel", "M. Petrov", "84"},
	})

	st := newFakeStore()
	im := New(reconcile.New(), st)

	res, err := im.ImportFile(context.Background(), path, workbook.Options{})
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "TK-300", res.Inspection.TankID)
	assert.Equal(t, "Diesel", res.Inspection.Service)
	assert.Equal(t, 84.0, res.Inspection.Diameter)
}

func TestImportFileMissing(t *testing.T) {
	t.Parallel()

	im := New(reconcile.New(), newFakeStore())

	_, err := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), workbook.Options{})
	require.Error(t, err)
}

func TestImportFilesBatch(t *testing.T) {
	t.Parallel()

	a := writeWorkbook(t, [][]string{
		{"Tank ID", "Service"},
		{"TK-1", "gasoline"},
	})
	b := writeWorkbook(t, [][]string{
		{"Tank ID", "Service"},
		{"TK-2", "diesel"},
	})
	missing := filepath.Join(t.TempDir(), "missing.xlsx")

	st := newFakeStore()
	im := New(reconcile.New(), st)

	summary, err := im.ImportFiles(context.Background(), []string{a, b, missing}, 2, workbook.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Results, 2)
	assert.Len(t, st.entries, 2)
}
