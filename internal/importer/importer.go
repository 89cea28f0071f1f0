// Package importer drives the spreadsheet-to-store import flow: read the
// first record from a workbook, reconcile it into a canonical inspection,
// persist it, verify the write, and register a dashboard entry.
package importer

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oilpro/tanks-cli/internal/model"
	"github.com/oilpro/tanks-cli/internal/reconcile"
	"github.com/oilpro/tanks-cli/internal/store"
	"github.com/oilpro/tanks-cli/internal/workbook"
)

// Result describes one completed import.
type Result struct {
	Path        string             `json:"path,omitempty"`
	Inspection  *model.Inspection  `json:"inspection"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
}

// Summary aggregates a bulk import run.
type Summary struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// Importer ties the reconciler to a backing store.
type Importer struct {
	rec   *reconcile.Reconciler
	store store.Store
}

func New(rec *reconcile.Reconciler, st store.Store) *Importer {
	return &Importer{rec: rec, store: st}
}

// ImportFile reads the first record from the workbook at path and imports it.
// Tank identifiers shaped like spreadsheet filenames are screened out during
// reconciliation, so a cell that echoes the upload name is never stored.
func (im *Importer) ImportFile(ctx context.Context, path string, opts workbook.Options) (*Result, error) {
	bag, err := workbook.FirstRecord(path, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read %s", path)
	}

	res, err := im.ImportBag(ctx, bag)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: import %s", filepath.Base(path))
	}
	res.Path = path
	return res, nil
}

// ImportBag reconciles a raw field bag, saves the resulting inspection,
// verifies it can be read back, and creates its dashboard entry.
func (im *Importer) ImportBag(ctx context.Context, bag model.RawFieldBag) (*Result, error) {
	insp, diags, err := im.rec.Reconcile(bag)
	if err != nil {
		return nil, err
	}

	for _, d := range diags {
		zap.L().Warn("importer: field diagnostic",
			zap.String("field", d.Field),
			zap.String("kind", string(d.Kind)),
			zap.String("detail", d.Detail),
		)
	}

	if err := im.store.SaveInspection(ctx, insp); err != nil {
		return nil, eris.Wrapf(err, "importer: save %s", insp.ReportNumber)
	}

	// Read back what we just wrote. A miss here means the record never
	// landed and the import must not be reported as successful.
	saved, err := im.store.GetInspectionByReportNumber(ctx, insp.ReportNumber)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: verify %s", insp.ReportNumber)
	}
	if saved == nil {
		return nil, eris.Wrapf(model.ErrNotVerified, "importer: inspection %s not found after save", insp.ReportNumber)
	}

	if err := im.store.CreateDashboardEntry(ctx, model.DashboardEntry{
		ReportNumber: saved.ReportNumber,
		TankID:       saved.TankID,
	}); err != nil {
		return nil, eris.Wrapf(err, "importer: dashboard entry %s", saved.ReportNumber)
	}

	zap.L().Info("importer: inspection imported",
		zap.String("report_number", saved.ReportNumber),
		zap.String("tank_id", saved.TankID),
		zap.Int("diagnostics", len(diags)),
	)

	return &Result{Inspection: saved, Diagnostics: diags}, nil
}

// ImportFiles imports multiple workbooks concurrently. Individual failures
// are logged and counted; they do not abort the batch.
func (im *Importer) ImportFiles(ctx context.Context, paths []string, concurrency int, opts workbook.Options) (*Summary, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var results []Result
	var succeeded, failed atomic.Int64

	for _, path := range paths {
		g.Go(func() error {
			res, err := im.ImportFile(gCtx, path, opts)
			if err != nil {
				failed.Add(1)
				zap.L().Error("importer: file failed",
					zap.String("path", path),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	zap.L().Info("importer: batch complete",
		zap.Int("total", len(paths)),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)

	return &Summary{
		Total:     len(paths),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Results:   results,
	}, nil
}
