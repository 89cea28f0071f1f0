package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oilpro/tanks-cli/internal/importer"
	"github.com/oilpro/tanks-cli/internal/workbook"
)

var (
	importSheetName   string
	importSheetIndex  int
	importConcurrency int
	importJSONOut     bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import inspection spreadsheets into the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, _, err := initReconciler()
		if err != nil {
			return err
		}
		im := importer.New(rec, st)

		opts := workbook.Options{
			SheetName:  importSheetName,
			SheetIndex: importSheetIndex,
		}

		concurrency := importConcurrency
		if concurrency == 0 {
			concurrency = cfg.Import.Concurrency
		}

		if len(args) == 1 {
			res, err := im.ImportFile(ctx, args[0], opts)
			if err != nil {
				return eris.Wrap(err, "import")
			}
			if importJSONOut {
				return json.NewEncoder(os.Stdout).Encode(res)
			}
			zap.L().Info("import complete",
				zap.String("report_number", res.Inspection.ReportNumber),
				zap.String("tank_id", res.Inspection.TankID),
				zap.Int("diagnostics", len(res.Diagnostics)),
			)
			return nil
		}

		summary, err := im.ImportFiles(ctx, args, concurrency, opts)
		if err != nil {
			return eris.Wrap(err, "import batch")
		}
		if importJSONOut {
			return json.NewEncoder(os.Stdout).Encode(summary)
		}
		if summary.Failed > 0 {
			return eris.Errorf("import: %d of %d files failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSheetName, "sheet", "", "sheet name to read (default first sheet)")
	importCmd.Flags().IntVar(&importSheetIndex, "sheet-index", 0, "sheet index to read")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 0, "max concurrent imports (default from config)")
	importCmd.Flags().BoolVar(&importJSONOut, "json", false, "print results as JSON")
	rootCmd.AddCommand(importCmd)
}
