package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oilpro/tanks-cli/internal/importer"
)

var extractSave bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract inspection fields from an unstructured workbook via Claude",
	Long:  "Flattens the workbook to text, asks Claude to pull out inspection fields, and prints the raw field bag. With --save the bag is reconciled and imported.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ex, err := initExtractor()
		if err != nil {
			return err
		}

		bag, err := ex.ExtractFile(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		if !extractSave {
			return json.NewEncoder(os.Stdout).Encode(bag)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, _, err := initReconciler()
		if err != nil {
			return err
		}

		res, err := importer.New(rec, st).ImportBag(ctx, bag)
		if err != nil {
			return eris.Wrap(err, "extract: import")
		}

		zap.L().Info("extract complete",
			zap.String("report_number", res.Inspection.ReportNumber),
			zap.String("tank_id", res.Inspection.TankID),
			zap.Int("diagnostics", len(res.Diagnostics)),
		)
		return json.NewEncoder(os.Stdout).Encode(res)
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "reconcile and save the extracted fields")
	rootCmd.AddCommand(extractCmd)
}
