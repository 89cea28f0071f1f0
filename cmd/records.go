package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oilpro/tanks-cli/internal/model"
	"github.com/oilpro/tanks-cli/internal/store"
)

var (
	recordsStatus string
	recordsTankID string
	recordsLimit  int
	recordsOffset int
)

var recordsCmd = &cobra.Command{
	Use:   "records [report-number]",
	Short: "List stored inspections, or show one by report number",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(args) == 1 {
			insp, err := st.GetInspectionByReportNumber(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "records")
			}
			if insp == nil {
				return eris.Errorf("records: no inspection with report number %s", args[0])
			}
			return enc.Encode(insp)
		}

		inspections, err := st.ListInspections(ctx, store.Filter{
			Status: model.InspectionStatus(recordsStatus),
			TankID: recordsTankID,
			Limit:  recordsLimit,
			Offset: recordsOffset,
		})
		if err != nil {
			return eris.Wrap(err, "records")
		}
		return enc.Encode(inspections)
	},
}

func init() {
	recordsCmd.Flags().StringVar(&recordsStatus, "status", "", "filter by status")
	recordsCmd.Flags().StringVar(&recordsTankID, "tank", "", "filter by tank ID")
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 0, "max records to return")
	recordsCmd.Flags().IntVar(&recordsOffset, "offset", 0, "records to skip")
	rootCmd.AddCommand(recordsCmd)
}
