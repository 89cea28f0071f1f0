package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove dashboard entries whose inspection no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		removed, err := st.CleanupOrphanedEntries(ctx)
		if err != nil {
			return eris.Wrap(err, "cleanup")
		}

		zap.L().Info("cleanup complete", zap.Int("removed", removed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
