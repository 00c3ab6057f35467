package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reoring/revstream/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the revenue stream tables in the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("migration complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
