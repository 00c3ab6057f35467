package main

import (
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/revstream"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for revenue stream documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(revstream.JSONSchema())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
