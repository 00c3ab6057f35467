package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reoring/revstream/internal/config"
)

var (
	cfg     *config.Config
	cfgPath string
)

// errInvalid reports that at least one input failed validation. The details
// have already been printed.
var errInvalid = errors.New("validation failed")

var rootCmd = &cobra.Command{
	Use:           "revstream",
	Short:         "Validate and store revenue stream definitions",
	Long:          "Validates revenue stream documents (JSON or YAML), serves a validation and storage API, and manages the backing store.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		config.ApplyLanguage(cfg.Validation)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ./revstream.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
