package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/colpool/colpool/cmd/colpoolctl/config"
)

var (
	cfgFile string
	verbose bool

	logger *slog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "colpoolctl",
	Short: "Diagnostics and telemetry for a colpool runtime",
	Long: `colpoolctl is colpool's operator-facing CLI: host/pool memory
diagnostics (diag) and a websocket telemetry server (serve) for pool
and collector lifecycle events.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := slog.LevelInfo
		if verbose || cfg.Log.Level == "debug" {
			level = slog.LevelDebug
		}
		var handler slog.Handler
		if cfg.Log.Format == "text" {
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		} else {
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
		return nil
	},
}

// Execute runs the root command, exiting the process with status 1 on
// error (cmd/client/main.go's shape).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to colpoolctl.yaml (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
