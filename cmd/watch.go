package cmd

import (
	"github.com/spf13/cobra"

	"docsweep/internal/logger"
	"docsweep/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan the OneDrive folder repeatedly",
	Long: `Run a scan immediately and then once every SCAN_INTERVAL (default one
hour) until interrupted. A failed scan is logged and the next one runs on
schedule.`,
	Example: `  # Scan every hour
  docsweep watch

  # Scan every ten minutes
  docsweep watch --interval 10m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "Time between scans (default: SCAN_INTERVAL)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("watch")

	ctx, cancel := signalContext()
	defer cancel()

	orch, closer, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR client")
		}
	}()

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.ScanInterval
	}

	scheduler.New(orch, interval).Run(ctx)
	return nil
}
