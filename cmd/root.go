package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docsweep/internal/config"
	"docsweep/internal/logger"
)

var version = "1.0.0"

// cfg is loaded once by main and shared by every command.
var (
	cfg    *config.Config
	cfgErr error
)

var rootCmd = &cobra.Command{
	Use:   "docsweep",
	Short: "Docsweep - AI analysis of documents stored in OneDrive",
	Long: `Docsweep walks a OneDrive folder, extracts the text of every new file
(OCR for scans and images), asks a language model for a suggested name,
summary, category and tags, and records the result in a CSV ledger that
is uploaded back next to the documents.

Run "docsweep scan" once, "docsweep watch" to repeat the scan every
SCAN_INTERVAL, or "docsweep serve" for the HTTP front door.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgErr != nil {
			return fmt.Errorf("invalid configuration: %w", cfgErr)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Docsweep executed")

		_ = cmd.Help()
	},
}

// Execute runs the command line with the configuration main loaded. A configuration
// error is reported by the first command that runs.
func Execute(c *config.Config, err error) {
	cfg, cfgErr = c, err
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
