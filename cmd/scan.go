package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docsweep/internal/logger"
	"docsweep/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Analyze new files in the OneDrive folder once",
	Long: `Run a single scan: list the configured OneDrive folder, analyze up to
BATCH_LIMIT files that are not yet in the ledger, append the results and
upload the ledger.

Required environment variables:
  ONEDRIVE_CLIENT_ID, ONEDRIVE_TENANT_ID, ONEDRIVE_CLIENT_SECRET
  GEMINI_API_KEY (or OPENAI_API_KEY with ANALYSIS_BACKEND=openai)
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS for OCR`,
	Example: `  # Analyze the next batch and print a summary
  docsweep scan

  # Print the full report as JSON
  docsweep scan --json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Bool("json", false, "Output the report as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan-cmd")
	jsonOutput, _ := cmd.Flags().GetBool("json")

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

	report, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeReportJSON(os.Stdout, report)
	}
	writeReport(os.Stdout, report)
	return nil
}

type itemJSON struct {
	FileID        string `json:"file_id"`
	Name          string `json:"name"`
	Outcome       string `json:"outcome"`
	Stage         string `json:"stage,omitempty"`
	Error         string `json:"error,omitempty"`
	SuggestedName string `json:"suggested_name,omitempty"`
}

type reportJSON struct {
	RunID        string     `json:"run_id"`
	StartedAt    string     `json:"started_at"`
	Duration     string     `json:"duration"`
	Pages        int        `json:"pages"`
	Recorded     int        `json:"recorded"`
	LimitReached bool       `json:"limit_reached"`
	SyncError    string     `json:"sync_error,omitempty"`
	Items        []itemJSON `json:"items"`
}

func writeReportJSON(w io.Writer, r *scan.Report) error {
	out := reportJSON{
		RunID:        r.RunID,
		StartedAt:    r.StartedAt.Format(time.RFC3339),
		Duration:     r.Duration().String(),
		Pages:        r.Pages,
		Recorded:     r.Recorded,
		LimitReached: r.LimitReached,
		Items:        make([]itemJSON, 0, len(r.Items)),
	}
	if r.SyncErr != nil {
		out.SyncError = r.SyncErr.Error()
	}
	for _, item := range r.Items {
		entry := itemJSON{
			FileID:        item.FileID,
			Name:          item.Name,
			Outcome:       string(item.Outcome),
			Stage:         string(item.Stage),
			SuggestedName: item.SuggestedName,
		}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		}
		out.Items = append(out.Items, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeReport(w io.Writer, r *scan.Report) {
	fmt.Fprintf(w, "Run %s: %d recorded, %d known, %d duplicate, %d failed (%d pages, %s)\n",
		r.RunID,
		r.Recorded,
		r.Count(scan.OutcomeSkippedKnown),
		r.Count(scan.OutcomeDuplicate),
		r.Count(scan.OutcomeFailed),
		r.Pages,
		r.Duration().Round(time.Millisecond))
	if r.LimitReached {
		fmt.Fprintln(w, "Batch limit reached, remaining files are left for the next run.")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, item := range r.Items {
		switch item.Outcome {
		case scan.OutcomeRecorded:
			fmt.Fprintf(tw, "  %s\t-> %s\n", item.Name, item.SuggestedName)
		case scan.OutcomeDuplicate:
			fmt.Fprintf(tw, "  %s\tduplicate of %s\n", item.Name, item.SuggestedName)
		case scan.OutcomeFailed:
			fmt.Fprintf(tw, "  %s\tfailed at %s: %v\n", item.Name, item.Stage, item.Err)
		}
	}
	_ = tw.Flush()

	if collisions := r.Collisions(); len(collisions) > 0 {
		fmt.Fprintf(w, "%d file(s) collided with recorded names and will be analyzed again next run.\n", len(collisions))
	}
	if r.SyncErr != nil {
		fmt.Fprintf(w, "Ledger upload failed: %v\n", r.SyncErr)
	}
}
