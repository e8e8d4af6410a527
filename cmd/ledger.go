package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docsweep/internal/auth"
	"docsweep/internal/ledger"
	"docsweep/internal/onedrive"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the local analysis ledger",
	Long: `List the records of the local ledger (LEDGER_FILE). With --sync the
ledger is also uploaded to OneDrive, and to Google Sheets when
GOOGLE_SHEET_URL is set, without scanning.`,
	Example: `  # List analyzed files
  docsweep ledger

  # Re-upload the ledger
  docsweep ledger --sync`,
	Args: cobra.NoArgs,
	RunE: runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)

	ledgerCmd.Flags().Bool("sync", false, "Upload the ledger to its remote mirrors")
}

func runLedger(cmd *cobra.Command, args []string) error {
	sync, _ := cmd.Flags().GetBool("sync")

	ctx, cancel := signalContext()
	defer cancel()

	records, err := ledger.New(cfg.LedgerFile).Records()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANALYZED\tSOURCE\tSUGGESTED NAME\tCATEGORY\tTAGS")
	for _, rec := range records {
		analyzed := "-"
		if !rec.AnalyzedAt.IsZero() {
			analyzed = rec.AnalyzedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			analyzed, rec.SourceFileName, rec.SuggestedName, rec.Category, strings.Join(rec.Tags, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d records in %s\n", len(records), cfg.LedgerFile)

	if !sync {
		return nil
	}
	if err := cfg.ValidateDrive(); err != nil {
		return err
	}

	httpClient := newHTTPClient(cfg)
	drive := onedrive.NewClient(cfg.GraphAPIURL, cfg.OneDriveFolder, httpClient)
	led, err := newLedger(ctx, cfg, drive)
	if err != nil {
		return err
	}
	token, err := auth.NewProvider(auth.Credentials{
		ClientID:     cfg.OneDriveClientID,
		ClientSecret: cfg.OneDriveClientSecret,
		Scope:        cfg.OneDriveScope,
		TokenURL:     cfg.OneDriveTokenURL,
	}, httpClient).Acquire(ctx)
	if err != nil {
		return err
	}
	if err := led.SyncRemote(ctx, token); err != nil {
		return err
	}
	fmt.Printf("Ledger uploaded to %s\n", drive.Location(filepath.Base(led.Path())))
	return nil
}
