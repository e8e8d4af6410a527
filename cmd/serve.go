package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"docsweep/internal/logger"
	"docsweep/internal/scheduler"
	"docsweep/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP front door",
	Long: `Serve the HTTP API:

  GET  /health     liveness and the state of the last scan
  POST /analisar   analyze one uploaded file (multipart field "file")
  POST /scan       queue a scan (requires --watch)

With --watch the periodic scanner runs in the same process and POST /scan
queues an extra run on it.`,
	Example: `  # Analysis endpoint only
  docsweep serve --addr :8080

  # Analysis endpoint plus hourly scans
  docsweep serve --watch`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	serveCmd.Flags().Bool("watch", false, "Run the periodic scanner alongside the server")
	serveCmd.Flags().Int64("max-upload", server.DefaultMaxUploadBytes, "Maximum upload size in bytes")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	watch, _ := cmd.Flags().GetBool("watch")
	maxUpload, _ := cmd.Flags().GetInt64("max-upload")

	// Inline analysis always goes to Gemini, which accepts binary parts.
	if cfg.GeminiAPIKey == "" {
		return errMissingGeminiKey
	}
	analyzer := newGemini(cfg, newHTTPClient(cfg))

	ctx, cancel := signalContext()
	defer cancel()

	var (
		sched  *scheduler.Scheduler
		queue  server.ScanQueue
		closer io.Closer
	)
	if watch {
		orch, c, err := newOrchestrator(ctx, cfg)
		if err != nil {
			return err
		}
		closer = c
		sched = scheduler.New(orch, cfg.ScanInterval)
		queue = sched
	}
	defer func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR client")
		}
	}()

	srv := server.New(analyzer, queue, server.Options{MaxUploadBytes: maxUpload})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, addr)
	})
	if sched != nil {
		g.Go(func() error {
			sched.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
