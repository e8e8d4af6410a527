package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docsweep/internal/analysis"
	"docsweep/internal/logger"
)

var errMissingGeminiKey = errors.New("GEMINI_API_KEY is required for inline analysis")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a local file",
	Long: `Analyze one local file the way a scan would: extract its text (OCR for
PDFs and images) and ask the analysis backend for a suggested name, summary,
category, tags and destination. The ledger is not touched.

With --inline the file is sent to Gemini as is, without local extraction.`,
	Example: `  # Extract and analyze
  docsweep analyze contrato.pdf

  # Send the raw file to Gemini
  docsweep analyze foto.jpg --inline`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("inline", false, "Send the file itself instead of its extracted text")
	analyzeCmd.Flags().Duration("timeout", 5*time.Minute, "Processing timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("analyze")

	inline, _ := cmd.Flags().GetBool("inline")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	path := args[0]

	data, err := readLocalFile(path)
	if err != nil {
		return err
	}
	contentType := detectContentType(path, data)

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	log.Info().
		Str("file", path).
		Str("content_type", contentType).
		Bool("inline", inline).
		Msg("Analyzing file")

	var result *analysis.Result
	if inline {
		if cfg.GeminiAPIKey == "" {
			return errMissingGeminiKey
		}
		result, err = newGemini(cfg, newHTTPClient(cfg)).AnalyzeInline(ctx, contentType, data)
	} else {
		result, err = analyzeExtracted(ctx, path, contentType, data)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"arquivo":   filepath.Base(path),
		"resultado": result,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func analyzeExtracted(ctx context.Context, path, contentType string, data []byte) (*analysis.Result, error) {
	log := logger.WithComponent("analyze")

	analyzer, err := newAnalyzer(cfg, newHTTPClient(cfg))
	if err != nil {
		return nil, err
	}
	extractor, closer, err := newExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR client")
		}
	}()

	text, err := extractor.Extract(ctx, filepath.Base(path), contentType, data)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("text_length", len(text)).Msg("Text extracted")

	return analyzer.Analyze(ctx, text)
}

func readLocalFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("file is empty: %s", path)
	}
	return os.ReadFile(path)
}

// detectContentType prefers the extension, as the drive listing does, and falls back
// to sniffing.
func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
