package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docsweep/internal/logger"
	"docsweep/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file]",
	Short: "Extract the text of a local file",
	Long: `Extract the text of a local file exactly as a scan would before analysis.

PDF pages are rasterized and recognized one by one, images are recognized
directly and any other file is decoded as UTF-8 text. OCR_BACKEND selects
Google Cloud Vision (default) or a Document AI OCR processor.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID - with OCR_BACKEND=documentai`,
	Example: `  # Extract text from contrato.pdf to stdout
  docsweep ocr contrato.pdf

  # Save extracted text to file
  docsweep ocr contrato.pdf -o extracted.txt

  # Output as JSON with metadata
  docsweep ocr scan.png --json -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	ContentType        string    `json:"content_type"`
	Backend            string    `json:"backend"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]

	log.Info().
		Str("file", path).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting text extraction")

	data, err := readLocalFile(path)
	if err != nil {
		return err
	}
	contentType := detectContentType(path, data)

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancelTimeout()

	extractor, closer, err := newExtractor(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create OCR backend")
		return err
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR client")
		}
	}()

	start := time.Now()
	text, err := extractor.Extract(ctx, filepath.Base(path), contentType, data)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Str("content_type", contentType).
		Dur("duration", time.Since(start)).
		Int("text_length", len(text)).
		Msg("Text extraction completed")

	var outputData []byte
	if jsonOutput {
		outputData, err = json.MarshalIndent(OCROutput{
			Text:               text,
			ContentType:        contentType,
			Backend:            cfg.OCRBackend,
			ProcessedAt:        time.Now(),
			ProcessingDuration: time.Since(start).String(),
			FileName:           filepath.Base(path),
			FileSize:           int64(len(data)),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		outputData = []byte(text)
	}

	return writeOutput(outputData, outputPath, log)
}

// handleOCRError provides user-friendly error messages for extraction failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Text extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("text extraction timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("text extraction was canceled")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("a page or image exceeds the 20MB OCR limit. Try lowering OCR_DPI")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account may call the selected OCR API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("OCR API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("text extraction failed: %w", err)
	}
}

func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Println()
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}
