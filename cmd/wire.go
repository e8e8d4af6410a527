package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"docsweep/internal/analysis"
	"docsweep/internal/auth"
	"docsweep/internal/config"
	"docsweep/internal/extract"
	"docsweep/internal/ledger"
	"docsweep/internal/logger"
	"docsweep/internal/ocr"
	"docsweep/internal/onedrive"
	"docsweep/internal/scan"
	"docsweep/internal/sheets"
)

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout}
}

func googleCredentials(cfg *config.Config) ocr.Credentials {
	return ocr.Credentials{JSON: cfg.GoogleCredentialsJSON, File: cfg.GoogleCredentialsFile}
}

// newExtractor builds the text extractor over the configured OCR backend.
func newExtractor(ctx context.Context, cfg *config.Config) (*extract.Extractor, io.Closer, error) {
	if err := cfg.ValidateOCR(); err != nil {
		return nil, nil, err
	}

	var (
		recognizer ocr.Recognizer
		c          io.Closer
	)
	switch cfg.OCRBackend {
	case config.OCRBackendDocumentAI:
		r, err := ocr.NewDocumentAIRecognizer(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		}, googleCredentials(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Document AI recognizer: %w", err)
		}
		recognizer, c = r, r
	default:
		r, err := ocr.NewGoogleVisionRecognizer(ctx, googleCredentials(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Vision recognizer: %w", err)
		}
		recognizer, c = r, r
	}

	ex := extract.NewExtractor(ocr.NewFitzRenderer(), recognizer, extract.Options{
		Language: cfg.OCRLanguage,
		DPI:      cfg.OCRDPI,
	})
	return ex, c, nil
}

func newAnalyzer(cfg *config.Config, httpClient *http.Client) (scan.Analyzer, error) {
	if err := cfg.ValidateAnalysis(); err != nil {
		return nil, err
	}
	if cfg.AnalysisBackend == config.AnalysisBackendOpenAI {
		return analysis.NewOpenAIClient(analysis.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, httpClient), nil
	}
	return newGemini(cfg, httpClient), nil
}

func newGemini(cfg *config.Config, httpClient *http.Client) *analysis.GeminiClient {
	return analysis.NewGeminiClient(analysis.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiAPIURL,
		Model:   cfg.GeminiModel,
	}, httpClient)
}

// newLedger opens the local ledger with its remote mirrors: the drive copy always,
// the spreadsheet when GOOGLE_SHEET_URL is set.
func newLedger(ctx context.Context, cfg *config.Config, drive *onedrive.Client) (*ledger.Ledger, error) {
	mirrors := []ledger.Mirror{ledger.NewDriveMirror(drive, filepath.Base(cfg.LedgerFile))}

	if cfg.GoogleSheetURL != "" {
		m, err := sheets.NewMirror(ctx, sheets.Config{
			SheetURL:        cfg.GoogleSheetURL,
			Worksheet:       cfg.GoogleSheetWorksheet,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets mirror: %w", err)
		}
		mirrors = append(mirrors, m)
	}

	return ledger.New(cfg.LedgerFile, mirrors...), nil
}

// newOrchestrator wires a complete scan pipeline from the configuration. The returned
// Closer releases the OCR client.
func newOrchestrator(ctx context.Context, cfg *config.Config) (*scan.Orchestrator, io.Closer, error) {
	if err := cfg.ValidateScan(); err != nil {
		return nil, nil, err
	}

	httpClient := newHTTPClient(cfg)
	drive := onedrive.NewClient(cfg.GraphAPIURL, cfg.OneDriveFolder, httpClient)

	extractor, c, err := newExtractor(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := newAnalyzer(cfg, httpClient)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	led, err := newLedger(ctx, cfg, drive)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	logger.WithComponent("cmd").Debug().
		Str("folder", cfg.OneDriveFolder).
		Str("ledger", led.Path()).
		Str("analysis", cfg.AnalysisBackend).
		Str("ocr", cfg.OCRBackend).
		Msg("Scan pipeline ready")

	orch := scan.NewOrchestrator(scan.Deps{
		Tokens: auth.NewProvider(auth.Credentials{
			ClientID:     cfg.OneDriveClientID,
			ClientSecret: cfg.OneDriveClientSecret,
			Scope:        cfg.OneDriveScope,
			TokenURL:     cfg.OneDriveTokenURL,
		}, httpClient),
		Lister:    drive,
		Fetcher:   drive,
		Extractor: extractor,
		Analyzer:  analyzer,
		Ledger:    led,
	}, scan.Options{
		BatchLimit: cfg.BatchLimit,
		MaxPages:   cfg.MaxPages,
	})
	return orch, c, nil
}
