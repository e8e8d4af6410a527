package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docsweep/internal/logger"
)

const (
	AnalysisBackendGemini = "gemini"
	AnalysisBackendOpenAI = "openai"

	OCRBackendVision     = "vision"
	OCRBackendDocumentAI = "documentai"
)

// Config is built once at startup and handed to every component. Nothing else in the
// program reads the environment.
type Config struct {
	// OneDrive / Microsoft Graph Configuration
	OneDriveClientID     string
	OneDriveTenantID     string
	OneDriveClientSecret string
	OneDriveScope        string
	OneDriveTokenURL     string
	GraphAPIURL          string
	OneDriveFolder       string

	// Scan Configuration
	LedgerFile     string
	BatchLimit     int
	MaxPages       int
	ScanInterval   time.Duration
	RequestTimeout time.Duration

	// Analysis Configuration
	AnalysisBackend string
	GeminiAPIKey    string
	GeminiAPIURL    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string

	// OCR Configuration
	OCRBackend  string
	OCRLanguage string
	OCRDPI      float64

	// Google Cloud Configuration
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Optional: Google Sheets ledger mirror
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// HTTP front door
	HTTPAddr string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the environment. It fails only on malformed values; missing credentials are
// reported by the Validate methods of the surface that needs them.
func Load() (*Config, error) {
	p := &parser{}

	tenant := getEnv("ONEDRIVE_TENANT_ID", "")
	config := &Config{
		OneDriveClientID:      getEnv("ONEDRIVE_CLIENT_ID", ""),
		OneDriveTenantID:      tenant,
		OneDriveClientSecret:  getEnv("ONEDRIVE_CLIENT_SECRET", ""),
		OneDriveScope:         getEnv("ONEDRIVE_SCOPE", "https://graph.microsoft.com/.default"),
		OneDriveTokenURL:      getEnv("ONEDRIVE_TOKEN_URL", fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant)),
		GraphAPIURL:           strings.TrimRight(getEnv("GRAPH_API_URL", "https://graph.microsoft.com/v1.0"), "/"),
		OneDriveFolder:        getEnv("ONEDRIVE_FOLDER", "/OrganizadorIA"),
		LedgerFile:            getEnv("LEDGER_FILE", "analises_ia.csv"),
		BatchLimit:            p.int("BATCH_LIMIT", 10),
		MaxPages:              p.int("MAX_PAGES", 0),
		ScanInterval:          p.duration("SCAN_INTERVAL", time.Hour),
		RequestTimeout:        p.duration("REQUEST_TIMEOUT", 2*time.Minute),
		AnalysisBackend:       strings.ToLower(getEnv("ANALYSIS_BACKEND", AnalysisBackendGemini)),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiAPIURL:          strings.TrimRight(getEnv("GEMINI_API_URL", "https://generativelanguage.googleapis.com"), "/"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OCRBackend:            strings.ToLower(getEnv("OCR_BACKEND", OCRBackendVision)),
		OCRLanguage:           getEnv("OCR_LANGUAGE", "pt"),
		OCRDPI:                p.float("OCR_DPI", 300),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Analises"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
	}

	if p.err != nil {
		return nil, fmt.Errorf("config parsing failed: %w", p.err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.BatchLimit <= 0 {
		return fmt.Errorf("BATCH_LIMIT must be positive, got %d", c.BatchLimit)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("MAX_PAGES must not be negative, got %d", c.MaxPages)
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", c.ScanInterval)
	}
	if c.OCRDPI <= 0 {
		return fmt.Errorf("OCR_DPI must be positive, got %v", c.OCRDPI)
	}
	switch c.AnalysisBackend {
	case AnalysisBackendGemini, AnalysisBackendOpenAI:
	default:
		return fmt.Errorf("ANALYSIS_BACKEND must be %q or %q, got %q", AnalysisBackendGemini, AnalysisBackendOpenAI, c.AnalysisBackend)
	}
	switch c.OCRBackend {
	case OCRBackendVision, OCRBackendDocumentAI:
	default:
		return fmt.Errorf("OCR_BACKEND must be %q or %q, got %q", OCRBackendVision, OCRBackendDocumentAI, c.OCRBackend)
	}
	if c.LedgerFile == "" {
		return fmt.Errorf("LEDGER_FILE must not be empty")
	}
	return nil
}

// ValidateScan checks what a full scan needs: drive credentials, analysis and OCR.
func (c *Config) ValidateScan() error {
	if err := c.ValidateDrive(); err != nil {
		return err
	}
	if err := c.ValidateAnalysis(); err != nil {
		return err
	}
	return c.ValidateOCR()
}

// ValidateDrive checks the OneDrive application credentials.
func (c *Config) ValidateDrive() error {
	if c.OneDriveClientID == "" {
		return fmt.Errorf("ONEDRIVE_CLIENT_ID is required")
	}
	// The default token URL embeds the tenant.
	if c.OneDriveTenantID == "" && strings.Contains(c.OneDriveTokenURL, "microsoftonline.com//") {
		return fmt.Errorf("ONEDRIVE_TENANT_ID is required")
	}
	if c.OneDriveClientSecret == "" {
		return fmt.Errorf("ONEDRIVE_CLIENT_SECRET is required")
	}
	return nil
}

// ValidateAnalysis checks the selected analysis backend has its API key.
func (c *Config) ValidateAnalysis() error {
	switch c.AnalysisBackend {
	case AnalysisBackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when ANALYSIS_BACKEND=openai")
		}
	default:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	}
	return nil
}

// ValidateOCR checks the selected OCR backend is fully configured.
func (c *Config) ValidateOCR() error {
	if c.OCRBackend == OCRBackendDocumentAI {
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when OCR_BACKEND=documentai")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when OCR_BACKEND=documentai")
		}
	}
	return nil
}

// HasGoogleCredentials reports whether explicit Google credentials were provided.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleCredentialsJSON != "" || c.GoogleCredentialsFile != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first typed-parse failure so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v
}

func (p *parser) float(key string, defaultValue float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return v
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		// Plain integers are seconds.
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			if p.err == nil {
				p.err = fmt.Errorf("%s: invalid duration %q", key, raw)
			}
			return defaultValue
		}
		return time.Duration(secs) * time.Second
	}
	return v
}
