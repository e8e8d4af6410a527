package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ONEDRIVE_TENANT_ID", "contoso")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BatchLimit != 10 {
		t.Errorf("BatchLimit = %d, want 10", cfg.BatchLimit)
	}
	if cfg.ScanInterval != time.Hour {
		t.Errorf("ScanInterval = %s, want 1h", cfg.ScanInterval)
	}
	if cfg.OCRDPI != 300 {
		t.Errorf("OCRDPI = %v, want 300", cfg.OCRDPI)
	}
	if cfg.OneDriveFolder != "/OrganizadorIA" {
		t.Errorf("OneDriveFolder = %q", cfg.OneDriveFolder)
	}
	if cfg.LedgerFile != "analises_ia.csv" {
		t.Errorf("LedgerFile = %q", cfg.LedgerFile)
	}
	if want := "https://login.microsoftonline.com/contoso/oauth2/v2.0/token"; cfg.OneDriveTokenURL != want {
		t.Errorf("OneDriveTokenURL = %q, want %q", cfg.OneDriveTokenURL, want)
	}
	if cfg.AnalysisBackend != AnalysisBackendGemini {
		t.Errorf("AnalysisBackend = %q", cfg.AnalysisBackend)
	}
}

func TestLoadParsesTypedValues(t *testing.T) {
	t.Setenv("BATCH_LIMIT", "25")
	t.Setenv("SCAN_INTERVAL", "90")
	t.Setenv("REQUEST_TIMEOUT", "45s")
	t.Setenv("OCR_DPI", "150")
	t.Setenv("GRAPH_API_URL", "http://localhost:9999/v1.0/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BatchLimit != 25 {
		t.Errorf("BatchLimit = %d, want 25", cfg.BatchLimit)
	}
	if cfg.ScanInterval != 90*time.Second {
		t.Errorf("ScanInterval = %s, want 90s", cfg.ScanInterval)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %s, want 45s", cfg.RequestTimeout)
	}
	if cfg.OCRDPI != 150 {
		t.Errorf("OCRDPI = %v, want 150", cfg.OCRDPI)
	}
	if cfg.GraphAPIURL != "http://localhost:9999/v1.0" {
		t.Errorf("GraphAPIURL = %q, trailing slash not trimmed", cfg.GraphAPIURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"non numeric batch limit", "BATCH_LIMIT", "ten", "BATCH_LIMIT"},
		{"zero batch limit", "BATCH_LIMIT", "0", "BATCH_LIMIT must be positive"},
		{"bad interval", "SCAN_INTERVAL", "hourly", "SCAN_INTERVAL"},
		{"unknown analysis backend", "ANALYSIS_BACKEND", "claude", "ANALYSIS_BACKEND"},
		{"unknown ocr backend", "OCR_BACKEND", "tesseract", "OCR_BACKEND"},
		{"negative max pages", "MAX_PAGES", "-1", "MAX_PAGES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateScan(t *testing.T) {
	base := func() *Config {
		return &Config{
			OneDriveClientID:     "id",
			OneDriveTenantID:     "tenant",
			OneDriveClientSecret: "secret",
			OneDriveTokenURL:     "https://login.microsoftonline.com/tenant/oauth2/v2.0/token",
			AnalysisBackend:      AnalysisBackendGemini,
			GeminiAPIKey:         "key",
			OCRBackend:           OCRBackendVision,
		}
	}

	if err := base().ValidateScan(); err != nil {
		t.Fatalf("ValidateScan() on complete config = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing client id", func(c *Config) { c.OneDriveClientID = "" }, "ONEDRIVE_CLIENT_ID"},
		{"missing secret", func(c *Config) { c.OneDriveClientSecret = "" }, "ONEDRIVE_CLIENT_SECRET"},
		{"missing tenant", func(c *Config) {
			c.OneDriveTenantID = ""
			c.OneDriveTokenURL = "https://login.microsoftonline.com//oauth2/v2.0/token"
		}, "ONEDRIVE_TENANT_ID"},
		{"missing gemini key", func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"openai without key", func(c *Config) { c.AnalysisBackend = AnalysisBackendOpenAI }, "OPENAI_API_KEY"},
		{"document ai without processor", func(c *Config) {
			c.OCRBackend = OCRBackendDocumentAI
			c.GoogleCloudProject = "proj"
		}, "DOCUMENT_AI_PROCESSOR_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.ValidateScan()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ValidateScan() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}

func TestTenantNotRequiredWithCustomTokenURL(t *testing.T) {
	cfg := &Config{
		OneDriveClientID:     "id",
		OneDriveClientSecret: "secret",
		OneDriveTokenURL:     "http://127.0.0.1:8081/token",
		AnalysisBackend:      AnalysisBackendGemini,
		GeminiAPIKey:         "key",
		OCRBackend:           OCRBackendVision,
	}
	if err := cfg.ValidateScan(); err != nil {
		t.Errorf("ValidateScan() = %v, want nil", err)
	}
}

func TestValidateDriveIgnoresAnalysis(t *testing.T) {
	cfg := &Config{
		OneDriveClientID:     "id",
		OneDriveTenantID:     "tenant",
		OneDriveClientSecret: "secret",
		OneDriveTokenURL:     "https://login.microsoftonline.com/tenant/oauth2/v2.0/token",
		AnalysisBackend:      AnalysisBackendGemini,
	}
	if err := cfg.ValidateDrive(); err != nil {
		t.Errorf("ValidateDrive() = %v, want nil", err)
	}
	if err := cfg.ValidateScan(); err == nil {
		t.Error("ValidateScan() without GEMINI_API_KEY should fail")
	}
}
