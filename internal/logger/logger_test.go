package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if err := Setup(cfg); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetupWritesToFile(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	path := filepath.Join(t.TempDir(), "docsweep.log")
	cfg := LogConfig{Level: "debug", Format: "json", Output: path}
	if err := Setup(cfg); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	l := WithComponent("test")
	l.Info().Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, data)
	}
	if entry["component"] != "test" {
		t.Errorf("component = %v, want test", entry["component"])
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
}

func TestWithRunAddsFields(t *testing.T) {
	previous := log.Logger
	t.Cleanup(func() { log.Logger = previous })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	l := WithRun("scan", "run-1")
	l.Info().Msg("started")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["run_id"] != "run-1" || entry["component"] != "scan" {
		t.Errorf("unexpected fields: %v", entry)
	}
}

func TestSetupConsoleToFileIsUncolored(t *testing.T) {
	previous, previousFormat := log.Logger, zerolog.TimeFieldFormat
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.TimeFieldFormat = previousFormat
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	path := filepath.Join(t.TempDir(), "docsweep.log")
	cfg := DefaultConfig()
	cfg.Output = path
	if err := Setup(cfg); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	l := WithComponent("test")
	l.Info().Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello")) {
		t.Errorf("message missing from %q", data)
	}
	if bytes.Contains(data, []byte("\x1b[")) {
		t.Errorf("file output contains color codes: %q", data)
	}
}
