package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"docsweep/internal/ledger"
)

const testSheetURL = "https://docs.google.com/spreadsheets/d/abc-123_X/edit#gid=0"

// fakeSheetsAPI answers the handful of Sheets v4 calls the mirror makes.
type fakeSheetsAPI struct {
	mu           sync.Mutex
	titles       []string
	calls        []string
	batchUpdates int
	written      [][]interface{}
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/abc-123_X"):
		var sheetList []map[string]any
		for i, title := range f.titles {
			sheetList = append(sheetList, map[string]any{"properties": map[string]any{"sheetId": i, "title": title}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "abc-123_X", "sheets": sheetList})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		f.batchUpdates++
		_, _ = io.WriteString(w, `{"spreadsheetId":"abc-123_X","replies":[{"addSheet":{"properties":{"sheetId":7,"title":"Analises"}}}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		_, _ = io.WriteString(w, `{"spreadsheetId":"abc-123_X"}`)
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/values/"):
		var body sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.written = body.Values
		_, _ = io.WriteString(w, `{"spreadsheetId":"abc-123_X"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
	}
}

func newTestMirror(t *testing.T, api http.Handler) *Mirror {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}
	mirror, err := NewMirrorWithService(svc, testSheetURL, "Analises")
	if err != nil {
		t.Fatalf("NewMirrorWithService: %v", err)
	}
	return mirror
}

func snapshot() *ledger.Snapshot {
	return &ledger.Snapshot{
		Name:   "analises_ia.csv",
		Header: []string{"nome_sugerido", "resumo"},
		Rows: [][]string{
			{"a.pdf", "primeiro"},
			{"b.pdf", "segundo"},
		},
	}
}

func TestPushCreatesWorksheetAndWritesRows(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Sheet1"}}
	mirror := newTestMirror(t, api)

	if err := mirror.Push(context.Background(), "ignored", snapshot()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.batchUpdates != 2 {
		t.Errorf("expected add-sheet and format requests, got %d batch updates", api.batchUpdates)
	}
	if len(api.written) != 3 {
		t.Fatalf("expected header and 2 rows, got %v", api.written)
	}
	if api.written[0][0] != "nome_sugerido" || api.written[2][1] != "segundo" {
		t.Errorf("unexpected values %v", api.written)
	}
}

func TestPushReusesExistingWorksheet(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"Sheet1", "Analises"}}
	mirror := newTestMirror(t, api)

	if err := mirror.Push(context.Background(), "", snapshot()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.batchUpdates != 0 {
		t.Errorf("existing worksheet must not be recreated, got %d batch updates", api.batchUpdates)
	}
}

func TestPushRejectsUnparsedSnapshot(t *testing.T) {
	api := &fakeSheetsAPI{}
	mirror := newTestMirror(t, api)

	snap := &ledger.Snapshot{Name: "x.csv", ParseErr: errors.New("bare quote")}
	if err := mirror.Push(context.Background(), "", snap); err == nil {
		t.Fatal("expected an error for a snapshot that did not parse")
	}
	if len(api.calls) != 0 {
		t.Errorf("no API calls expected, got %v", api.calls)
	}
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID(testSheetURL)
	if err != nil || id != "abc-123_X" {
		t.Errorf("extractSpreadsheetID() = %q, %v", id, err)
	}
	if _, err := extractSpreadsheetID("https://example.com/nope"); err == nil {
		t.Error("expected error for a non-sheets URL")
	}
}

func TestNewMirrorRequiresCredentials(t *testing.T) {
	_, err := NewMirror(context.Background(), Config{SheetURL: testSheetURL})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}
