// Package ledger keeps the append-only record of analyzed documents.
//
// The backing store is a UTF-8 CSV file whose header row is written with the first
// record. Rows always follow the header found in the file, so ledgers written by
// other tools keep their column order. It is read in full to rebuild the known-name index, appended to one row at
// a time, and pushed as a whole snapshot to the configured mirrors. A single writer
// process is assumed.
package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"docsweep/internal/logger"
	"docsweep/pkg/models"
)

// utf8BOM is tolerated at the start of files edited by spreadsheet software.
const utf8BOM = "\ufeff"

// Ledger is the CSV backed store of analysis records.
type Ledger struct {
	path    string
	mirrors []Mirror
	log     zerolog.Logger

	mu sync.Mutex
	// suggested holds every nome_sugerido in the file; it enforces uniqueness.
	suggested map[string]struct{}
	// sources holds every arquivo_origem in the file.
	sources map[string]struct{}
	loaded  bool
}

// New creates a ledger over the file at path. Mirrors receive the snapshot on SyncRemote.
func New(path string, mirrors ...Mirror) *Ledger {
	return &Ledger{
		path:    path,
		mirrors: mirrors,
		log:     logger.WithComponent("ledger").With().Str("ledger_file", path).Logger(),
	}
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

// LoadKnownNames reads the backing file in full and returns every suggested and
// source file name recorded so far. A missing, empty or damaged file yields what
// could be read, never an error.
func (l *Ledger) LoadKnownNames() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reload()

	known := make(map[string]struct{}, len(l.suggested)+len(l.sources))
	for name := range l.suggested {
		known[name] = struct{}{}
	}
	for name := range l.sources {
		known[name] = struct{}{}
	}
	return known
}

// Append writes rec as one row, preceded by the header when the file is empty.
func (l *Ledger) Append(rec models.AnalysisRecord) error {
	const op = "Append"

	name := strings.TrimSpace(rec.SuggestedName)
	if name == "" {
		return newLedgerError(op, ErrInvalidRecord, nil, rec.SourceFileName)
	}
	rec.SuggestedName = name

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		l.reload()
	}
	if _, ok := l.suggested[name]; ok {
		return newLedgerError(op, ErrDuplicate, nil, name)
	}

	if err := l.writeRow(rec); err != nil {
		return newLedgerError(op, ErrWrite, err, name)
	}

	l.suggested[name] = struct{}{}
	if rec.SourceFileName != "" {
		l.sources[rec.SourceFileName] = struct{}{}
	}

	l.log.Debug().
		Str("suggested_name", name).
		Str("file", rec.SourceFileName).
		Msg("Record appended")

	return nil
}

// Records returns every row of the backing file as records.
func (l *Ledger) Records() ([]models.AnalysisRecord, error) {
	const op = "Records"

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, err := l.snapshot()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if snap == nil {
		return nil, nil
	}
	if snap.ParseErr != nil {
		return nil, fmt.Errorf("%s: %w", op, snap.ParseErr)
	}
	return snap.Records(), nil
}

// SyncRemote pushes the current file contents to every mirror. Each mirror is tried
// even when an earlier one fails.
func (l *Ledger) SyncRemote(ctx context.Context, token string) error {
	const op = "SyncRemote"

	l.mu.Lock()
	snap, err := l.snapshot()
	l.mu.Unlock()
	if err != nil {
		return newLedgerError(op, ErrUpload, err, "read snapshot")
	}
	if snap == nil {
		l.log.Info().Msg("Ledger file does not exist yet, nothing to upload")
		return nil
	}

	var errs []error
	for _, mirror := range l.mirrors {
		if err := mirror.Push(ctx, token, snap); err != nil {
			l.log.Error().
				Err(err).
				Str("mirror", mirror.Name()).
				Msg("Ledger upload failed")
			errs = append(errs, fmt.Errorf("%s: %w", mirror.Name(), err))
			continue
		}
		l.log.Info().
			Str("mirror", mirror.Name()).
			Int("rows", len(snap.Rows)).
			Msg("Ledger uploaded")
	}

	if len(errs) > 0 {
		return newLedgerError(op, ErrUpload, errors.Join(errs...), "")
	}
	return nil
}

// reload rebuilds both indexes from disk. Callers hold l.mu.
func (l *Ledger) reload() {
	l.suggested = make(map[string]struct{})
	l.sources = make(map[string]struct{})
	l.loaded = true

	f, err := os.Open(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.log.Warn().Err(err).Msg("Ledger could not be opened, starting with an empty index")
		}
		return
	}
	defer f.Close()

	reader := newReader(f)
	header, err := reader.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			l.log.Warn().Err(err).Msg("Ledger header unreadable, starting with an empty index")
		}
		return
	}

	columns := columnIndex(header)
	nameCol, ok := columns[models.FieldSuggestedName]
	if !ok {
		l.log.Warn().Strs("header", header).Msg("Ledger has no suggested name column, starting with an empty index")
		return
	}
	sourceCol, hasSource := columns[models.FieldSourceFileName]

	rows := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			l.log.Warn().Err(err).Int("rows_read", rows).Msg("Ledger row unreadable, index is partial")
			break
		}
		rows++
		if name := cell(row, nameCol); name != "" {
			l.suggested[name] = struct{}{}
		}
		if hasSource {
			if source := cell(row, sourceCol); source != "" {
				l.sources[source] = struct{}{}
			}
		}
	}

	l.log.Debug().
		Int("rows", rows).
		Int("known_names", len(l.suggested)).
		Msg("Ledger index loaded")
}

// writeRow appends a single record in the column order of the file's header. A new
// file gets the standard header; a header missing standard columns is extended
// first. Callers hold l.mu.
func (l *Ledger) writeRow(rec models.AnalysisRecord) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	header, err := l.prepareHeader()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if header == nil {
		header = rec.Fields()
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(alignRow(header, rec)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// prepareHeader returns the header rows must follow, or nil when the file is missing
// or empty.
func (l *Ledger) prepareHeader() ([]string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	header, err := newReader(f).Read()
	f.Close()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	header = normalizeHeader(header)
	missing := missingFields(header)
	if len(missing) == 0 {
		return header, nil
	}
	return l.extendHeader(missing)
}

// extendHeader rewrites the file with the missing columns appended to the header.
// Existing rows keep their cells and get empty values in the new columns.
func (l *Ledger) extendHeader(missing []string) ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	rows, err := newReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("extend header: %w", err)
	}

	header := append(normalizeHeader(rows[0]), missing...)
	rows[0] = header
	for i := 1; i < len(rows); i++ {
		for len(rows[i]) < len(header) {
			rows[i] = append(rows[i], "")
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.csv")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return nil, err
	}

	l.log.Info().
		Strs("added_columns", missing).
		Int("rows", len(rows)-1).
		Msg("Ledger header extended")
	return header, nil
}

// alignRow places rec's values under the matching header columns. Unknown columns
// stay empty.
func alignRow(header []string, rec models.AnalysisRecord) []string {
	values := make(map[string]string, len(header))
	fields := rec.Fields()
	for i, v := range rec.Values() {
		values[fields[i]] = v
	}

	row := make([]string, len(header))
	for i, column := range header {
		row[i] = values[column]
	}
	return row
}

func missingFields(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, column := range header {
		present[column] = true
	}
	var missing []string
	for _, field := range (models.AnalysisRecord{}).Fields() {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

// snapshot reads the whole file. It returns nil, nil when the file does not exist.
// A file that does not parse as CSV still yields its raw bytes. Callers hold l.mu.
func (l *Ledger) snapshot() (*Snapshot, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Name: filepath.Base(l.path), Data: data}
	reader := newReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		snap.ParseErr = fmt.Errorf("parse %s: %w", snap.Name, err)
		return snap, nil
	}
	if len(rows) > 0 {
		snap.Header = rows[0]
		snap.Rows = rows[1:]
	}
	return snap, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func columnIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range normalizeHeader(header) {
		columns[name] = i
	}
	return columns
}

// normalizeHeader drops a leading BOM and surrounding spaces from column names.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
