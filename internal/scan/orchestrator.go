// Package scan drives one complete ingestion run over the remote drive.
//
// A run authenticates, loads the ledger's known names once, then walks the listing
// page by page. Each new file goes through fetch, extract, analyze and record, one at
// a time; a failure in any of these stages is confined to that file. The run stops
// when the batch limit is reached or the listing is exhausted, and always ends by
// syncing the ledger. Authentication and listing failures abort the run.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docsweep/internal/analysis"
	"docsweep/internal/ledger"
	"docsweep/internal/logger"
	"docsweep/internal/onedrive"
	"docsweep/pkg/models"
)

// TokenSource issues the access token for one run.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
}

// Lister returns one listing page per call.
type Lister interface {
	List(ctx context.Context, token, cursor string) (*onedrive.Page, error)
}

// Fetcher downloads a file's content.
type Fetcher interface {
	Fetch(ctx context.Context, token, fileID string) ([]byte, error)
}

// Extractor turns content into text.
type Extractor interface {
	Extract(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Analyzer asks the content-understanding service about a text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*analysis.Result, error)
}

// Ledger stores analysis records.
type Ledger interface {
	LoadKnownNames() map[string]struct{}
	Append(rec models.AnalysisRecord) error
	SyncRemote(ctx context.Context, token string) error
}

// Clock provides the analysis timestamp.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Options bound a run.
type Options struct {
	BatchLimit int // new records per run, must be positive
	MaxPages   int // listing pages per run, 0 for no limit
}

// Orchestrator runs scans. It holds no per-run state and may be reused, but runs
// must not overlap.
type Orchestrator struct {
	tokens    TokenSource
	lister    Lister
	fetcher   Fetcher
	extractor Extractor
	analyzer  Analyzer
	ledger    Ledger
	clock     Clock
	opts      Options
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Tokens    TokenSource
	Lister    Lister
	Fetcher   Fetcher
	Extractor Extractor
	Analyzer  Analyzer
	Ledger    Ledger
	Clock     Clock // SystemClock when nil
}

// NewOrchestrator wires a scan run.
func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 10
	}
	return &Orchestrator{
		tokens:    deps.Tokens,
		lister:    deps.Lister,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		analyzer:  deps.Analyzer,
		ledger:    deps.Ledger,
		clock:     deps.Clock,
		opts:      opts,
	}
}

// run is the state of a single scan.
type run struct {
	id     string
	token  string
	known  map[string]struct{}
	report *Report
	log    zerolog.Logger
}

// Run performs one scan. The returned report is never nil; on a fatal error it holds
// what happened before the abort.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	r := &run{
		id:     uuid.NewString(),
		report: &Report{StartedAt: o.clock.Now()},
	}
	r.report.RunID = r.id
	r.log = logger.WithRun("scan", r.id)
	defer func() { r.report.FinishedAt = o.clock.Now() }()

	r.log.Info().
		Int("batch_limit", o.opts.BatchLimit).
		Msg("Scan started")

	token, err := o.tokens.Acquire(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("Authentication failed, aborting scan")
		return r.report, fmt.Errorf("scan %s: authenticate: %w", r.id, err)
	}
	r.token = token

	r.known = o.ledger.LoadKnownNames()
	if r.known == nil {
		r.known = make(map[string]struct{})
	}
	r.log.Debug().Int("known_names", len(r.known)).Msg("Ledger index loaded")

	if err := o.walk(ctx, r); err != nil {
		r.log.Error().Err(err).Int("recorded", r.report.Recorded).Msg("Listing failed, aborting scan")
		return r.report, fmt.Errorf("scan %s: %w", r.id, err)
	}

	if err := o.ledger.SyncRemote(ctx, r.token); err != nil {
		r.report.SyncErr = err
		r.log.Error().Err(err).Msg("Ledger sync failed, local records are kept")
	}

	if collisions := r.report.Collisions(); len(collisions) > 0 {
		r.log.Warn().
			Strs("files", collisions).
			Msg("Files collided with recorded names and will be analyzed again next run")
	}

	r.log.Info().
		Int("pages", r.report.Pages).
		Int("recorded", r.report.Recorded).
		Int("skipped", r.report.Count(OutcomeSkippedKnown)+r.report.Count(OutcomeSkippedFolder)).
		Int("duplicates", r.report.Count(OutcomeDuplicate)).
		Int("failed", r.report.Count(OutcomeFailed)).
		Bool("limit_reached", r.report.LimitReached).
		Msg("Scan finished")

	return r.report, nil
}

// walk requests pages until the batch limit is hit or the listing is exhausted.
func (o *Orchestrator) walk(ctx context.Context, r *run) error {
	cursor := ""
	seen := make(map[string]struct{})

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", onedrive.ErrList, err)
		}

		page, err := o.lister.List(ctx, r.token, cursor)
		if err != nil {
			return err
		}
		r.report.Pages++

		for _, item := range page.Items {
			if o.visit(ctx, r, item) && r.report.Recorded >= o.opts.BatchLimit {
				r.report.LimitReached = true
				r.log.Info().Int("batch_limit", o.opts.BatchLimit).Msg("Batch limit reached")
				return nil
			}
		}

		if page.NextCursor == "" {
			return nil
		}
		if _, loop := seen[page.NextCursor]; loop {
			return fmt.Errorf("%w: %w", onedrive.ErrList, onedrive.ErrCursorLoop)
		}
		if o.opts.MaxPages > 0 && r.report.Pages >= o.opts.MaxPages {
			r.log.Warn().Int("max_pages", o.opts.MaxPages).Msg("Page limit reached, listing truncated")
			return nil
		}
		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}
}

// visit handles one listing entry and reports whether it was processed, as opposed
// to skipped.
func (o *Orchestrator) visit(ctx context.Context, r *run, item models.RemoteFile) bool {
	result := ItemResult{FileID: item.ID, Name: item.Name}

	switch {
	case item.IsFolder():
		result.Outcome = OutcomeSkippedFolder
	case r.isKnown(item.Name):
		result.Outcome = OutcomeSkippedKnown
	default:
		o.process(ctx, r, item, &result)
	}

	r.report.Items = append(r.report.Items, result)
	return result.Outcome != OutcomeSkippedFolder && result.Outcome != OutcomeSkippedKnown
}

// process runs fetch, extract, analyze and record for one file.
func (o *Orchestrator) process(ctx context.Context, r *run, item models.RemoteFile, result *ItemResult) {
	log := r.log.With().
		Str("file", item.Name).
		Str("file_id", item.ID).
		Logger()
	log.Info().Str("content_type", item.MimeType).Msg("Analyzing file")

	fail := func(stage Stage, err error) {
		result.Outcome = OutcomeFailed
		result.Stage = stage
		result.Err = err
		log.Error().Err(err).Str("stage", string(stage)).Msg("File skipped")
	}

	data, err := o.fetcher.Fetch(ctx, r.token, item.ID)
	if err != nil {
		fail(StageFetch, err)
		return
	}

	text, err := o.extractor.Extract(ctx, item.Name, item.MimeType, data)
	if err != nil {
		fail(StageExtract, err)
		return
	}

	answer, err := o.analyzer.Analyze(ctx, text)
	if err != nil {
		fail(StageAnalyze, err)
		return
	}

	rec := answer.Record(item.Name, o.clock.Now())
	result.SuggestedName = rec.SuggestedName

	if err := o.ledger.Append(rec); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			result.Outcome = OutcomeDuplicate
			result.Err = err
			log.Warn().Str("suggested_name", rec.SuggestedName).Msg("Suggested name already recorded, file not added")
			return
		}
		fail(StageRecord, err)
		return
	}

	r.known[rec.SuggestedName] = struct{}{}
	r.known[item.Name] = struct{}{}
	r.report.Recorded++
	result.Outcome = OutcomeRecorded

	log.Info().
		Str("suggested_name", rec.SuggestedName).
		Str("category", rec.Category).
		Int("recorded", r.report.Recorded).
		Msg("File recorded")
}

func (r *run) isKnown(name string) bool {
	_, ok := r.known[name]
	return ok
}
