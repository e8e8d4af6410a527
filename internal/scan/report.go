package scan

import (
	"time"
)

// Outcome is what happened to one listing entry.
type Outcome string

const (
	OutcomeRecorded      Outcome = "recorded"
	OutcomeSkippedKnown  Outcome = "skipped_known"
	OutcomeSkippedFolder Outcome = "skipped_folder"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeFailed        Outcome = "failed"
)

// Stage names the per-item step that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageAnalyze Stage = "analyze"
	StageRecord  Stage = "record"
)

// ItemResult is the per-item entry of a Report.
type ItemResult struct {
	FileID        string
	Name          string
	Outcome       Outcome
	Stage         Stage  // set for failed items
	Err           error  // set for failed and duplicate items
	SuggestedName string // set for recorded and duplicate items
}

// Report summarizes one run.
type Report struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Pages        int
	Recorded     int  // the batch counter
	LimitReached bool // the run stopped because the batch limit was hit
	Items        []ItemResult

	// SyncErr is the ledger upload failure, if any. It does not fail the run.
	SyncErr error
}

// Count returns how many items ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns the failed items in listing order.
func (r *Report) Failures() []ItemResult {
	var failed []ItemResult
	for _, item := range r.Items {
		if item.Outcome == OutcomeFailed {
			failed = append(failed, item)
		}
	}
	return failed
}

// Collisions returns the files whose suggested name was already recorded. They stay
// out of the ledger index, so every later run analyzes them again.
func (r *Report) Collisions() []string {
	var names []string
	for _, item := range r.Items {
		if item.Outcome == OutcomeDuplicate {
			names = append(names, item.Name)
		}
	}
	return names
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
