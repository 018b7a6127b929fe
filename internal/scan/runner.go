// Package scan orchestrates one fetch-extract-persist pass over a set of
// forum sources.
package scan

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ticker-mention-lab/internal/collect"
	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/observability"
	"ticker-mention-lab/internal/storage"
)

// State is the runner's current phase. A failed run reports FAILED until
// the next run starts; the runner itself stays usable.
type State string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateCollecting State = "COLLECTING"
	StatePersisting State = "PERSISTING"
	StateFailed     State = "FAILED"
)

// Default runner configuration.
const (
	DefaultTopN        = 5
	DefaultScanTimeout = 2 * time.Minute
)

// Runner composes source fetch, collection and store append behind a
// single externally-triggerable operation. Concurrent RunScan calls are
// expected and need no mutual exclusion: overlapping appends reconcile
// through the store's idempotency guarantee.
type Runner struct {
	source  ItemSource
	store   storage.OccurrenceStore
	topN    int
	timeout time.Duration
	logger  *log.Logger

	mu        sync.Mutex
	state     State
	lastRun   time.Time
	lastError string
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source  ItemSource
	Store   storage.OccurrenceStore
	TopN    int           // Default: 5 - tokens in the result summary
	Timeout time.Duration // Default: 2m - bound on one scan invocation
	Logger  *log.Logger
}

// NewRunner creates a new scan runner.
func NewRunner(opts RunnerOptions) *Runner {
	topN := opts.TopN
	if topN == 0 {
		topN = DefaultTopN
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultScanTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		source:  opts.Source,
		store:   opts.Store,
		topN:    topN,
		timeout: timeout,
		logger:  logger,
		state:   StateIdle,
	}
}

// Result summarizes one scan. Best effort: skipped items reduce the
// counts but never fail the scan.
type Result struct {
	Sources        []string            `json:"sources"`
	TokensDetected []string            `json:"tokens_detected"` // sorted ascending
	TopTokens      []domain.TokenCount `json:"top_tokens"`
	ItemsFetched   int                 `json:"items_fetched"`
	ItemsScanned   int                 `json:"items_scanned"`
	ItemsSkipped   int                 `json:"items_skipped"`
	Inserted       int                 `json:"inserted"`
	Duplicates     int                 `json:"duplicates"`
	Duration       time.Duration       `json:"-"`
}

// Status is a point-in-time view of the runner for status endpoints.
type Status struct {
	State     State     `json:"state"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Status returns the runner's current state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{State: r.state, LastRun: r.lastRun, LastError: r.lastError}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// RunScan executes one fetch-extract-persist pass over the sources with
// the given lookback window. Idempotent: re-running over the same items
// stores nothing new. Any failure surfaces to the caller; the runner
// resets to IDLE either way.
func (r *Runner) RunScan(ctx context.Context, sources []string, window time.Duration) (result *Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		r.mu.Lock()
		r.lastRun = time.Now()
		if err != nil {
			r.state = StateFailed
			r.lastError = err.Error()
			observability.RecordScan("error", time.Since(start).Seconds())
		} else {
			r.state = StateIdle
			r.lastError = ""
			observability.RecordScan("success", time.Since(start).Seconds())
			observability.RecordSuccessfulScan(time.Now().Unix())
		}
		r.mu.Unlock()
	}()

	since := start.UTC().Add(-window)
	result = &Result{Sources: sources}

	// FETCHING
	r.setState(StateFetching)
	var items []*domain.Item
	for _, source := range sources {
		fetched, ferr := r.source.Fetch(ctx, source)
		if ferr != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, ferr)
		}
		items = append(items, fetched...)
	}
	result.ItemsFetched = len(items)
	observability.RecordItemsFetched(len(items))

	// COLLECTING
	r.setState(StateCollecting)
	collected := collect.Collect(items, since)
	result.ItemsScanned = collected.ItemsScanned
	result.ItemsSkipped = collected.ItemsSkipped
	observability.RecordItemsSkipped(collected.ItemsSkipped)

	result.TokensDetected = make([]string, 0, collected.TokenCount())
	attempted := 0
	for token, stamps := range collected.Occurrences {
		result.TokensDetected = append(result.TokensDetected, token)
		attempted += len(stamps)
	}
	sort.Strings(result.TokensDetected)

	// PERSISTING
	r.setState(StatePersisting)
	inserted, aerr := r.store.Append(ctx, collected.ForAppend())
	if aerr != nil {
		return nil, fmt.Errorf("append occurrences: %w", aerr)
	}
	result.Inserted = inserted
	result.Duplicates = attempted - inserted
	observability.RecordOccurrences(inserted, result.Duplicates)

	top, terr := r.store.TopTokens(ctx, r.topN)
	if terr != nil {
		return nil, fmt.Errorf("rank top tokens: %w", terr)
	}
	result.TopTokens = top
	result.Duration = time.Since(start)

	r.logger.Printf("scan done: %d sources, %d items (%d skipped), %d tokens, %d inserted, %d duplicate",
		len(sources), result.ItemsFetched, result.ItemsSkipped, len(result.TokensDetected), result.Inserted, result.Duplicates)

	return result, nil
}
