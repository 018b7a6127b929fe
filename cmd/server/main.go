// Package main provides the unified service that runs all components:
// - Scanning (scheduled or on-demand): forum fetch → token extraction → store
// - Aggregation (on-demand): top-N bucketed mention series
// - Reporting (scheduled): Markdown summary and CSV series
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ticker-mention-lab/internal/aggregate"
	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/forum"
	"ticker-mention-lab/internal/observability"
	"ticker-mention-lab/internal/reporting"
	"ticker-mention-lab/internal/scan"
	"ticker-mention-lab/internal/storage"
	chstore "ticker-mention-lab/internal/storage/clickhouse"
	"ticker-mention-lab/internal/storage/memory"
	"ticker-mention-lab/internal/storage/migrations"
	pgstore "ticker-mention-lab/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	sources        []string
	window         time.Duration
	topN           int
	outputDir      string
	scanInterval   time.Duration
	reportInterval time.Duration

	// Components
	runner     *scan.Runner
	aggregator *aggregate.Aggregator
	generator  *reporting.Generator
	logger     *log.Logger

	// State
	mu            sync.Mutex
	lastScanRun   time.Time
	lastReportRun time.Time
	scanRunning   bool
	reportRunning bool
	started       time.Time

	// Stats
	scanRuns   int
	reportRuns int
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	forumEndpoint := flag.String("forum-endpoint", envOr("FORUM_ENDPOINT", "https://www.reddit.com"), "Forum API base URL")
	sources := flag.String("sources", envOr("SCAN_SOURCES", "wallstreetbets,stocks,investing"), "Comma-separated forum sources to scan")
	backend := flag.String("storage", envOr("STORAGE_BACKEND", "postgres"), "Storage backend: memory, postgres or clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	window := flag.Duration("window", 24*time.Hour, "Lookback window for each scan")
	topN := flag.Int("top-n", envIntOr("TOP_N", scan.DefaultTopN), "Number of top tokens to track")
	scanInterval := flag.Duration("scan-interval", 1*time.Hour, "Scan run interval (0 disables the scheduler)")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report generation interval (0 disables the scheduler)")
	scanTimeout := flag.Duration("scan-timeout", scan.DefaultScanTimeout, "Bound on a single scan run")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	sourceList := splitSources(*sources)
	if len(sourceList) == 0 {
		logger.Fatal("No sources specified. Use --sources")
	}
	logger.Printf("Scanning sources: %v", sourceList)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create store
	store, cleanup, err := createStore(ctx, *backend, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	// Create components
	source := forum.NewClient(forum.WithEndpoint(*forumEndpoint))
	runner := scan.NewRunner(scan.RunnerOptions{
		Source:  source,
		Store:   store,
		TopN:    *topN,
		Timeout: *scanTimeout,
		Logger:  log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile),
	})
	aggregator := aggregate.New(store)

	server := &Server{
		sources:        sourceList,
		window:         *window,
		topN:           *topN,
		outputDir:      *outputDir,
		scanInterval:   *scanInterval,
		reportInterval: *reportInterval,
		runner:         runner,
		aggregator:     aggregator,
		generator:      reporting.NewGenerator(aggregator),
		logger:         logger,
		started:        time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*httpAddr)

	// Run the schedulers
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// splitSources splits the comma-separated source list, dropping blanks.
func splitSources(raw string) []string {
	var list []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			list = append(list, s)
		}
	}
	return list
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// createStore creates the occurrence store for the selected backend.
func createStore(ctx context.Context, backend, postgresDSN, clickhouseDSN string) (storage.OccurrenceStore, func(), error) {
	switch backend {
	case "memory":
		return memory.NewOccurrenceStore(), func() {}, nil

	case "postgres":
		if postgresDSN == "" {
			return nil, nil, fmt.Errorf("--postgres-dsn is required for the postgres backend")
		}
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		return pgstore.NewOccurrenceStore(pool), pool.Close, nil

	case "clickhouse":
		if clickhouseDSN == "" {
			return nil, nil, fmt.Errorf("--clickhouse-dsn is required for the clickhouse backend")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		return chstore.NewOccurrenceStore(conn), func() { conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// Run starts the scan and report schedulers and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	errCh := make(chan error, 2)

	if s.scanInterval > 0 {
		go func() {
			err := s.runScanScheduler(ctx)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("scan scheduler: %w", err)
			}
		}()
	}

	if s.reportInterval > 0 {
		go func() {
			err := s.runReportScheduler(ctx)
			if err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("report scheduler: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runScanScheduler runs scans on schedule.
func (s *Server) runScanScheduler(ctx context.Context) error {
	s.logger.Printf("Starting scan scheduler (interval: %v)...", s.scanInterval)

	// Run immediately on start
	s.runScan(ctx)

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runScan(ctx)
		}
	}
}

// runScan executes one scan pass.
func (s *Server) runScan(ctx context.Context) {
	s.mu.Lock()
	if s.scanRunning {
		s.mu.Unlock()
		s.logger.Println("Scan already running, skipping...")
		return
	}
	s.scanRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanRunning = false
		s.lastScanRun = time.Now()
		s.scanRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Running scan...")

	result, err := s.runner.RunScan(ctx, s.sources, s.window)
	if err != nil {
		s.logger.Printf("Scan error: %v", err)
		return
	}

	s.logger.Printf("Scan completed in %v: %d items, %d tokens, %d new occurrences",
		result.Duration, result.ItemsFetched, len(result.TokensDetected), result.Inserted)
}

// runReportScheduler runs report generation on schedule.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.logger.Printf("Starting report scheduler (interval: %v)...", s.reportInterval)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport generates reports for both granularities.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report generation already running, skipping...")
		return
	}
	s.reportRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	s.logger.Println("Generating reports...")
	start := time.Now()

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Printf("Failed to create output directory: %v", err)
		return
	}

	for _, granularity := range []domain.Granularity{domain.GranularityDay, domain.GranularityWeek} {
		report, err := s.generator.Generate(ctx, s.topN, granularity)
		if err != nil {
			s.logger.Printf("Report generation error (%s): %v", granularity, err)
			return
		}

		mdPath := filepath.Join(s.outputDir, fmt.Sprintf("mentions_%s.md", granularity))
		if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
			s.logger.Printf("Failed to write %s: %v", mdPath, err)
			return
		}

		csvPath := filepath.Join(s.outputDir, fmt.Sprintf("mentions_%s.csv", granularity))
		if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0644); err != nil {
			s.logger.Printf("Failed to write %s: %v", csvPath, err)
			return
		}
	}

	s.logger.Printf("Reports generated in %v to %s/", time.Since(start), s.outputDir)
}

// startHTTPServer starts the HTTP server for scan/series/health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Scan trigger
	mux.HandleFunc("/scan", s.handleScan)

	// Aggregated series
	mux.HandleFunc("/series", s.handleSeries)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string      `json:"status"`
	Uptime        string      `json:"uptime"`
	Scanner       scan.Status `json:"scanner"`
	Sources       []string    `json:"sources"`
	LastScanRun   time.Time   `json:"last_scan_run,omitempty"`
	LastReportRun time.Time   `json:"last_report_run,omitempty"`
	ScanRuns      int         `json:"scan_runs"`
	ReportRuns    int         `json:"report_runs"`
	ScanRunning   bool        `json:"scan_running"`
	ReportRunning bool        `json:"report_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		Sources:       s.sources,
		LastScanRun:   s.lastScanRun,
		LastReportRun: s.lastReportRun,
		ScanRuns:      s.scanRuns,
		ReportRuns:    s.reportRuns,
		ScanRunning:   s.scanRunning,
		ReportRunning: s.reportRunning,
	}
	s.mu.Unlock()
	resp.Scanner = s.runner.Status()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ScanRequest is the optional JSON body for POST /scan. Absent fields
// fall back to the server's configured sources and window.
type ScanRequest struct {
	Sources []string `json:"sources"`
	Days    int      `json:"days"`
}

// handleScan triggers one scan pass and returns its summary as JSON.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sources := s.sources
	window := s.window

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Sources) > 0 {
		sources = req.Sources
	}
	if req.Days < 0 {
		http.Error(w, "days must not be negative", http.StatusBadRequest)
		return
	}
	if req.Days > 0 {
		window = time.Duration(req.Days) * 24 * time.Hour
	}

	result, err := s.runner.RunScan(r.Context(), sources, window)
	if err != nil {
		s.logger.Printf("Scan request failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.lastScanRun = time.Now()
	s.scanRuns++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// SeriesResponse is the JSON response for /series endpoint.
type SeriesResponse struct {
	Granularity         string                   `json:"granularity"`
	Tokens              []domain.TokenCount      `json:"tokens"`
	Series              map[string]domain.Series `json:"series"`
	MalformedTimestamps int                      `json:"malformed_timestamps"`
}

// handleSeries returns bucketed series for the current top tokens.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	granularity, err := domain.ParseGranularity(r.URL.Query().Get("group_by"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n := s.topN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	top, err := s.aggregator.TopSeries(r.Context(), n, granularity)
	if err != nil {
		s.logger.Printf("Series request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	observability.RecordSeriesRequest(granularity.String(), top.MalformedTimestamps)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SeriesResponse{
		Granularity:         granularity.String(),
		Tokens:              top.Counts,
		Series:              top.Series,
		MalformedTimestamps: top.MalformedTimestamps,
	})
}
