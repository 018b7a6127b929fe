// Package main runs a single scan pass: fetch forum items, extract
// candidate tickers, persist occurrences and print the top tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ticker-mention-lab/internal/forum"
	"ticker-mention-lab/internal/scan"
	"ticker-mention-lab/internal/storage"
	chstore "ticker-mention-lab/internal/storage/clickhouse"
	"ticker-mention-lab/internal/storage/memory"
	"ticker-mention-lab/internal/storage/migrations"
	pgstore "ticker-mention-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	forumEndpoint := flag.String("forum-endpoint", envOr("FORUM_ENDPOINT", "https://www.reddit.com"), "Forum API base URL")
	sources := flag.String("sources", envOr("SCAN_SOURCES", "wallstreetbets,stocks,investing"), "Comma-separated forum sources to scan")
	backend := flag.String("storage", envOr("STORAGE_BACKEND", "postgres"), "Storage backend: memory, postgres or clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	window := flag.Duration("window", 24*time.Hour, "Lookback window for the scan")
	topN := flag.Int("top-n", scan.DefaultTopN, "Number of top tokens to print")

	flag.Parse()

	logger := log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile)

	sourceList := splitSources(*sources)
	if len(sourceList) == 0 {
		logger.Fatal("No sources specified. Use --sources")
	}

	ctx := context.Background()

	store, cleanup, err := createStore(ctx, *backend, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer cleanup()

	runner := scan.NewRunner(scan.RunnerOptions{
		Source: forum.NewClient(forum.WithEndpoint(*forumEndpoint)),
		Store:  store,
		TopN:   *topN,
		Logger: logger,
	})

	result, err := runner.RunScan(ctx, sourceList, *window)
	if err != nil {
		logger.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("Scanned %d items from %d sources (%d skipped)\n",
		result.ItemsFetched, len(sourceList), result.ItemsSkipped)
	fmt.Printf("Detected %d tokens, %d new occurrences, %d duplicates\n",
		len(result.TokensDetected), result.Inserted, result.Duplicates)

	fmt.Println("Top tokens:")
	for i, tc := range result.TopTokens {
		fmt.Printf("  %d. %-5s %d\n", i+1, tc.Token, tc.Count)
	}
}

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
