// Package main generates mention reports from stored occurrences:
// a Markdown summary and a CSV series per granularity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"ticker-mention-lab/internal/aggregate"
	"ticker-mention-lab/internal/domain"
	"ticker-mention-lab/internal/reporting"
	"ticker-mention-lab/internal/scan"
	"ticker-mention-lab/internal/storage"
	chstore "ticker-mention-lab/internal/storage/clickhouse"
	"ticker-mention-lab/internal/storage/migrations"
	pgstore "ticker-mention-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	backend := flag.String("storage", envOr("STORAGE_BACKEND", "postgres"), "Storage backend: postgres or clickhouse")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	topN := flag.Int("top-n", scan.DefaultTopN, "Number of top tokens to report")
	groupBy := flag.String("group-by", "", "Granularity: day or week (empty generates both)")
	flag.Parse()

	ctx := context.Background()

	store, cleanup, err := createStore(ctx, *backend, *postgresDSN, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	granularities := []domain.Granularity{domain.GranularityDay, domain.GranularityWeek}
	if *groupBy != "" {
		g, err := domain.ParseGranularity(*groupBy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		granularities = []domain.Granularity{g}
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	generator := reporting.NewGenerator(aggregate.New(store))

	fmt.Println("Mention reports generated:")
	for _, granularity := range granularities {
		report, err := generator.Generate(ctx, *topN, granularity)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s report: %v\n", granularity, err)
			os.Exit(1)
		}

		mdPath := filepath.Join(*outputDir, fmt.Sprintf("mentions_%s.md", granularity))
		if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", mdPath, err)
			os.Exit(1)
		}

		csvPath := filepath.Join(*outputDir, fmt.Sprintf("mentions_%s.csv", granularity))
		if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
			os.Exit(1)
		}

		fmt.Printf("  - %s\n", mdPath)
		fmt.Printf("  - %s\n", csvPath)
		if report.MalformedTimestamps > 0 {
			fmt.Printf("    (skipped %d malformed stored timestamps)\n", report.MalformedTimestamps)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// createStore connects to the selected backend. Reports read existing
// data, so the memory backend is not offered here.
func createStore(ctx context.Context, backend, postgresDSN, clickhouseDSN string) (storage.OccurrenceStore, func(), error) {
	switch backend {
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
