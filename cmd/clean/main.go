// Command clean runs the outlier cleaning pass over raw survey files and writes
// a cleaned copy of each, printing the per-file cleaning report.
//
// Usage:
//
//	go run ./cmd/clean -out-dir data/cleaned \
//	  data/raw/2021-dec16.csv data/raw/2021-oct21.csv \
//	  data/raw/2022-nov16.csv data/raw/2022-oct7.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/asv-water-quality-service/internal/adapter/csvfile"
	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
)

func main() {
	if code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("out-dir", "data/cleaned", "directory for <name>-cleaned.csv output")
	threshold := fs.Float64("threshold", domain.DefaultZScoreThreshold, "absolute z-score above which a row is removed")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: clean [-out-dir DIR] [-threshold Z] file.csv...")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	reader := csvfile.NewReader()
	cleaner := domain.NewCleaner(*threshold)
	writer := csvfile.NewWriter(*outDir, logger)

	failed := 0
	for _, path := range fs.Args() {
		src := domain.NewSource(path)
		fmt.Fprintf(stdout, "\nProcessing file: %s\n", path)

		cleaned, err := cleanOne(ctx, reader, cleaner, writer, src)
		if err != nil {
			fmt.Fprintf(stderr, "FAIL: %v\n", err)
			failed++
			continue
		}

		r := cleaned.Report
		fmt.Fprintln(stdout, "Data Cleaning Report:")
		fmt.Fprintf(stdout, "  Original rows: %d\n", r.OriginalRows)
		fmt.Fprintf(stdout, "  Rows removed: %d\n", r.RowsRemoved)
		fmt.Fprintf(stdout, "  Rows remaining: %d\n", r.RowsRemaining)
		fmt.Fprintf(stdout, "  Cleaned file saved to: %s\n", writer.Path(src))
	}

	if failed > 0 {
		fmt.Fprintf(stderr, "\n%d of %d files failed\n", failed, fs.NArg())
		return 1
	}
	return 0
}

func cleanOne(ctx context.Context, reader *csvfile.Reader, cleaner *domain.Cleaner, writer *csvfile.Writer, src domain.Source) (domain.CleanedBatch, error) {
	raw, err := reader.Extract(ctx, src)
	if err != nil {
		return domain.CleanedBatch{}, err
	}
	cleaned, err := cleaner.Clean(raw)
	if err != nil {
		return domain.CleanedBatch{}, err
	}
	if err := writer.Publish(ctx, cleaned); err != nil {
		return domain.CleanedBatch{}, err
	}
	return cleaned, nil
}
