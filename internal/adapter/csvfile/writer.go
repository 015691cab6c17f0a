package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
)

// Writer saves each cleaned batch as <dir>/<source>-cleaned.csv.
// It implements pipeline.Sink.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a cleaned CSV sink rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "csv" }

// Path returns the file a batch from src is written to.
func (w *Writer) Path(src domain.Source) string {
	return filepath.Join(w.dir, src.Name+"-cleaned.csv")
}

// Publish writes the batch with canonical headers and no identifier column.
// The file is written to a temporary name and renamed into place, so a failed
// attempt never leaves a truncated file behind.
func (w *Writer) Publish(ctx context.Context, batch domain.CleanedBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create cleaned dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, "."+batch.Source.Name+"-*.csv")
	if err != nil {
		return fmt.Errorf("create cleaned file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := writeBatch(tmp, batch); err != nil {
		tmp.Close()
		return fmt.Errorf("write cleaned %s: %w", batch.Source.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cleaned %s: %w", batch.Source.Name, err)
	}

	dst := w.Path(batch.Source)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("save cleaned %s: %w", batch.Source.Name, err)
	}

	w.logger.Debug("cleaned file saved", "source", batch.Source.Name, "path", dst, "rows", len(batch.Rows))
	return nil
}

func writeBatch(f *os.File, batch domain.CleanedBatch) error {
	cw := csv.NewWriter(f)
	if err := cw.Write(batch.Columns); err != nil {
		return err
	}
	record := make([]string, len(batch.Columns))
	for _, obs := range batch.Rows {
		for i, name := range batch.Columns {
			record[i] = obs.Get(name).String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
