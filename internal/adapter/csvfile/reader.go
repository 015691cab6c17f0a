// Package csvfile reads raw survey files and writes cleaned copies of them.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/asv-water-quality-service/internal/domain"
)

const utf8BOM = "\ufeff"

// Reader loads raw batches from CSV files with a header row.
// It implements pipeline.Extractor.
type Reader struct{}

// NewReader creates a CSV source reader.
func NewReader() *Reader {
	return &Reader{}
}

// Extract reads the whole file named by src. Rows may have fewer or more
// cells than the header; the cleaner pads or truncates them.
func (r *Reader) Extract(ctx context.Context, src domain.Source) (domain.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawBatch{}, err
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("open source %s: %w", src.Name, err)
	}
	defer f.Close()

	batch, err := readBatch(ctx, f)
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("read source %s: %w", src.Name, err)
	}
	batch.Source = src
	return batch, nil
}

func readBatch(ctx context.Context, in io.Reader) (domain.RawBatch, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.RawBatch{}, fmt.Errorf("%w: file has no header row", domain.ErrSchemaMismatch)
	}
	if err != nil {
		return domain.RawBatch{}, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows [][]string
	for {
		if len(rows)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return domain.RawBatch{}, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.RawBatch{}, err
		}
		if blank(row) {
			continue
		}
		rows = append(rows, row)
	}

	return domain.RawBatch{Header: header, Rows: rows}, nil
}

// blank reports whether a row has no content, as trailing ",,," lines do.
func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
