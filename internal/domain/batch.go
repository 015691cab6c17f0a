package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Source identifies one raw survey file.
type Source struct {
	Name string // short label used in logs and reports
	Path string
}

// NewSource builds a Source for path, naming it after the file's base name
// without the extension.
func NewSource(path string) Source {
	base := filepath.Base(path)
	return Source{
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Path: path,
	}
}

// RawBatch is the unprocessed content of one source: a header row and the
// data rows as read.
type RawBatch struct {
	Source Source
	Header []string
	Rows   [][]string
}

// CleanedBatch is a batch after the cleaning pass. Columns lists the
// canonical field names in source order.
type CleanedBatch struct {
	Source  Source
	Columns []string
	Rows    []Observation
	Report  CleaningReport
}

// CleaningReport summarizes what the cleaning pass did to one source.
type CleaningReport struct {
	Source        string    `json:"source"`
	OriginalRows  int       `json:"original_rows"`
	RowsRemoved   int       `json:"rows_removed"`
	RowsRemaining int       `json:"rows_remaining"`
	CleanedAt     time.Time `json:"cleaned_at"`
	Error         string    `json:"error,omitempty"`
}
