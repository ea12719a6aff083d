package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/newscurator/internal/models"
)

var (
	// ErrUnknownColumn is returned when a header lacks a requested column
	ErrUnknownColumn = errors.New("unknown column")
	// ErrOutOfRange is returned for cell coordinates outside the table
	ErrOutOfRange = errors.New("cell out of range")
)

// Row is one data row. Index is the 1-based row number in the table, the
// header being row 1, so the first data row has Index 2.
type Row struct {
	Index  int
	Fields map[string]string
}

// Get returns the raw value of a named column, "" when absent
func (r Row) Get(name string) string {
	return r.Fields[name]
}

// Table is a spreadsheet-like collection with a header row. Rows and columns
// are 1-based.
type Table interface {
	Header(ctx context.Context) ([]string, error)
	Rows(ctx context.Context) ([]Row, error)
	AppendRow(ctx context.Context, values []string) error
	UpdateCell(ctx context.Context, row, col int, value string) error
}

// Column returns the 1-based index of name in the table header
func Column(ctx context.Context, t Table, name string) (int, error) {
	header, err := t.Header(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read header: %w", err)
	}
	if col := models.ColumnIndex(header, name); col > 0 {
		return col, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
}

// rowFields maps values onto header names; missing trailing cells read as ""
func rowFields(header, values []string) map[string]string {
	fields := make(map[string]string, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if i < len(values) {
			fields[h] = values[i]
		} else {
			fields[h] = ""
		}
	}
	return fields
}
