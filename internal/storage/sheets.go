package storage

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheets is a Table backed by one worksheet of a Google spreadsheet
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheet         string
}

// NewSheets authenticates with a service-account JSON document. Extra
// client options are appended after the credentials.
func NewSheets(ctx context.Context, credsJSON, spreadsheetID, sheet string, opts ...option.ClientOption) (*Sheets, error) {
	clientOpts := []option.ClientOption{
		option.WithCredentialsJSON([]byte(credsJSON)),
		option.WithScopes(sheets.SpreadsheetsScope),
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewSheetsWithService(svc, spreadsheetID, sheet), nil
}

func NewSheetsWithService(svc *sheets.Service, spreadsheetID, sheet string) *Sheets {
	return &Sheets{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

func (s *Sheets) Header(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheet+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", s.sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return cellStrings(resp.Values[0]), nil
}

// Rows reads the whole worksheet in one call; the first row is the header
func (s *Sheets) Rows(ctx context.Context) ([]Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	header := cellStrings(resp.Values[0])
	rows := make([]Row, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		values := cellStrings(raw)
		if isBlank(values) {
			continue
		}
		rows = append(rows, Row{Index: i + 2, Fields: rowFields(header, values)})
	}
	return rows, nil
}

func (s *Sheets) AppendRow(ctx context.Context, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.sheet, &sheets.ValueRange{
		Values: [][]interface{}{cells},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", s.sheet, err)
	}
	return nil
}

func (s *Sheets) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("%w: row %d col %d", ErrOutOfRange, row, col)
	}

	rng := fmt.Sprintf("%s!%s%d", s.sheet, columnLetter(col), row)
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// columnLetter converts 1 to A, 27 to AA
func columnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func cellStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
