package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Table used by tests and the memory backend
type Memory struct {
	mu     sync.RWMutex
	header []string
	rows   [][]string
}

func NewMemory(header []string, rows ...[]string) *Memory {
	m := &Memory{header: append([]string(nil), header...)}
	for _, r := range rows {
		m.rows = append(m.rows, append([]string(nil), r...))
	}
	return m
}

func (m *Memory) Header(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.header...), nil
}

func (m *Memory) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]Row, 0, len(m.rows))
	for i, values := range m.rows {
		rows = append(rows, Row{Index: i + 2, Fields: rowFields(m.header, values)})
	}
	return rows, nil
}

func (m *Memory) AppendRow(ctx context.Context, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), values...))
	return nil
}

func (m *Memory) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if row < 2 || row-2 >= len(m.rows) || col < 1 || col > len(m.header) {
		return fmt.Errorf("%w: row %d col %d", ErrOutOfRange, row, col)
	}
	values := m.rows[row-2]
	for len(values) < col {
		values = append(values, "")
	}
	values[col-1] = value
	m.rows[row-2] = values
	return nil
}

// Values returns a copy of the data rows, header excluded
func (m *Memory) Values() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
