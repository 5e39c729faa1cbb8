package store

import (
	"fmt"
	"sync"
)

// Memory is the in-process backend. It is the default for development and
// the fixture for tests. Each table is a slice of physical rows, index 0
// being the header (physical row 1).
type Memory struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][][]string)}
}

func (m *Memory) CreateTable(table string, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[table]; ok {
		return nil
	}
	m.tables[table] = [][]string{append([]string(nil), header...)}
	return nil
}

func (m *Memory) ReadAll(table string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	header := rows[0]
	out := make([]Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		out = append(out, rowFromCells(header, rows[i], i+1))
	}
	return out, nil
}

func (m *Memory) AppendRow(table string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	m.tables[table] = append(rows, append([]string(nil), values...))
	return nil
}

func (m *Memory) SetCell(table string, rowNum int, column string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if rowNum < 2 || rowNum > len(rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	col := columnIndex(rows[0], column)
	if col == -1 {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, column)
	}

	row := padCells(rows[rowNum-1], col+1)
	row[col] = value
	rows[rowNum-1] = row
	return nil
}

func (m *Memory) DeleteRow(table string, rowNum int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if rowNum < 2 || rowNum > len(rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowOutOfRange, table, rowNum)
	}

	m.tables[table] = append(rows[:rowNum-1], rows[rowNum:]...)
	return nil
}
