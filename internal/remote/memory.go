package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Store. It records how often each operation ran
// and can be told to fail, which makes it the backend of choice for tests.
type Memory struct {
	mu       sync.Mutex
	tables   map[string]map[string]Row
	failures map[string]error
	calls    map[string]int
	closed   bool
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string]map[string]Row),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailOn makes every subsequent call of op return err. An empty op matches
// all operations; a nil err clears the failure.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls reports how many times op has been invoked, failed calls included.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Seed inserts rows directly, bypassing failure injection and call counts.
func (m *Memory) Seed(table string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(table)
	for _, r := range rows {
		t[r.ID] = r
	}
}

// Rows returns a snapshot of table ordered like SelectAll.
func (m *Memory) Rows(table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(table)
}

func (m *Memory) table(name string) map[string]Row {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]Row)
		m.tables[name] = t
	}
	return t
}

func (m *Memory) sorted(name string) []Row {
	rows := make([]Row, 0, len(m.tables[name]))
	for _, r := range m.tables[name] {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows
}

// begin counts the call and returns the injected failure, if any.
func (m *Memory) begin(ctx context.Context, op string) error {
	m.calls[op]++
	if m.closed {
		return fmt.Errorf("memory store closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := m.failures[op]; ok {
		return err
	}
	return m.failures[""]
}

func (m *Memory) Configured() bool { return true }

func (m *Memory) SelectAll(ctx context.Context, table string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpSelectAll); err != nil {
		return nil, err
	}
	return m.sorted(table), nil
}

func (m *Memory) SelectOne(ctx context.Context, table, id string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpSelectOne); err != nil {
		return Row{}, err
	}
	r, ok := m.tables[table][id]
	if !ok {
		return Row{}, fmt.Errorf("%s/%s: %w", table, id, ErrNotFound)
	}
	return r, nil
}

func (m *Memory) Upsert(ctx context.Context, table string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpsert); err != nil {
		return err
	}
	t := m.table(table)
	for _, r := range rows {
		r.Data = append([]byte(nil), r.Data...)
		t[r.ID] = r
	}
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteAll); err != nil {
		return err
	}
	t := m.table(table)
	for id := range t {
		if id != "" {
			delete(t, id)
		}
	}
	return nil
}

func (m *Memory) DeleteOne(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteOne); err != nil {
		return err
	}
	delete(m.table(table), id)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
