package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubSender запоминает отправленные батчи и отдаёт заранее заданные строки
// на каждый Query по порядку.
type stubSender struct {
	mu      sync.Mutex
	batches [][]*pgx.QueuedQuery
	results [][][]any
	err     error
}

func (s *stubSender) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	s.mu.Lock()
	defer s.mu.Unlock()

	copyQueries := append([]*pgx.QueuedQuery(nil), b.QueuedQueries...)
	s.batches = append(s.batches, copyQueries)
	return &stubBatchResults{results: s.results, err: s.err}
}

func (s *stubSender) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type stubBatchResults struct {
	results [][][]any
	next    int
	err     error
}

func (s *stubBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, s.err }

func (s *stubBatchResults) Query() (pgx.Rows, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.next >= len(s.results) {
		return &stubRows{}, nil
	}
	rows := &stubRows{data: s.results[s.next]}
	s.next++
	return rows, nil
}

func (s *stubBatchResults) QueryRow() pgx.Row { return nil }
func (s *stubBatchResults) Close() error     { return s.err }

type stubRows struct {
	data [][]any
	pos  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *stubRows) Values() ([]any, error) {
	if r.pos == 0 {
		return nil, errors.New("stub rows: Next not called")
	}
	return r.data[r.pos-1], nil
}

func (r *stubRows) Scan(dest ...any) error {
	row, err := r.Values()
	if err != nil {
		return err
	}
	if len(dest) != len(row) {
		return fmt.Errorf("stub rows: %d destinations for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *bool:
			*p = row[i].(bool)
		default:
			return fmt.Errorf("stub rows: unsupported destination %T", d)
		}
	}
	return nil
}
