// Package memory is an in-process exporter used when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New() *Store {
	return &Store{}
}

// Export stores the transaction and returns a synthetic row reference.
func (s *Store) Export(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Exported returns a copy of everything written so far.
func (s *Store) Exported() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...)
}
