// Package memory is an in-process RechargeWriter for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/export"
	ports "github.com/Badr133ne/sim-charge-guardian/internal/sheets"
)

var _ ports.RechargeWriter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Store {
	return &Store{}
}

// AppendRecharges keeps the rendered rows in memory.
func (s *Store) AppendRecharges(_ context.Context, sim core.SimCard, recharges []core.Recharge) (int, error) {
	if len(recharges) == 0 {
		return 0, export.ErrNothingToExport
	}
	rows := ports.Rows(sim, recharges)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return len(rows), nil
}

// Rows returns a copy of every row appended so far.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
