package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/export"
)

func TestAppendRecharges(t *testing.T) {
	s := New()
	sim := core.SimCard{ID: "s1", Number: "0661"}

	if _, err := s.AppendRecharges(context.Background(), sim, nil); !errors.Is(err, export.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}

	n, err := s.AppendRecharges(context.Background(), sim, []core.Recharge{
		{ID: "r1", Date: "2025-01-02", Time: "08:00", OperationID: "X1", Amount: 50, ForUser2: true},
	})
	if err != nil || n != 1 {
		t.Fatalf("append: n=%d err=%v", n, err)
	}

	rows := s.Rows()
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	want := []any{"0661", "2025-01-02", "08:00", "X1", 50.0, "No", "Yes"}
	for i, v := range want {
		if rows[0][i] != v {
			t.Errorf("cell %d = %#v, want %#v", i, rows[0][i], v)
		}
	}

	rows[0][0] = "mutated"
	if s.Rows()[0][0] != "0661" {
		t.Fatal("Rows must return a copy")
	}
}
