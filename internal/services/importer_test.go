package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/smsparser"
	"github.com/Badr133ne/sim-charge-guardian/internal/storage"
	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

const rechargeSms = "Vous avez reçu une recharge de 1,800 DA. ID: 240191615748."

var receivedAt = time.Date(2025, 3, 14, 18, 45, 0, 0, time.UTC)

func newTestImporter(t *testing.T) (*RechargeImporter, *store.Store, string) {
	t.Helper()
	s := store.New(context.Background(), storage.NewMemoryStore())
	simID, err := s.AddSimCard(context.Background(), "0550000001", "SIM 1", "", "")
	if err != nil {
		t.Fatalf("AddSimCard: %v", err)
	}
	cfg := ImporterConfig{DedupeSize: 16, DedupeTTL: time.Hour, Location: time.UTC}
	return NewRechargeImporter(s, smsparser.New(smsparser.Options{}), cfg, nil, nil), s, simID
}

func TestImportAddsRecharge(t *testing.T) {
	imp, s, simID := newTestImporter(t)

	res, err := imp.Import(context.Background(), core.SmsMessage{SimID: simID, Body: rechargeSms, ReceivedAt: receivedAt})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Outcome != ImportAdded || res.RechargeID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	got := s.GetRechargesBySimAndDate(simID, "2025-03-14")
	if len(got) != 1 {
		t.Fatalf("recharges = %d, want 1", len(got))
	}
	r := got[0]
	if r.Amount != 1.8 || r.OperationID != "240191615748" || r.Time != "18:45" {
		t.Fatalf("unexpected recharge: %+v", r)
	}
	if r.ForUser1 || r.ForUser2 {
		t.Fatalf("imported recharges are not attributed to a user")
	}
}

func TestImportOutcomes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ImportOutcome
	}{
		{name: "unrelated message", body: "Meeting at 5pm", want: ImportIgnored},
		{name: "carrier message without recharge", body: "Djezzy: profitez de nos offres", want: ImportIgnored},
		{name: "recharge without id", body: "Votre crédit a été rechargé de 200 DA", want: ImportIgnored},
		{name: "recharge without amount", body: "Recharge de votre ligne, N° 12345", want: ImportIgnored},
		{name: "complete recharge", body: "Recharge de 500 DZD effectuee. Ref 99AB12", want: ImportAdded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp, _, simID := newTestImporter(t)
			res, err := imp.Import(context.Background(), core.SmsMessage{SimID: simID, Body: tt.body, ReceivedAt: receivedAt})
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if res.Outcome != tt.want {
				t.Fatalf("outcome = %s (%s), want %s", res.Outcome, res.Reason, tt.want)
			}
		})
	}
}

func TestImportDeduplicates(t *testing.T) {
	imp, s, simID := newTestImporter(t)
	msg := core.SmsMessage{SimID: simID, Body: rechargeSms, ReceivedAt: receivedAt}

	if _, err := imp.Import(context.Background(), msg); err != nil {
		t.Fatalf("Import: %v", err)
	}
	res, err := imp.Import(context.Background(), msg)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if res.Outcome != ImportDuplicate {
		t.Fatalf("outcome = %s, want duplicate", res.Outcome)
	}

	// Same operation id in differently worded text.
	res, _ = imp.Import(context.Background(), core.SmsMessage{SimID: simID, Body: "Recharge de 1800 DA, ID 240191615748", ReceivedAt: receivedAt})
	if res.Outcome != ImportDuplicate {
		t.Fatalf("outcome = %s, want duplicate by operation id", res.Outcome)
	}

	if n := len(s.GetRechargesBySim(simID)); n != 1 {
		t.Fatalf("recharges = %d, want 1", n)
	}
}

func TestImportFingerprintCatchesDeletedRecharge(t *testing.T) {
	imp, s, simID := newTestImporter(t)
	msg := core.SmsMessage{SimID: simID, Body: rechargeSms, ReceivedAt: receivedAt}

	res, _ := imp.Import(context.Background(), msg)
	if err := s.DeleteRecharge(context.Background(), res.RechargeID); err != nil {
		t.Fatalf("DeleteRecharge: %v", err)
	}

	res, _ = imp.Import(context.Background(), msg)
	if res.Outcome != ImportDuplicate {
		t.Fatalf("replayed SMS should be caught by its fingerprint, got %s", res.Outcome)
	}
}

func TestImportErrors(t *testing.T) {
	imp, _, simID := newTestImporter(t)

	if _, err := imp.Import(context.Background(), core.SmsMessage{SimID: "ghost", Body: rechargeSms}); !errors.Is(err, core.ErrSimNotFound) {
		t.Fatalf("unknown SIM: %v", err)
	}
	if _, err := imp.Import(context.Background(), core.SmsMessage{SimID: simID}); !errors.Is(err, core.ErrEmptySms) {
		t.Fatalf("empty body: %v", err)
	}
}

func TestImportUsesClockWhenReceiveTimeMissing(t *testing.T) {
	imp, s, simID := newTestImporter(t)
	imp.now = func() time.Time { return time.Date(2025, 1, 2, 7, 5, 0, 0, time.UTC) }

	if _, err := imp.Import(context.Background(), core.SmsMessage{SimID: simID, Body: rechargeSms}); err != nil {
		t.Fatalf("Import: %v", err)
	}
	got := s.GetRechargesBySimAndDate(simID, "2025-01-02")
	if len(got) != 1 || got[0].Time != "07:05" {
		t.Fatalf("unexpected recharges: %+v", got)
	}
}

func TestImportAll(t *testing.T) {
	imp, s, simID := newTestImporter(t)
	msgs := []core.SmsMessage{
		{SimID: simID, Body: rechargeSms, ReceivedAt: receivedAt},
		{SimID: simID, Body: "Hello, how are you?", ReceivedAt: receivedAt},
		{SimID: "ghost", Body: rechargeSms, ReceivedAt: receivedAt},
		{SimID: simID, Body: "Montant: 1000 dinars, numéro: X77", ReceivedAt: receivedAt},
	}

	results := imp.ImportAll(context.Background(), msgs)
	want := []ImportOutcome{ImportAdded, ImportIgnored, ImportFailed, ImportAdded}
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Outcome != w {
			t.Errorf("result %d = %s, want %s", i, results[i].Outcome, w)
		}
	}
	if total := s.GetTotalsByDate(simID, "2025-03-14").Total; total != 1001.8 {
		t.Fatalf("total = %v, want 1001.8", total)
	}
}

func TestImportAllStopsOnCancelledContext(t *testing.T) {
	imp, s, simID := newTestImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := imp.ImportAll(ctx, []core.SmsMessage{{SimID: simID, Body: rechargeSms}})
	if len(results) != 1 || results[0].Outcome != ImportFailed {
		t.Fatalf("unexpected results: %+v", results)
	}
	if len(s.Recharges()) != 0 {
		t.Fatalf("nothing should be recorded")
	}
}
