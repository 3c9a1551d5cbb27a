package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

// fakePersister keeps the encoded snapshot so every round trip goes through JSON.
type fakePersister struct {
	mu      sync.Mutex
	payload []byte
	saves   int
	loadErr error
	saveErr error
}

func (p *fakePersister) Load(context.Context) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return State{}, p.loadErr
	}
	if p.payload == nil {
		return State{}, ErrNoState
	}
	return Decode(p.payload)
}

func (p *fakePersister) Save(_ context.Context, st State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	data, err := Encode(st)
	if err != nil {
		return err
	}
	p.payload = data
	p.saves++
	return nil
}

func (p *fakePersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) (*Store, *fakePersister) {
	t.Helper()
	p := &fakePersister{}
	return New(context.Background(), p, WithIDGenerator(sequentialIDs()), WithClock(fixedClock)), p
}

func mustAddSim(t *testing.T, s *Store, number string) string {
	t.Helper()
	id, err := s.AddSimCard(context.Background(), number, "SIM "+number, "", "")
	if err != nil {
		t.Fatalf("AddSimCard: %v", err)
	}
	return id
}

func mustAddRecharge(t *testing.T, s *Store, in core.NewRecharge) string {
	t.Helper()
	id, err := s.AddRecharge(context.Background(), in)
	if err != nil {
		t.Fatalf("AddRecharge: %v", err)
	}
	return id
}

func recharge(simID, date string, amount float64, u1, u2 bool) core.NewRecharge {
	return core.NewRecharge{
		SimID:       simID,
		Date:        date,
		Time:        "10:15",
		OperationID: fmt.Sprintf("op-%v", amount),
		Amount:      amount,
		ForUser1:    u1,
		ForUser2:    u2,
	}
}

func TestNewStartsEmpty(t *testing.T) {
	tests := []struct {
		name string
		p    *fakePersister
	}{
		{name: "nothing persisted", p: &fakePersister{}},
		{name: "load failure", p: &fakePersister{loadErr: errors.New("disk on fire")}},
		{name: "corrupt payload", p: &fakePersister{payload: []byte("{not json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(context.Background(), tt.p)
			st := s.State()
			if len(st.SimCards) != 0 || len(st.Recharges) != 0 || len(st.Balances) != 0 {
				t.Fatalf("expected empty state, got %+v", st)
			}
			if st.CurrentSimID != "" || st.User != nil {
				t.Fatalf("expected no selection and no user, got %+v", st)
			}
		})
	}
}

func TestAddSimCard(t *testing.T) {
	s, p := newTestStore(t)

	if _, err := s.AddSimCard(context.Background(), "   ", "x", "", ""); !errors.Is(err, core.ErrEmptyNumber) {
		t.Fatalf("blank number: got %v", err)
	}
	if p.saveCount() != 0 {
		t.Fatalf("rejected command must not persist")
	}

	first := mustAddSim(t, s, "0550000001")
	second := mustAddSim(t, s, "0660000002")

	if first == second {
		t.Fatalf("ids must be unique")
	}
	if got := s.CurrentSimID(); got != first {
		t.Fatalf("current = %q, want first SIM %q", got, first)
	}
	sim, ok := s.GetSimByID(first)
	if !ok {
		t.Fatalf("first SIM not found")
	}
	if sim.CreatedAt != "2025-03-14T09:30:00.000Z" {
		t.Fatalf("createdAt = %q", sim.CreatedAt)
	}
	if p.saveCount() != 2 {
		t.Fatalf("saves = %d, want 2", p.saveCount())
	}
}

func TestSetCurrentSimIsUnconditional(t *testing.T) {
	s, _ := newTestStore(t)
	mustAddSim(t, s, "1")

	if err := s.SetCurrentSim(context.Background(), "ghost"); err != nil {
		t.Fatalf("SetCurrentSim: %v", err)
	}
	if s.CurrentSimID() != "ghost" {
		t.Fatalf("selection not stored")
	}
	if _, ok := s.GetCurrentSim(); ok {
		t.Fatalf("dangling selection must resolve to nothing")
	}
}

func TestUpdateSimCard(t *testing.T) {
	s, p := newTestStore(t)
	id := mustAddSim(t, s, "1")
	before := p.saveCount()

	name := "Work"
	label := "Amine"
	if err := s.UpdateSimCard(context.Background(), id, core.SimCardPatch{Name: &name, User1Label: &label}); err != nil {
		t.Fatalf("UpdateSimCard: %v", err)
	}
	sim, _ := s.GetSimByID(id)
	if sim.Name != "Work" || sim.Number != "1" || sim.User1Label != "Amine" {
		t.Fatalf("unexpected SIM after patch: %+v", sim)
	}

	if err := s.UpdateSimCard(context.Background(), "missing", core.SimCardPatch{Name: &name}); err != nil {
		t.Fatalf("missing id should be a no-op, got %v", err)
	}
	if p.saveCount() != before+1 {
		t.Fatalf("no-op update must not persist")
	}
}

func TestDeleteSimCardCascades(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustAddSim(t, s, "A")
	b := mustAddSim(t, s, "B")
	mustAddRecharge(t, s, recharge(a, "2025-03-14", 100, true, false))
	keep := mustAddRecharge(t, s, recharge(b, "2025-03-14", 200, false, true))
	if err := s.UpdateSimBalance(ctx, a, core.SimBalance{Credit: 50, ValidityDate: "2025-04-01"}); err != nil {
		t.Fatalf("UpdateSimBalance: %v", err)
	}

	if err := s.DeleteSimCard(ctx, a); err != nil {
		t.Fatalf("DeleteSimCard: %v", err)
	}

	st := s.State()
	if len(st.SimCards) != 1 || st.SimCards[0].ID != b {
		t.Fatalf("unexpected SIMs: %+v", st.SimCards)
	}
	if len(st.Recharges) != 1 || st.Recharges[0].ID != keep {
		t.Fatalf("recharges of the deleted SIM must go: %+v", st.Recharges)
	}
	if _, ok := st.Balances[a]; ok {
		t.Fatalf("balance of the deleted SIM must go")
	}
	if st.CurrentSimID != b {
		t.Fatalf("current = %q, want %q", st.CurrentSimID, b)
	}

	if err := s.DeleteSimCard(ctx, b); err != nil {
		t.Fatalf("DeleteSimCard: %v", err)
	}
	if got := s.CurrentSimID(); got != "" {
		t.Fatalf("current = %q after deleting the last SIM", got)
	}
}

func TestDeleteInactiveSimKeepsSelection(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustAddSim(t, s, "A")
	b := mustAddSim(t, s, "B")

	if err := s.DeleteSimCard(context.Background(), b); err != nil {
		t.Fatalf("DeleteSimCard: %v", err)
	}
	if s.CurrentSimID() != a {
		t.Fatalf("selection changed")
	}
}

func TestAddRechargeValidation(t *testing.T) {
	s, p := newTestStore(t)
	sim := mustAddSim(t, s, "A")
	before := p.saveCount()

	tests := []struct {
		name string
		in   core.NewRecharge
		want error
	}{
		{name: "zero amount", in: recharge(sim, "2025-03-14", 0, true, false), want: core.ErrInvalidAmount},
		{name: "negative amount", in: recharge(sim, "2025-03-14", -5, true, false), want: core.ErrInvalidAmount},
		{name: "unknown SIM", in: recharge("ghost", "2025-03-14", 5, true, false), want: core.ErrSimNotFound},
		{name: "bad date", in: recharge(sim, "14/03/2025", 5, true, false), want: core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := s.AddRecharge(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if id != "" {
				t.Fatalf("rejected recharge got id %q", id)
			}
		})
	}
	if p.saveCount() != before || len(s.Recharges()) != 0 {
		t.Fatalf("rejected recharges must leave no trace")
	}
}

func TestUpdateAndDeleteRecharge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	sim := mustAddSim(t, s, "A")
	id := mustAddRecharge(t, s, recharge(sim, "2025-03-14", 100, true, false))

	amount := 150.5
	both := true
	if err := s.UpdateRecharge(ctx, id, core.RechargePatch{Amount: &amount, ForUser2: &both}); err != nil {
		t.Fatalf("UpdateRecharge: %v", err)
	}
	got := s.Recharges()[0]
	if got.Amount != 150.5 || !got.ForUser1 || !got.ForUser2 || got.ID != id {
		t.Fatalf("unexpected recharge: %+v", got)
	}

	zero := 0.0
	if err := s.UpdateRecharge(ctx, id, core.RechargePatch{Amount: &zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero amount patch: %v", err)
	}
	ghost := "ghost"
	if err := s.UpdateRecharge(ctx, id, core.RechargePatch{SimID: &ghost}); !errors.Is(err, core.ErrSimNotFound) {
		t.Fatalf("dangling SIM patch: %v", err)
	}
	if err := s.UpdateRecharge(ctx, "missing", core.RechargePatch{Amount: &amount}); err != nil {
		t.Fatalf("missing recharge should be a no-op: %v", err)
	}

	if err := s.DeleteRecharge(ctx, id); err != nil {
		t.Fatalf("DeleteRecharge: %v", err)
	}
	if len(s.Recharges()) != 0 {
		t.Fatalf("recharge not deleted")
	}
	if err := s.DeleteRecharge(ctx, id); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestGetRechargesBySimAndDate(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustAddSim(t, s, "A")
	b := mustAddSim(t, s, "B")
	r1 := mustAddRecharge(t, s, recharge(a, "2025-03-14", 1, true, false))
	mustAddRecharge(t, s, recharge(a, "2025-03-15", 2, true, false))
	mustAddRecharge(t, s, recharge(b, "2025-03-14", 3, true, false))
	r4 := mustAddRecharge(t, s, recharge(a, "2025-03-14", 4, false, true))

	got := s.GetRechargesBySimAndDate(a, "2025-03-14")
	if len(got) != 2 || got[0].ID != r1 || got[1].ID != r4 {
		t.Fatalf("unexpected selection: %+v", got)
	}
	if got := s.GetRechargesBySimAndDate(a, "2024-01-01"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if got := s.GetRechargesBySim(a); len(got) != 3 {
		t.Fatalf("GetRechargesBySim = %d recharges, want 3", len(got))
	}
}

func TestGetTotalsByDate(t *testing.T) {
	s, _ := newTestStore(t)
	sim := mustAddSim(t, s, "A")
	mustAddRecharge(t, s, recharge(sim, "2025-03-14", 0.1, true, false))
	mustAddRecharge(t, s, recharge(sim, "2025-03-14", 0.2, true, true))
	mustAddRecharge(t, s, recharge(sim, "2025-03-14", 500, false, false))

	got := s.GetTotalsByDate(sim, "2025-03-14")
	want := core.DailyTotals{
		Total:      500.3,
		User1Total: 0.3,
		User2Total: 0.2,
		User1Label: core.DefaultUser1Label,
		User2Label: core.DefaultUser2Label,
	}
	if got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}

	empty := s.GetTotalsByDate(sim, "2000-01-01")
	if empty.Total != 0 || empty.User1Total != 0 || empty.User2Total != 0 {
		t.Fatalf("expected zero totals, got %+v", empty)
	}
}

func TestTotalsUseCustomLabels(t *testing.T) {
	s, _ := newTestStore(t)
	id, err := s.AddSimCard(context.Background(), "1", "Home", "Amine", "Sara")
	if err != nil {
		t.Fatalf("AddSimCard: %v", err)
	}
	got := s.GetTotalsByDate(id, "2025-03-14")
	if got.User1Label != "Amine" || got.User2Label != "Sara" {
		t.Fatalf("labels = %q/%q", got.User1Label, got.User2Label)
	}
}

func TestGetUndeclaredDifference(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	sim := mustAddSim(t, s, "A")
	mustAddRecharge(t, s, recharge(sim, "2025-03-14", 300, true, false))

	if _, ok := s.GetUndeclaredDifference(sim, "2025-03-14"); ok {
		t.Fatalf("no balance means no difference")
	}

	if err := s.UpdateSimBalance(ctx, sim, core.SimBalance{Credit: 1000, ValidityDate: "2025-04-01"}); err != nil {
		t.Fatalf("UpdateSimBalance: %v", err)
	}
	diff, ok := s.GetUndeclaredDifference(sim, "2025-03-14")
	if !ok || diff != 700 {
		t.Fatalf("difference = %v/%v, want 700", diff, ok)
	}
	diff, _ = s.GetUndeclaredDifference(sim, "2025-03-15")
	if diff != 1000 {
		t.Fatalf("difference on a day without recharges = %v, want the credit", diff)
	}
}

func TestUpdateSimBalanceReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	sim := mustAddSim(t, s, "A")
	minutes := 60

	first := core.SimBalance{
		Credit:       100,
		ValidityDate: "2025-04-01",
		Services:     []core.SimService{{Name: "Night", Minutes: &minutes, ExpiryDate: "2025-04-01"}},
	}
	if err := s.UpdateSimBalance(ctx, sim, first); err != nil {
		t.Fatalf("UpdateSimBalance: %v", err)
	}
	minutes = 1

	got, ok := s.GetSimBalance(sim)
	if !ok || *got.Services[0].Minutes != 60 {
		t.Fatalf("stored balance must not alias caller data: %+v", got)
	}

	if err := s.UpdateSimBalance(ctx, sim, core.SimBalance{Credit: 5, ValidityDate: "2025-05-01"}); err != nil {
		t.Fatalf("UpdateSimBalance: %v", err)
	}
	got, _ = s.GetSimBalance(sim)
	if got.Credit != 5 || len(got.Services) != 0 {
		t.Fatalf("balance must be replaced wholesale: %+v", got)
	}

	if err := s.UpdateSimBalance(ctx, "ghost", first); !errors.Is(err, core.ErrSimNotFound) {
		t.Fatalf("unknown SIM: %v", err)
	}
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	s, p := newTestStore(t)

	if s.IsLoggedIn() {
		t.Fatalf("fresh store must be logged out")
	}
	if err := s.Login(ctx, "amine"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	u, ok := s.CurrentUser()
	if !ok || u.Username != "amine" || !u.IsLoggedIn || u.ID == "" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.IsLoggedIn() {
		t.Fatalf("still logged in")
	}
	if !strings.Contains(string(p.payload), `"user":null`) {
		t.Fatalf("logged-out snapshot must carry an explicit null user: %s", p.payload)
	}
}

func TestFindRechargeByOperationID(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustAddSim(t, s, "A")
	b := mustAddSim(t, s, "B")
	id := mustAddRecharge(t, s, core.NewRecharge{SimID: a, Date: "2025-03-14", Time: "08:00", OperationID: "REF1", Amount: 10})

	if r, ok := s.FindRechargeByOperationID(a, "REF1"); !ok || r.ID != id {
		t.Fatalf("expected to find REF1")
	}
	if _, ok := s.FindRechargeByOperationID(b, "REF1"); ok {
		t.Fatalf("lookup must be scoped to the SIM")
	}
	if _, ok := s.FindRechargeByOperationID(a, ""); ok {
		t.Fatalf("empty reference must never match")
	}
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	p := &fakePersister{}
	var hooked []error
	var buf bytes.Buffer
	s := New(context.Background(), p, WithIDGenerator(sequentialIDs()),
		WithLogger(log.New(log.Config{Level: slog.LevelInfo, Format: "json", Output: &buf})),
		WithPersistErrorHook(func(err error) { hooked = append(hooked, err) }))
	p.saveErr = errors.New("quota exceeded")

	id, err := s.AddSimCard(context.Background(), "1", "SIM 1", "", "")
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("err = %v, want ErrPersist", err)
	}
	if id == "" {
		t.Fatalf("id should still be returned")
	}
	if _, ok := s.GetSimByID(id); !ok {
		t.Fatalf("in-memory mutation must survive a persist failure")
	}
	if len(hooked) != 1 || hooked[0] != p.saveErr {
		t.Fatalf("hook calls = %v", hooked)
	}
	out := buf.String()
	for _, want := range []string{`"component":"store"`, `"operation":"persist"`, `"error_type":"persistence_error"`, `"error":"quota exceeded"`} {
		if !strings.Contains(out, want) {
			t.Errorf("persist failure log missing %s: %s", want, out)
		}
	}
}

func TestSnapshotSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	s := New(ctx, p, WithIDGenerator(sequentialIDs()), WithClock(fixedClock))
	a := mustAddSim(t, s, "A")
	mustAddSim(t, s, "B")
	mustAddRecharge(t, s, recharge(a, "2025-03-14", 1.8, true, true))
	if err := s.UpdateSimBalance(ctx, a, core.SimBalance{Credit: 12.5, ValidityDate: "2025-04-01"}); err != nil {
		t.Fatalf("UpdateSimBalance: %v", err)
	}
	if err := s.Login(ctx, "amine"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	restarted := New(ctx, p)
	if !reflect.DeepEqual(restarted.State(), s.State()) {
		t.Fatalf("state after restart differs:\n got %+v\nwant %+v", restarted.State(), s.State())
	}
}

func TestStateJSONLayout(t *testing.T) {
	data, err := Encode(EmptyState())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"simCards":[],"currentSimId":null,"recharges":[],"balances":{},"user":null}`
	if string(data) != want {
		t.Fatalf("payload = %s, want %s", data, want)
	}

	st, err := Decode([]byte(`{"simCards":[{"id":"s1","number":"1","name":"n","createdAt":"x","user1Number":"Amine"}],"currentSimId":"s1"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if st.CurrentSimID != "s1" || st.SimCards[0].User1Label != "Amine" || st.Recharges == nil || st.Balances == nil {
		t.Fatalf("unexpected decoded state: %+v", st)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var seen []string
	unsubscribe := s.Subscribe(func(st State) {
		seen = append(seen, st.CurrentSimID)
	})

	a := mustAddSim(t, s, "A")
	b := mustAddSim(t, s, "B")
	if err := s.SetCurrentSim(ctx, b); err != nil {
		t.Fatalf("SetCurrentSim: %v", err)
	}
	unsubscribe()
	unsubscribe()
	if err := s.SetCurrentSim(ctx, a); err != nil {
		t.Fatalf("SetCurrentSim: %v", err)
	}

	want := []string{a, a, b}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("notifications = %v, want %v", seen, want)
	}
}

func TestRejectedCommandDoesNotNotify(t *testing.T) {
	s, _ := newTestStore(t)
	calls := 0
	s.Subscribe(func(State) { calls++ })

	_, _ = s.AddRecharge(context.Background(), recharge("ghost", "2025-03-14", 10, true, false))
	_ = s.DeleteRecharge(context.Background(), "ghost")

	if calls != 0 {
		t.Fatalf("listeners called %d times", calls)
	}
}

func TestStuckIDGenerator(t *testing.T) {
	s := New(context.Background(), &fakePersister{}, WithIDGenerator(func() string { return "same" }))
	mustAddSim(t, s, "A")

	if _, err := s.AddSimCard(context.Background(), "B", "", "", ""); !errors.Is(err, ErrIDExhausted) {
		t.Fatalf("err = %v, want ErrIDExhausted", err)
	}
	if len(s.SimCards()) != 1 {
		t.Fatalf("colliding SIM must not be added")
	}
}

func TestConcurrentCommands(t *testing.T) {
	s, p := newTestStore(t)
	sim := mustAddSim(t, s, "A")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := recharge(sim, "2025-03-14", float64(i+1), i%2 == 0, i%2 == 1)
			if _, err := s.AddRecharge(context.Background(), in); err != nil {
				t.Errorf("AddRecharge: %v", err)
			}
			_ = s.GetTotalsByDate(sim, "2025-03-14")
		}(i)
	}
	wg.Wait()

	if got := len(s.Recharges()); got != 50 {
		t.Fatalf("recharges = %d, want 50", got)
	}
	if got := s.GetTotalsByDate(sim, "2025-03-14").Total; got != 1275 {
		t.Fatalf("total = %v, want 1275", got)
	}
	restored, err := Decode(p.payload)
	if err != nil || len(restored.Recharges) != 50 {
		t.Fatalf("last persisted snapshot incomplete: %v", err)
	}
	if !strings.Contains(string(p.payload), sim) {
		t.Fatalf("payload missing SIM id")
	}
}

func TestListenersSeeCommitOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustAddSim(t, s, "A")
	b := mustAddSim(t, s, "B")

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls int
		last  string
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
		mu.Lock()
		last = st.CurrentSimID
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.SetCurrentSim(ctx, b); err != nil {
			t.Errorf("SetCurrentSim(B): %v", err)
		}
	}()
	<-entered

	go func() {
		defer wg.Done()
		if err := s.SetCurrentSim(ctx, a); err != nil {
			t.Errorf("SetCurrentSim(A): %v", err)
		}
	}()
	deadline := time.Now().Add(2 * time.Second)
	for s.CurrentSimID() != a {
		if time.Now().After(deadline) {
			close(release)
			t.Fatal("second command never committed")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("listener calls = %d, want 2", calls)
	}
	if last != s.CurrentSimID() || last != a {
		t.Fatalf("last snapshot selects %q, store selects %q", last, s.CurrentSimID())
	}
}

func TestGetRechargeByID(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustAddSim(t, s, "A")
	id := mustAddRecharge(t, s, recharge(a, "2025-03-14", 20, false, true))

	got, ok := s.GetRechargeByID(id)
	if !ok || got.Amount != 20 || !got.ForUser2 {
		t.Fatalf("GetRechargeByID = %+v, %v", got, ok)
	}
	if _, ok := s.GetRechargeByID("missing"); ok {
		t.Fatal("unknown id must not be found")
	}
}
