// Package store holds the application state: SIM cards, their recharges and
// balances, and the session user. Every mutation is persisted as a full
// snapshot through a Persister and announced to subscribed listeners.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

// createdAtLayout matches the millisecond UTC timestamps already present in
// persisted data.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

const maxIDAttempts = 8

var ErrIDExhausted = errors.New("id generator keeps returning identifiers already in use")

type Store struct {
	mu    sync.RWMutex
	state State

	persister Persister
	newID     IDGenerator
	now       Clock
	logger    *log.Logger
	onPersist func(error)

	// Commits take a ticket under mu; snapshots are delivered in ticket order.
	nmu       sync.Mutex
	turn      *sync.Cond
	committed uint64
	delivered uint64

	lmu       sync.Mutex
	listeners map[uint64]Listener
	nextSub   uint64
}

type Option func(*Store)

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.newID = g
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.now = c
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentStore)
		}
	}
}

// WithPersistErrorHook registers f to be called with every failed Save.
func WithPersistErrorHook(f func(error)) Option {
	return func(s *Store) {
		s.onPersist = f
	}
}

// New builds a store and rehydrates it from p. A missing or unreadable
// snapshot yields an empty state; New never fails.
func New(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    log.Discard().WithComponent(log.ComponentStore),
		listeners: make(map[uint64]Listener),
	}
	s.turn = sync.NewCond(&s.nmu)
	for _, opt := range opts {
		opt(s)
	}

	st, err := p.Load(ctx)
	switch {
	case errors.Is(err, ErrNoState):
		s.logger.InfoContext(ctx, "No persisted state, starting empty")
		st = EmptyState()
	case err != nil:
		s.logger.WarnContext(ctx, "Persisted state unreadable, starting empty",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err.Error())
		st = EmptyState()
	default:
		st = st.Clone()
		s.logger.InfoContext(ctx, "State rehydrated",
			"sim_cards", len(st.SimCards),
			"recharges", len(st.Recharges))
	}
	s.state = st
	return s
}

// Subscribe registers l for change notifications and returns a function that
// removes it. Listeners receive snapshots in commit order, one at a time; a
// listener must not issue store commands.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

func (s *Store) notify(st State) {
	s.lmu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.lmu.Unlock()

	for _, l := range ls {
		l(st.Clone())
	}
}

// mutate runs fn against a copy of the current state. When fn reports a
// change the copy replaces the state, is persisted and then broadcast.
func (s *Store) mutate(ctx context.Context, op string, fn func(st *State) (bool, error)) error {
	s.mu.Lock()
	next := s.state.Clone()
	changed, err := fn(&next)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.state = next
	perr := s.persister.Save(ctx, next)
	snapshot := next.Clone()
	ticket := s.committed
	s.committed++
	s.mu.Unlock()

	if perr != nil {
		s.logger.ErrorContext(ctx, "Failed to persist state",
			log.FieldOperation, log.OpPersist,
			"command", op,
			log.FieldErrorType, log.ErrorTypePersistence,
			log.FieldError, perr.Error())
		if s.onPersist != nil {
			s.onPersist(perr)
		}
		perr = fmt.Errorf("%w: %w", ErrPersist, perr)
	}
	s.deliver(ticket, snapshot)
	return perr
}

// deliver notifies listeners once every earlier commit has been announced.
func (s *Store) deliver(ticket uint64, st State) {
	s.nmu.Lock()
	for s.delivered != ticket {
		s.turn.Wait()
	}
	s.nmu.Unlock()

	defer func() {
		s.nmu.Lock()
		s.delivered++
		s.turn.Broadcast()
		s.nmu.Unlock()
	}()
	s.notify(st)
}

func (s *Store) uniqueID(st *State) (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && !st.idInUse(id) {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(createdAtLayout)
}

// AddSimCard registers a SIM and returns its id. The first SIM becomes the
// active one.
func (s *Store) AddSimCard(ctx context.Context, number, name, user1Label, user2Label string) (string, error) {
	if strings.TrimSpace(number) == "" {
		return "", core.ErrEmptyNumber
	}
	var id string
	err := s.mutate(ctx, log.OpCreate, func(st *State) (bool, error) {
		var err error
		if id, err = s.uniqueID(st); err != nil {
			return false, err
		}
		st.SimCards = append(st.SimCards, core.SimCard{
			ID:         id,
			Number:     number,
			Name:       name,
			CreatedAt:  s.timestamp(),
			User1Label: user1Label,
			User2Label: user2Label,
		})
		if st.CurrentSimID == "" {
			st.CurrentSimID = id
		}
		return true, nil
	})
	if id == "" {
		return "", err
	}
	return id, err
}

// SetCurrentSim selects id as the active SIM. The id is not checked.
func (s *Store) SetCurrentSim(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpSelect, func(st *State) (bool, error) {
		st.CurrentSimID = id
		return true, nil
	})
}

// UpdateSimCard merges patch into the SIM with the given id. Unknown ids are
// ignored.
func (s *Store) UpdateSimCard(ctx context.Context, id string, patch core.SimCardPatch) error {
	if patch.Number != nil && strings.TrimSpace(*patch.Number) == "" {
		return core.ErrEmptyNumber
	}
	return s.mutate(ctx, log.OpUpdate, func(st *State) (bool, error) {
		i := st.simIndex(id)
		if i < 0 {
			return false, nil
		}
		st.SimCards[i] = patch.Apply(st.SimCards[i])
		st.SimCards[i].ID = id
		return true, nil
	})
}

// DeleteSimCard removes the SIM together with its recharges and balance. If
// it was active, the first remaining SIM takes over.
func (s *Store) DeleteSimCard(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(st *State) (bool, error) {
		i := st.simIndex(id)
		if i < 0 {
			return false, nil
		}
		st.SimCards = append(st.SimCards[:i], st.SimCards[i+1:]...)

		kept := st.Recharges[:0]
		for _, r := range st.Recharges {
			if r.SimID != id {
				kept = append(kept, r)
			}
		}
		st.Recharges = kept
		delete(st.Balances, id)

		if st.CurrentSimID == id {
			st.CurrentSimID = ""
			if len(st.SimCards) > 0 {
				st.CurrentSimID = st.SimCards[0].ID
			}
		}
		return true, nil
	})
}

// AddRecharge records a recharge against an existing SIM and returns its id.
func (s *Store) AddRecharge(ctx context.Context, in core.NewRecharge) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	var id string
	err := s.mutate(ctx, log.OpCreate, func(st *State) (bool, error) {
		if st.simIndex(in.SimID) < 0 {
			return false, core.ErrSimNotFound
		}
		var err error
		if id, err = s.uniqueID(st); err != nil {
			return false, err
		}
		st.Recharges = append(st.Recharges, core.Recharge{
			ID:          id,
			SimID:       in.SimID,
			Time:        in.Time,
			OperationID: in.OperationID,
			Amount:      in.Amount,
			ForUser1:    in.ForUser1,
			ForUser2:    in.ForUser2,
			Date:        in.Date,
			CreatedAt:   s.timestamp(),
		})
		return true, nil
	})
	if err != nil && !errors.Is(err, ErrPersist) {
		return "", err
	}
	return id, err
}

// UpdateRecharge merges patch into a recharge. Unknown ids are ignored; the
// merged record must still reference an existing SIM and carry a positive
// amount.
func (s *Store) UpdateRecharge(ctx context.Context, id string, patch core.RechargePatch) error {
	return s.mutate(ctx, log.OpUpdate, func(st *State) (bool, error) {
		i := st.rechargeIndex(id)
		if i < 0 {
			return false, nil
		}
		r := patch.Apply(st.Recharges[i])
		r.ID = id
		check := core.NewRecharge{
			SimID:  r.SimID,
			Date:   r.Date,
			Time:   r.Time,
			Amount: r.Amount,
		}
		if err := check.Validate(); err != nil {
			return false, err
		}
		if st.simIndex(r.SimID) < 0 {
			return false, core.ErrSimNotFound
		}
		st.Recharges[i] = r
		return true, nil
	})
}

// DeleteRecharge removes a recharge; unknown ids are ignored.
func (s *Store) DeleteRecharge(ctx context.Context, id string) error {
	return s.mutate(ctx, log.OpDelete, func(st *State) (bool, error) {
		i := st.rechargeIndex(id)
		if i < 0 {
			return false, nil
		}
		st.Recharges = append(st.Recharges[:i], st.Recharges[i+1:]...)
		return true, nil
	})
}

// UpdateSimBalance replaces the balance of a SIM wholesale.
func (s *Store) UpdateSimBalance(ctx context.Context, simID string, b core.SimBalance) error {
	return s.mutate(ctx, log.OpUpdate, func(st *State) (bool, error) {
		if st.simIndex(simID) < 0 {
			return false, core.ErrSimNotFound
		}
		st.Balances[simID] = cloneBalance(b)
		return true, nil
	})
}

// Login starts a session for username. Callers validate the name.
func (s *Store) Login(ctx context.Context, username string) error {
	return s.mutate(ctx, log.OpLogin, func(st *State) (bool, error) {
		id, err := s.uniqueID(st)
		if err != nil {
			return false, err
		}
		st.User = &core.User{ID: id, Username: username, IsLoggedIn: true}
		return true, nil
	})
}

func (s *Store) Logout(ctx context.Context) error {
	return s.mutate(ctx, log.OpLogout, func(st *State) (bool, error) {
		if st.User == nil {
			return false, nil
		}
		st.User = nil
		return true, nil
	})
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) SimCards() []core.SimCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.SimCard{}, s.state.SimCards...)
}

func (s *Store) Recharges() []core.Recharge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Recharge{}, s.state.Recharges...)
}

func (s *Store) CurrentSimID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentSimID
}

func (s *Store) GetSimByID(id string) (core.SimCard, bool) {
	if id == "" {
		return core.SimCard{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.simIndex(id); i >= 0 {
		return s.state.SimCards[i], true
	}
	return core.SimCard{}, false
}

// GetCurrentSim resolves the active selection. A dangling selection reports
// false.
func (s *Store) GetCurrentSim() (core.SimCard, bool) {
	return s.GetSimByID(s.CurrentSimID())
}

func (s *Store) GetRechargeByID(id string) (core.Recharge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.state.rechargeIndex(id); i >= 0 {
		return s.state.Recharges[i], true
	}
	return core.Recharge{}, false
}

// GetRechargesBySimAndDate returns the recharges of one SIM on one day in
// insertion order.
func (s *Store) GetRechargesBySimAndDate(simID, date string) []core.Recharge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.filterRecharges(func(r core.Recharge) bool {
		return r.SimID == simID && r.Date == date
	})
}

// GetRechargesBySim returns every recharge of one SIM in insertion order.
func (s *Store) GetRechargesBySim(simID string) []core.Recharge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.filterRecharges(func(r core.Recharge) bool {
		return r.SimID == simID
	})
}

func (s State) filterRecharges(keep func(core.Recharge) bool) []core.Recharge {
	out := []core.Recharge{}
	for _, r := range s.Recharges {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) GetSimBalance(simID string) (core.SimBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Balances[simID]
	if !ok {
		return core.SimBalance{}, false
	}
	return cloneBalance(b), true
}

// GetTotalsByDate sums the day's recharges of a SIM overall and per user.
func (s *Store) GetTotalsByDate(simID, date string) core.DailyTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.totals(simID, date)
}

func (s State) totals(simID, date string) core.DailyTotals {
	var all, u1, u2 []float64
	for _, r := range s.Recharges {
		if r.SimID != simID || r.Date != date {
			continue
		}
		all = append(all, r.Amount)
		if r.ForUser1 {
			u1 = append(u1, r.Amount)
		}
		if r.ForUser2 {
			u2 = append(u2, r.Amount)
		}
	}

	l1, l2 := core.DefaultUser1Label, core.DefaultUser2Label
	if i := s.simIndex(simID); i >= 0 {
		l1, l2 = s.SimCards[i].Labels()
	}
	return core.DailyTotals{
		Total:      core.SumAmounts(all...),
		User1Total: core.SumAmounts(u1...),
		User2Total: core.SumAmounts(u2...),
		User1Label: l1,
		User2Label: l2,
	}
}

// GetUndeclaredDifference is the SIM credit minus the day's recharge total.
// It reports false when the SIM has no balance.
func (s *Store) GetUndeclaredDifference(simID, date string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Balances[simID]
	if !ok {
		return 0, false
	}
	return core.Difference(b.Credit, s.state.totals(simID, date).Total), true
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User != nil && s.state.User.IsLoggedIn
}

func (s *Store) CurrentUser() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return core.User{}, false
	}
	return *s.state.User, true
}

// FindRechargeByOperationID looks up a recharge of simID by carrier
// reference. Empty references never match.
func (s *Store) FindRechargeByOperationID(simID, operationID string) (core.Recharge, bool) {
	if operationID == "" {
		return core.Recharge{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.state.Recharges {
		if r.SimID == simID && r.OperationID == operationID {
			return r, true
		}
	}
	return core.Recharge{}, false
}
