package store

import (
	"encoding/json"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
)

// State is the complete application data set. Persisters store it as one
// JSON document.
type State struct {
	SimCards     []core.SimCard
	CurrentSimID string
	Recharges    []core.Recharge
	Balances     map[string]core.SimBalance
	User         *core.User
}

type wireState struct {
	SimCards     []core.SimCard             `json:"simCards"`
	CurrentSimID *string                    `json:"currentSimId"`
	Recharges    []core.Recharge            `json:"recharges"`
	Balances     map[string]core.SimBalance `json:"balances"`
	User         *core.User                 `json:"user"`
}

// MarshalJSON writes an empty selection as null.
func (s State) MarshalJSON() ([]byte, error) {
	w := wireState{
		SimCards:  s.SimCards,
		Recharges: s.Recharges,
		Balances:  s.Balances,
		User:      s.User,
	}
	if w.SimCards == nil {
		w.SimCards = []core.SimCard{}
	}
	if w.Recharges == nil {
		w.Recharges = []core.Recharge{}
	}
	if w.Balances == nil {
		w.Balances = map[string]core.SimBalance{}
	}
	if s.CurrentSimID != "" {
		id := s.CurrentSimID
		w.CurrentSimID = &id
	}
	return json.Marshal(w)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = State{
		SimCards:  w.SimCards,
		Recharges: w.Recharges,
		Balances:  w.Balances,
		User:      w.User,
	}
	if w.CurrentSimID != nil {
		s.CurrentSimID = *w.CurrentSimID
	}
	s.normalize()
	return nil
}

// Encode serializes st for a Persister.
func Encode(st State) ([]byte, error) {
	return json.Marshal(st)
}

// Decode parses a payload written by Encode.
func Decode(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// EmptyState returns a state with no SIM cards, no recharges and no user.
func EmptyState() State {
	st := State{}
	st.normalize()
	return st
}

func (s *State) normalize() {
	if s.SimCards == nil {
		s.SimCards = []core.SimCard{}
	}
	if s.Recharges == nil {
		s.Recharges = []core.Recharge{}
	}
	if s.Balances == nil {
		s.Balances = map[string]core.SimBalance{}
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		SimCards:     append([]core.SimCard(nil), s.SimCards...),
		CurrentSimID: s.CurrentSimID,
		Recharges:    append([]core.Recharge(nil), s.Recharges...),
		Balances:     make(map[string]core.SimBalance, len(s.Balances)),
	}
	for id, b := range s.Balances {
		out.Balances[id] = cloneBalance(b)
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.normalize()
	return out
}

func cloneBalance(b core.SimBalance) core.SimBalance {
	services := make([]core.SimService, len(b.Services))
	for i, svc := range b.Services {
		svc.Minutes = cloneInt(svc.Minutes)
		svc.Data = cloneInt(svc.Data)
		svc.SMS = cloneInt(svc.SMS)
		services[i] = svc
	}
	b.Services = services
	return b
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func (s State) simIndex(id string) int {
	for i, sim := range s.SimCards {
		if sim.ID == id {
			return i
		}
	}
	return -1
}

func (s State) rechargeIndex(id string) int {
	for i, r := range s.Recharges {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s State) idInUse(id string) bool {
	if s.simIndex(id) >= 0 || s.rechargeIndex(id) >= 0 {
		return true
	}
	return s.User != nil && s.User.ID == id
}
