package store

import (
	"context"
	"errors"
	"time"
)

// ErrNoState is returned by a Persister when nothing has been saved yet.
var ErrNoState = errors.New("no persisted state")

// ErrPersist wraps a Persister failure. The in-memory mutation that preceded
// it is kept.
var ErrPersist = errors.New("persist state")

// Persister loads and saves whole-state snapshots.
type Persister interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

// IDGenerator returns a fresh identifier for SIM cards, recharges and users.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Listener receives a snapshot after every mutation.
type Listener func(State)
