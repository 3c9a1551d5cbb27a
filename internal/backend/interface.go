// Package backend selects and opens the state persister named by the
// configuration.
package backend

import (
	"context"

	"github.com/Badr133ne/sim-charge-guardian/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// CheckFunc reports whether the backend can currently serve requests.
type CheckFunc func(ctx context.Context) error

// BackendResult contains the persister and its lifecycle hooks.
type BackendResult struct {
	Persister store.Persister
	Cleanup   CleanupFunc
	Ready     CheckFunc
}

// Factory creates persisters based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File backend
	StateFile string

	// SQLite backend
	SQLiteDBPath string
	StateKey     string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
