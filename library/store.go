package library

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Storage drivers accepted by OpenStore.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Store persists library state. The Library writes every change through it
// and rebuilds its maps from Load at startup.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	// Apply persists a changeset atomically.
	Apply(ctx context.Context, cs Changeset) error
	LoanHistory(ctx context.Context, memberID string) ([]LoanRecord, error)
	Close() error
}

// Snapshot is the full persisted state. Members carry their current loans.
type Snapshot struct {
	Books   []Book
	Members []Member
}

// Changeset lists the rows touched by one operation. Books and Members are
// upserted whole; Opened starts a history record, Closed finishes the open
// record with the same member and ISBN.
type Changeset struct {
	Books   []Book
	Members []Member
	Opened  *LoanRecord
	Closed  *LoanRecord
}

// OpenStore opens the store for driver. path is ignored by the memory driver.
func OpenStore(driver, path string, timeout time.Duration) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewDatabase(path, timeout)
	case DriverBolt:
		return NewBoltStore(path, timeout)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
