package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Users() UserStore
}

// UserStore is the user registry. Each user is one record keyed by numeric
// id; login and credential are secondary indexes onto that record.
type UserStore interface {
	// Upsert creates or updates the identity fields of a user. An existing
	// presence state and creation time are preserved.
	Upsert(ctx context.Context, user User) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	Count(ctx context.Context) (int, error)

	// BindCredential maps an opaque credential to a user for ttl.
	BindCredential(ctx context.Context, credential string, id int64, ttl time.Duration) error
	GetByCredential(ctx context.Context, credential string) (*User, error)
	UnbindCredential(ctx context.Context, credential string) error

	// SetPresenceState replaces the presence state of the user with login.
	// Returns ErrNotFound for an unknown login.
	SetPresenceState(ctx context.Context, login string, state PresenceState) error
}
