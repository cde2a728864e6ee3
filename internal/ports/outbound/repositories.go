// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
)

// ErrStateConflict is returned when an optimistic state update keeps losing
// against concurrent writers.
var ErrStateConflict = errors.New("state update conflict")

// StateRepository holds the page state of every live session.
// Update must apply fn atomically with respect to other updates of the
// same session.
type StateRepository interface {
	// Load returns the session state, or the zero State for unknown sessions.
	Load(ctx context.Context, sessionID string) (kitchen.State, error)

	// Update replaces the session state with fn(current) and returns
	// the state before and after.
	Update(ctx context.Context, sessionID string, fn func(kitchen.State) kitchen.State) (before, after kitchen.State, err error)

	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// StateRepositoryConfig is shared by state repository implementations.
type StateRepositoryConfig struct {
	TTL         time.Duration
	MaxSessions int
	KeyPrefix   string
}
