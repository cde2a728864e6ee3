// Package memory provides in-process repository implementations
package memory

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

const defaultMaxSessions = 10000

// StateRepository keeps session state in a size-bounded LRU whose entries
// expire after the configured TTL.
type StateRepository struct {
	mu     sync.Mutex
	states *expirable.LRU[string, kitchen.State]
	logger *zap.Logger
}

var _ outbound.StateRepository = (*StateRepository)(nil)

// NewStateRepository creates an in-memory state repository
func NewStateRepository(config outbound.StateRepositoryConfig, logger *zap.Logger) *StateRepository {
	size := config.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}
	logger = logger.Named("memory-state")

	onEvict := func(sessionID string, _ kitchen.State) {
		logger.Debug("Session state evicted", zap.String("session_id", sessionID))
	}

	return &StateRepository{
		states: expirable.NewLRU[string, kitchen.State](size, onEvict, config.TTL),
		logger: logger,
	}
}

// Load returns the session state, or the zero State for unknown sessions.
func (r *StateRepository) Load(ctx context.Context, sessionID string) (kitchen.State, error) {
	if err := ctx.Err(); err != nil {
		return kitchen.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, _ := r.states.Get(sessionID)
	return state, nil
}

// Update applies fn under the repository lock.
func (r *StateRepository) Update(
	ctx context.Context,
	sessionID string,
	fn func(kitchen.State) kitchen.State,
) (kitchen.State, kitchen.State, error) {
	if err := ctx.Err(); err != nil {
		return kitchen.State{}, kitchen.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	before, _ := r.states.Get(sessionID)
	after := fn(before)
	r.states.Add(sessionID, after)
	return before, after, nil
}

// Delete forgets a session.
func (r *StateRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states.Remove(sessionID)
	return nil
}

// Ping always succeeds.
func (r *StateRepository) Ping(context.Context) error {
	return nil
}

// Len returns the number of live sessions.
func (r *StateRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states.Len()
}
