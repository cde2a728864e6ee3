package monitoring

import (
	"context"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

// InstrumentedStateRepository counts calls to a state repository.
type InstrumentedStateRepository struct {
	next    outbound.StateRepository
	store   string
	metrics *MetricsCollector
}

var _ outbound.StateRepository = (*InstrumentedStateRepository)(nil)

// InstrumentStateRepository wraps repo so every call is counted under store.
func InstrumentStateRepository(store string, repo outbound.StateRepository, metrics *MetricsCollector) *InstrumentedStateRepository {
	return &InstrumentedStateRepository{next: repo, store: store, metrics: metrics}
}

func (r *InstrumentedStateRepository) Load(ctx context.Context, sessionID string) (kitchen.State, error) {
	state, err := r.next.Load(ctx, sessionID)
	r.metrics.StateOperation(r.store, "load", err)
	return state, err
}

func (r *InstrumentedStateRepository) Update(
	ctx context.Context,
	sessionID string,
	fn func(kitchen.State) kitchen.State,
) (kitchen.State, kitchen.State, error) {
	before, after, err := r.next.Update(ctx, sessionID, fn)
	r.metrics.StateOperation(r.store, "update", err)
	return before, after, err
}

func (r *InstrumentedStateRepository) Delete(ctx context.Context, sessionID string) error {
	err := r.next.Delete(ctx, sessionID)
	r.metrics.StateOperation(r.store, "delete", err)
	return err
}

func (r *InstrumentedStateRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
