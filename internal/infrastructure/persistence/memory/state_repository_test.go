package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

func newRepo(cfg outbound.StateRepositoryConfig) *StateRepository {
	return NewStateRepository(cfg, zap.NewNop())
}

func TestLoadUnknownSessionIsZero(t *testing.T) {
	repo := newRepo(outbound.StateRepositoryConfig{TTL: time.Minute})

	state, err := repo.Load(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Equal(t, kitchen.State{}, state)
}

func TestUpdateReturnsBeforeAndAfter(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(outbound.StateRepositoryConfig{TTL: time.Minute})

	before, after, err := repo.Update(ctx, "s1", func(s kitchen.State) kitchen.State {
		return kitchen.Reduce(s, kitchen.SetIngredients{Text: "egg"})
	})
	require.NoError(t, err)
	assert.Empty(t, before.Ingredients)
	assert.Equal(t, "egg", after.Ingredients)

	loaded, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, after, loaded)

	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.Equal(t, 0, repo.Len())
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(outbound.StateRepositoryConfig{TTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.Update(ctx, "s1", func(s kitchen.State) kitchen.State {
				s.Ingredients = "egg"
				return kitchen.Reduce(s, kitchen.SubmitRecipe{})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), state.Generation)
}

func TestEntriesExpireAndAreBounded(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(outbound.StateRepositoryConfig{TTL: 20 * time.Millisecond, MaxSessions: 2})

	for _, sid := range []string{"a", "b", "c"} {
		_, _, err := repo.Update(ctx, sid, func(s kitchen.State) kitchen.State { return s })
		require.NoError(t, err)
	}
	assert.Equal(t, 2, repo.Len())

	assert.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCancelledContext(t *testing.T) {
	repo := newRepo(outbound.StateRepositoryConfig{TTL: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := repo.Update(ctx, "s1", func(s kitchen.State) kitchen.State { return s })
	assert.ErrorIs(t, err, context.Canceled)
}
