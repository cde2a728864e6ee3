// Package redis provides Redis repository implementations for state shared
// across server instances
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/alchemorsel/chefnano/internal/ports/outbound"
)

const (
	defaultKeyPrefix = "chefnano:state:"
	maxTxAttempts    = 10
)

// StateRepository stores each session state as a JSON value with a TTL.
// Updates run in a WATCH/MULTI transaction and are retried when another
// writer touched the key in between.
type StateRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

var _ outbound.StateRepository = (*StateRepository)(nil)

// NewStateRepository creates a Redis-backed state repository
func NewStateRepository(client redis.UniversalClient, config outbound.StateRepositoryConfig, logger *zap.Logger) *StateRepository {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &StateRepository{
		client: client,
		prefix: prefix,
		ttl:    config.TTL,
		logger: logger.Named("redis-state"),
	}
}

func (r *StateRepository) key(sessionID string) string {
	return r.prefix + sessionID
}

// Load returns the session state, or the zero State for unknown sessions.
func (r *StateRepository) Load(ctx context.Context, sessionID string) (kitchen.State, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	return decodeState(data, err)
}

// Update applies fn inside an optimistic transaction.
func (r *StateRepository) Update(
	ctx context.Context,
	sessionID string,
	fn func(kitchen.State) kitchen.State,
) (kitchen.State, kitchen.State, error) {
	key := r.key(sessionID)
	var before, after kitchen.State

	txf := func(tx *redis.Tx) error {
		var err error
		before, err = decodeState(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		after = fn(before)

		payload, err := json.Marshal(after)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return before, after, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return kitchen.State{}, kitchen.State{}, err
		}
		r.logger.Debug("State transaction conflict, retrying",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt),
		)
	}

	return kitchen.State{}, kitchen.State{}, outbound.ErrStateConflict
}

// Delete forgets a session.
func (r *StateRepository) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Ping checks the Redis connection.
func (r *StateRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeState(data []byte, err error) (kitchen.State, error) {
	if errors.Is(err, redis.Nil) {
		return kitchen.State{}, nil
	}
	if err != nil {
		return kitchen.State{}, err
	}
	var state kitchen.State
	if err := json.Unmarshal(data, &state); err != nil {
		return kitchen.State{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}
