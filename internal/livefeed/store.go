// Package livefeed keeps the latest known position per vehicle in
// Redis and fans out change notifications over pub/sub. It is the
// change-notification half of the telemetry store adapter; Postgres
// remains the system of record.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleettrack/internal/models"
)

const changesChannel = "fleet:positions"

// Store is the Redis-backed live position layer.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds the live layer. Cached positions expire after ttl
// so a silent vehicle eventually drops out of the hot path and reads
// fall back to the relational store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

func lastPositionKey(vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:last", vehicleID)
}

// SetLastPosition caches the sample and publishes it to subscribers.
func (s *Store) SetLastPosition(ctx context.Context, p models.VehiclePosition) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("livefeed: marshal position: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, lastPositionKey(p.VehicleID), payload, s.ttl)
	pipe.Publish(ctx, changesChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("livefeed: pipeline: %w", err)
	}
	return nil
}

// LastPosition returns the cached sample, or nil on a cache miss.
func (s *Store) LastPosition(ctx context.Context, vehicleID string) (*models.VehiclePosition, error) {
	val, err := s.client.Get(ctx, lastPositionKey(vehicleID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("livefeed: get last position: %w", err)
	}

	var p models.VehiclePosition
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("livefeed: decode last position: %w", err)
	}
	return &p, nil
}

// Unsubscribe stops a change subscription.
type Unsubscribe func()

// SubscribeChanges invokes handler for every published position until
// the returned Unsubscribe is called or ctx is cancelled. The handler
// runs on the subscription goroutine and must not block.
func (s *Store) SubscribeChanges(ctx context.Context, handler func(models.VehiclePosition)) (Unsubscribe, error) {
	sub := s.client.Subscribe(ctx, changesChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("livefeed: subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p models.VehiclePosition
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					continue
				}
				handler(p)
			}
		}
	}()

	return func() {
		close(done)
		_ = sub.Close()
	}, nil
}
