// Package redis shares live provider metrics between router instances through Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/switchboard/internal/domain"
	"github.com/davidbz/switchboard/internal/metrics"
	"github.com/davidbz/switchboard/internal/observability"
)

const (
	defaultKeyPrefix = "switchboard:metrics:"
	indexSuffix      = "_index"
	maxTxRetries     = 1000
)

// Store implements domain.MetricsStore on Redis. Each provider's metrics are a JSON
// document updated with an optimistic WATCH/MULTI/EXEC loop.
type Store struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewStore creates a Redis metrics store.
func NewStore(client *redis.Client, keyPrefix string) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}, nil
}

// Init creates an optimistic entry for the provider unless one exists. Entries are shared
// between instances, so an existing entry keeps its counters.
func (s *Store) Init(ctx context.Context, providerID string) error {
	if providerID == "" {
		return errors.New("provider id cannot be empty")
	}

	data, err := json.Marshal(domain.NewProviderMetrics(providerID, s.now()))
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.key(providerID), data, 0)
		pipe.ZAddNX(ctx, s.indexKey(), redis.Z{Score: float64(s.now().UnixMicro()), Member: providerID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to init metrics for %s: %w", providerID, err)
	}

	return nil
}

// RecordSuccess folds a successful call into the provider's metrics.
func (s *Store) RecordSuccess(
	ctx context.Context,
	providerID string,
	responseTime time.Duration,
	cost float64,
) error {
	return s.update(ctx, providerID, func(m *domain.ProviderMetrics) {
		metrics.ApplySuccess(m, responseTime, cost, s.now())
	})
}

// RecordFailure folds a failed call into the provider's metrics.
func (s *Store) RecordFailure(ctx context.Context, providerID string, responseTime time.Duration) error {
	return s.update(ctx, providerID, func(m *domain.ProviderMetrics) {
		metrics.ApplyFailure(m, responseTime, s.now())
	})
}

// Get returns the provider's metrics.
func (s *Store) Get(ctx context.Context, providerID string) (domain.ProviderMetrics, error) {
	data, err := s.client.Get(ctx, s.key(providerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ProviderMetrics{}, fmt.Errorf("%w: no metrics for %s", domain.ErrProviderNotFound, providerID)
	}
	if err != nil {
		return domain.ProviderMetrics{}, fmt.Errorf("failed to read metrics for %s: %w", providerID, err)
	}

	var m domain.ProviderMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.ProviderMetrics{}, fmt.Errorf("failed to unmarshal metrics for %s: %w", providerID, err)
	}

	return m, nil
}

// List returns metrics for every known provider in initialization order.
func (s *Store) List(ctx context.Context) ([]domain.ProviderMetrics, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	result := make([]domain.ProviderMetrics, 0, len(ids))
	for _, id := range ids {
		m, getErr := s.Get(ctx, id)
		if getErr != nil {
			observability.FromContext(ctx).Warn("skipping provider without metrics",
				observability.String("provider_id", id),
				observability.Error(getErr))
			continue
		}
		result = append(result, m)
	}

	return result, nil
}

// update applies fn to the provider's metrics, retrying when another writer wins the race.
func (s *Store) update(ctx context.Context, providerID string, fn func(*domain.ProviderMetrics)) error {
	if providerID == "" {
		return errors.New("provider id cannot be empty")
	}

	key := s.key(providerID)

	txf := func(tx *redis.Tx) error {
		m := domain.NewProviderMetrics(providerID, s.now())

		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if unmarshalErr := json.Unmarshal(data, &m); unmarshalErr != nil {
				return fmt.Errorf("failed to unmarshal metrics: %w", unmarshalErr)
			}
		}

		fn(&m)

		updated, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.ZAddNX(ctx, s.indexKey(), redis.Z{Score: float64(s.now().UnixMicro()), Member: providerID})
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to update metrics for %s: %w", providerID, err)
	}

	return fmt.Errorf("failed to update metrics for %s: too many concurrent writers", providerID)
}

func (s *Store) key(providerID string) string {
	return s.keyPrefix + providerID
}

func (s *Store) indexKey() string {
	return s.keyPrefix + indexSuffix
}
