// Package database also provides Redis-based setup state persistence.
//
// Armed setups and the daily alert budget are written to Redis after every
// monitoring cycle so a restart mid-session resumes with the same state.
// When Redis is unavailable the repository falls back to an in-memory
// cache and the bot keeps running without persistence.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"liquidity-matrix-bot/internal/strategy"
)

const (
	// SetupKeyPrefix is the prefix for armed setup keys.
	// Format: lmx:setup:{instrument}
	SetupKeyPrefix = "lmx:setup"

	// BudgetKey holds the daily alert budget.
	BudgetKey = "lmx:budget"

	// SetupStateTTL bounds how long a stale armed setup survives. A
	// session lasts hours; a day is plenty.
	SetupStateTTL = 24 * time.Hour
)

// PersistedSetup is the wire form of an armed setup slot.
type PersistedSetup struct {
	Plan    *strategy.TradePlan `json:"plan"`
	ArmedAt time.Time           `json:"armed_at"`
	SavedAt time.Time           `json:"saved_at"`
}

// PersistedBudget is the wire form of the daily alert budget.
type PersistedBudget struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

// RedisSetupStateRepository stores armed setups and the alert budget in
// Redis, with an in-memory fallback when Redis is down.
type RedisSetupStateRepository struct {
	client         *redis.Client
	cacheMu        sync.RWMutex
	setupCache     map[string]*PersistedSetup
	budgetCache    *PersistedBudget
	redisAvailable atomic.Bool
}

// NewRedisSetupStateRepository creates the repository. A nil client means
// memory-only mode.
func NewRedisSetupStateRepository(client *redis.Client) *RedisSetupStateRepository {
	repo := &RedisSetupStateRepository{
		client:     client,
		setupCache: make(map[string]*PersistedSetup),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[REDIS-SETUP] Redis unavailable at startup: %v, using in-memory cache", err)
			repo.redisAvailable.Store(false)
		} else {
			log.Printf("[REDIS-SETUP] Redis connected successfully")
			repo.redisAvailable.Store(true)
		}
	} else {
		log.Printf("[REDIS-SETUP] No Redis client provided, using in-memory cache only")
		repo.redisAvailable.Store(false)
	}

	return repo
}

func (r *RedisSetupStateRepository) setupKey(instrument string) string {
	return fmt.Sprintf("%s:%s", SetupKeyPrefix, instrument)
}

// SaveSetup persists an armed setup for an instrument.
func (r *RedisSetupStateRepository) SaveSetup(ctx context.Context, instrument string, setup *PersistedSetup) error {
	if setup == nil {
		return fmt.Errorf("cannot save nil setup")
	}

	setup.SavedAt = time.Now()

	data, err := json.Marshal(setup)
	if err != nil {
		return fmt.Errorf("failed to marshal setup: %w", err)
	}

	r.cacheMu.Lock()
	r.setupCache[instrument] = setup
	r.cacheMu.Unlock()

	if r.client != nil && r.redisAvailable.Load() {
		if err := r.client.Set(ctx, r.setupKey(instrument), data, SetupStateTTL).Err(); err != nil {
			log.Printf("[REDIS-SETUP] Failed to save to Redis: %v, using in-memory cache", err)
			r.redisAvailable.Store(false)
		}
	}

	return nil
}

// LoadSetup returns the persisted setup for an instrument, or nil when none
// exists.
func (r *RedisSetupStateRepository) LoadSetup(ctx context.Context, instrument string) (*PersistedSetup, error) {
	if r.client != nil && r.redisAvailable.Load() {
		data, err := r.client.Get(ctx, r.setupKey(instrument)).Result()
		if err != nil {
			if err == redis.Nil {
				return r.setupFromCache(instrument), nil
			}
			log.Printf("[REDIS-SETUP] Redis read error: %v, using in-memory cache", err)
			r.redisAvailable.Store(false)
			return r.setupFromCache(instrument), nil
		}

		var setup PersistedSetup
		if err := json.Unmarshal([]byte(data), &setup); err != nil {
			return nil, fmt.Errorf("failed to unmarshal setup: %w", err)
		}

		r.cacheMu.Lock()
		r.setupCache[instrument] = &setup
		r.cacheMu.Unlock()

		return &setup, nil
	}

	return r.setupFromCache(instrument), nil
}

// ClearSetup removes the persisted setup after it triggers or expires.
func (r *RedisSetupStateRepository) ClearSetup(ctx context.Context, instrument string) error {
	r.cacheMu.Lock()
	delete(r.setupCache, instrument)
	r.cacheMu.Unlock()

	if r.client != nil && r.redisAvailable.Load() {
		if err := r.client.Del(ctx, r.setupKey(instrument)).Err(); err != nil {
			log.Printf("[REDIS-SETUP] Failed to clear setup: %v", err)
			r.redisAvailable.Store(false)
		}
	}

	return nil
}

// SaveBudget persists the daily alert budget.
func (r *RedisSetupStateRepository) SaveBudget(ctx context.Context, budget *PersistedBudget) error {
	if budget == nil {
		return fmt.Errorf("cannot save nil budget")
	}

	data, err := json.Marshal(budget)
	if err != nil {
		return fmt.Errorf("failed to marshal budget: %w", err)
	}

	r.cacheMu.Lock()
	r.budgetCache = budget
	r.cacheMu.Unlock()

	if r.client != nil && r.redisAvailable.Load() {
		if err := r.client.Set(ctx, BudgetKey, data, SetupStateTTL).Err(); err != nil {
			log.Printf("[REDIS-SETUP] Failed to save budget: %v", err)
			r.redisAvailable.Store(false)
		}
	}

	return nil
}

// LoadBudget returns the persisted budget, or nil when none was saved.
func (r *RedisSetupStateRepository) LoadBudget(ctx context.Context) (*PersistedBudget, error) {
	if r.client != nil && r.redisAvailable.Load() {
		data, err := r.client.Get(ctx, BudgetKey).Result()
		if err != nil {
			if err == redis.Nil {
				return r.budgetFromCache(), nil
			}
			log.Printf("[REDIS-SETUP] Redis read error: %v, using in-memory cache", err)
			r.redisAvailable.Store(false)
			return r.budgetFromCache(), nil
		}

		var budget PersistedBudget
		if err := json.Unmarshal([]byte(data), &budget); err != nil {
			return nil, fmt.Errorf("failed to unmarshal budget: %w", err)
		}

		return &budget, nil
	}

	return r.budgetFromCache(), nil
}

func (r *RedisSetupStateRepository) setupFromCache(instrument string) *PersistedSetup {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.setupCache[instrument]
}

func (r *RedisSetupStateRepository) budgetFromCache() *PersistedBudget {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.budgetCache
}
