package rulecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timeslot-service/internal/catalog"
)

var ErrNoSnapshot = errors.New("rulecache: no saved snapshot")

// Store keeps one serialized rule set.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// RedisStore keeps the snapshot under a single key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

// Dial connects to Redis and pings it with a short timeout.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rulecache: ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	return data, err
}

func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	return s.rdb.Set(ctx, s.key, data, 0).Err()
}

type envelope struct {
	SavedAt time.Time       `json:"saved_at"`
	Set     catalog.RuleSet `json:"set"`
}

// Source wraps a rule source with a last-known-good copy. FetchRules falls
// back to the saved copy when upstream fails; RefreshRules never does.
type Source struct {
	upstream catalog.RuleSource
	store    Store
	logger   *zap.Logger
	now      func() time.Time
}

func New(upstream catalog.RuleSource, store Store, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{upstream: upstream, store: store, logger: logger, now: time.Now}
}

func (s *Source) FetchRules(ctx context.Context) (catalog.RuleSet, error) {
	set, err := s.upstream.FetchRules(ctx)
	if err == nil {
		s.save(ctx, set)
		return set, nil
	}

	cached, savedAt, cerr := s.load(ctx)
	if cerr != nil {
		return catalog.RuleSet{}, fmt.Errorf("rulecache: no cached copy (%v): %w", cerr, err)
	}
	s.logger.Warn("serving cached rules after upstream failure",
		zap.Error(err),
		zap.Time("saved_at", savedAt),
		zap.Int("rules", len(cached.Rules)))
	return cached, nil
}

func (s *Source) RefreshRules(ctx context.Context) (catalog.RuleSet, error) {
	set, err := s.upstream.RefreshRules(ctx)
	if err != nil {
		return catalog.RuleSet{}, err
	}
	s.save(ctx, set)
	return set, nil
}

func (s *Source) save(ctx context.Context, set catalog.RuleSet) {
	data, err := json.Marshal(envelope{SavedAt: s.now().UTC(), Set: set})
	if err == nil {
		err = s.store.Save(ctx, data)
	}
	if err != nil {
		s.logger.Warn("failed to save rule snapshot", zap.Error(err))
	}
}

func (s *Source) load(ctx context.Context) (catalog.RuleSet, time.Time, error) {
	data, err := s.store.Load(ctx)
	if err != nil {
		return catalog.RuleSet{}, time.Time{}, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return catalog.RuleSet{}, time.Time{}, fmt.Errorf("rulecache: decode snapshot: %w", err)
	}
	return env.Set, env.SavedAt, nil
}
