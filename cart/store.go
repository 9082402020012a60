package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kariqs/franchise-api/models"
	"github.com/redis/go-redis/v9"
)

// Store keeps carts between requests. Load returns an empty cart for members
// without one.
type Store interface {
	Load(ctx context.Context, memberID string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, memberID string) error
}

type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]State)}
}

func (m *MemoryStore) Load(_ context.Context, memberID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.carts[memberID]
	if !ok {
		return NewState(memberID), nil
	}
	st.Lines = st.Snapshot()
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Lines = s.Snapshot()
	m.carts[s.FranchiseMemberID] = cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, memberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, memberID)
	return nil
}

const redisKeyPrefix = "franchise:cart:"

// RedisStore keeps each cart as a JSON document that expires after ttl of
// inactivity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(memberID string) string {
	return redisKeyPrefix + memberID
}

func (r *RedisStore) Load(ctx context.Context, memberID string) (*State, error) {
	raw, err := r.client.Get(ctx, r.key(memberID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(memberID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if st.Lines == nil {
		st.Lines = []models.CartLine{}
	}
	st.FranchiseMemberID = memberID
	return &st, nil
}

func (r *RedisStore) Save(ctx context.Context, s *State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.FranchiseMemberID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, memberID string) error {
	if err := r.client.Del(ctx, r.key(memberID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
