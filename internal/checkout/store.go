package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists the applied-coupon slot between requests. Load
// returns an empty session for users without one.
type SessionStore interface {
	Load(ctx context.Context, userID int) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, userID int) error
}

type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[int]Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[int]Session)}
}

func (m *InMemoryStore) Load(_ context.Context, userID int) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	return Session{UserID: userID}, nil
}

func (m *InMemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
	return nil
}

func (m *InMemoryStore) Delete(_ context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, userID int) (Session, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{UserID: userID}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get failed: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("unmarshal session failed: %w", err)
	}
	s.UserID = userID
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(userID int) string {
	return fmt.Sprintf("checkout:session:%d", userID)
}
