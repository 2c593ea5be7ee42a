package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"electrobot/catalog/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps wizard sessions. Get returns nil, nil when the session is
// unknown or has expired.
type SessionStore interface {
	Get(ctx context.Context, key domain.SessionKey) (*domain.WizardSession, error)
	Save(ctx context.Context, key domain.SessionKey, session *domain.WizardSession) error
	Delete(ctx context.Context, key domain.SessionKey) error
}

type memorySessionStore struct {
	cache *expirable.LRU[domain.SessionKey, *domain.WizardSession]
}

// NewMemorySessionStore keeps at most size sessions, each for ttl after its
// last save.
func NewMemorySessionStore(size int, ttl time.Duration) SessionStore {
	if size <= 0 {
		size = 10000
	}
	return &memorySessionStore{
		cache: expirable.NewLRU[domain.SessionKey, *domain.WizardSession](size, nil, ttl),
	}
}

func (s *memorySessionStore) Get(_ context.Context, key domain.SessionKey) (*domain.WizardSession, error) {
	session, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return cloneSession(session), nil
}

func (s *memorySessionStore) Save(_ context.Context, key domain.SessionKey, session *domain.WizardSession) error {
	s.cache.Add(key, cloneSession(session))
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, key domain.SessionKey) error {
	s.cache.Remove(key)
	return nil
}

func cloneSession(s *domain.WizardSession) *domain.WizardSession {
	c := *s
	c.Selections = s.Selections.Clone()
	return &c
}

type redisSessionStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
}

func NewRedisSessionStore(redisClient *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{
		redisClient: redisClient,
		keyPrefix:   "catalog:wizard:",
		ttl:         ttl,
	}
}

func (s *redisSessionStore) Get(ctx context.Context, key domain.SessionKey) (*domain.WizardSession, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // expired or never started
		}
		return nil, fmt.Errorf("failed to get wizard session %s: %w", key, err)
	}

	var session domain.WizardSession
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to decode wizard session %s: %w", key, err)
	}
	if session.Selections == nil {
		session.Selections = domain.NewSelections()
	}
	return &session, nil
}

func (s *redisSessionStore) Save(ctx context.Context, key domain.SessionKey, session *domain.WizardSession) error {
	val, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode wizard session %s: %w", key, err)
	}
	if err := s.redisClient.Set(ctx, s.keyPrefix+key.String(), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save wizard session %s: %w", key, err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, key domain.SessionKey) error {
	if err := s.redisClient.Del(ctx, s.keyPrefix+key.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard session %s: %w", key, err)
	}
	return nil
}
