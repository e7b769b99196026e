package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Package storage provides the durable seen-article set.

// Store tracks article URLs that were already delivered in a briefing.
// Records are append-only: MarkArticle inserts when absent and never
// rewrites an existing first-seen timestamp.
type Store interface {
	Close() error
	SeenArticle(ctx context.Context, url string) (bool, error)
	MarkArticle(ctx context.Context, url string) error
	FirstSeen(ctx context.Context, url string) (time.Time, bool, error)
	Count(ctx context.Context) (int, error)
}

const (
	TypeBBolt    = "bbolt"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
	TypeMemory   = "memory"
)

// NewStore creates the configured storage backend. location is a file path
// for bbolt/sqlite, a DSN for postgres and a URL for redis.
func NewStore(typ, location string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	location = strings.TrimSpace(location)

	switch typ {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeBBolt:
		if location == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(location)
	case TypeSQLite, "sqlite3":
		if location == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(location)
	case TypePostgres, "postgresql":
		if location == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return openPostgres(location)
	case TypeRedis:
		if location == "" {
			return nil, fmt.Errorf("redis storage requires a url")
		}
		return openRedis(location)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// MemoryStore keeps the seen set in process memory. It does not survive
// restarts and is meant for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) SeenArticle(_ context.Context, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[url]
	return ok, nil
}

func (m *MemoryStore) MarkArticle(_ context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[url]; !ok {
		m.seen[url] = m.now().UTC()
	}
	return nil
}

func (m *MemoryStore) FirstSeen(_ context.Context, url string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.seen[url]
	return ts, ok, nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen), nil
}
