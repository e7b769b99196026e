package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	seenBucket         = "seen_urls"
	timestampValueSize = 8
)

// boltStore implements a Store backed by BoltDB. Keys are URLs, values the
// big-endian unix-nano first-seen timestamp.
type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (*boltStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(seenBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, now: time.Now}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenArticle checks if the URL has been recorded.
func (b *boltStore) SeenArticle(ctx context.Context, url string) (bool, error) {
	_, ok, err := b.FirstSeen(ctx, url)
	return ok, err
}

// MarkArticle records the URL unless it is already present. bbolt serializes
// write transactions, so concurrent callers cannot both insert.
func (b *boltStore) MarkArticle(_ context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is empty")
	}

	now := b.now().UTC()
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return fmt.Errorf("seen bucket missing")
		}
		key := []byte(url)
		if bucket.Get(key) != nil {
			return nil
		}
		buf := make([]byte, timestampValueSize)
		binary.BigEndian.PutUint64(buf, uint64(now.UnixNano()))
		return bucket.Put(key, buf)
	})
}

// FirstSeen returns when the URL was first recorded.
func (b *boltStore) FirstSeen(_ context.Context, url string) (time.Time, bool, error) {
	var (
		ts    time.Time
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return fmt.Errorf("seen bucket missing")
		}
		value := bucket.Get([]byte(url))
		if value == nil {
			return nil
		}
		found = true
		ts, _ = decodeTimestamp(value)
		return nil
	})
	return ts, found, err
}

// Count returns the number of recorded URLs.
func (b *boltStore) Count(context.Context) (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return fmt.Errorf("seen bucket missing")
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// decodeTimestamp decodes the first-seen time from the stored byte slice.
func decodeTimestamp(value []byte) (time.Time, bool) {
	if len(value) != timestampValueSize {
		return time.Time{}, false
	}
	nanos := int64(binary.BigEndian.Uint64(value))
	if nanos <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory: %w", err)
		}
	}
	return nil
}
