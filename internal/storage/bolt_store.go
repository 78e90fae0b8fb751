package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var publishedBucket = []byte("published")

var errBucketMissing = errors.New("published bucket missing")

// boltStore keeps article keys with an expiry timestamp in a single bucket.
type boltStore struct {
	db       *bolt.DB
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastSweep time.Time
}

func openBolt(path string, opts Options, now func() time.Time) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(publishedBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &boltStore{
		db:        db,
		ttl:       opts.TTL,
		interval:  opts.CleanupInterval,
		now:       now,
		lastSweep: now(),
	}, nil
}

// Published reports whether key was marked and has not yet expired.
func (b *boltStore) Published(key string) (bool, error) {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return false, err
	}

	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(publishedBucket)
		if bucket == nil {
			return errBucketMissing
		}
		expiry, ok := decodeExpiry(bucket.Get([]byte(key)))
		found = ok && expiry.After(now)
		return nil
	})
	return found, err
}

// MarkPublished remembers key for the configured TTL.
func (b *boltStore) MarkPublished(key string) error {
	now := b.now()
	if err := b.sweep(now); err != nil {
		return err
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(now.Add(b.ttl).Unix()))
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(publishedBucket)
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(key), buf)
	})
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

// sweep drops expired keys at most once per cleanup interval.
func (b *boltStore) sweep(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastSweep) < b.interval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(publishedBucket)
		if bucket == nil {
			return errBucketMissing
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if expiry, ok := decodeExpiry(v); ok && expiry.After(now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired keys: %w", err)
	}
	b.lastSweep = now
	return nil
}

func (b *boltStore) count() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(publishedBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func decodeExpiry(v []byte) (time.Time, bool) {
	if len(v) != 8 {
		return time.Time{}, false
	}
	return time.Unix(int64(binary.BigEndian.Uint64(v)), 0), true
}
