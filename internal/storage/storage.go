// Package storage remembers which articles have already been relayed downstream.
package storage

import (
	"fmt"
	"strings"
	"time"
)

const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
)

// Store records article keys that were delivered to publishers.
type Store interface {
	Published(key string) (bool, error)
	MarkPublished(key string) error
	Close() error
}

// Options controls how long keys are remembered.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// New opens the store named by typ. An empty type disables deduplication.
func New(typ, path string, opts Options) (Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", TypeNone:
		return nopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("storage type %q requires a path", TypeBBolt)
		}
		store, err := openBolt(path, opts, time.Now)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type nopStore struct{}

func (nopStore) Published(string) (bool, error) { return false, nil }
func (nopStore) MarkPublished(string) error     { return nil }
func (nopStore) Close() error                   { return nil }
