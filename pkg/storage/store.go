// Package storage abstracts the named locations snapshots and canvas
// documents are persisted to.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("not found")

// Store reads and writes whole documents by key. Write fully replaces any
// previous content at the key.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string `yaml:"backend"`
	RedisURL    string `yaml:"redis_url,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// Open constructs the Store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewOSStore(), nil
	case BackendRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("redis backend requires a redis URL")
		}
		return NewRedisStore(ctx, opts.RedisURL, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", opts.Backend)
	}
}
