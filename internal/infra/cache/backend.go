package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Backend is a key/value store with TTL support.
// found=false with a nil error is a plain miss.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// BackendError wraps any failure of the cache backend. It never leaves this package.
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NoopBackend never stores anything.
type NoopBackend struct{}

func (NoopBackend) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NoopBackend) SetWithTTL(context.Context, string, []byte, time.Duration) error { return nil }

// Entry is a cached value and its expiry.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry must be treated as a miss.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

var errCorruptEntry = errors.New("corrupt cache entry")

// The stored blob is an 8-byte big-endian expiry (unix nanos) followed by the value.
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 8+len(e.Value))
	binary.BigEndian.PutUint64(buf, uint64(e.ExpiresAt.UnixNano()))
	copy(buf[8:], e.Value)
	return buf
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < 8 {
		return Entry{}, errCorruptEntry
	}
	expires := int64(binary.BigEndian.Uint64(b[:8]))
	value := make([]byte, len(b)-8)
	copy(value, b[8:])
	return Entry{Value: value, ExpiresAt: time.Unix(0, expires)}, nil
}
