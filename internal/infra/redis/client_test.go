package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// newTestClient connects to BRAZYL_TEST_REDIS_URL or skips.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("BRAZYL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BRAZYL_TEST_REDIS_URL not set")
	}
	c, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLock_ReleaseRequiresOwnerToken(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	name := "test-" + time.Now().Format("150405.000000000")

	token, ok, err := c.AcquireLock(ctx, name, time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLock = %v, %v", ok, err)
	}
	if _, ok, _ := c.AcquireLock(ctx, name, time.Minute); ok {
		t.Fatal("second acquire succeeded while lock is held")
	}

	if err := c.ReleaseLock(ctx, name, "someone-else"); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld for foreign token, got %v", err)
	}
	if _, ok, _ := c.AcquireLock(ctx, name, time.Minute); ok {
		t.Fatal("foreign release dropped the lock")
	}

	if err := c.ReleaseLock(ctx, name, token); err != nil {
		t.Fatalf("owner release failed: %v", err)
	}
	next, ok, err := c.AcquireLock(ctx, name, time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release = %v, %v", ok, err)
	}
	_ = c.ReleaseLock(ctx, name, next)
}

func TestLock_ExpiredLockIsNotReleasedByOldOwner(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	name := "test-expiry-" + time.Now().Format("150405.000000000")

	old, ok, err := c.AcquireLock(ctx, name, 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("AcquireLock = %v, %v", ok, err)
	}
	time.Sleep(100 * time.Millisecond)

	current, ok, err := c.AcquireLock(ctx, name, time.Minute)
	if err != nil || !ok {
		t.Fatalf("takeover acquire = %v, %v", ok, err)
	}
	if err := c.ReleaseLock(ctx, name, old); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld for expired owner, got %v", err)
	}
	if err := c.ReleaseLock(ctx, name, current); err != nil {
		t.Fatalf("current owner release failed: %v", err)
	}
}
