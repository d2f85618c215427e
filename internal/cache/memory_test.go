package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); err != ErrCacheMiss {
		t.Fatalf("Get(missing) err = %v, want ErrCacheMiss", err)
	}
	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
}

func TestMemoryReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "k", []byte("abc"), time.Minute)
	got, _ := m.Get(ctx, "k")
	got[0] = 'X'
	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", []byte("v"), time.Minute)
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Get after expiry err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryDeleteByPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "search:1:a", []byte("x"), time.Minute)
	_ = m.Set(ctx, "search:1:b", []byte("y"), time.Minute)
	_ = m.Set(ctx, "search:2:a", []byte("z"), time.Minute)

	removed, err := m.DeleteByPrefix(ctx, "search:1:")
	if err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := m.Get(ctx, "search:1:a"); err != ErrCacheMiss {
		t.Errorf("purged key still present")
	}
	if _, err := m.Get(ctx, "search:2:a"); err != nil {
		t.Errorf("unrelated key purged: %v", err)
	}
}

func TestMemoryFlush(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "k", []byte("v"), time.Minute)
	m.Flush()
	if _, err := m.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Get after Flush err = %v, want ErrCacheMiss", err)
	}
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("Noop Get err = %v, want ErrCacheMiss", err)
	}
	if n, err := c.DeleteByPrefix(ctx, "k"); err != nil || n != 0 {
		t.Errorf("Noop DeleteByPrefix = (%d, %v), want (0, nil)", n, err)
	}
}
