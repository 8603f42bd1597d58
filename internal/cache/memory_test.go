package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_TTL(t *testing.T) {
	s := NewMemoryStore(10 * time.Millisecond)
	defer s.Close()

	ctx := context.Background()
	key := "test:key"
	val := []byte("hello")

	if err := s.Set(ctx, key, val, 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, hit, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit immediately after Set")
	}
	if string(got) != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	// Wait for TTL to expire
	time.Sleep(30 * time.Millisecond)

	_, hit, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after TTL failed: %v", err)
	}
	if hit {
		t.Fatalf("expected miss after TTL expiry")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()

	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, hit, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Fatalf("expected miss after Delete")
	}

	// Deleting an absent key is a no-op.
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete of absent key failed: %v", err)
	}
}

func TestMemoryStore_NonPositiveTTLRemoves(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()

	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "a", []byte("2"), 0); err != nil {
		t.Fatalf("Set with zero TTL failed: %v", err)
	}

	_, hit, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Fatalf("expected zero TTL to remove the entry")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d items", s.Len())
	}
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()

	ctx := context.Background()
	val := []byte("immutable")

	if err := s.Set(ctx, "a", val, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val[0] = 'X'

	got, hit, err := s.Get(ctx, "a")
	if err != nil || !hit {
		t.Fatalf("Get failed: hit=%v err=%v", hit, err)
	}
	if string(got) != "immutable" {
		t.Fatalf("stored value aliased caller buffer, got %q", got)
	}
}
