package share

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"planmark/api/internal/annotation"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

func testPayload() Payload {
	return Payload{
		Plan: "# Plan\n\nStep one",
		Annotations: []annotation.Annotation{
			{ID: "a1", BlockID: "block-1", Type: annotation.TypeComment, OriginalText: "Step one", Text: "why?"},
		},
	}
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", time.Hour); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestSaveAndLoad(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	id, encoded, err := store.Save(ctx, testPayload())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id != ID(encoded) {
		t.Fatalf("Save() id = %q, want %q", id, ID(encoded))
	}
	if ttl := s.TTL("share:" + id); ttl != time.Hour {
		t.Fatalf("share ttl = %v, want 1h", ttl)
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Plan != testPayload().Plan || len(loaded.Annotations) != 1 || loaded.Annotations[0].Text != "why?" {
		t.Fatalf("Load() = %+v", loaded)
	}

	again, _, err := store.Save(ctx, testPayload())
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if again != id {
		t.Fatalf("Save() of identical payload gave id %q, want %q", again, id)
	}
}

func TestLoadExpired(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	id, _, err := store.Save(ctx, testPayload())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.FastForward(2 * time.Minute)

	if _, err := store.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	if err := s.Set("share:broken", "!!!"); err != nil {
		t.Fatalf("seed redis: %v", err)
	}
	if _, err := store.Load(context.Background(), "broken"); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("Load() error = %v, want ErrInvalidPayload", err)
	}
}

func TestDelete(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	id, _, err := store.Save(ctx, testPayload())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() after delete error = %v", err)
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete() of missing share error = %v", err)
	}
}

func TestDefaultTTL(t *testing.T) {
	store, _ := setupTestRedis(t, 0)
	if store.ttl != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", store.ttl, DefaultTTL)
	}
}
