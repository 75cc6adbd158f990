package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestAdminCacheCachesWithinTTL(t *testing.T) {
	t.Parallel()

	calls := 0
	cache := NewAdminCache(func(context.Context, int64, int64) (bool, error) {
		calls++
		return true, nil
	}, 5*time.Minute)

	for i := 0; i < 3; i++ {
		if !cache.IsAdmin(context.Background(), -100, 42) {
			t.Fatal("expected admin")
		}
	}
	if calls != 1 {
		t.Errorf("got %d fetches, want 1", calls)
	}
}

func TestAdminCacheExpires(t *testing.T) {
	t.Parallel()

	calls := 0
	cache := NewAdminCache(func(context.Context, int64, int64) (bool, error) {
		calls++
		return false, nil
	}, 5*time.Minute)

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	cache.IsAdmin(context.Background(), -100, 42)
	now = now.Add(4 * time.Minute)
	cache.IsAdmin(context.Background(), -100, 42)
	if calls != 1 {
		t.Fatalf("fresh entry refetched: %d fetches", calls)
	}

	now = now.Add(2 * time.Minute)
	cache.IsAdmin(context.Background(), -100, 42)
	if calls != 2 {
		t.Errorf("expired entry not refetched: %d fetches", calls)
	}
}

func TestAdminCacheKeyedPerChat(t *testing.T) {
	t.Parallel()

	admins := map[int64]bool{-100: true, -200: false}
	cache := NewAdminCache(func(_ context.Context, chatID, _ int64) (bool, error) {
		return admins[chatID], nil
	}, 5*time.Minute)

	if !cache.IsAdmin(context.Background(), -100, 42) {
		t.Error("expected admin in chat -100")
	}
	if cache.IsAdmin(context.Background(), -200, 42) {
		t.Error("expected non-admin in chat -200")
	}
}

func TestAdminCacheFailsClosed(t *testing.T) {
	t.Parallel()

	cache := NewAdminCache(func(context.Context, int64, int64) (bool, error) {
		return true, errors.New("api down")
	}, 5*time.Minute)

	if cache.IsAdmin(context.Background(), -100, 42) {
		t.Error("fetch failure granted admin")
	}
}

func TestAdminCacheInvalidate(t *testing.T) {
	t.Parallel()

	calls := 0
	cache := NewAdminCache(func(context.Context, int64, int64) (bool, error) {
		calls++
		return true, nil
	}, 5*time.Minute)

	cache.IsAdmin(context.Background(), -100, 42)
	cache.Invalidate(-100, 42)
	cache.IsAdmin(context.Background(), -100, 42)
	if calls != 2 {
		t.Errorf("got %d fetches after invalidation, want 2", calls)
	}
}
