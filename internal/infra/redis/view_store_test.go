package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trial-lesson-service/internal/app"
)

func TestViewStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewViewStore(client, time.Minute)

	store.Register("v1", app.NewTrialView(app.TrialDeps{}, "course-1", "u1"))
	if !mr.Exists("trial:view:v1") {
		t.Fatalf("expected redis key to be set")
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 view, got %d", store.Count())
	}

	store.Remove("v1")
	if mr.Exists("trial:view:v1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("v1"); ok {
		t.Fatalf("expected view removed")
	}
}

func TestViewStoreCountsAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	first := NewViewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	second := NewViewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	first.Register("v1", app.NewTrialView(app.TrialDeps{}, "course-1", "u1"))
	second.Register("v2", app.NewTrialView(app.TrialDeps{}, "course-1", "u2"))
	if got := first.Count(); got != 2 {
		t.Fatalf("expected 2 views across instances, got %d", got)
	}

	mr.FastForward(45 * time.Second)
	if got := first.Count(); got != 2 {
		t.Fatalf("expected 2 views before expiry, got %d", got)
	}
	if ttl := mr.TTL("trial:view:v1"); ttl != time.Minute {
		t.Fatalf("expected local marker refreshed to 1m, got %v", ttl)
	}

	// second never refreshes, so its marker lapses
	mr.FastForward(30 * time.Second)
	if got := first.Count(); got != 1 {
		t.Fatalf("expected the stale marker gone, got %d", got)
	}

	first.Remove("v1")
	if got := first.Count(); got != 0 {
		t.Fatalf("expected no views, got %d", got)
	}
}

func TestViewStoreCountFallsBackToLocal(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	store := NewViewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	store.Register("v1", app.NewTrialView(app.TrialDeps{}, "course-1", "u1"))
	mr.Close()

	if got := store.Count(); got != 1 {
		t.Fatalf("expected the local count when redis is down, got %d", got)
	}
}
