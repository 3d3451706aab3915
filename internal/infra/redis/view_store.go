package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"trial-lesson-service/internal/app"
)

const viewKeyPrefix = "trial:view:"

// ViewStore is a Redis-aware implementation of app.ViewRepository.
// Notes:
//   - Views hold live connection state, so they stay in a local map.
//   - Redis carries a liveness marker per view; Count reads the markers of
//     every instance and refreshes the TTL of the local ones.
//   - Markers expire on their own if an instance dies.
type ViewStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	views  map[string]*app.TrialView
}

func NewViewStore(client *redis.Client, ttl time.Duration) *ViewStore {
	return &ViewStore{
		client: client,
		ttl:    ttl,
		views:  make(map[string]*app.TrialView),
	}
}

func (s *ViewStore) Register(viewID string, view *app.TrialView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[viewID] = view
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(viewID), "1", s.ttl).Err()
}

func (s *ViewStore) Get(viewID string) (*app.TrialView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.views[viewID]
	return view, ok
}

func (s *ViewStore) Remove(viewID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, viewID)
	_ = s.client.Del(context.Background(), s.key(viewID)).Err()
}

// Count reports the views mounted across all instances sharing the Redis.
// It falls back to the local count when Redis is unreachable.
func (s *ViewStore) Count() int {
	ctx := context.Background()

	s.mu.RLock()
	local := len(s.views)
	pipe := s.client.Pipeline()
	for viewID := range s.views {
		pipe.Set(ctx, s.key(viewID), "1", s.ttl)
	}
	s.mu.RUnlock()
	if local > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("refresh view markers failed: %v", err)
			return local
		}
	}

	total := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, viewKeyPrefix+"*", 100).Result()
		if err != nil {
			log.Printf("count view markers failed: %v", err)
			return local
		}
		total += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}
	if total < local {
		return local
	}
	return total
}

func (s *ViewStore) key(viewID string) string {
	return viewKeyPrefix + viewID
}
