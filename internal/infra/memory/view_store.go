package memory

import (
	"sync"

	"trial-lesson-service/internal/app"
)

// ViewStore is an in-memory implementation of app.ViewRepository.
type ViewStore struct {
	mu    sync.RWMutex
	views map[string]*app.TrialView
}

func NewViewStore() *ViewStore {
	return &ViewStore{
		views: make(map[string]*app.TrialView),
	}
}

func (s *ViewStore) Register(viewID string, view *app.TrialView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[viewID] = view
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
}

func (s *ViewStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}
