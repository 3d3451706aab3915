package memory

import (
	"testing"

	"trial-lesson-service/internal/app"
)

func TestViewStoreLifecycle(t *testing.T) {
	store := NewViewStore()
	view := app.NewTrialView(app.TrialDeps{}, "course-1", "u1")

	store.Register("v1", view)
	if got, ok := store.Get("v1"); !ok || got != view {
		t.Fatalf("expected registered view")
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 view, got %d", store.Count())
	}

	store.Remove("v1")
	if _, ok := store.Get("v1"); ok {
		t.Fatalf("expected view removed")
	}
	if store.Count() != 0 {
		t.Fatalf("expected no views, got %d", store.Count())
	}
}
