package app

// ViewRepository tracks the trial views that are currently mounted
// (in-memory, Redis, etc).
type ViewRepository interface {
	Register(viewID string, view *TrialView)
	Get(viewID string) (*TrialView, bool)
	Remove(viewID string)
	Count() int
}
