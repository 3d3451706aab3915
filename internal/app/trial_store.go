package app

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"trial-lesson-service/internal/domain"
)

// CourseRepository loads the read-models of a course (backend, cache or DB).
type CourseRepository interface {
	GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error)
	GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error)
}

// TrialLoadFailed is the only error text a viewer sees when loading fails.
const TrialLoadFailed = "Failed to load trial lessons"

// TrialStore holds the trial course's lessons, the current lesson pointer,
// the sidebar toggle and the load status for one mounted trial view.
type TrialStore struct {
	courseID string
	repo     CourseRepository

	mu          sync.RWMutex
	loading     bool
	errMsg      string
	lessons     []domain.Lesson
	course      domain.CourseInfo
	current     int
	sidebarOpen bool
}

func NewTrialStore(repo CourseRepository, courseID string) *TrialStore {
	return &TrialStore{
		courseID:    courseID,
		repo:        repo,
		loading:     true,
		sidebarOpen: true,
	}
}

// Load fetches lessons and course metadata concurrently. Loading stays true
// until both calls return; either failure leaves the store in the error state.
func (s *TrialStore) Load(ctx context.Context) error {
	var (
		lessons []domain.Lesson
		course  domain.CourseInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lessons, err = s.repo.GetLessons(gctx, s.courseID)
		return err
	})
	g.Go(func() error {
		var err error
		course, err = s.repo.GetCourse(gctx, s.courseID)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		log.Printf("load trial course %s failed: %v", s.courseID, err)
		s.errMsg = TrialLoadFailed
		return err
	}
	s.errMsg = ""
	s.lessons = lessons
	s.course = course
	s.current = 0
	return nil
}

func (s *TrialStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the user-facing load error, empty when loading succeeded.
func (s *TrialStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *TrialStore) Course() domain.CourseInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.course
}

func (s *TrialStore) Lessons() []domain.Lesson {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lessons
}

// Current returns the lesson under the pointer; ok is false when no lesson is loaded.
func (s *TrialStore) Current() (lesson domain.Lesson, index int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current >= len(s.lessons) {
		return domain.Lesson{}, s.current, false
	}
	return s.lessons[s.current], s.current, true
}

// SetCurrent moves the pointer; indexes outside [0, lessonCount) are rejected.
func (s *TrialStore) SetCurrent(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.lessons) {
		return domain.ErrLessonOutOfRange
	}
	s.current = i
	return nil
}

func (s *TrialStore) Next() error {
	s.mu.RLock()
	i := s.current + 1
	s.mu.RUnlock()
	return s.SetCurrent(i)
}

func (s *TrialStore) Previous() error {
	s.mu.RLock()
	i := s.current - 1
	s.mu.RUnlock()
	return s.SetCurrent(i)
}

func (s *TrialStore) CanPrevious() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current > 0 && len(s.lessons) > 0
}

func (s *TrialStore) CanNext() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current < len(s.lessons)-1
}

// ToggleSidebar flips the sidebar and reports the new state. The pointer is untouched.
func (s *TrialStore) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarOpen = !s.sidebarOpen
	return s.sidebarOpen
}

func (s *TrialStore) SidebarOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarOpen
}
