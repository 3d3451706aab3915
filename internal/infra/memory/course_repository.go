package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"trial-lesson-service/internal/domain"
)

// CourseSource fetches course read-models from the backend or a database.
type CourseSource interface {
	GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error)
	GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error)
}

// CourseRepository caches lessons and course metadata with TTL so every
// mounted trial view does not hit the source.
type CourseRepository struct {
	source CourseSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

func NewCourseRepository(source CourseSource, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedEntry),
	}
}

func (r *CourseRepository) GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	v, err := r.get(ctx, "lessons:"+courseID, func() (any, error) {
		return r.source.GetLessons(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Lesson), nil
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error) {
	v, err := r.get(ctx, "course:"+courseID, func() (any, error) {
		return r.source.GetCourse(ctx, courseID)
	})
	if err != nil {
		return domain.CourseInfo{}, err
	}
	return v.(domain.CourseInfo), nil
}

func (r *CourseRepository) get(_ context.Context, key string, load func() (any, error)) (any, error) {
	if v, ok := r.lookup(key); ok {
		return v, nil
	}
	v, err, _ := r.sf.Do(key, func() (any, error) {
		// Re-check in case another caller filled it.
		if v, ok := r.lookup(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = cachedEntry{value: v, expiresAt: r.clock().Add(r.ttlWithJitterLocked())}
		r.mu.Unlock()
		return v, nil
	})
	return v, err
}

func (r *CourseRepository) lookup(key string) (any, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.value, true
	}
	return nil, false
}

func (r *CourseRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCourseLoader serves trial courses from an in-memory map (useful for tests/demos).
type StaticCourseLoader struct {
	courses map[string]domain.TrialCourse
}

func NewStaticCourseLoader(courses map[string]domain.TrialCourse) *StaticCourseLoader {
	return &StaticCourseLoader{courses: courses}
}

func (l *StaticCourseLoader) GetLessons(_ context.Context, courseID string) ([]domain.Lesson, error) {
	if c, ok := l.courses[courseID]; ok {
		return c.Lessons, nil
	}
	return nil, domain.ErrCourseNotFound
}

func (l *StaticCourseLoader) GetCourse(_ context.Context, courseID string) (domain.CourseInfo, error) {
	if c, ok := l.courses[courseID]; ok {
		return c.Course, nil
	}
	return domain.CourseInfo{}, domain.ErrCourseNotFound
}

func (l *StaticCourseLoader) GetAnswerKey(_ context.Context, courseID string) (domain.AnswerKey, error) {
	if c, ok := l.courses[courseID]; ok {
		return c.Key, nil
	}
	return domain.AnswerKey{}, domain.ErrCourseNotFound
}
