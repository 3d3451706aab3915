package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trial-lesson-service/internal/domain"
)

// CourseSource fetches course read-models from the backend or a database.
type CourseSource interface {
	GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error)
	GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error)
}

// CourseRepository caches course read-models in Redis as JSON strings and
// falls back to the source on a miss.
//
//	SET course:{courseID}:lessons <json>
//	SET course:{courseID}:info    <json>
type CourseRepository struct {
	client *redis.Client
	source CourseSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCourseRepository(client *redis.Client, source CourseSource, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CourseRepository) GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	var lessons []domain.Lesson
	err := r.get(ctx, r.lessonsKey(courseID), &lessons, func() (any, error) {
		return r.source.GetLessons(ctx, courseID)
	})
	return lessons, err
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error) {
	var course domain.CourseInfo
	err := r.get(ctx, r.infoKey(courseID), &course, func() (any, error) {
		return r.source.GetCourse(ctx, courseID)
	})
	return course, err
}

// get decodes the cached JSON at key into out, loading and caching it first
// when absent.
func (r *CourseRepository) get(ctx context.Context, key string, out any, load func() (any, error)) error {
	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		return json.Unmarshal(raw, out)
	}

	raw, err, _ := r.sf.Do(key, func() (any, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache %s: %v", key, err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), out)
}

// Invalidate drops the cached read-models of a course.
func (r *CourseRepository) Invalidate(ctx context.Context, courseID string) error {
	return r.client.Del(ctx, r.lessonsKey(courseID), r.infoKey(courseID)).Err()
}

func (r *CourseRepository) lessonsKey(courseID string) string {
	return "course:" + courseID + ":lessons"
}

func (r *CourseRepository) infoKey(courseID string) string {
	return "course:" + courseID + ":info"
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
