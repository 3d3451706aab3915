package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trial-lesson-service/internal/domain"
)

func TestCourseRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		StaticCourseLoader: NewStaticCourseLoader(map[string]domain.TrialCourse{
			"course-1": sampleCourse(),
		}),
	}
	repo := NewCourseRepository(loader, time.Minute)

	lessons, err := repo.GetLessons(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get lessons: %v", err)
	}
	if len(lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(lessons))
	}
	if _, err := repo.GetLessons(context.Background(), "course-1"); err != nil {
		t.Fatalf("get lessons 2: %v", err)
	}
	if loader.lessonCalls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.lessonCalls)
	}

	course, err := repo.GetCourse(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if course.Title != "Go Basics" {
		t.Fatalf("unexpected course %+v", course)
	}
	_, _ = repo.GetCourse(context.Background(), "course-1")
	if loader.courseCalls != 1 {
		t.Fatalf("expected cache hit, course calls %d", loader.courseCalls)
	}
}

func TestCourseRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		StaticCourseLoader: NewStaticCourseLoader(map[string]domain.TrialCourse{
			"course-1": sampleCourse(),
		}),
	}
	repo := NewCourseRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetLessons(context.Background(), "course-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetLessons(context.Background(), "course-1")
	if loader.lessonCalls != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.lessonCalls)
	}
}

func TestCourseRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{StaticCourseLoader: NewStaticCourseLoader(nil)}
	repo := NewCourseRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetCourse(context.Background(), "missing"); !errors.Is(err, domain.ErrCourseNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.courseCalls != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.courseCalls)
	}
}

type countingLoader struct {
	*StaticCourseLoader
	lessonCalls int
	courseCalls int
}

func (l *countingLoader) GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	l.lessonCalls++
	return l.StaticCourseLoader.GetLessons(ctx, courseID)
}

func (l *countingLoader) GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error) {
	l.courseCalls++
	return l.StaticCourseLoader.GetCourse(ctx, courseID)
}

func sampleCourse() domain.TrialCourse {
	return domain.TrialCourse{
		Course: domain.CourseInfo{ID: "course-1", Title: "Go Basics", LessonCount: 2},
		Lessons: []domain.Lesson{
			{ID: "l1", Title: "Intro", Type: domain.LessonVideo, VideoURL: "https://cdn.example.com/intro.mp4"},
			{ID: "l2", Title: "Syntax", Type: domain.LessonText, Markdown: "# Syntax"},
		},
	}
}
