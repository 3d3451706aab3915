package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"trial-lesson-service/internal/domain"
)

// CourseLoader loads trial course JSONB (lessons, metadata and answer key) from Postgres.
type CourseLoader struct {
	pool *pgxpool.Pool
}

func NewCourseLoader(pool *pgxpool.Pool) *CourseLoader {
	return &CourseLoader{pool: pool}
}

func (l *CourseLoader) load(ctx context.Context, courseID string) (domain.TrialCourse, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM trial_courses WHERE id=$1`, courseID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TrialCourse{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.TrialCourse{}, fmt.Errorf("load course: %w", err)
	}
	var course domain.TrialCourse
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.TrialCourse{}, fmt.Errorf("unmarshal course: %w", err)
	}
	return course, nil
}

func (l *CourseLoader) GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	c, err := l.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return c.Lessons, nil
}

func (l *CourseLoader) GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error) {
	c, err := l.load(ctx, courseID)
	if err != nil {
		return domain.CourseInfo{}, err
	}
	return c.Course, nil
}

func (l *CourseLoader) GetAnswerKey(ctx context.Context, courseID string) (domain.AnswerKey, error) {
	c, err := l.load(ctx, courseID)
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return c.Key, nil
}

// SaveCourse upserts a trial course.
func (l *CourseLoader) SaveCourse(ctx context.Context, courseID string, course domain.TrialCourse) error {
	raw, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO trial_courses (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		courseID, string(raw))
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	return nil
}
