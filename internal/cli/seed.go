package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"trial-lesson-service/internal/config"
	"trial-lesson-service/internal/domain"
	pgloader "trial-lesson-service/internal/infra/postgres"
	redisstore "trial-lesson-service/internal/infra/redis"
)

// NewSeedCmd loads a trial course JSON document into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <course-id> <course.json>",
		Short: "Store a trial course with its answer key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, args[0], args[1])
		},
	}
}

func runSeed(ctx context.Context, configPath, courseID, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var course domain.TrialCourse
	if err := json.Unmarshal(raw, &course); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	for _, lesson := range course.Lessons {
		if lesson.Quiz == nil {
			continue
		}
		if err := lesson.Quiz.Validate(); err != nil {
			return fmt.Errorf("lesson %s: %w", lesson.ID, err)
		}
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgloader.NewCourseLoader(pool).SaveCourse(ctx, courseID, course); err != nil {
		return err
	}
	log.Printf("seeded course %s with %d lessons", courseID, len(course.Lessons))

	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()
	// drop read-models cached from the previous version
	cache := redisstore.NewCourseRepository(client, pgloader.NewCourseLoader(pool), 0)
	if err := cache.Invalidate(ctx, courseID); err != nil {
		log.Printf("invalidate cached course %s: %v", courseID, err)
	}
	return nil
}
