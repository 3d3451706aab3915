package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"trial-lesson-service/internal/app"
	"trial-lesson-service/internal/backend"
	"trial-lesson-service/internal/config"
	"trial-lesson-service/internal/domain"
	"trial-lesson-service/internal/infra/memory"
	pgloader "trial-lesson-service/internal/infra/postgres"
	redisstore "trial-lesson-service/internal/infra/redis"
	transport "trial-lesson-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trial lesson server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// courseSource is what the caches load from: the remote backend, Postgres
// or the built-in sample.
type courseSource interface {
	memory.CourseSource
	redisstore.CourseSource
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	deps := app.TrialDeps{CommentMaxLength: cfg.Comments.MaxLength}

	var source courseSource
	switch {
	case pool != nil:
		loader := pgloader.NewCourseLoader(pool)
		source = loader
		deps.Checkers = app.GraderFactory(loader)
	case cfg.Backend.BaseURL != "":
		client := backend.NewClient(cfg.Backend.BaseURL,
			config.TTLDuration(cfg.Backend.Timeout, 10*time.Second),
			backend.WithToken(cfg.Backend.Token))
		source = client
		deps.Checkers = func(string) app.AnswerChecker { return client }
		deps.Comments = client
	default:
		log.Printf("no backend or postgres configured, serving the sample course")
		loader := memory.NewStaticCourseLoader(sampleCourses())
		source = loader
		deps.Checkers = app.GraderFactory(loader)
	}

	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	var views app.ViewRepository
	if redisClient != nil {
		deps.Courses = redisstore.NewCourseRepository(redisClient, source, cacheTTL)
		views = redisstore.NewViewStore(redisClient, redisTTL)
	} else {
		deps.Courses = memory.NewCourseRepository(source, cacheTTL)
		views = memory.NewViewStore()
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(deps, views),
		ReadTimeout: 15 * time.Second,
		// websocket connections outlive any write deadline
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("starting trial lesson service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCourses provides a small trial course; swap this loader with the
// backend or Postgres in production.
func sampleCourses() map[string]domain.TrialCourse {
	return map[string]domain.TrialCourse{
		"go-basics": {
			Course: domain.CourseInfo{
				ID:          "go-basics",
				Title:       "Go Basics",
				Description: "A first tour of the Go language.",
				Objective:   "Write and run small Go programs.",
				Sections: []domain.Section{
					{Title: "Getting started", Lessons: []string{"Welcome", "Hello, world"}},
					{Title: "Check yourself", Lessons: []string{"Quick quiz", "Keywords"}},
				},
				Duration:    "1h",
				LessonCount: 4,
			},
			Lessons: []domain.Lesson{
				{ID: "welcome", Title: "Welcome", Type: domain.LessonVideo, VideoURL: "https://cdn.example.com/go-basics/welcome.mp4"},
				{ID: "hello", Title: "Hello, world", Type: domain.LessonText, Markdown: "# Hello\n\n```go\nfmt.Println(\"hello\")\n```"},
				{ID: "quiz-1", Title: "Quick quiz", Type: domain.LessonQuiz, Quiz: &domain.Quiz{Questions: []domain.Question{
					{ID: "q1", Type: domain.QuestionChoice, Prompt: "Which keyword declares a function?", Options: []string{"func", "def", "fn"}},
					{ID: "q2", Type: domain.QuestionChoice, Prompt: "What does := do?", Options: []string{"compares", "declares and assigns", "exports"}},
				}}},
				{ID: "quiz-2", Title: "Keywords", Type: domain.LessonQuiz, Quiz: &domain.Quiz{Questions: []domain.Question{
					{ID: "m1", Type: domain.QuestionMatching, Prompt: "Match each keyword", Pairs: []domain.MatchPair{
						{Prompt: domain.PromptItem{ID: "p1", Content: "go"}, Answer: "starts a goroutine"},
						{Prompt: domain.PromptItem{ID: "p2", Content: "defer"}, Answer: "runs when the function returns"},
						{Prompt: domain.PromptItem{ID: "p3", Content: "select"}, Answer: "waits on channel operations"},
					}},
				}}},
			},
			Key: domain.AnswerKey{
				Choices: map[string]string{"q1": "func", "q2": "declares and assigns"},
				Matches: map[string]map[string]string{"m1": {
					"p1": "starts a goroutine",
					"p2": "runs when the function returns",
					"p3": "waits on channel operations",
				}},
			},
		},
	}
}
