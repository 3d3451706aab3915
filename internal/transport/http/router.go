package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"trial-lesson-service/internal/app"
	"trial-lesson-service/internal/domain"
)

// NewRouter wires the websocket endpoint and the read-only REST surface.
func NewRouter(deps app.TrialDeps, views app.ViewRepository) http.Handler {
	ws := NewWSHandler(deps, views)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]any{"status": "ok", "views": views.Count()})
	})
	r.Get("/ws/trial", ws.ServeWS)
	r.Get("/api/courses/{courseID}/trial", handleGetTrial(deps.Courses))
	return r
}

type trialResponse struct {
	Course  domain.CourseInfo `json:"course"`
	Lessons []domain.Lesson   `json:"lessons"`
}

// handleGetTrial serves the course metadata and lesson list in one response.
func handleGetTrial(courses app.CourseRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := app.NewTrialStore(courses, chi.URLParam(r, "courseID"))
		if err := store.Load(r.Context()); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, domain.ErrCourseNotFound) {
				status = http.StatusNotFound
			}
			Error(w, status, store.Err())
			return
		}
		JSON(w, http.StatusOK, trialResponse{Course: store.Course(), Lessons: store.Lessons()})
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
