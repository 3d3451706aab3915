package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trial-lesson-service/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second, WithToken("secret"))
}

func writeEnvelope(w http.ResponseWriter, status int, env any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestClientGetLessonsUnwrapsEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/courses/c1/free-lessons" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		writeEnvelope(w, http.StatusOK, domain.Envelope[[]domain.Lesson]{
			Status: domain.StatusSuccess,
			Data:   []domain.Lesson{{ID: "l1", Title: "Intro", Type: domain.LessonVideo}},
		})
	})

	lessons, err := c.GetLessons(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get lessons: %v", err)
	}
	if len(lessons) != 1 || lessons[0].ID != "l1" {
		t.Fatalf("unexpected lessons: %+v", lessons)
	}
}

func TestClientTreatsFailureEnvelopeAsError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, domain.Envelope[any]{Status: "error", Error: "quota exceeded"})
	})

	_, err := c.GetCourse(context.Background(), "c1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "quota exceeded" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestClientMapsNotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, domain.Envelope[any]{Status: "error", Message: "no such course"})
	})

	if _, err := c.GetCourse(context.Background(), "missing"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestClientCheckMatchesSendsPayload(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quiz/matching/check" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body checkMatchesRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.QuizQuestionID != "m1" || len(body.Answers) != 2 || body.Answers[1].PromptID != "p2" {
			t.Errorf("unexpected body: %+v", body)
		}
		writeEnvelope(w, http.StatusOK, domain.Envelope[domain.MatchResult]{
			Status: domain.StatusSuccess,
			Data:   domain.MatchResult{Results: []bool{true, false}, CorrectCount: 1, TotalCount: 2},
		})
	})

	res, err := c.CheckMatches(context.Background(), "m1", []domain.MatchAnswer{
		{PromptID: "p1", AnswerContent: "A"},
		{PromptID: "p2", AnswerContent: "A"},
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.CorrectCount != 1 || len(res.Results) != 2 || res.Results[1] {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestClientCheckChoicesReadsVerdicts(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body checkChoicesRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Answers) != 1 || body.Answers[0].SelectedOption != "4" {
			t.Errorf("unexpected body: %+v", body)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"correctCount":1,"totalCount":1,
			"results":[{"questionId":"q1","isCorrect":true,"selectedOption":"4"}]}}`))
	})

	res, err := c.CheckChoices(context.Background(), []domain.ChoiceAnswer{{QuestionID: "q1", SelectedOption: "4"}})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Results[0].Correct {
		t.Fatalf("expected isCorrect to decode, got %+v", res.Results[0])
	}
}

func TestClientCommentCalls(t *testing.T) {
	var seen []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			var body addCommentRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Content != "hi" || body.ParentID != "c1" {
				t.Errorf("unexpected body: %+v", body)
			}
			writeEnvelope(w, http.StatusCreated, domain.Envelope[any]{Status: domain.StatusSuccess})
		case http.MethodDelete:
			writeEnvelope(w, http.StatusOK, domain.Envelope[any]{Status: domain.StatusSuccess})
		default:
			writeEnvelope(w, http.StatusOK, domain.Envelope[[]domain.Comment]{
				Status: domain.StatusSuccess,
				Data:   []domain.Comment{{ID: "c1", Children: []domain.Comment{{ID: "c2"}}}},
			})
		}
	})
	ctx := context.Background()

	comments, err := c.ListComments(ctx, "l1")
	if err != nil || len(comments) != 1 || len(comments[0].Children) != 1 {
		t.Fatalf("list: %+v %v", comments, err)
	}
	if err := c.AddComment(ctx, "l1", "hi", "c1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.DeleteComment(ctx, "c2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	want := []string{"GET /lessons/l1/comments", "POST /lessons/l1/comments", "DELETE /comments/c2"}
	for i, w := range want {
		if seen[i] != w {
			t.Fatalf("request %d: expected %s, got %s", i, w, seen[i])
		}
	}
}

func TestClientTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := c.GetLessons(context.Background(), "c1"); err == nil {
		t.Fatalf("expected transport error")
	}
}
