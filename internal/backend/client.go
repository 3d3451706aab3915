// Package backend is the HTTP client of the remote course API. Every
// response is wrapped in a domain.Envelope; transport failures and
// non-success envelopes both come back as errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trial-lesson-service/internal/domain"
)

// APIError is returned when the backend answers with a non-success envelope
// or an unexpected HTTP status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
}

// notFound maps a 404 from the backend onto domain.ErrCourseNotFound.
func notFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrCourseNotFound, apiErr.Message)
	}
	return err
}

// Client talks to the course backend.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetLessons(ctx context.Context, courseID string) ([]domain.Lesson, error) {
	var lessons []domain.Lesson
	err := do(ctx, c, http.MethodGet, "/courses/"+url.PathEscape(courseID)+"/free-lessons", nil, &lessons)
	if err != nil {
		return nil, fmt.Errorf("fetch lessons: %w", notFound(err))
	}
	return lessons, nil
}

func (c *Client) GetCourse(ctx context.Context, courseID string) (domain.CourseInfo, error) {
	var course domain.CourseInfo
	if err := do(ctx, c, http.MethodGet, "/courses/"+url.PathEscape(courseID), nil, &course); err != nil {
		return domain.CourseInfo{}, fmt.Errorf("fetch course: %w", notFound(err))
	}
	return course, nil
}

type checkChoicesRequest struct {
	Answers []domain.ChoiceAnswer `json:"answers"`
}

func (c *Client) CheckChoices(ctx context.Context, answers []domain.ChoiceAnswer) (domain.ChoiceResult, error) {
	var res domain.ChoiceResult
	if err := do(ctx, c, http.MethodPost, "/quiz/check", checkChoicesRequest{Answers: answers}, &res); err != nil {
		return domain.ChoiceResult{}, fmt.Errorf("check choices: %w", err)
	}
	return res, nil
}

type checkMatchesRequest struct {
	QuizQuestionID string               `json:"quizQuestionId"`
	Answers        []domain.MatchAnswer `json:"answers"`
}

func (c *Client) CheckMatches(ctx context.Context, questionID string, answers []domain.MatchAnswer) (domain.MatchResult, error) {
	var res domain.MatchResult
	body := checkMatchesRequest{QuizQuestionID: questionID, Answers: answers}
	if err := do(ctx, c, http.MethodPost, "/quiz/matching/check", body, &res); err != nil {
		return domain.MatchResult{}, fmt.Errorf("check matches: %w", err)
	}
	return res, nil
}

func (c *Client) ListComments(ctx context.Context, lessonID string) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := do(ctx, c, http.MethodGet, "/lessons/"+url.PathEscape(lessonID)+"/comments", nil, &comments); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

type addCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"`
}

func (c *Client) AddComment(ctx context.Context, lessonID, content, parentID string) error {
	body := addCommentRequest{Content: content, ParentID: parentID}
	if err := do[json.RawMessage](ctx, c, http.MethodPost, "/lessons/"+url.PathEscape(lessonID)+"/comments", body, nil); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	if err := do[json.RawMessage](ctx, c, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// do performs one call and unwraps the envelope into out. Data is only read
// when the envelope reports success.
func do[T any](ctx context.Context, c *Client, method, path string, body any, out *T) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env domain.Envelope[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed response"}
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.OK() {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
