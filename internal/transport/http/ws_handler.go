package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"trial-lesson-service/internal/app"
	"trial-lesson-service/internal/domain"
)

type WSHandler struct {
	deps     app.TrialDeps
	views    app.ViewRepository
	upgrader websocket.Upgrader
}

func NewWSHandler(deps app.TrialDeps, views app.ViewRepository) *WSHandler {
	return &WSHandler{
		deps:  deps,
		views: views,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type commentPayload struct {
	ParentID  string `json:"parentId"`
	CommentID string `json:"commentId"`
	Text      string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

const requestFailed = "Request failed, please try again"

// userMessage hides collaborator faults behind a static message; local
// validation errors are shown as they are.
func userMessage(err error) string {
	var known = []error{
		domain.ErrEmptyComment, domain.ErrNotCommentAuthor, domain.ErrCommentNotFound,
		domain.ErrLessonOutOfRange, domain.ErrNotQuizLesson, domain.ErrInvalidAction,
		domain.ErrUnanswered, domain.ErrSubmissionInFlight, domain.ErrAnswerInUse,
		domain.ErrNoPromptSelected, domain.ErrIncompleteMatch, errUnsupported,
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return requestFailed
}

// ServeWS upgrades HTTP requests to websockets and mounts one trial view per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("courseId")
	userID := r.URL.Query().Get("userId")
	if courseID == "" {
		http.Error(w, "missing courseId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancelCtx := context.WithCancel(r.Context())
	defer cancelCtx()

	viewID := uuid.NewString()
	view := app.NewTrialView(h.deps, courseID, userID)
	h.views.Register(viewID, view)
	defer h.views.Remove(viewID)
	defer view.Close()

	updates, cancel := view.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var pending sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reportErr := func(err error) {
		select {
		case send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: userMessage(err)}}:
		case <-closeSignals:
		}
	}

	// Submissions resolve in the background so the connection keeps reading
	// while the check is outstanding.
	async := func(fn func() error) {
		pending.Add(1)
		go func() {
			defer pending.Done()
			err := fn()
			view.Publish()
			if err != nil && !errors.Is(err, domain.ErrSessionReset) {
				reportErr(err)
			}
		}()
	}

	if err := view.Mount(ctx); err != nil {
		log.Printf("mount trial view %s failed: %v", viewID, err)
	}
	view.Publish()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(ctx, view, inbound, async); err != nil {
			reportErr(err)
		}
		view.Publish()
	}

	cancelCtx()
	close(closeSignals)
	<-updatesDone
	pending.Wait()
	close(send)
	<-writerDone
}

var errUnsupported = errors.New("unsupported message type")

func (h *WSHandler) dispatch(ctx context.Context, view *app.TrialView, msg inboundMessage, async func(func() error)) error {
	switch msg.Type {
	case "selectLesson":
		var p indexPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return domain.ErrInvalidAction
		}
		return view.SelectLesson(ctx, p.Index)
	case "nextLesson":
		return view.NextLesson(ctx)
	case "previousLesson":
		return view.PreviousLesson(ctx)
	case "toggleSidebar":
		view.ToggleSidebar()
		return nil
	case "quiz.select", "quiz.next", "quiz.previous", "quiz.retry",
		"quiz.selectPrompt", "quiz.selectAnswer", "quiz.clearMatch",
		"quiz.submit", "quiz.submitMatch":
		quiz, err := view.Quiz()
		if err != nil {
			return err
		}
		return dispatchQuiz(ctx, quiz, msg, async)
	case "comment.input", "comment.toggleReply", "comment.submit", "comment.delete":
		board, err := view.Comments()
		if err != nil {
			return err
		}
		var p commentPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return domain.ErrInvalidAction
			}
		}
		switch msg.Type {
		case "comment.input":
			return board.Input(p.ParentID, p.Text)
		case "comment.toggleReply":
			board.ToggleReply(p.CommentID)
			return nil
		case "comment.submit":
			return board.Submit(ctx, p.ParentID)
		default:
			return board.Delete(ctx, p.CommentID)
		}
	}
	return errUnsupported
}

func dispatchQuiz(ctx context.Context, quiz *app.QuizEngine, msg inboundMessage, async func(func() error)) error {
	index := func() (int, error) {
		var p indexPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return 0, domain.ErrInvalidAction
		}
		return p.Index, nil
	}
	switch msg.Type {
	case "quiz.select":
		i, err := index()
		if err != nil {
			return err
		}
		return quiz.SelectOption(i)
	case "quiz.next":
		return quiz.Next()
	case "quiz.previous":
		return quiz.Previous()
	case "quiz.retry":
		return quiz.Retry()
	case "quiz.selectPrompt":
		i, err := index()
		if err != nil {
			return err
		}
		return quiz.SelectPrompt(i)
	case "quiz.selectAnswer":
		i, err := index()
		if err != nil {
			return err
		}
		return quiz.SelectAnswer(i)
	case "quiz.clearMatch":
		i, err := index()
		if err != nil {
			return err
		}
		return quiz.ClearMatch(i)
	case "quiz.submit":
		async(func() error {
			_, err := quiz.SubmitChoices(ctx)
			return err
		})
		return nil
	case "quiz.submitMatch":
		async(func() error {
			_, err := quiz.SubmitMatch(ctx)
			return err
		})
		return nil
	}
	return errUnsupported
}
