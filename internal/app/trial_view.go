package app

import (
	"context"
	"log"
	"sync"

	"trial-lesson-service/internal/domain"
)

// CheckerFactory returns the answer checker for a course.
type CheckerFactory func(courseID string) AnswerChecker

// TrialDeps are the collaborators shared by every trial view.
type TrialDeps struct {
	Courses  CourseRepository
	Checkers CheckerFactory
	// Comments is optional; without it lessons render no comment section.
	Comments         CommentService
	CommentMaxLength int
	EngineOptions    []EngineOption
}

// LessonItem is one entry of the lesson sidebar.
type LessonItem struct {
	Index   int               `json:"index"`
	Title   string            `json:"title"`
	Type    domain.LessonType `json:"type"`
	Current bool              `json:"current"`
	Passed  bool              `json:"passed"`
}

// LessonBody is the lesson content under the pointer.
type LessonBody struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     domain.LessonType `json:"type"`
	VideoURL string            `json:"videoUrl,omitempty"`
	Markdown string            `json:"markdown,omitempty"`
}

// TrialSnapshot is everything the trial shell renders.
type TrialSnapshot struct {
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	Course      domain.CourseInfo `json:"course"`
	Lessons     []LessonItem      `json:"lessons"`
	Current     int               `json:"current"`
	CanPrevious bool              `json:"canPrevious"`
	CanNext     bool              `json:"canNext"`
	SidebarOpen bool              `json:"sidebarOpen"`
	Lesson      *LessonBody       `json:"lesson,omitempty"`
	Quiz        *QuizView         `json:"quiz,omitempty"`
	QuizError   string            `json:"quizError,omitempty"`
	Comments    *CommentsView     `json:"comments,omitempty"`
}

// TrialView is the trial lesson shell of one viewer: the store plus the quiz
// session and comment board of the lesson under the pointer. Both are
// remounted whenever the pointer moves.
type TrialView struct {
	deps     TrialDeps
	courseID string
	viewerID string
	store    *TrialStore

	mu      sync.Mutex
	quiz    *QuizEngine
	quizErr string
	board   *CommentBoard
	passed  map[string]bool

	subMu       sync.Mutex
	subscribers map[chan TrialSnapshot]struct{}
}

func NewTrialView(deps TrialDeps, courseID, viewerID string) *TrialView {
	return &TrialView{
		deps:     deps,
		courseID: courseID,
		viewerID: viewerID,
		store:    NewTrialStore(deps.Courses, courseID),
		passed:   make(map[string]bool),

		subscribers: make(map[chan TrialSnapshot]struct{}),
	}
}

// Subscribe returns a channel receiving a snapshot after every Publish,
// starting with the current one. The caller must invoke cancel.
func (v *TrialView) Subscribe() (<-chan TrialSnapshot, func()) {
	ch := make(chan TrialSnapshot, 4)
	ch <- v.Snapshot()

	v.subMu.Lock()
	v.subscribers[ch] = struct{}{}
	v.subMu.Unlock()

	cancel := func() {
		v.subMu.Lock()
		if _, ok := v.subscribers[ch]; ok {
			delete(v.subscribers, ch)
			close(ch)
		}
		v.subMu.Unlock()
	}
	return ch, cancel
}

// Publish pushes the current snapshot to every subscriber. A subscriber that
// has fallen behind loses its oldest pending snapshot instead of blocking.
func (v *TrialView) Publish() {
	snap := v.Snapshot()

	v.subMu.Lock()
	defer v.subMu.Unlock()
	for ch := range v.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (v *TrialView) Store() *TrialStore { return v.store }

// Mount loads the course and mounts the first lesson.
func (v *TrialView) Mount(ctx context.Context) error {
	if err := v.store.Load(ctx); err != nil {
		return err
	}
	v.mountLesson(ctx)
	return nil
}

// SelectLesson moves the pointer from the sidebar.
func (v *TrialView) SelectLesson(ctx context.Context, index int) error {
	if err := v.store.SetCurrent(index); err != nil {
		return err
	}
	v.mountLesson(ctx)
	return nil
}

func (v *TrialView) NextLesson(ctx context.Context) error {
	if err := v.store.Next(); err != nil {
		return err
	}
	v.mountLesson(ctx)
	return nil
}

func (v *TrialView) PreviousLesson(ctx context.Context) error {
	if err := v.store.Previous(); err != nil {
		return err
	}
	v.mountLesson(ctx)
	return nil
}

func (v *TrialView) ToggleSidebar() bool { return v.store.ToggleSidebar() }

// mountLesson tears down the previous lesson's quiz session, discarding any
// submission still in flight, and builds the new lesson's components.
func (v *TrialView) mountLesson(ctx context.Context) {
	lesson, _, ok := v.store.Current()

	var (
		quiz    *QuizEngine
		quizErr string
		board   *CommentBoard
	)
	if ok && lesson.Type == domain.LessonQuiz && lesson.Quiz != nil {
		lessonID := lesson.ID
		opts := append([]EngineOption{WithCompletion(func(passed bool) {
			v.recordCompletion(lessonID, passed)
		})}, v.deps.EngineOptions...)
		engine, err := NewQuizEngine(*lesson.Quiz, v.checker(), opts...)
		if err != nil {
			log.Printf("quiz for lesson %s rejected: %v", lesson.ID, err)
			quizErr = "This quiz is not available"
		} else {
			quiz = engine
		}
	}
	if ok && v.deps.Comments != nil {
		board = NewCommentBoard(v.deps.Comments, lesson.ID, v.viewerID, v.deps.CommentMaxLength)
	}

	v.mu.Lock()
	old := v.quiz
	v.quiz, v.quizErr, v.board = quiz, quizErr, board
	v.mu.Unlock()

	if old != nil {
		old.Reset()
	}
	if board != nil {
		_ = board.Refresh(ctx)
	}
}

func (v *TrialView) checker() AnswerChecker {
	if v.deps.Checkers == nil {
		return nil
	}
	return v.deps.Checkers(v.courseID)
}

func (v *TrialView) recordCompletion(lessonID string, passed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.passed[lessonID] = passed
}

// Quiz returns the session of the current lesson.
func (v *TrialView) Quiz() (*QuizEngine, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.quiz == nil {
		return nil, domain.ErrNotQuizLesson
	}
	return v.quiz, nil
}

// Comments returns the comment board of the current lesson.
func (v *TrialView) Comments() (*CommentBoard, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.board == nil {
		return nil, domain.ErrInvalidAction
	}
	return v.board, nil
}

// Close unmounts the view.
func (v *TrialView) Close() {
	v.mu.Lock()
	quiz := v.quiz
	v.quiz = nil
	v.mu.Unlock()
	if quiz != nil {
		quiz.Reset()
	}
}

func (v *TrialView) Snapshot() TrialSnapshot {
	s := v.store
	snap := TrialSnapshot{
		Loading:     s.Loading(),
		Error:       s.Err(),
		Course:      s.Course(),
		CanPrevious: s.CanPrevious(),
		CanNext:     s.CanNext(),
		SidebarOpen: s.SidebarOpen(),
	}
	lesson, current, ok := s.Current()
	snap.Current = current

	v.mu.Lock()
	lessons := s.Lessons()
	snap.Lessons = make([]LessonItem, len(lessons))
	for i, l := range lessons {
		snap.Lessons[i] = LessonItem{
			Index:   i,
			Title:   l.Title,
			Type:    l.Type,
			Current: i == current,
			Passed:  v.passed[l.ID],
		}
	}
	quiz, quizErr, board := v.quiz, v.quizErr, v.board
	v.mu.Unlock()

	if !ok {
		return snap
	}
	snap.Lesson = &LessonBody{
		ID:       lesson.ID,
		Title:    lesson.Title,
		Type:     lesson.Type,
		VideoURL: lesson.VideoURL,
		Markdown: lesson.Markdown,
	}
	if quiz != nil {
		qv := quiz.View()
		snap.Quiz = &qv
	}
	snap.QuizError = quizErr
	if board != nil {
		cv := board.View()
		snap.Comments = &cv
	}
	return snap
}
