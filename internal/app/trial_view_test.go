package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"trial-lesson-service/internal/domain"
)

func newTestView(t *testing.T, checker AnswerChecker, comments CommentService) *TrialView {
	t.Helper()
	deps := TrialDeps{
		Courses:  &fakeCourses{lessons: trialLessons(), course: domain.CourseInfo{ID: "c1", Title: "Course"}},
		Checkers: func(string) AnswerChecker { return checker },
		Comments: comments,
	}
	v := NewTrialView(deps, "c1", "u1")
	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return v
}

func TestTrialViewSnapshot(t *testing.T) {
	v := newTestView(t, &fakeChecker{}, nil)
	snap := v.Snapshot()
	if snap.Loading || snap.Error != "" || !snap.SidebarOpen {
		t.Fatalf("unexpected shell state: %+v", snap)
	}
	if len(snap.Lessons) != 3 || !snap.Lessons[0].Current || snap.Lessons[1].Current {
		t.Fatalf("unexpected lesson list: %+v", snap.Lessons)
	}
	if snap.Lesson == nil || snap.Lesson.VideoURL == "" || snap.Quiz != nil || snap.Comments != nil {
		t.Fatalf("expected the video lesson body only, got %+v", snap)
	}
	if _, err := v.Quiz(); !errors.Is(err, domain.ErrNotQuizLesson) {
		t.Fatalf("expected ErrNotQuizLesson, got %v", err)
	}
	if _, err := v.Comments(); !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("expected no comment board without a comment service, got %v", err)
	}
}

func TestTrialViewNavigationMountsQuiz(t *testing.T) {
	checker := &fakeChecker{choiceRes: domain.ChoiceResult{CorrectCount: 1, TotalCount: 1}}
	v := newTestView(t, checker, nil)

	if err := v.SelectLesson(context.Background(), 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := v.Snapshot()
	if snap.Quiz == nil || snap.Current != 2 || snap.CanNext {
		t.Fatalf("expected quiz lesson at the end, got %+v", snap)
	}

	quiz, err := v.Quiz()
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	_ = quiz.SelectOption(1)
	if _, err := quiz.SubmitChoices(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !v.Snapshot().Lessons[2].Passed {
		t.Fatalf("passed quiz should be recorded on the lesson list")
	}

	if err := v.NextLesson(context.Background()); !errors.Is(err, domain.ErrLessonOutOfRange) {
		t.Fatalf("expected ErrLessonOutOfRange, got %v", err)
	}
	if err := v.PreviousLesson(context.Background()); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if err := v.NextLesson(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	if q := v.Snapshot().Quiz; q == nil || q.Phase != "answering" {
		t.Fatalf("returning to the lesson should mount a fresh session, got %+v", q)
	}
}

func TestTrialViewRemountDiscardsSubmission(t *testing.T) {
	checker := &fakeChecker{
		choiceRes: domain.ChoiceResult{CorrectCount: 1, TotalCount: 1},
		started:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	v := newTestView(t, checker, nil)
	_ = v.SelectLesson(context.Background(), 2)
	quiz, _ := v.Quiz()
	_ = quiz.SelectOption(1)

	done := make(chan error, 1)
	go func() {
		_, err := quiz.SubmitChoices(context.Background())
		done <- err
	}()
	<-checker.started

	if err := v.SelectLesson(context.Background(), 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	close(checker.release)

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrSessionReset) {
			t.Fatalf("expected ErrSessionReset, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("submission did not resolve")
	}
	if v.Snapshot().Lessons[2].Passed {
		t.Fatalf("discarded submission must not be recorded")
	}
}

func TestTrialViewRejectsInvalidQuiz(t *testing.T) {
	lessons := []domain.Lesson{{ID: "bad", Type: domain.LessonQuiz, Quiz: &domain.Quiz{Questions: []domain.Question{
		{ID: "m1", Type: domain.QuestionMatching},
	}}}}
	v := NewTrialView(TrialDeps{Courses: &fakeCourses{lessons: lessons}}, "c1", "u1")
	if err := v.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	snap := v.Snapshot()
	if snap.Quiz != nil || snap.QuizError == "" {
		t.Fatalf("expected quiz error, got %+v", snap)
	}
}

func TestTrialViewCommentBoardFollowsLesson(t *testing.T) {
	svc := &fakeComments{tree: sampleTree()}
	v := newTestView(t, &fakeChecker{}, svc)
	if c := v.Snapshot().Comments; c == nil || len(c.Comments) != 2 {
		t.Fatalf("expected comments on mount, got %+v", c)
	}
	board, err := v.Comments()
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	_ = board.Input("", "draft")

	_ = v.NextLesson(context.Background())
	if c := v.Snapshot().Comments; c == nil || c.Draft != "" {
		t.Fatalf("expected a fresh board for the next lesson, got %+v", c)
	}
	if svc.lists != 2 {
		t.Fatalf("expected one fetch per mounted lesson, got %d", svc.lists)
	}
}

func TestTrialViewLoadFailure(t *testing.T) {
	v := NewTrialView(TrialDeps{Courses: &fakeCourses{courseErr: errors.New("down")}}, "c1", "u1")
	if err := v.Mount(context.Background()); err == nil {
		t.Fatalf("expected mount error")
	}
	snap := v.Snapshot()
	if snap.Error != TrialLoadFailed || snap.Loading || snap.Lesson != nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTrialViewPublishDropsOldest(t *testing.T) {
	v := newTestView(t, &fakeChecker{}, nil)
	updates, cancel := v.Subscribe()

	first := <-updates
	if first.Current != 0 {
		t.Fatalf("expected initial snapshot, got %+v", first)
	}
	for i := 0; i < 10; i++ {
		v.Publish()
	}
	_ = v.SelectLesson(context.Background(), 1)
	v.Publish()

	var last TrialSnapshot
	for len(updates) > 0 {
		last = <-updates
	}
	if last.Current != 1 {
		t.Fatalf("latest snapshot should survive, got current=%d", last.Current)
	}

	cancel()
	if _, ok := <-updates; ok {
		t.Fatalf("channel should close on cancel")
	}
	v.Publish()
}
