package domain

import "errors"

var (
	// ErrCourseNotFound indicates the course content could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCommentNotFound is returned when a comment ID is not in the rendered tree.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrEmptyComment is returned when blank content is submitted.
	ErrEmptyComment = errors.New("comment is empty")
	// ErrNotCommentAuthor is returned when a viewer deletes someone else's comment.
	ErrNotCommentAuthor = errors.New("only the author can delete a comment")
	// ErrEmptyMatching marks a matching question without pairs.
	ErrEmptyMatching = errors.New("matching question has no pairs")
	// ErrUnknownQuestionType marks a question with an unsupported type tag.
	ErrUnknownQuestionType = errors.New("unknown question type")
	// ErrLessonOutOfRange is returned when the lesson pointer would leave the lesson list.
	ErrLessonOutOfRange = errors.New("lesson index out of range")
	// ErrNotQuizLesson is returned for quiz actions while a non-quiz lesson is shown.
	ErrNotQuizLesson = errors.New("current lesson is not a quiz")
	// ErrInvalidAction is returned when a quiz action is not allowed in the current state.
	ErrInvalidAction = errors.New("action not allowed in current quiz state")
	// ErrUnanswered is returned when moving on from a choice question without a selection.
	ErrUnanswered = errors.New("current question is unanswered")
	// ErrSubmissionInFlight rejects a second submit while one is outstanding.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrSessionReset is returned when a response arrives for a session that was reset meanwhile.
	ErrSessionReset = errors.New("quiz session was reset")
	// ErrAnswerInUse is returned when an answer slot is already matched to another prompt.
	ErrAnswerInUse = errors.New("answer already matched")
	// ErrNoPromptSelected is returned when an answer is picked before a prompt.
	ErrNoPromptSelected = errors.New("no prompt selected")
	// ErrIncompleteMatch is returned when submitting before every prompt is matched.
	ErrIncompleteMatch = errors.New("not every prompt is matched")
)
