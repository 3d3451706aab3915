package domain

import (
	"fmt"
	"time"
)

// LessonType tags which body a lesson renders.
type LessonType string

const (
	LessonVideo LessonType = "VIDEO"
	LessonText  LessonType = "TEXT"
	LessonQuiz  LessonType = "QUIZ"
)

// QuestionType tags which interaction and validation path a question uses.
type QuestionType string

const (
	QuestionChoice   QuestionType = "CHOICE"
	QuestionMatching QuestionType = "MATCHING"
)

// Comment is one node of a threaded comment tree. Children keep the order
// given by the data source.
type Comment struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Children   []Comment `json:"children,omitempty"`
}

// PromptItem is the left-hand side of a matching pair.
type PromptItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// MatchPair is a canonical (prompt, answer) pair as authored.
type MatchPair struct {
	Prompt PromptItem `json:"prompt"`
	Answer string     `json:"answer"`
}

// Question is a tagged union; Options is used by CHOICE and Pairs by MATCHING.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Pairs   []MatchPair  `json:"pairs,omitempty"`
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	Questions []Question `json:"questions"`
}

// Validate rejects quizzes the engine refuses to run: unknown type tags and
// matching questions without pairs.
func (q Quiz) Validate() error {
	for i, question := range q.Questions {
		switch question.Type {
		case QuestionChoice:
		case QuestionMatching:
			if len(question.Pairs) == 0 {
				return fmt.Errorf("question %d (%s): %w", i, question.ID, ErrEmptyMatching)
			}
		default:
			return fmt.Errorf("question %d (%s): %w", i, question.ID, ErrUnknownQuestionType)
		}
	}
	return nil
}

// Lesson is the read-model of one lesson in a course.
type Lesson struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Type     LessonType `json:"type"`
	VideoURL string     `json:"videoUrl,omitempty"`
	Markdown string     `json:"markdown,omitempty"`
	Quiz     *Quiz      `json:"quiz,omitempty"`
}

// Section groups lesson titles in the course outline.
type Section struct {
	Title   string   `json:"title"`
	Lessons []string `json:"lessons"`
}

// CourseInfo is the course metadata shown next to the trial lessons.
type CourseInfo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Objective   string    `json:"objective"`
	Sections    []Section `json:"sections"`
	Duration    string    `json:"duration"`
	LessonCount int       `json:"lessonCount"`
}

// ChoiceAnswer is one selected option sent for checking.
type ChoiceAnswer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
}

// ChoiceQuestionResult is the checker's verdict for one choice question.
type ChoiceQuestionResult struct {
	QuestionID     string `json:"questionId"`
	Correct        bool   `json:"isCorrect"`
	SelectedOption string `json:"selectedOption"`
	CorrectOption  string `json:"correctOption,omitempty"`
}

// ChoiceResult summarizes a checked choice quiz.
type ChoiceResult struct {
	CorrectCount int                    `json:"correctCount"`
	TotalCount   int                    `json:"totalCount"`
	Results      []ChoiceQuestionResult `json:"results"`
}

// MatchAnswer pairs a canonical prompt identifier with the chosen answer text.
type MatchAnswer struct {
	PromptID      string `json:"promptId"`
	AnswerContent string `json:"answerContent"`
}

// MatchResult lists per-pair correctness in the order the answers were sent.
type MatchResult struct {
	Results      []bool `json:"results"`
	CorrectCount int    `json:"correctCount"`
	TotalCount   int    `json:"totalCount"`
}

// AnswerKey holds the correct answers of a course's quizzes, keyed by question ID.
type AnswerKey struct {
	Choices map[string]string            `json:"choices"`
	Matches map[string]map[string]string `json:"matches"`
}

// TrialCourse bundles everything stored for one course's trial.
type TrialCourse struct {
	Course  CourseInfo `json:"course"`
	Lessons []Lesson   `json:"lessons"`
	Key     AnswerKey  `json:"key"`
}
