package app

import (
	"fmt"

	"trial-lesson-service/internal/domain"
)

// Option marks used on the result view.
const (
	MarkCorrect   = "correct"
	MarkIncorrect = "incorrect"
)

type OptionView struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
	Mark     string `json:"mark,omitempty"`
}

type SlotView struct {
	Slot    int    `json:"slot"`
	Content string `json:"content"`
	// Matched is the answer slot paired with a prompt, or the prompt slot
	// using an answer; -1 when free.
	Matched  int   `json:"matched"`
	Selected bool  `json:"selected,omitempty"`
	Correct  *bool `json:"correct,omitempty"`
}

type QuestionView struct {
	ID      string              `json:"id"`
	Type    domain.QuestionType `json:"type"`
	Prompt  string              `json:"prompt"`
	Options []OptionView        `json:"options,omitempty"`
	Prompts []SlotView          `json:"prompts,omitempty"`
	Answers []SlotView          `json:"answers,omitempty"`
}

// QuizView is a render snapshot of a quiz session.
type QuizView struct {
	Phase       string         `json:"phase"`
	Index       int            `json:"index"`
	Total       int            `json:"total"`
	CanPrevious bool           `json:"canPrevious"`
	CanNext     bool           `json:"canNext"`
	CanSubmit   bool           `json:"canSubmit"`
	Question    *QuestionView  `json:"question,omitempty"`
	Score       string         `json:"score,omitempty"`
	Results     []QuestionView `json:"results,omitempty"`
	AllCorrect  bool           `json:"allCorrect,omitempty"`
}

// View renders the current session state.
func (e *QuizEngine) View() QuizView {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := len(e.quiz.Questions)
	v := QuizView{
		Phase: e.phase.String(),
		Index: e.index,
		Total: total,
	}
	if e.phase == PhaseResultsShown && e.result != nil {
		v.Score = fmt.Sprintf("%d / %d", e.result.CorrectCount, e.result.TotalCount)
		v.Results = e.resultViewsLocked()
		return v
	}

	q, ok := e.currentLocked()
	if !ok {
		return v
	}
	idle := !e.inFlight
	v.CanPrevious = idle && e.index > 0
	v.CanNext = idle && e.index < total-1 &&
		(q.Type != domain.QuestionChoice || e.selections[e.index] != unset)

	qv := e.questionViewLocked(e.index)
	v.Question = &qv
	switch q.Type {
	case domain.QuestionChoice:
		v.CanSubmit = idle && e.phase == PhaseAnswering && e.choicesReadyLocked()
	case domain.QuestionMatching:
		v.CanSubmit = idle && !e.match.submitted && e.match.allMatched()
		v.AllCorrect = e.match.submitted && allTrue(e.match.results, len(e.match.matches))
	}
	return v
}

func (e *QuizEngine) questionViewLocked(i int) QuestionView {
	q := e.quiz.Questions[i]
	qv := QuestionView{ID: q.ID, Type: q.Type, Prompt: q.Prompt}
	switch q.Type {
	case domain.QuestionChoice:
		qv.Options = make([]OptionView, len(q.Options))
		for j, text := range q.Options {
			qv.Options[j] = OptionView{Index: j, Text: text, Selected: e.selections[i] == j}
		}
	case domain.QuestionMatching:
		m := e.match
		qv.Prompts = make([]SlotView, len(m.promptOrder))
		for slot, pair := range m.promptOrder {
			sv := SlotView{
				Slot:     slot,
				Content:  q.Pairs[pair].Prompt.Content,
				Matched:  m.matches[slot],
				Selected: m.selectedPrompt == slot,
			}
			if m.submitted && slot < len(m.results) {
				correct := m.results[slot]
				sv.Correct = &correct
			}
			qv.Prompts[slot] = sv
		}
		qv.Answers = make([]SlotView, len(m.answerOrder))
		for slot, pair := range m.answerOrder {
			qv.Answers[slot] = SlotView{
				Slot:    slot,
				Content: q.Pairs[pair].Answer,
				Matched: m.answerOwner(slot),
			}
		}
	}
	return qv
}

// resultViewsLocked marks each question's selected option with the verdict
// returned by the checker.
func (e *QuizEngine) resultViewsLocked() []QuestionView {
	verdicts := make(map[string]bool, len(e.result.Results))
	for _, r := range e.result.Results {
		verdicts[r.QuestionID] = r.Correct
	}
	views := make([]QuestionView, 0, len(e.quiz.Questions))
	for i, q := range e.quiz.Questions {
		if q.Type != domain.QuestionChoice {
			continue
		}
		qv := e.questionViewLocked(i)
		correct, ok := verdicts[q.ID]
		for j := range qv.Options {
			if !qv.Options[j].Selected || !ok {
				continue
			}
			if correct {
				qv.Options[j].Mark = MarkCorrect
			} else {
				qv.Options[j].Mark = MarkIncorrect
			}
		}
		views = append(views, qv)
	}
	return views
}
