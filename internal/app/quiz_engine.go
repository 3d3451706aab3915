package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"trial-lesson-service/internal/domain"
)

// AnswerChecker grades submitted answers (remote backend or local answer keys).
type AnswerChecker interface {
	CheckChoices(ctx context.Context, answers []domain.ChoiceAnswer) (domain.ChoiceResult, error)
	CheckMatches(ctx context.Context, questionID string, answers []domain.MatchAnswer) (domain.MatchResult, error)
}

// Phase is the quiz session state.
type Phase int

const (
	PhaseAnswering Phase = iota
	PhaseSubmitting
	PhaseResultsShown
	PhaseMatchSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseAnswering:
		return "answering"
	case PhaseSubmitting:
		return "submitting"
	case PhaseResultsShown:
		return "results"
	case PhaseMatchSubmitted:
		return "matchSubmitted"
	}
	return "unknown"
}

const unset = -1

// matchState is the per-question interaction state of a matching question.
// All slot indexes are display slots; the order slices map them back to
// canonical pair indexes.
type matchState struct {
	promptOrder    []int
	answerOrder    []int
	matches        []int
	selectedPrompt int
	submitted      bool
	results        []bool
}

func newMatchState(rnd *rand.Rand, pairs int) matchState {
	matches := make([]int, pairs)
	for i := range matches {
		matches[i] = unset
	}
	return matchState{
		promptOrder:    rnd.Perm(pairs),
		answerOrder:    rnd.Perm(pairs),
		matches:        matches,
		selectedPrompt: unset,
	}
}

func (m matchState) allMatched() bool {
	if len(m.matches) == 0 {
		return false
	}
	for _, slot := range m.matches {
		if slot == unset {
			return false
		}
	}
	return true
}

func (m matchState) answerOwner(answerSlot int) int {
	for prompt, slot := range m.matches {
		if slot == answerSlot {
			return prompt
		}
	}
	return unset
}

// EngineOption customizes a QuizEngine.
type EngineOption func(*QuizEngine)

// WithRand makes shuffles deterministic in tests.
func WithRand(rnd *rand.Rand) EngineOption {
	return func(e *QuizEngine) { e.rnd = rnd }
}

// WithCompletion registers the callback fired after a submission resolves
// (with whether the attempt was fully correct) and with false on retry.
func WithCompletion(fn func(passed bool)) EngineOption {
	return func(e *QuizEngine) { e.onComplete = fn }
}

// QuizEngine drives one quiz session scoped to a single lesson attempt.
type QuizEngine struct {
	quiz       domain.Quiz
	checker    AnswerChecker
	rnd        *rand.Rand
	onComplete func(bool)

	mu         sync.Mutex
	index      int
	phase      Phase
	selections []int
	match      matchState
	result     *domain.ChoiceResult
	inFlight   bool
	epoch      uint64
}

// NewQuizEngine validates the quiz and starts a session on question 0.
func NewQuizEngine(quiz domain.Quiz, checker AnswerChecker, opts ...EngineOption) (*QuizEngine, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	e := &QuizEngine{
		quiz:    quiz,
		checker: checker,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetLocked()
	return e, nil
}

func (e *QuizEngine) resetLocked() {
	e.selections = make([]int, len(e.quiz.Questions))
	for i := range e.selections {
		e.selections[i] = unset
	}
	e.result = nil
	e.phase = PhaseAnswering
	e.enterLocked(0)
}

// enterLocked moves to question i and regenerates matching state when the
// destination is a matching question.
func (e *QuizEngine) enterLocked(i int) {
	e.index = i
	e.match = matchState{selectedPrompt: unset}
	if q, ok := e.currentLocked(); ok && q.Type == domain.QuestionMatching {
		e.match = newMatchState(e.rnd, len(q.Pairs))
	}
}

func (e *QuizEngine) currentLocked() (domain.Question, bool) {
	if e.index < 0 || e.index >= len(e.quiz.Questions) {
		return domain.Question{}, false
	}
	return e.quiz.Questions[e.index], true
}

func (e *QuizEngine) answeringLocked() error {
	if e.inFlight {
		return domain.ErrSubmissionInFlight
	}
	if e.phase == PhaseResultsShown {
		return domain.ErrInvalidAction
	}
	return nil
}

// SelectOption records the chosen option for the current choice question.
func (e *QuizEngine) SelectOption(option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.answeringLocked(); err != nil {
		return err
	}
	q, ok := e.currentLocked()
	if !ok || q.Type != domain.QuestionChoice {
		return domain.ErrInvalidAction
	}
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("option %d: %w", option, domain.ErrInvalidAction)
	}
	e.selections[e.index] = option
	return nil
}

// Next advances one question. A choice question must be answered first.
func (e *QuizEngine) Next() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.answeringLocked(); err != nil {
		return err
	}
	if e.index >= len(e.quiz.Questions)-1 {
		return domain.ErrInvalidAction
	}
	if q, _ := e.currentLocked(); q.Type == domain.QuestionChoice && e.selections[e.index] == unset {
		return domain.ErrUnanswered
	}
	e.phase = PhaseAnswering
	e.enterLocked(e.index + 1)
	return nil
}

// Previous steps back one question.
func (e *QuizEngine) Previous() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.answeringLocked(); err != nil {
		return err
	}
	if e.index == 0 {
		return domain.ErrInvalidAction
	}
	e.phase = PhaseAnswering
	e.enterLocked(e.index - 1)
	return nil
}

func (e *QuizEngine) choicesReadyLocked() bool {
	if e.index != len(e.quiz.Questions)-1 {
		return false
	}
	found := false
	for i, q := range e.quiz.Questions {
		if q.Type != domain.QuestionChoice {
			continue
		}
		if e.selections[i] == unset {
			return false
		}
		found = true
	}
	return found
}

// SubmitChoices sends every choice question's selected option text in one
// batch. It is only allowed on the last question once all are answered.
func (e *QuizEngine) SubmitChoices(ctx context.Context) (domain.ChoiceResult, error) {
	e.mu.Lock()
	if err := e.answeringLocked(); err != nil {
		e.mu.Unlock()
		return domain.ChoiceResult{}, err
	}
	if e.phase != PhaseAnswering {
		e.mu.Unlock()
		return domain.ChoiceResult{}, domain.ErrInvalidAction
	}
	if !e.choicesReadyLocked() {
		e.mu.Unlock()
		return domain.ChoiceResult{}, domain.ErrUnanswered
	}
	answers := make([]domain.ChoiceAnswer, 0, len(e.quiz.Questions))
	for i, q := range e.quiz.Questions {
		if q.Type != domain.QuestionChoice {
			continue
		}
		answers = append(answers, domain.ChoiceAnswer{
			QuestionID:     q.ID,
			SelectedOption: q.Options[e.selections[i]],
		})
	}
	epoch := e.beginSubmitLocked()
	e.mu.Unlock()

	res, err := e.checker.CheckChoices(ctx, answers)

	e.mu.Lock()
	if epoch != e.epoch {
		e.mu.Unlock()
		return domain.ChoiceResult{}, domain.ErrSessionReset
	}
	e.inFlight = false
	if err != nil {
		e.phase = PhaseAnswering
		e.mu.Unlock()
		log.Printf("check choice answers failed: %v", err)
		return domain.ChoiceResult{}, fmt.Errorf("check answers: %w", err)
	}
	e.result = &res
	e.phase = PhaseResultsShown
	e.mu.Unlock()

	e.complete(res.CorrectCount == len(answers))
	return res, nil
}

// SelectPrompt marks a prompt display slot as the one to be matched next.
func (e *QuizEngine) SelectPrompt(slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.matchingLocked(); err != nil {
		return err
	}
	if slot < 0 || slot >= len(e.match.matches) {
		return fmt.Errorf("prompt slot %d: %w", slot, domain.ErrInvalidAction)
	}
	e.match.selectedPrompt = slot
	return nil
}

// SelectAnswer pairs the selected prompt slot with an answer display slot.
// An answer slot already used by another prompt is rejected.
func (e *QuizEngine) SelectAnswer(slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.matchingLocked(); err != nil {
		return err
	}
	if slot < 0 || slot >= len(e.match.answerOrder) {
		return fmt.Errorf("answer slot %d: %w", slot, domain.ErrInvalidAction)
	}
	prompt := e.match.selectedPrompt
	if prompt == unset {
		return domain.ErrNoPromptSelected
	}
	if owner := e.match.answerOwner(slot); owner != unset && owner != prompt {
		return domain.ErrAnswerInUse
	}
	e.match.matches[prompt] = slot
	e.match.selectedPrompt = unset
	return nil
}

// ClearMatch removes the pairing of a prompt slot.
func (e *QuizEngine) ClearMatch(slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.matchingLocked(); err != nil {
		return err
	}
	if slot < 0 || slot >= len(e.match.matches) {
		return fmt.Errorf("prompt slot %d: %w", slot, domain.ErrInvalidAction)
	}
	e.match.matches[slot] = unset
	return nil
}

func (e *QuizEngine) matchingLocked() error {
	if err := e.answeringLocked(); err != nil {
		return err
	}
	q, ok := e.currentLocked()
	if !ok || q.Type != domain.QuestionMatching || e.match.submitted {
		return domain.ErrInvalidAction
	}
	return nil
}

// SubmitMatch translates display-slot matches back to canonical identifiers
// and sends them for checking.
func (e *QuizEngine) SubmitMatch(ctx context.Context) (domain.MatchResult, error) {
	e.mu.Lock()
	if err := e.matchingLocked(); err != nil {
		e.mu.Unlock()
		return domain.MatchResult{}, err
	}
	if !e.match.allMatched() {
		e.mu.Unlock()
		return domain.MatchResult{}, domain.ErrIncompleteMatch
	}
	q, _ := e.currentLocked()
	answers := canonicalMatches(q, e.match)
	epoch := e.beginSubmitLocked()
	e.mu.Unlock()

	res, err := e.checker.CheckMatches(ctx, q.ID, answers)

	e.mu.Lock()
	if epoch != e.epoch {
		e.mu.Unlock()
		return domain.MatchResult{}, domain.ErrSessionReset
	}
	e.inFlight = false
	e.phase = PhaseAnswering
	if err != nil {
		e.mu.Unlock()
		log.Printf("check match answers for %s failed: %v", q.ID, err)
		return domain.MatchResult{}, fmt.Errorf("check matches: %w", err)
	}
	e.match.results = res.Results
	e.match.submitted = true
	e.phase = PhaseMatchSubmitted
	passed := allTrue(res.Results, len(answers))
	e.mu.Unlock()

	e.complete(passed)
	return res, nil
}

// canonicalMatches undoes the shuffle: entry i references the pair shown at
// prompt slot i and the answer shown at its matched answer slot.
func canonicalMatches(q domain.Question, m matchState) []domain.MatchAnswer {
	answers := make([]domain.MatchAnswer, len(m.matches))
	for slot, answerSlot := range m.matches {
		answers[slot] = domain.MatchAnswer{
			PromptID:      q.Pairs[m.promptOrder[slot]].Prompt.ID,
			AnswerContent: q.Pairs[m.answerOrder[answerSlot]].Answer,
		}
	}
	return answers
}

func allTrue(results []bool, want int) bool {
	if want == 0 || len(results) != want {
		return false
	}
	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

func (e *QuizEngine) beginSubmitLocked() uint64 {
	e.inFlight = true
	e.phase = PhaseSubmitting
	return e.epoch
}

// Retry restarts the attempt. A matching question is reshuffled in place;
// otherwise all selections are cleared and the session returns to question 0.
func (e *QuizEngine) Retry() error {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	e.epoch++
	if q, ok := e.currentLocked(); ok && q.Type == domain.QuestionMatching {
		e.phase = PhaseAnswering
		e.enterLocked(e.index)
	} else {
		e.resetLocked()
	}
	e.mu.Unlock()

	e.complete(false)
	return nil
}

// Reset discards the whole session, including the effect of any submission
// still in flight.
func (e *QuizEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.inFlight = false
	e.resetLocked()
}

func (e *QuizEngine) complete(passed bool) {
	if e.onComplete != nil {
		e.onComplete(passed)
	}
}
