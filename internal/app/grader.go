package app

import (
	"context"

	"trial-lesson-service/internal/domain"
)

// AnswerKeyRepository loads the answer key of a course.
type AnswerKeyRepository interface {
	GetAnswerKey(ctx context.Context, courseID string) (domain.AnswerKey, error)
}

// Grader checks answers against a locally stored answer key, for running
// without the remote checking service.
type Grader struct {
	courseID string
	keys     AnswerKeyRepository
}

func NewGrader(keys AnswerKeyRepository, courseID string) *Grader {
	return &Grader{courseID: courseID, keys: keys}
}

// GraderFactory adapts an answer key repository to a CheckerFactory.
func GraderFactory(keys AnswerKeyRepository) CheckerFactory {
	return func(courseID string) AnswerChecker {
		return NewGrader(keys, courseID)
	}
}

func (g *Grader) CheckChoices(ctx context.Context, answers []domain.ChoiceAnswer) (domain.ChoiceResult, error) {
	key, err := g.keys.GetAnswerKey(ctx, g.courseID)
	if err != nil {
		return domain.ChoiceResult{}, err
	}
	res := domain.ChoiceResult{
		TotalCount: len(answers),
		Results:    make([]domain.ChoiceQuestionResult, 0, len(answers)),
	}
	for _, a := range answers {
		correct, ok := key.Choices[a.QuestionID]
		if !ok {
			return domain.ChoiceResult{}, domain.ErrQuestionNotFound
		}
		r := domain.ChoiceQuestionResult{
			QuestionID:     a.QuestionID,
			Correct:        a.SelectedOption == correct,
			SelectedOption: a.SelectedOption,
			CorrectOption:  correct,
		}
		if r.Correct {
			res.CorrectCount++
		}
		res.Results = append(res.Results, r)
	}
	return res, nil
}

func (g *Grader) CheckMatches(ctx context.Context, questionID string, answers []domain.MatchAnswer) (domain.MatchResult, error) {
	key, err := g.keys.GetAnswerKey(ctx, g.courseID)
	if err != nil {
		return domain.MatchResult{}, err
	}
	pairs, ok := key.Matches[questionID]
	if !ok {
		return domain.MatchResult{}, domain.ErrQuestionNotFound
	}
	res := domain.MatchResult{
		TotalCount: len(answers),
		Results:    make([]bool, len(answers)),
	}
	for i, a := range answers {
		if want, ok := pairs[a.PromptID]; ok && want == a.AnswerContent {
			res.Results[i] = true
			res.CorrectCount++
		}
	}
	return res, nil
}
