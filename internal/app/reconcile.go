package app

import (
	"fmt"
	"math"

	"quiz-attempt-service/internal/domain"
)

// Reconcile normalizes a raw scoring result into the uniform review model the
// results screen renders. It is a pure function of the result payload, so the
// pass-through path (result handed over right after submission) and the
// re-fetch path (result loaded by attempt ID) produce identical reviews.
func Reconcile(result domain.AttemptResult) domain.Review {
	entries := make([]domain.ReviewEntry, 0, len(result.Responses))
	correct := 0
	for i, response := range result.Responses {
		entry := reconcileResponse(response, i)
		if entry.IsCorrect {
			correct++
		}
		entries = append(entries, entry)
	}

	total := len(entries)
	accuracy := 0
	timePerQuestion := 0.0
	if total > 0 {
		accuracy = int(math.Round(float64(correct) / float64(total) * 100))
		timePerQuestion = float64(result.TimeTaken) / float64(total)
	}

	return domain.Review{
		AttemptID:          result.AttemptID,
		QuizTitle:          result.QuizTitle,
		Score:              result.Score,
		TotalPossibleScore: result.TotalPossibleScore,
		Percentage:         result.Percentage,
		TimeTaken:          result.TimeTaken,
		TotalQuestions:     total,
		CorrectCount:       correct,
		Accuracy:           accuracy,
		TimePerQuestion:    timePerQuestion,
		Entries:            entries,
	}
}

func reconcileResponse(r domain.Response, position int) domain.ReviewEntry {
	entry := domain.ReviewEntry{
		QuestionID:   r.QuestionID,
		QuestionText: r.QuestionText,
		QuestionType: r.QuestionType,
		Answered:     r.SelectedAnswer.IsAnswered(),
		Marks:        r.Marks,
	}
	if entry.QuestionID == "" {
		entry.QuestionID = fmt.Sprintf("q-%d", position)
	}
	if entry.QuestionText == "" {
		entry.QuestionText = fmt.Sprintf("Question %d", position+1)
	}
	if entry.Marks == 0 {
		entry.Marks = 1
	}

	// The backend's verdict is authoritative; compare locally only when the
	// flag is missing.
	if r.IsCorrect != nil {
		entry.IsCorrect = *r.IsCorrect
	} else if entry.Answered {
		entry.IsCorrect = r.CorrectAnswer.Matches(r.SelectedAnswer)
	}

	switch r.QuestionType {
	case domain.TrueFalse:
		entry.Options = trueFalseOptions(r)
	case domain.FillBlank:
		entry.Options = fillOptions(r, entry.IsCorrect)
	default:
		entry.Options = choiceOptions(r)
	}
	return entry
}

// choiceOptions flags each MCQ option: correct by index membership (the
// backend sends a single index or a set of indices), selected by equality
// against the user's chosen index.
func choiceOptions(r domain.Response) []domain.ReviewOption {
	options := make([]domain.ReviewOption, 0, len(r.Options))
	for i, text := range r.Options {
		options = append(options, domain.ReviewOption{
			Index:      i,
			Text:       text,
			IsCorrect:  r.CorrectAnswer.ContainsIndex(i),
			IsSelected: r.SelectedAnswer.Kind == domain.AnswerIndex && r.SelectedAnswer.Index == i,
		})
	}
	return options
}

// trueFalseOptions treats TrueFalse as an MCQ with two synthetic options.
func trueFalseOptions(r domain.Response) []domain.ReviewOption {
	options := make([]domain.ReviewOption, 0, 2)
	for i, val := range []bool{true, false} {
		correct := false
		switch r.CorrectAnswer.Kind {
		case domain.AnswerBool:
			correct = r.CorrectAnswer.Bool == val
		case domain.AnswerIndex:
			correct = r.CorrectAnswer.ContainsIndex(i)
		}
		text := "False"
		if val {
			text = "True"
		}
		options = append(options, domain.ReviewOption{
			Index:      i,
			Text:       text,
			IsCorrect:  correct,
			IsSelected: r.SelectedAnswer.Kind == domain.AnswerBool && r.SelectedAnswer.Bool == val,
		})
	}
	return options
}

// fillOptions synthesizes a single pseudo-option carrying the user's literal
// text so FillBlank renders through the same option list as choice questions.
func fillOptions(r domain.Response, isCorrect bool) []domain.ReviewOption {
	text := r.SelectedAnswer.Text
	if !r.SelectedAnswer.IsAnswered() || text == "" {
		text = "No answer provided"
	}
	return []domain.ReviewOption{{
		Index:      0,
		Text:       text,
		IsCorrect:  isCorrect,
		IsSelected: true,
	}}
}
