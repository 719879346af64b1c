package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QuestionType enumerates the question kinds the scoring backend understands.
type QuestionType string

const (
	MultipleChoice QuestionType = "MCQ"
	TrueFalse      QuestionType = "TrueFalse"
	FillBlank      QuestionType = "Fill"
)

// Quiz is the attemptable content fetched from the scoring backend.
// Duration is authored in minutes and normalized to seconds for the timer.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	DurationMinutes int        `json:"duration"`
	Questions       []Question `json:"questions"`
}

// DurationSeconds clamps the authored duration to at least one minute.
func (q Quiz) DurationSeconds() int {
	minutes := q.DurationMinutes
	if minutes < 1 {
		minutes = 1
	}
	return minutes * 60
}

// Question carries the type-dependent fields for one quiz question.
// Options and CorrectAnswer are only meaningful for the matching type.
type Question struct {
	ID            string        `json:"id"`
	Text          string        `json:"questionText"`
	Type          QuestionType  `json:"type"`
	Options       []string      `json:"options,omitempty"`
	Marks         int           `json:"marks"`
	CorrectAnswer CorrectAnswer `json:"correctAnswer,omitempty"`
}

// AnswerKind tags the dynamic type of a recorded answer.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerIndex
	AnswerBool
	AnswerText
)

// AnswerValue is a user's response to one question. Its wire shape depends on
// the question type: an option index for MCQ, a boolean for TrueFalse, a
// string for FillBlank. The zero value means "unanswered".
type AnswerValue struct {
	Kind  AnswerKind
	Index int
	Bool  bool
	Text  string
}

func IndexAnswer(i int) AnswerValue   { return AnswerValue{Kind: AnswerIndex, Index: i} }
func BoolAnswer(b bool) AnswerValue   { return AnswerValue{Kind: AnswerBool, Bool: b} }
func TextAnswer(s string) AnswerValue { return AnswerValue{Kind: AnswerText, Text: s} }

// IsAnswered reports whether the value holds a response.
func (v AnswerValue) IsAnswered() bool { return v.Kind != AnswerNone }

// String renders the answer the way the review screen shows it.
func (v AnswerValue) String() string {
	switch v.Kind {
	case AnswerIndex:
		return strconv.Itoa(v.Index)
	case AnswerBool:
		return strconv.FormatBool(v.Bool)
	case AnswerText:
		return v.Text
	default:
		return ""
	}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerIndex:
		return json.Marshal(v.Index)
	case AnswerBool:
		return json.Marshal(v.Bool)
	case AnswerText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = AnswerValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextAnswer(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolAnswer(b)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer value: unsupported shape %s", string(data))
		}
		*v = IndexAnswer(int(n))
		return nil
	}
}

// CorrectAnswer is the backend's notion of the right answer. For choice
// questions it may arrive as a single index or a set of indices (the backend
// emits both shapes), as a boolean for TrueFalse, or a string for FillBlank.
type CorrectAnswer struct {
	Kind    AnswerKind
	Indices []int
	Bool    bool
	Text    string
}

// IsSet reports whether the backend supplied any correct-answer field.
func (c CorrectAnswer) IsSet() bool { return c.Kind != AnswerNone }

// ContainsIndex reports whether idx is one of the correct option indices.
func (c CorrectAnswer) ContainsIndex(idx int) bool {
	for _, i := range c.Indices {
		if i == idx {
			return true
		}
	}
	return false
}

// Matches is the client-side fallback comparison, used only when the backend
// omitted an isCorrect flag on a response record.
func (c CorrectAnswer) Matches(v AnswerValue) bool {
	switch c.Kind {
	case AnswerIndex:
		return v.Kind == AnswerIndex && c.ContainsIndex(v.Index)
	case AnswerBool:
		return v.Kind == AnswerBool && v.Bool == c.Bool
	case AnswerText:
		return v.Kind == AnswerText && strings.EqualFold(strings.TrimSpace(v.Text), strings.TrimSpace(c.Text))
	default:
		return false
	}
}

func (c CorrectAnswer) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case AnswerIndex:
		if len(c.Indices) == 1 {
			return json.Marshal(c.Indices[0])
		}
		return json.Marshal(c.Indices)
	case AnswerBool:
		return json.Marshal(c.Bool)
	case AnswerText:
		return json.Marshal(c.Text)
	default:
		return []byte("null"), nil
	}
}

func (c *CorrectAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = CorrectAnswer{}
		return nil
	}
	switch data[0] {
	case '[':
		var idxs []int
		if err := json.Unmarshal(data, &idxs); err != nil {
			return err
		}
		*c = CorrectAnswer{Kind: AnswerIndex, Indices: idxs}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CorrectAnswer{Kind: AnswerText, Text: s}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = CorrectAnswer{Kind: AnswerBool, Bool: b}
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("correct answer: unsupported shape %s", string(data))
		}
		*c = CorrectAnswer{Kind: AnswerIndex, Indices: []int{int(n)}}
		return nil
	}
}

// AnswerPayload is one entry of the ordered submission body.
type AnswerPayload struct {
	QuestionID     string      `json:"questionId"`
	SelectedAnswer AnswerValue `json:"selectedAnswer"`
}

// Response is the backend's per-question scoring record inside an AttemptResult.
// IsCorrect is a pointer because older backends omit it; reconciliation then
// falls back to comparing against CorrectAnswer.
type Response struct {
	QuestionID     string        `json:"questionId"`
	QuestionText   string        `json:"questionText,omitempty"`
	QuestionType   QuestionType  `json:"questionType"`
	Options        []string      `json:"options,omitempty"`
	SelectedAnswer AnswerValue   `json:"selectedAnswer"`
	CorrectAnswer  CorrectAnswer `json:"correctAnswer"`
	IsCorrect      *bool         `json:"isCorrect,omitempty"`
	Marks          int           `json:"marks"`
}

// AttemptResult is the scoring backend's verdict for one submitted attempt.
// The gateway only reads it; it is never mutated after arrival.
type AttemptResult struct {
	AttemptID          string     `json:"attemptId"`
	QuizTitle          string     `json:"quizTitle,omitempty"`
	Subject            string     `json:"subject,omitempty"`
	Score              int        `json:"score"`
	TotalPossibleScore int        `json:"totalPossibleScore"`
	Percentage         float64    `json:"percentage"`
	TimeTaken          int        `json:"timeTaken"`
	Responses          []Response `json:"responses"`
}

// ReviewOption is one display row of a reconciled question: the option text
// plus whether it was the correct choice and whether the user picked it.
type ReviewOption struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"isCorrect"`
	IsSelected bool   `json:"isSelected"`
}

// ReviewEntry is the uniform per-question review model every question type
// reconciles into.
type ReviewEntry struct {
	QuestionID   string         `json:"questionId"`
	QuestionText string         `json:"questionText"`
	QuestionType QuestionType   `json:"questionType"`
	Options      []ReviewOption `json:"options"`
	Answered     bool           `json:"answered"`
	IsCorrect    bool           `json:"isCorrect"`
	Marks        int            `json:"marks"`
}

// Review is the full display model for the results screen: the reconciled
// entries plus the aggregate metrics derived from them.
type Review struct {
	AttemptID          string        `json:"attemptId"`
	QuizTitle          string        `json:"quizTitle,omitempty"`
	Score              int           `json:"score"`
	TotalPossibleScore int           `json:"totalPossibleScore"`
	Percentage         float64       `json:"percentage"`
	TimeTaken          int           `json:"timeTaken"`
	TotalQuestions     int           `json:"totalQuestions"`
	CorrectCount       int           `json:"correctCount"`
	Accuracy           int           `json:"accuracy"`
	TimePerQuestion    float64       `json:"timePerQuestion"`
	Entries            []ReviewEntry `json:"entries"`
}
