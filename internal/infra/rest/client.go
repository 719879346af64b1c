package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-attempt-service/internal/domain"
)

// CredentialProvider supplies the bearer token attached to every call.
// Returning an empty token makes the call fail fast without touching the
// network.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed-credential provider, handy for tests and one-shot calls.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Client talks to the scoring backend's REST API. All response-shape
// normalization happens here: callers only ever see canonical domain values
// or a classified error, never the backend's envelope quirks.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialProvider
}

func NewClient(baseURL string, httpClient *http.Client, creds CredentialProvider) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		creds:   creds,
	}
}

// FetchQuiz loads attemptable quiz content. A quiz with zero questions is a
// distinct error; there is nothing to attempt.
func (c *Client) FetchQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	data, err := c.do(ctx, http.MethodGet, "/quizzes/"+quizID, nil)
	if err != nil {
		return domain.Quiz{}, err
	}

	var wire wireQuiz
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.Quiz{}, shapeErr("malformed quiz payload")
	}
	quiz := wire.toDomain()
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, domain.ErrEmptyQuiz
	}
	return quiz, nil
}

// SubmitAttempt posts the ordered responses plus elapsed time and returns the
// scored result.
func (c *Client) SubmitAttempt(ctx context.Context, quizID string, responses []domain.AnswerPayload, timeTakenSeconds int) (domain.AttemptResult, error) {
	body := map[string]any{
		"responses": responses,
		"timeTaken": timeTakenSeconds,
	}
	data, err := c.do(ctx, http.MethodPost, "/quizzes/"+quizID+"/attempt", body)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	return parseResult(data)
}

// FetchAttemptResult re-fetches the scored result by attempt ID; the payload
// shape is identical to SubmitAttempt's.
func (c *Client) FetchAttemptResult(ctx context.Context, attemptID string) (domain.AttemptResult, error) {
	data, err := c.do(ctx, http.MethodGet, "/quizzes/attempt/"+attemptID+"/results", nil)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	return parseResult(data)
}

// envelope is the backend's response wrapper. Success is a pointer so bare
// payloads (no wrapper at all) can be told apart from failed envelopes.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, shapeErr("encode request: " + err.Error())
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &domain.APIError{Kind: domain.KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.APIError{Kind: domain.KindNetwork, Message: "no response from server: " + err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &domain.APIError{Kind: domain.KindNetwork, Message: "read response: " + err.Error()}
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, env.Message)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, &domain.APIError{Kind: domain.KindServer, Message: msg, Status: resp.StatusCode}
	}

	// Some endpoints wrap the payload in {success, data}, some return it bare.
	if env.Data != nil {
		return env.Data, nil
	}
	return raw, nil
}

// statusError maps HTTP statuses to the user-legible error taxonomy.
func statusError(status int, message string) *domain.APIError {
	switch {
	case status == http.StatusNotFound:
		if message == "" {
			message = "not found, the attempt may have expired"
		}
		return &domain.APIError{Kind: domain.KindNotFound, Message: message, Status: status}
	case status == http.StatusForbidden:
		if message == "" {
			message = "not authorized to view this resource"
		}
		return &domain.APIError{Kind: domain.KindForbidden, Message: message, Status: status}
	case status == http.StatusTooManyRequests:
		if message == "" {
			message = "rate limited, retry in a moment"
		}
		return &domain.APIError{Kind: domain.KindRateLimited, Message: message, Status: status}
	case status >= 500:
		if message == "" {
			message = "server error, try again later"
		}
		return &domain.APIError{Kind: domain.KindServer, Message: message, Status: status}
	default:
		if message == "" {
			message = fmt.Sprintf("request rejected with status %d", status)
		}
		return &domain.APIError{Kind: domain.KindServer, Message: message, Status: status}
	}
}

func shapeErr(message string) *domain.APIError {
	return &domain.APIError{Kind: domain.KindDataShape, Message: message}
}

// wireQuiz tolerates both Mongo-style and plain identifiers.
type wireQuiz struct {
	MongoID   string         `json:"_id"`
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Subject   string         `json:"subject"`
	Duration  int            `json:"duration"`
	Questions []wireQuestion `json:"questions"`
}

type wireQuestion struct {
	MongoID string              `json:"_id"`
	ID      string              `json:"id"`
	Text    string              `json:"questionText"`
	Type    domain.QuestionType `json:"type"`
	Options []string            `json:"options"`
	Marks   int                 `json:"marks"`
}

func (w wireQuiz) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:              firstNonEmpty(w.MongoID, w.ID),
		Title:           w.Title,
		Subject:         w.Subject,
		DurationMinutes: w.Duration,
	}
	for _, q := range w.Questions {
		qType := q.Type
		if qType == "" {
			qType = domain.MultipleChoice
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:      firstNonEmpty(q.MongoID, q.ID),
			Text:    q.Text,
			Type:    qType,
			Options: q.Options,
			Marks:   q.Marks,
		})
	}
	return quiz
}

// wireResult tolerates the attempt identifier arriving as attemptId or _id,
// and an occasional extra level of {data: ...} nesting.
type wireResult struct {
	AttemptID  string          `json:"attemptId"`
	MongoID    string          `json:"_id"`
	Data       json.RawMessage `json:"data"`
	QuizTitle  string          `json:"quizTitle"`
	Subject    string          `json:"subject"`
	Score      int             `json:"score"`
	Total      int             `json:"totalPossibleScore"`
	Percentage float64         `json:"percentage"`
	TimeTaken  int             `json:"timeTaken"`
	Responses  []wireResponse  `json:"responses"`
}

type wireResponse struct {
	QuestionID     string               `json:"questionId"`
	MongoID        string               `json:"_id"`
	QuestionText   string               `json:"questionText"`
	QuestionType   domain.QuestionType  `json:"questionType"`
	Options        []string             `json:"options"`
	SelectedAnswer domain.AnswerValue   `json:"selectedAnswer"`
	CorrectAnswer  domain.CorrectAnswer `json:"correctAnswer"`
	IsCorrect      *bool                `json:"isCorrect"`
	Marks          int                  `json:"marks"`
}

func parseResult(data json.RawMessage) (domain.AttemptResult, error) {
	return parseResultDepth(data, 0)
}

func parseResultDepth(data json.RawMessage, depth int) (domain.AttemptResult, error) {
	var wire wireResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.AttemptResult{}, shapeErr("malformed result payload")
	}
	if wire.Responses == nil && wire.Data != nil && depth == 0 {
		return parseResultDepth(wire.Data, depth+1)
	}

	attemptID := firstNonEmpty(wire.AttemptID, wire.MongoID)
	if attemptID == "" {
		return domain.AttemptResult{}, shapeErr("no attempt identifier in response")
	}
	if wire.Responses == nil {
		return domain.AttemptResult{}, shapeErr("no responses array in result")
	}

	result := domain.AttemptResult{
		AttemptID:          attemptID,
		QuizTitle:          wire.QuizTitle,
		Subject:            wire.Subject,
		Score:              wire.Score,
		TotalPossibleScore: wire.Total,
		Percentage:         wire.Percentage,
		TimeTaken:          wire.TimeTaken,
	}
	for _, r := range wire.Responses {
		qType := r.QuestionType
		if qType == "" {
			qType = domain.MultipleChoice
		}
		result.Responses = append(result.Responses, domain.Response{
			QuestionID:     firstNonEmpty(r.QuestionID, r.MongoID),
			QuestionText:   r.QuestionText,
			QuestionType:   qType,
			Options:        r.Options,
			SelectedAnswer: r.SelectedAnswer,
			CorrectAnswer:  r.CorrectAnswer,
			IsCorrect:      r.IsCorrect,
			Marks:          r.Marks,
		})
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
