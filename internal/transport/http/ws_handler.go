package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/rest"
)

// WSHandler exposes the attempt lifecycle to the browser UI over one
// websocket per attempt. The gateway owns the countdown; the client only
// renders ticks and sends answers.
type WSHandler struct {
	service  *app.AttemptService
	sessions app.SessionStore
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService, sessions app.SessionStore) *WSHandler {
	return &WSHandler{
		service:  service,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID   string              `json:"questionId"`
	Value        string              `json:"value"`
	QuestionType domain.QuestionType `json:"questionType"`
	OptionIndex  *int                `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

type blockedPayload struct {
	Message    string   `json:"message"`
	Unanswered []string `json:"unanswered"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type startedPayload struct {
	AttemptKey      string   `json:"attemptKey"`
	DurationSeconds int      `json:"durationSeconds"`
	Quiz            quizView `json:"quiz"`
}

// quizView is the quiz as the UI may see it: no correct-answer fields.
type quizView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Subject   string         `json:"subject"`
	Questions []questionView `json:"questions"`
}

type questionView struct {
	ID      string              `json:"id"`
	Text    string              `json:"questionText"`
	Type    domain.QuestionType `json:"type"`
	Options []string            `json:"options,omitempty"`
	Marks   int                 `json:"marks"`
}

// ServeWS upgrades the request, starts an attempt for the requested quiz, and
// runs its lifecycle until a result is delivered or the client goes away.
// Teardown cancels the countdown; a result arriving after teardown has
// nowhere to go.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	token := r.URL.Query().Get("token")
	if quizID == "" || token == "" {
		http.Error(w, "missing quizId or token", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	// Session lifecycle: token stored at connect, cleared at disconnect. The
	// scoring client reads it through the context, never from a global.
	sessionID := uuid.NewString()
	ctx := rest.WithSession(r.Context(), sessionID)
	if err := h.sessions.SetToken(ctx, sessionID, token); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "session setup failed", Kind: "server"}})
		return
	}
	defer h.sessions.Clear(context.Background(), sessionID)

	attempt, err := h.service.StartAttempt(ctx, quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: classify(err)})
		return
	}
	defer h.service.CloseAttempt(attempt.Key())

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	deliver := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	quiz := attempt.Quiz()
	deliver(outboundMessage[any]{Type: "started", Payload: startedPayload{
		AttemptKey:      attempt.Key(),
		DurationSeconds: quiz.DurationSeconds(),
		Quiz:            sanitizeQuiz(quiz),
	}})

	attempt.Start()

	ticksDone := make(chan struct{})
	go func() {
		defer close(ticksDone)
		for {
			select {
			case remaining, ok := <-attempt.Ticks():
				if !ok {
					return
				}
				deliver(outboundMessage[any]{Type: "tick", Payload: tickPayload{Remaining: remaining}})
			case <-closeSignals:
				return
			}
		}
	}()

	// The expiry signal fires at most once; the submission guard inside the
	// attempt collapses it with any concurrent manual submit.
	expiryDone := make(chan struct{})
	go func() {
		defer close(expiryDone)
		select {
		case <-attempt.Expired():
			h.submit(ctx, attempt, app.TriggerAuto, deliver)
		case <-closeSignals:
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Kind: "validation", Retryable: true}})
				continue
			}
			idx := -1
			if payload.OptionIndex != nil {
				idx = *payload.OptionIndex
			}
			if err := attempt.SetAnswer(payload.QuestionID, payload.Value, payload.QuestionType, idx); err != nil {
				deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Kind: "validation", Retryable: true}})
			}
		case "submit":
			h.submit(ctx, attempt, app.TriggerManual, deliver)
		default:
			deliver(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Kind: "validation", Retryable: true}})
		}
	}

	close(closeSignals)
	<-expiryDone
	<-ticksDone
	close(send)
	<-writerDone
}

func (h *WSHandler) submit(ctx context.Context, attempt *app.Attempt, trigger app.Trigger, deliver func(outboundMessage[any])) {
	deliver(outboundMessage[any]{Type: "submitting", Payload: struct{}{}})

	review, err := h.service.Submit(ctx, attempt, trigger)
	if err == nil {
		deliver(outboundMessage[any]{Type: "result", Payload: review})
		return
	}

	// Duplicate triggers collapse silently; the winning path delivers.
	if errors.Is(err, domain.ErrSubmissionInFlight) || errors.Is(err, domain.ErrAttemptFinished) {
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		deliver(outboundMessage[any]{Type: "blocked", Payload: blockedPayload{
			Message:    "Please answer all questions before submitting",
			Unanswered: validationErr.Unanswered,
		}})
		return
	}

	log.Warn().Err(err).Str("attemptKey", attempt.Key()).Msg("submission failed")
	deliver(outboundMessage[any]{Type: "error", Payload: classify(err)})
}

// classify converts the error taxonomy into the UI-facing payload.
func classify(err error) errorPayload {
	switch {
	case errors.Is(err, domain.ErrEmptyQuiz):
		return errorPayload{Message: "this quiz has no questions", Kind: "validation"}
	case errors.Is(err, domain.ErrQuizNotFound):
		return errorPayload{Message: "quiz not found", Kind: "not_found"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return errorPayload{Message: "you are not signed in", Kind: "unauthenticated"}
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return errorPayload{Message: apiErr.Message, Kind: string(apiErr.Kind), Retryable: apiErr.Retryable()}
	}
	return errorPayload{Message: "something went wrong, please retry", Kind: "network", Retryable: true}
}

func sanitizeQuiz(quiz domain.Quiz) quizView {
	view := quizView{
		ID:      quiz.ID,
		Title:   quiz.Title,
		Subject: quiz.Subject,
	}
	for _, q := range quiz.Questions {
		marks := q.Marks
		if marks == 0 {
			marks = 1
		}
		view.Questions = append(view.Questions, questionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
			Marks:   marks,
		})
	}
	return view
}
