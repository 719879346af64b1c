package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/rest"
)

// ReviewHandler serves the re-fetch path of the results screen: given an
// attempt ID it loads the scored result (backend first, local archive if the
// backend says it expired) and returns the reconciled review model — the same
// model the websocket delivers right after submission.
type ReviewHandler struct {
	service  *app.AttemptService
	sessions app.SessionStore
}

func NewReviewHandler(service *app.AttemptService, sessions app.SessionStore) *ReviewHandler {
	return &ReviewHandler{service: service, sessions: sessions}
}

func (h *ReviewHandler) ServeReview(w http.ResponseWriter, r *http.Request) {
	attemptID := r.PathValue("attemptID")
	if attemptID == "" {
		writeError(w, http.StatusBadRequest, "missing attempt id")
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "you are not signed in")
		return
	}

	// Ephemeral session scoped to this request.
	sessionID := uuid.NewString()
	ctx := rest.WithSession(r.Context(), sessionID)
	if err := h.sessions.SetToken(ctx, sessionID, token); err != nil {
		writeError(w, http.StatusInternalServerError, "session setup failed")
		return
	}
	defer h.sessions.Clear(context.Background(), sessionID)

	review, err := h.service.FetchReview(ctx, attemptID)
	if err != nil {
		status, message := reviewErrorStatus(err)
		writeError(w, status, message)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(review); err != nil {
		log.Debug().Err(err).Msg("review encode failed")
	}
}

func reviewErrorStatus(err error) (int, string) {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case domain.KindNotFound:
			return http.StatusNotFound, apiErr.Message
		case domain.KindForbidden:
			return http.StatusForbidden, apiErr.Message
		case domain.KindRateLimited:
			return http.StatusTooManyRequests, apiErr.Message
		case domain.KindDataShape:
			return http.StatusBadGateway, apiErr.Message
		default:
			return http.StatusBadGateway, apiErr.Message
		}
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		return http.StatusUnauthorized, "you are not signed in"
	}
	return http.StatusBadGateway, "failed to load quiz results, please try again"
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
