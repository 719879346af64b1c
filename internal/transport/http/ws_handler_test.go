package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/infra/rest"
)

func TestWebSocketAttemptFlow(t *testing.T) {
	backend := newFakeScoringBackend(t)
	defer backend.Close()

	server, _ := newGateway(backend.URL)
	defer server.Close()

	conn := dial(t, server, "quiz-1", "token-1")
	defer conn.Close()

	_, payload := readNext(conn, t, "started")
	if key, _ := payload["attemptKey"].(string); key == "" {
		t.Fatalf("expected attempt key in started payload, got %v", payload)
	}
	quiz, _ := payload["quiz"].(map[string]any)
	if quiz == nil {
		t.Fatalf("expected quiz in started payload, got %v", payload)
	}
	questions, _ := quiz["questions"].([]any)
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	// Correct answers never cross the socket.
	if raw, _ := json.Marshal(quiz); jsonContains(raw, "correctAnswer") {
		t.Fatalf("quiz view leaks correct answers: %s", raw)
	}

	sendAnswer(t, conn, map[string]any{"questionId": "q1", "questionType": "MCQ", "optionIndex": 1})
	sendAnswer(t, conn, map[string]any{"questionId": "q2", "questionType": "TrueFalse", "value": "true"})
	sendAnswer(t, conn, map[string]any{"questionId": "q3", "questionType": "Fill", "value": "mitochondria"})

	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	// Ticks may interleave; wait for submitting then result.
	waitFor(conn, t, "submitting")
	_, result := waitFor(conn, t, "result")
	if result["attemptId"] != "att-1" {
		t.Fatalf("unexpected result payload: %v", result)
	}
	entries, _ := result["entries"].([]any)
	if len(entries) != 3 {
		t.Fatalf("expected 3 reconciled entries, got %d", len(entries))
	}
	if backend.submits() != 1 {
		t.Fatalf("expected one submission call, got %d", backend.submits())
	}
}

func TestWebSocketManualSubmitBlockedWhenIncomplete(t *testing.T) {
	backend := newFakeScoringBackend(t)
	defer backend.Close()

	server, _ := newGateway(backend.URL)
	defer server.Close()

	conn := dial(t, server, "quiz-1", "token-1")
	defer conn.Close()

	readNext(conn, t, "started")

	sendAnswer(t, conn, map[string]any{"questionId": "q1", "questionType": "MCQ", "optionIndex": 0})
	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	waitFor(conn, t, "submitting")
	_, blocked := waitFor(conn, t, "blocked")
	unanswered, _ := blocked["unanswered"].([]any)
	if len(unanswered) != 2 || unanswered[0] != "q2" || unanswered[1] != "q3" {
		t.Fatalf("expected [q2 q3] unanswered, got %v", unanswered)
	}
	if backend.submits() != 0 {
		t.Fatalf("blocked submit must not reach the backend, got %d calls", backend.submits())
	}
}

func TestWebSocketRequiresQuizAndToken(t *testing.T) {
	backend := newFakeScoringBackend(t)
	defer backend.Close()

	server, _ := newGateway(backend.URL)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?quizId=quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without token, got %d", resp.StatusCode)
	}
}

// newGateway assembles the service over in-memory infrastructure and the
// given scoring backend.
func newGateway(backendURL string) (*httptest.Server, *app.AttemptService) {
	sessions := memory.NewSessionStore()
	client := rest.NewClient(backendURL, nil, rest.SessionCredentials{Store: sessions})
	quizzes := memory.NewQuizCache(client, time.Minute)
	attempts := memory.NewAttemptStore()
	service := app.NewAttemptService(quizzes, client, attempts, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service, sessions).ServeWS)
	mux.HandleFunc("GET /attempts/{attemptID}/review", NewReviewHandler(service, sessions).ServeReview)
	return httptest.NewServer(mux), service
}

func dial(t *testing.T, server *httptest.Server, quizID, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?quizId=" + quizID + "&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func sendAnswer(t *testing.T, conn *websocket.Conn, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": payload}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

// waitFor reads messages until the wanted type arrives, skipping ticks.
func waitFor(conn *websocket.Conn, t *testing.T, want string) (string, map[string]any) {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == want {
			return typ, payload
		}
		if typ != "tick" {
			t.Fatalf("expected %s, got %s (%v)", want, typ, payload)
		}
	}
	t.Fatalf("never received %s", want)
	return "", nil
}

func jsonContains(raw []byte, key string) bool {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	var walk func(v any) bool
	walk = func(v any) bool {
		switch val := v.(type) {
		case map[string]any:
			for k, inner := range val {
				if k == key || walk(inner) {
					return true
				}
			}
		case []any:
			for _, inner := range val {
				if walk(inner) {
					return true
				}
			}
		}
		return false
	}
	return walk(m)
}

type fakeScoringBackend struct {
	*httptest.Server
	t           *testing.T
	submitCalls int32
}

func newFakeScoringBackend(t *testing.T) *fakeScoringBackend {
	b := &fakeScoringBackend{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /quizzes/quiz-1", func(w http.ResponseWriter, r *http.Request) {
		b.requireAuth(r)
		io.WriteString(w, `{"success":true,"data":{
			"_id":"quiz-1","title":"Biology Basics","subject":"Biology","duration":1,
			"questions":[
				{"_id":"q1","questionText":"Which organelle produces ATP?","type":"MCQ","options":["Nucleus","Mitochondria"],"marks":1},
				{"_id":"q2","questionText":"DNA is double-stranded.","type":"TrueFalse","marks":1},
				{"_id":"q3","questionText":"Name the cell's powerhouse.","type":"Fill","marks":1}
			]}}`)
	})
	mux.HandleFunc("POST /quizzes/quiz-1/attempt", func(w http.ResponseWriter, r *http.Request) {
		b.requireAuth(r)
		atomic.AddInt32(&b.submitCalls, 1)
		io.WriteString(w, `{"success":true,"data":{
			"attemptId":"att-1","quizTitle":"Biology Basics","score":2,"totalPossibleScore":3,"percentage":66.7,"timeTaken":10,
			"responses":[
				{"questionId":"q1","questionType":"MCQ","options":["Nucleus","Mitochondria"],"selectedAnswer":1,"correctAnswer":1,"isCorrect":true,"marks":1},
				{"questionId":"q2","questionType":"TrueFalse","selectedAnswer":true,"correctAnswer":true,"isCorrect":true,"marks":1},
				{"questionId":"q3","questionType":"Fill","selectedAnswer":"mitochondria","correctAnswer":"Mitochondria","isCorrect":false,"marks":1}
			]}}`)
	})
	b.Server = httptest.NewServer(mux)
	return b
}

func (b *fakeScoringBackend) requireAuth(r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
		b.t.Errorf("missing bearer token, got %q", got)
	}
}

func (b *fakeScoringBackend) submits() int {
	return int(atomic.LoadInt32(&b.submitCalls))
}
