package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primaltree/piratenation/internal/events"
	"github.com/primaltree/piratenation/internal/matchstate"
	"github.com/primaltree/piratenation/internal/orchestrator"
	"github.com/primaltree/piratenation/internal/provider/mock"
	"github.com/primaltree/piratenation/internal/queue"
	"github.com/primaltree/piratenation/internal/store"
)

func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	healthHandler(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthHandler_RejectsPost(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	healthHandler(rr, req)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMatchesHandler_ReportsSeededMatches(t *testing.T) {
	s := store.NewMemory()
	s.Upsert("M-1", "Home", "Away", 1, 0, matchstate.StatusLive, 10)

	q := queue.New(queue.Options{})
	hub := events.NewHub(nil)
	orch := orchestrator.New(mock.New(0), s, q, hub, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	matchesHandler(s, orch)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"match_id":"M-1"`)
}

func TestQueueHandler_ReportsDepth(t *testing.T) {
	q := queue.New(queue.Options{})
	q.Enqueue(func() (queue.Result, error) { return queue.Result{}, nil }, queue.EnqueueOptions{Delay: 0})
	hub := events.NewHub(nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	queueHandler(q, hub)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":1`)
}

func TestCorrelationID_GeneratesWhenAbsent(t *testing.T) {
	handler := correlationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestCorrelationID_EchoesIncoming(t *testing.T) {
	handler := correlationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", rr.Header().Get("X-Correlation-ID"))
}
