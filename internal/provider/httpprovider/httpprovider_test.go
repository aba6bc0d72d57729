package httpprovider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/primaltree/piratenation/internal/matchstate"
)

func TestClient_GetLiveScore_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"match_id":"M-1","home":"Home","away":"Away","home_score":1,"away_score":0,"status":"LIVE","minute":30}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(1000))
	st, err := c.GetLiveScore(context.Background(), "M-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != matchstate.StatusLive || st.Minute != 30 || st.HomeScore != 1 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestClient_GetLiveScore_NoContentMeansNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(1000))
	st, err := c.GetLiveScore(context.Background(), "M-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Fatalf("expected nil state for 204, got %+v", st)
	}
}

func TestClient_GetLiveScore_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(1000))
	_, err := c.GetLiveScore(context.Background(), "M-1")
	if err == nil {
		t.Fatalf("expected an error for a 500 response")
	}
}
