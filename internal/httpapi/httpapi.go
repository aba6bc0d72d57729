// Package httpapi exposes the operational HTTP surface (spec §1): health,
// match snapshots, queue depth, and a WebSocket event stream. Handlers
// follow the teacher's mux pattern (cmd/vire-server/main.go's
// healthHandler/versionHandler): method check, JSON content type, encode.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/primaltree/piratenation/internal/common"
	"github.com/primaltree/piratenation/internal/events"
	"github.com/primaltree/piratenation/internal/orchestrator"
	"github.com/primaltree/piratenation/internal/queue"
	"github.com/primaltree/piratenation/internal/store"
)

// BuildMux assembles the HTTP mux for the live-score watcher.
func BuildMux(st store.Store, q *queue.Queue, hub *events.Hub, orch *orchestrator.Orchestrator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/api/version", versionHandler)
	mux.HandleFunc("/api/matches", matchesHandler(st, orch))
	mux.HandleFunc("/api/queue", queueHandler(q, hub))
	mux.HandleFunc("/ws", hub.ServeWS)
	return correlationID(mux)
}

// correlationID extracts or generates a request correlation ID, echoing it
// back on the response so a caller can correlate a request with log lines.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Request-ID")
		if corrID == "" {
			corrID = uuid.New().String()[:8]
		}
		w.Header().Set("X-Correlation-ID", corrID)
		next.ServeHTTP(w, r)
	})
}

func methodAllowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// healthHandler responds to GET/HEAD /healthz with {"status":"ok"}.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// versionHandler responds to GET/HEAD /api/version with version info.
func versionHandler(w http.ResponseWriter, r *http.Request) {
	if !methodAllowed(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"component": common.ComponentName,
		"version":   common.GetVersion(),
		"build":     common.GetBuild(),
		"commit":    common.GetGitCommit(),
	})
}

type matchView struct {
	MatchID   string  `json:"match_id"`
	Home      string  `json:"home"`
	Away      string  `json:"away"`
	HomeScore int     `json:"home_score"`
	AwayScore int     `json:"away_score"`
	Status    string  `json:"status"`
	Minute    int     `json:"minute"`
	Polls     int64   `json:"polls"`
	MeanMS    float64 `json:"poll_latency_mean_ms"`
}

// matchesHandler responds to GET/HEAD /api/matches with every tracked
// match's current state plus its poll-latency snapshot.
func matchesHandler(st store.Store, orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !methodAllowed(w, r) {
			return
		}
		states := st.All()
		views := make([]matchView, 0, len(states))
		for _, s := range states {
			count, mean, _ := orch.Metrics().Snapshot(s.MatchID)
			views = append(views, matchView{
				MatchID:   s.MatchID,
				Home:      s.Home,
				Away:      s.Away,
				HomeScore: s.HomeScore,
				AwayScore: s.AwayScore,
				Status:    string(s.Status),
				Minute:    s.Minute,
				Polls:     count,
				MeanMS:    mean,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

type queueView struct {
	Pending         int `json:"pending"`
	Inflight        int `json:"inflight"`
	ConnectedEvents int `json:"connected_event_clients"`
}

// queueHandler responds to GET/HEAD /api/queue with current queue depth
// and the number of connected WebSocket event clients.
func queueHandler(q *queue.Queue, hub *events.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !methodAllowed(w, r) {
			return
		}
		pending, inflight := q.Size()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(queueView{
			Pending:         pending,
			Inflight:        inflight,
			ConnectedEvents: hub.ClientCount(),
		})
	}
}
