// Package events implements the observer/broadcast mechanism behind the
// on_update callback contract (spec §4.4), generalizing the teacher's
// WebSocket job-event hub (internal/services/jobmanager/websocket.go,
// internal/models.JobEvent) from job lifecycle events to match lifecycle
// events.
package events

import (
	"time"

	"github.com/primaltree/piratenation/internal/matchstate"
)

// Type enumerates the kinds of event broadcast over the hub.
type Type string

const (
	TypeQueued    Type = "queued"
	TypeStarted   Type = "started"
	TypeUpdated   Type = "updated"
	TypeCompleted Type = "completed"
	TypeFailed    Type = "failed"
	TypeTerminal  Type = "terminal"
)

// Event is broadcast when a match is seeded onto the queue (TypeQueued),
// when a poll returns data for it (TypeUpdated), and when it reaches FT
// (TypeTerminal). The other types are defined but not emitted.
type Event struct {
	Type      Type                  `json:"type"`
	Match     *matchstate.MatchState `json:"match,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
	Pending   int                   `json:"pending"`
	Inflight  int                   `json:"inflight"`
}
