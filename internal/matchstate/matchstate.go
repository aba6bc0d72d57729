// Package matchstate defines the canonical observation snapshot for a
// football match and the status values it can hold.
package matchstate

import "time"

// Status is one of the DAG-ordered match lifecycle states.
type Status string

// Match status constants. The only legal transitions are
// NOT_STARTED -> LIVE -> {HT -> LIVE}* -> FT.
const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusLive       Status = "LIVE"
	StatusHalfTime   Status = "HT"
	StatusFullTime   Status = "FT"
)

// MatchState is the canonical observation snapshot for one match.
//
// Invariants: once Status == FT no further mutation is applied
// (store.Memory.Upsert panics on an upsert after FT); Minute and scores
// never decrease within a match's lifetime. Neither this type nor the store
// checks Minute or scores for decreases: that rests on the provider.
type MatchState struct {
	MatchID    string    `json:"match_id"`
	Home       string    `json:"home"`
	Away       string    `json:"away"`
	HomeScore  int       `json:"home_score"`
	AwayScore  int       `json:"away_score"`
	Status     Status    `json:"status"`
	Minute     int       `json:"minute"`
	ObservedAt time.Time `json:"observed_at"`
}

// Finished reports whether the match has reached its terminal status.
func (m MatchState) Finished() bool {
	return m.Status == StatusFullTime
}
