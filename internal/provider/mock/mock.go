// Package mock provides a deterministic live-score provider for tests and
// local runs, ported from the original Python reference
// (providers/mock.py): each call advances a match's minute by one; home
// scores every 7th minute up to 45, away every 11th minute up to 90; status
// progresses NOT_STARTED -> LIVE -> HT (minute 45) -> LIVE (minute 46) ->
// FT (minute >= 90).
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/primaltree/piratenation/internal/matchstate"
)

// Provider is a deterministic, in-process live-score generator.
type Provider struct {
	tickLatency time.Duration

	mu    sync.Mutex
	state map[string]*matchstate.MatchState
}

// New creates a Provider that simulates tickLatency of I/O per call.
func New(tickLatency time.Duration) *Provider {
	return &Provider{
		tickLatency: tickLatency,
		state:       make(map[string]*matchstate.MatchState),
	}
}

// GetLiveScore advances matchID's simulated clock by one minute and returns
// the resulting state. It never returns (nil, nil) — the deterministic mock
// always has data once it has been asked about a match.
func (p *Provider) GetLiveScore(ctx context.Context, matchID string) (*matchstate.MatchState, error) {
	if p.tickLatency > 0 {
		select {
		case <-time.After(p.tickLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.state[matchID]
	if !ok {
		st = &matchstate.MatchState{
			MatchID: matchID,
			Home:    "HOME-" + matchID,
			Away:    "AWAY-" + matchID,
			Status:  matchstate.StatusNotStarted,
		}
		p.state[matchID] = st
	}

	if st.Status == matchstate.StatusFullTime {
		out := *st
		return &out, nil
	}

	st.Minute++
	if st.Status == matchstate.StatusNotStarted {
		st.Status = matchstate.StatusLive
	}

	m := st.Minute
	if st.Status == matchstate.StatusLive || st.Status == matchstate.StatusHalfTime {
		if m <= 45 && m%7 == 0 {
			st.HomeScore++
		}
		if m <= 90 && m%11 == 0 {
			st.AwayScore++
		}
	}

	switch {
	case m == 45:
		st.Status = matchstate.StatusHalfTime
	case m == 46:
		st.Status = matchstate.StatusLive
	case m >= 90:
		st.Status = matchstate.StatusFullTime
	}

	out := *st
	return &out, nil
}
