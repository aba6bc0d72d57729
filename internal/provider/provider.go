// Package provider defines the live-score provider contract consumed by the
// poll driver (spec §4.1): an asynchronous producer of a MatchState for a
// given match identifier, which may yield "no data".
package provider

import (
	"context"

	"github.com/primaltree/piratenation/internal/matchstate"
)

// Provider fetches the current live score for a match. A nil MatchState and
// a nil error together mean "no data right now" — a transient condition,
// never a terminal signal. Implementations may suspend (perform I/O) and
// impose per-call latency; no ordering is guaranteed across concurrent
// calls for different match IDs.
type Provider interface {
	GetLiveScore(ctx context.Context, matchID string) (*matchstate.MatchState, error)
}
