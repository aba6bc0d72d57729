// Package pollpolicy implements the pure function from match state to next
// poll delay (spec §4.3).
package pollpolicy

import (
	"time"

	"github.com/primaltree/piratenation/internal/matchstate"
)

// Never is the sentinel delay meaning "the match is terminal; do not
// re-enqueue".
const Never = -1 * time.Second

// NextDelay maps a match's observed state to the next poll delay.
//
//	status        condition      delay
//	FT            —              Never
//	NOT_STARTED   —              15s
//	HT            —              10s
//	LIVE          minute >= 85   1s
//	LIVE          minute < 85    2s
func NextDelay(state matchstate.MatchState) time.Duration {
	switch state.Status {
	case matchstate.StatusFullTime:
		return Never
	case matchstate.StatusNotStarted:
		return 15 * time.Second
	case matchstate.StatusHalfTime:
		return 10 * time.Second
	case matchstate.StatusLive:
		if state.Minute >= 85 {
			return 1 * time.Second
		}
		return 2 * time.Second
	default:
		return Never
	}
}
