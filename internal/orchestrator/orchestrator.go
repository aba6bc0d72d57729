// Package orchestrator wires the provider, store, poll policy, and worker
// queue into the poll driver job body (spec §4.4) and the seed/terminate
// lifecycle (spec §4.7).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primaltree/piratenation/internal/common"
	"github.com/primaltree/piratenation/internal/events"
	"github.com/primaltree/piratenation/internal/matchstate"
	"github.com/primaltree/piratenation/internal/metrics"
	"github.com/primaltree/piratenation/internal/pollpolicy"
	"github.com/primaltree/piratenation/internal/provider"
	"github.com/primaltree/piratenation/internal/queue"
	"github.com/primaltree/piratenation/internal/store"
)

// ErrNoData is returned by the job body when the provider has no data and
// no prior state exists for the match (spec §4.4 step 3, "NoDataError").
// It propagates out of the job body to trigger the queue's retry
// machinery; after exhaustion the job is silently dropped.
var ErrNoData = errors.New("no data for match and no prior state")

// key returns the coalescing key for a match's poll job.
func key(matchID string) string {
	return fmt.Sprintf("poll:%s", matchID)
}

// Orchestrator seeds one poll job per configured match and stops the queue
// once every seeded match has reached a terminal (FT) state.
type Orchestrator struct {
	provider provider.Provider
	store    store.Store
	queue    *queue.Queue
	hub      *events.Hub
	metrics  *metrics.Registry
	logger   *common.Logger
	clock    queue.Clock
}

// New constructs an Orchestrator. hub may be nil to disable broadcasting.
func New(p provider.Provider, s store.Store, q *queue.Queue, hub *events.Hub, logger *common.Logger) *Orchestrator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Orchestrator{
		provider: p,
		store:    s,
		queue:    q,
		hub:      hub,
		metrics:  metrics.NewRegistry(),
		logger:   logger,
		clock:    queue.RealClock{},
	}
}

// Metrics exposes the per-match latency registry for operational endpoints.
func (o *Orchestrator) Metrics() *metrics.Registry { return o.metrics }

// Seed admits the first poll job for each match_id, delay 0, priority 1
// (spec §4.7).
func (o *Orchestrator) Seed(matchIDs []string) {
	for _, id := range matchIDs {
		matchID := id
		o.queue.Enqueue(o.pollJob(matchID), queue.EnqueueOptions{
			Key:      key(matchID),
			Delay:    0,
			Priority: 1,
		})
		o.notify(events.TypeQueued, matchID)
	}
}

// AllFinished reports whether every match_id in matchIDs has reached FT in
// the store.
func (o *Orchestrator) AllFinished(matchIDs []string) bool {
	for _, id := range matchIDs {
		if !o.store.IsFinished(id) {
			return false
		}
	}
	return true
}

// RunUntilFinished blocks, checking termination on the given interval,
// until every match_id has reached FT, then stops and drains the queue
// (spec §4.7). It returns early if ctx is cancelled, leaving the queue
// running.
func (o *Orchestrator) RunUntilFinished(ctx context.Context, matchIDs []string, checkInterval time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.AllFinished(matchIDs) {
				o.queue.Stop()
				o.queue.WaitStopped()
				return
			}
		}
	}
}

// pollJob builds the job body for one match_id per spec §4.4. Every log line
// it emits carries matchID as a correlation ID, so a poll's whole lineage
// (fetch, store update, reschedule or terminal) can be grepped out of the
// log stream by match even though many matches' jobs interleave on the same
// queue.
func (o *Orchestrator) pollJob(matchID string) queue.JobFunc {
	log := o.logger.WithCorrelationId(matchID)
	return func() (queue.Result, error) {
		start := o.clock.Now()
		state, err := o.provider.GetLiveScore(context.Background(), matchID)
		if err != nil {
			log.Warn().Err(err).Msg("provider fetch failed")
			return queue.Result{}, fmt.Errorf("poll %s: %w", matchID, err)
		}

		var current matchstate.MatchState
		if state == nil {
			prior, ok := o.store.Get(matchID)
			if !ok {
				log.Warn().Msg("no data and no prior state")
				return queue.Result{}, fmt.Errorf("%w: %s", ErrNoData, matchID)
			}
			current = prior
		} else {
			current = o.store.Upsert(state.MatchID, state.Home, state.Away, state.HomeScore, state.AwayScore, state.Status, state.Minute)
			o.metrics.Observe(matchID, o.clock.Now().Sub(start))
			log.Info().Int("home_score", current.HomeScore).Int("away_score", current.AwayScore).Str("status", string(current.Status)).Msg("match updated")
			o.notify(events.TypeUpdated, matchID)
		}

		delay := pollpolicy.NextDelay(current)
		if delay < 0 {
			log.Info().Msg("match reached terminal state")
			o.notify(events.TypeTerminal, matchID)
			return queue.Result{}, nil
		}

		return queue.Result{Reschedule: true, Delay: delay, Priority: 1}, nil
	}
}

func (o *Orchestrator) notify(t events.Type, matchID string) {
	if o.hub == nil {
		return
	}
	st, ok := o.store.Get(matchID)
	pending, inflight := o.queue.Size()
	evt := events.Event{Type: t, Pending: pending, Inflight: inflight}
	if ok {
		evt.Match = &st
	}
	o.hub.Notify(evt)
}
