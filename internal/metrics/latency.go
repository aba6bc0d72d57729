// Package metrics tracks per-match poll latency using a Welford running
// accumulator, grounded in the pattern shared by the retrieved pack's
// scheduler stats type (stat.add/snapshot).
package metrics

import (
	"math"
	"sync"
	"time"
)

// LatencyStat accumulates mean and standard deviation of a latency series
// without retaining individual samples.
type LatencyStat struct {
	mu   sync.Mutex
	n    int64
	mean float64
	m2   float64
}

// Observe records one latency sample.
func (s *LatencyStat) Observe(d time.Duration) {
	x := float64(d) / float64(time.Millisecond)
	s.mu.Lock()
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	delta2 := x - s.mean
	s.m2 += delta * delta2
	s.mu.Unlock()
}

// Snapshot returns the sample count, mean, and standard deviation observed
// so far, all in milliseconds.
func (s *LatencyStat) Snapshot() (count int64, meanMS, stdDevMS float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count = s.n
	meanMS = s.mean
	if s.n > 1 {
		variance := s.m2 / float64(s.n-1)
		if variance > 0 {
			stdDevMS = math.Sqrt(variance)
		}
	}
	return
}

// Registry tracks a LatencyStat per match, created lazily on first use.
type Registry struct {
	mu    sync.Mutex
	stats map[string]*LatencyStat
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stats: make(map[string]*LatencyStat)}
}

// Observe records a poll latency sample for matchID.
func (r *Registry) Observe(matchID string, d time.Duration) {
	r.statFor(matchID).Observe(d)
}

// Snapshot returns the count/mean/stddev for matchID, or zeros if nothing
// has been observed yet.
func (r *Registry) Snapshot(matchID string) (count int64, meanMS, stdDevMS float64) {
	return r.statFor(matchID).Snapshot()
}

func (r *Registry) statFor(matchID string) *LatencyStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[matchID]
	if !ok {
		s = &LatencyStat{}
		r.stats[matchID] = s
	}
	return s
}
