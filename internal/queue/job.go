package queue

import "time"

// Result is what a JobFunc returns on success, carrying the "next action"
// a self-requeueing job wants performed (spec §9's design note: "model jobs
// as a discriminated variant carrying parameters plus a next action
// computed from the current state"). The zero value means "done, do not
// requeue".
type Result struct {
	// Reschedule requests a follow-up run of the same JobFunc under the
	// same key.
	Reschedule bool
	// Delay is how far in the future the follow-up becomes due.
	Delay time.Duration
	// Priority orders the follow-up.
	Priority int
}

// JobFunc is a unit of work admitted to the queue. A non-nil error is
// treated as a transient failure eligible for retry (spec §4.6). On
// success, a Result requesting Reschedule is re-admitted under the same
// key directly by the queue — not by the job calling Enqueue on itself,
// which would race against its own still-inflight key (spec §4.4, §9).
type JobFunc func() (Result, error)

// Bool returns a pointer to b, for setting EnqueueOptions.Coalesce.
func Bool(b bool) *bool { return &b }

// EnqueueOptions configures a single Enqueue call (spec §3, ScheduledJob).
type EnqueueOptions struct {
	// Key coalesces admission: while a job with the same non-empty Key is
	// pending or inflight, further Enqueue calls with that Key are rejected.
	// Empty Key means "never coalesce".
	Key string
	// Coalesce controls whether Key-based coalescing is enforced (spec
	// §4.5, §6). nil (the zero value) means true, the documented default.
	// Set to a false pointer via Bool(false) to admit duplicates under a
	// shared Key — the poll driver never does this; it exists for callers
	// that need a burst of same-key jobs to all run (spec §4.6).
	Coalesce *bool
	// Delay is how far in the future, relative to the queue's clock, the job
	// becomes eligible to run. Zero means "eligible immediately".
	Delay time.Duration
	// Priority orders jobs with the same run_at; higher runs first.
	Priority int
	// MaxRetries is the number of retry attempts after the first failure.
	MaxRetries int
	// BackoffBase, BackoffMin, BackoffMax, Jitter parameterize the backoff
	// formula in computeBackoff. Zero values fall back to the queue's
	// configured defaults.
	BackoffBase float64
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Jitter      float64
}

// scheduledJob is one entry in the dispatch heap. It is ordered by
// (runAt asc, priority desc, seq asc): earliest first, ties broken by
// priority, further ties broken by FIFO admission order (spec §3, §4.5).
type scheduledJob struct {
	fn       JobFunc
	key      string
	runAt    time.Time
	priority int
	seq      int64
	attempt  int
	coalesce bool

	maxRetries  int
	backoffBase float64
	backoffMin  time.Duration
	backoffMax  time.Duration
	jitter      float64

	index int // maintained by container/heap
}

// jobHeap implements container/heap.Interface over *scheduledJob.
type jobHeap []*scheduledJob

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.runAt.Equal(b.runAt) {
		return a.runAt.Before(b.runAt)
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq < b.seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	job := x.(*scheduledJob)
	job.index = len(*h)
	*h = append(*h, job)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.index = -1
	*h = old[:n-1]
	return job
}
