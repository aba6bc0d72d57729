// Package queue implements the delay-aware, priority-ordered,
// key-coalescing, retrying worker queue (spec §4.5-§4.7). It generalizes the
// teacher's JobManager (internal/services/jobmanager/manager.go, queue.go):
// the same shape (heap-ordered dispatch, a counting semaphore bounding
// concurrency, panic-recovered job goroutines, a single mutex guarding the
// heap together with the pending/inflight key sets) now drives an arbitrary
// JobFunc instead of a fixed finance job catalogue.
package queue

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/primaltree/piratenation/internal/common"
)

// Options configures a Queue. Zero-valued fields fall back to the defaults
// documented on each.
type Options struct {
	// Concurrency bounds the number of job bodies running at once. Defaults
	// to 4 if zero or negative.
	Concurrency int
	// PollInterval bounds how long the dispatcher sleeps when the heap is
	// empty or its earliest entry is not yet due. Defaults to 100ms.
	PollInterval time.Duration

	// DefaultMaxRetries, DefaultBackoffBase, DefaultBackoffMin,
	// DefaultBackoffMax, DefaultJitter seed EnqueueOptions fields left at
	// their zero value. Defaults: 3, 1.6, 500ms, 60s, 0.15.
	DefaultMaxRetries  int
	DefaultBackoffBase float64
	DefaultBackoffMin  time.Duration
	DefaultBackoffMax  time.Duration
	DefaultJitter      float64

	// Clock is consulted for run_at comparisons and computations. Defaults
	// to RealClock{}.
	Clock Clock
	// Logger receives dispatcher and job diagnostics. Defaults to a silent
	// logger.
	Logger *common.Logger
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.DefaultMaxRetries <= 0 {
		o.DefaultMaxRetries = 3
	}
	if o.DefaultBackoffBase <= 0 {
		o.DefaultBackoffBase = 1.6
	}
	if o.DefaultBackoffMin <= 0 {
		o.DefaultBackoffMin = 500 * time.Millisecond
	}
	if o.DefaultBackoffMax <= 0 {
		o.DefaultBackoffMax = 60 * time.Second
	}
	if o.DefaultJitter <= 0 {
		o.DefaultJitter = 0.15
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.Logger == nil {
		o.Logger = common.NewSilentLogger()
	}
}

// Queue is a single-process worker queue. The zero value is not usable; use
// New.
type Queue struct {
	mu           sync.Mutex
	heap         jobHeap
	pendingKeys  map[string]int
	inflightKeys map[string]struct{}
	running      int // jobs currently executing, keyed or not
	nextSeq      int64

	sem          chan struct{}
	pollInterval time.Duration
	defaults     Options
	clock        Clock
	logger       *common.Logger

	jobsWG sync.WaitGroup

	stopping atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}

	startOnce sync.Once
}

// New constructs a Queue. Call Start to begin dispatching.
func New(opts Options) *Queue {
	opts.setDefaults()
	return &Queue{
		heap:         make(jobHeap, 0),
		pendingKeys:  make(map[string]int),
		inflightKeys: make(map[string]struct{}),
		sem:          make(chan struct{}, opts.Concurrency),
		pollInterval: opts.PollInterval,
		defaults:     opts,
		clock:        opts.Clock,
		logger:       opts.Logger,
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

// Start launches the dispatcher loop. Safe to call once; subsequent calls
// are no-ops.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		go q.safeGo("dispatcher", q.dispatchLoop)
	})
}

// Stop marks the queue as stopping and returns immediately; call
// WaitStopped to block until the queue has drained. Stop does not reject
// later Enqueue calls, and the dispatcher keeps dispatching every entry in
// the heap, including retries and Reschedule follow-ups, so WaitStopped
// does not return while a job keeps rescheduling itself.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.stopping.Store(true)
		close(q.stopCh)
	})
}

// WaitStopped blocks until the dispatcher loop has exited, which happens
// only after Stop has been called and every pending and inflight job has
// completed (spec §4.7: "drain before exit").
func (q *Queue) WaitStopped() {
	<-q.stopped
}

// Size reports the number of jobs waiting in the heap and the number of
// jobs currently executing.
func (q *Queue) Size() (pending, inflight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap), q.running
}

// Enqueue admits fn for execution. It returns false without admitting the
// job if opts.Key is non-empty, opts.Coalesce is not false, and a job with
// that key is already pending or inflight (spec §4.5, key coalescing).
func (q *Queue) Enqueue(fn JobFunc, opts EnqueueOptions) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	coalesce := opts.Coalesce == nil || *opts.Coalesce
	if opts.Key != "" && coalesce {
		if _, busy := q.inflightKeys[opts.Key]; busy {
			return false
		}
		if q.pendingKeys[opts.Key] > 0 {
			return false
		}
	}

	seq := q.nextSeq
	q.nextSeq++

	job := &scheduledJob{
		fn:          fn,
		key:         opts.Key,
		runAt:       q.clock.Now().Add(opts.Delay),
		priority:    opts.Priority,
		seq:         seq,
		coalesce:    coalesce,
		maxRetries:  orInt(opts.MaxRetries, q.defaults.DefaultMaxRetries),
		backoffBase: orFloat(opts.BackoffBase, q.defaults.DefaultBackoffBase),
		backoffMin:  orDuration(opts.BackoffMin, q.defaults.DefaultBackoffMin),
		backoffMax:  orDuration(opts.BackoffMax, q.defaults.DefaultBackoffMax),
		jitter:      orFloat(opts.Jitter, q.defaults.DefaultJitter),
	}

	heap.Push(&q.heap, job)
	if opts.Key != "" {
		q.pendingKeys[opts.Key]++
	}
	return true
}

func orInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func orFloat(v, d float64) float64 {
	if v <= 0 {
		return d
	}
	return v
}

func orDuration(v, d time.Duration) time.Duration {
	if v <= 0 {
		return d
	}
	return v
}

// dispatchLoop pops due jobs in priority order, gates them on the
// concurrency semaphore, and spawns each job body independently. It exits
// once Stop has been called and the queue is fully drained.
func (q *Queue) dispatchLoop() {
	defer close(q.stopped)

	stopCh := q.stopCh
	for {
		dispatchedAny := q.dispatchDue()

		q.mu.Lock()
		drained := len(q.heap) == 0 && q.running == 0
		q.mu.Unlock()

		if q.stopping.Load() && drained {
			return
		}

		if dispatchedAny {
			continue
		}

		select {
		case <-time.After(q.nextWait()):
		case <-stopCh:
			// Wake once on Stop; afterwards a nil channel keeps the closed
			// stopCh from turning this wait into a busy loop.
			stopCh = nil
		}
	}
}

// dispatchDue pops and admits every job whose run_at is not after now,
// returning whether any job was admitted.
func (q *Queue) dispatchDue() bool {
	dispatchedAny := false
	for {
		job, ok := q.popDue()
		if !ok {
			return dispatchedAny
		}
		dispatchedAny = true
		q.admit(job)
	}
}

// popDue pops the earliest due job and performs the key bookkeeping that
// must happen atomically with the pop. It returns ok=false when nothing is
// due yet. A job whose key is already inflight (the rare race described in
// spec §9, Open Question 1) is discarded and popDue tries the next entry.
func (q *Queue) popDue() (*scheduledJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.heap) == 0 {
			return nil, false
		}
		now := q.clock.Now()
		if q.heap[0].runAt.After(now) {
			return nil, false
		}

		job := heap.Pop(&q.heap).(*scheduledJob)
		if job.key == "" {
			q.running++
			return job, true
		}

		remaining := q.pendingKeys[job.key] - 1
		if remaining < 0 {
			panic(invariantf("pending count for key %q went negative", job.key))
		}
		if remaining == 0 {
			delete(q.pendingKeys, job.key)
		} else {
			q.pendingKeys[job.key] = remaining
		}

		if job.coalesce {
			if _, busy := q.inflightKeys[job.key]; busy {
				continue
			}
			q.inflightKeys[job.key] = struct{}{}
		}
		q.running++
		return job, true
	}
}

// nextWait computes how long the dispatcher should sleep when nothing is
// due: the poll interval, or the time until the earliest pending job
// becomes due, whichever is shorter.
func (q *Queue) nextWait() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return q.pollInterval
	}
	until := q.heap[0].runAt.Sub(q.clock.Now())
	if until <= 0 {
		return 0
	}
	if until < q.pollInterval {
		return until
	}
	return q.pollInterval
}

// admit acquires a concurrency permit, which may block, then runs the job
// body on its own goroutine.
func (q *Queue) admit(job *scheduledJob) {
	q.sem <- struct{}{}
	q.jobsWG.Add(1)
	go func() {
		defer q.jobsWG.Done()
		defer func() { <-q.sem }()
		defer q.finishRun(job.key, job.coalesce)
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error().Str("key", job.key).Interface("panic", r).Msg("job body panicked")
			}
		}()
		q.runJob(job)
	}()
}

// runJob executes a job body and routes the outcome. A successful result
// requesting Reschedule is re-admitted under the same key as a fresh
// pending entry (attempt counter reset, new seq) before this execution's
// key is released — self-requeueing jobs never go through the public
// Enqueue coalescing check against their own still-inflight key. A
// transient failure with attempts remaining reschedules with backoff,
// incrementing the attempt count and keeping the existing seq.
func (q *Queue) runJob(job *scheduledJob) {
	result, err := job.fn()
	if err == nil {
		if result.Reschedule {
			q.mu.Lock()
			seq := q.nextSeq
			q.nextSeq++
			heap.Push(&q.heap, &scheduledJob{
				fn:          job.fn,
				key:         job.key,
				runAt:       q.clock.Now().Add(result.Delay),
				priority:    result.Priority,
				seq:         seq,
				coalesce:    job.coalesce,
				maxRetries:  job.maxRetries,
				backoffBase: job.backoffBase,
				backoffMin:  job.backoffMin,
				backoffMax:  job.backoffMax,
				jitter:      job.jitter,
			})
			if job.key != "" {
				q.pendingKeys[job.key]++
			}
			q.mu.Unlock()
		}
		return
	}

	if job.attempt >= job.maxRetries {
		q.logger.Info().Str("key", job.key).Int("attempt", job.attempt).Err(err).Msg("job failed, retries exhausted")
		return
	}

	job.attempt++
	delay := computeBackoff(job.seq, job.attempt, job.backoffMin, job.backoffMax, job.backoffBase, job.jitter)

	q.mu.Lock()
	job.runAt = q.clock.Now().Add(delay)
	heap.Push(&q.heap, job)
	if job.key != "" {
		q.pendingKeys[job.key]++
		if job.coalesce {
			delete(q.inflightKeys, job.key)
		}
	}
	q.mu.Unlock()

	q.logger.Warn().Str("key", job.key).Int("attempt", job.attempt).Dur("delay", delay).Err(err).Msg("job failed, retrying")
}

// finishRun marks one admitted execution as no longer running, regardless
// of how it ended (success, exhaustion, reschedule, or panic). It is the
// single point that decrements running, so Size and the drain check in
// dispatchLoop never depend on whether the job happened to have a key.
func (q *Queue) finishRun(key string, coalesce bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running--
	if key != "" && coalesce {
		delete(q.inflightKeys, key)
	}
}

// safeGo runs fn and recovers any panic, logging it as an invariant
// violation rather than crashing the process (spec §7). Ordinary job
// failures never reach this path: they are returned as errors from JobFunc
// and handled by runJob's retry logic.
func (q *Queue) safeGo(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Str("component", name).Interface("panic", r).Msg("recovered panic")
		}
	}()
	fn()
}
