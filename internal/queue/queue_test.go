package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestQueue(t *testing.T, concurrency int) *Queue {
	t.Helper()
	q := New(Options{
		Concurrency:  concurrency,
		PollInterval: 5 * time.Millisecond,
	})
	return q
}

func ok() (Result, error) { return Result{}, nil }

func TestQueue_CoalescingRejectsBurst(t *testing.T) {
	q := newTestQueue(t, 2)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admittedNow := q.Enqueue(func() (Result, error) { return ok() }, EnqueueOptions{
				Key:   "poll:M-1",
				Delay: time.Hour, // never actually dispatches during this test
			})
			if admittedNow {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Fatalf("expected exactly 1 admission out of 100 coalesced enqueues, got %d", admitted)
	}
	pending, inflight := q.Size()
	if pending != 1 || inflight != 0 {
		t.Fatalf("expected (pending=1, inflight=0), got (%d, %d)", pending, inflight)
	}
}

func TestQueue_CoalescingAllowsDistinctKeys(t *testing.T) {
	q := newTestQueue(t, 2)

	if !q.Enqueue(func() (Result, error) { return ok() }, EnqueueOptions{Key: "poll:M-1", Delay: time.Hour}) {
		t.Fatalf("expected first key to admit")
	}
	if !q.Enqueue(func() (Result, error) { return ok() }, EnqueueOptions{Key: "poll:M-2", Delay: time.Hour}) {
		t.Fatalf("expected a distinct key to admit")
	}
	pending, _ := q.Size()
	if pending != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", pending)
	}
}

// TestQueue_CoalesceFalseAdmitsDuplicates proves opts.Coalesce=false bypasses
// key-based rejection, admitting every call even under a shared key (spec
// §4.6: "use sparingly; not used by the poll driver").
func TestQueue_CoalesceFalseAdmitsDuplicates(t *testing.T) {
	q := newTestQueue(t, 2)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.Enqueue(func() (Result, error) { return ok() }, EnqueueOptions{
				Key:      "poll:M-1",
				Delay:    time.Hour,
				Coalesce: Bool(false),
			}) {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Fatalf("expected all 10 non-coalesced enqueues to admit, got %d", admitted)
	}
	pending, _ := q.Size()
	if pending != 10 {
		t.Fatalf("expected 10 pending jobs, got %d", pending)
	}
}

// TestQueue_CoalesceFalseRunsConcurrentlyUnderSameKey proves two
// non-coalescing jobs sharing a key can both be inflight at once, unlike
// the default coalescing behavior.
func TestQueue_CoalesceFalseRunsConcurrentlyUnderSameKey(t *testing.T) {
	q := newTestQueue(t, 2)

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	for i := 0; i < 2; i++ {
		q.Enqueue(func() (Result, error) {
			started.Done()
			<-release
			return Result{}, nil
		}, EnqueueOptions{Key: "poll:M-1", Coalesce: Bool(false)})
	}

	q.Start()
	waitOrTimeout(t, &started, 2*time.Second)

	close(release)
	q.Stop()
	q.WaitStopped()
}

// TestQueue_FakeClockDelaysDispatchUntilAdvanced proves a job scheduled far
// in the future is not dispatched until the Clock says it is due, without
// the test sleeping for that duration (spec §5: dispatch decisions consult
// a monotonic clock, never wall time).
func TestQueue_FakeClockDelaysDispatchUntilAdvanced(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	q := New(Options{Concurrency: 1, PollInterval: time.Millisecond, Clock: clock})

	ran := make(chan struct{}, 1)
	q.Enqueue(func() (Result, error) {
		ran <- struct{}{}
		return Result{}, nil
	}, EnqueueOptions{Delay: time.Hour})

	q.Start()
	defer func() {
		q.Stop()
		q.WaitStopped()
	}()

	select {
	case <-ran:
		t.Fatal("job ran before its fake-clock run_at was reached")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(2 * time.Hour)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("job did not run after the fake clock advanced past run_at")
	}
}

// TestQueue_FakeClockControlsBackoffTiming proves a retried job's new
// run_at is computed from the Clock rather than wall time: it stays pending
// through a real-time sleep shorter than the backoff delay, then dispatches
// as soon as the fake clock is advanced past it.
func TestQueue_FakeClockControlsBackoffTiming(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	q := New(Options{Concurrency: 1, PollInterval: time.Millisecond, Clock: clock})

	var attempts int64
	done := make(chan struct{})
	q.Enqueue(func() (Result, error) {
		n := atomic.AddInt64(&attempts, 1)
		if n == 1 {
			return Result{}, errTransient
		}
		close(done)
		return Result{}, nil
	}, EnqueueOptions{
		MaxRetries:  1,
		BackoffMin:  time.Minute,
		BackoffMax:  time.Hour,
		BackoffBase: 2,
		Jitter:      0,
	})

	q.Start()
	defer func() {
		q.Stop()
		q.WaitStopped()
	}()

	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt64(&attempts); got != 1 {
		t.Fatalf("expected exactly 1 attempt before the backoff delay elapses, got %d", got)
	}

	clock.Advance(time.Hour)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry did not dispatch after the fake clock advanced past its backoff delay")
	}
}

func TestQueue_PriorityOrderAtConcurrencyOne(t *testing.T) {
	// A fake clock that is never advanced gives all three jobs the same
	// run_at, so only priority (then seq) orders them.
	q := New(Options{Concurrency: 1, PollInterval: 5 * time.Millisecond, Clock: NewFakeClock(time.Unix(0, 0))})

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)

	record := func(priority int) JobFunc {
		return func() (Result, error) {
			mu.Lock()
			order = append(order, priority)
			mu.Unlock()
			wg.Done()
			return Result{}, nil
		}
	}

	// Enqueue lowest priority first to prove dispatch order follows
	// priority, not admission order.
	q.Enqueue(record(1), EnqueueOptions{Priority: 1})
	q.Enqueue(record(5), EnqueueOptions{Priority: 5})
	q.Enqueue(record(3), EnqueueOptions{Priority: 3})

	q.Start()
	waitOrTimeout(t, &wg, 2*time.Second)
	q.Stop()
	q.WaitStopped()

	want := []int{5, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestQueue_RetryThenSuccessReenters(t *testing.T) {
	q := newTestQueue(t, 1)

	var attempts int64
	var wg sync.WaitGroup
	wg.Add(1)

	q.Enqueue(func() (Result, error) {
		n := atomic.AddInt64(&attempts, 1)
		if n < 3 {
			return Result{}, errTransient
		}
		wg.Done()
		return Result{}, nil
	}, EnqueueOptions{
		MaxRetries: 5,
		BackoffMin: time.Millisecond,
		BackoffMax: 10 * time.Millisecond,
		Jitter:     0,
	})

	q.Start()
	waitOrTimeout(t, &wg, 2*time.Second)
	q.Stop()
	q.WaitStopped()

	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestQueue_RetryExhaustionDropsJob(t *testing.T) {
	q := newTestQueue(t, 1)

	var attempts int64
	done := make(chan struct{})

	q.Enqueue(func() (Result, error) {
		n := atomic.AddInt64(&attempts, 1)
		if n == 3 { // initial attempt (0) + 2 retries = 3 calls for MaxRetries=2
			close(done)
		}
		return Result{}, errTransient
	}, EnqueueOptions{
		MaxRetries: 2,
		BackoffMin: time.Millisecond,
		BackoffMax: 5 * time.Millisecond,
		Jitter:     0,
	})

	q.Start()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retry exhaustion")
	}

	// Give the final failed attempt a moment to finish running before
	// asserting drain, since close(done) races the running-count release.
	deadline := time.Now().Add(time.Second)
	for {
		pending, inflight := q.Size()
		if pending == 0 && inflight == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected queue to drain after retry exhaustion, got (pending=%d, inflight=%d)", pending, inflight)
		}
		time.Sleep(time.Millisecond)
	}

	q.Stop()
	q.WaitStopped()

	if got := atomic.LoadInt64(&attempts); got != 3 {
		t.Fatalf("expected exactly 3 attempts (1 initial + 2 retries), got %d", got)
	}
}

func TestQueue_ShutdownDrainsInflightJobs(t *testing.T) {
	q := newTestQueue(t, 4)

	release := make(chan struct{})
	var started sync.WaitGroup
	var finished int64
	started.Add(4)

	for i := 0; i < 4; i++ {
		q.Enqueue(func() (Result, error) {
			started.Done()
			<-release
			atomic.AddInt64(&finished, 1)
			return Result{}, nil
		}, EnqueueOptions{Key: ""})
	}

	q.Start()
	waitOrTimeout(t, &started, 2*time.Second)

	q.Stop()

	stoppedEarly := make(chan struct{})
	go func() {
		q.WaitStopped()
		close(stoppedEarly)
	}()

	select {
	case <-stoppedEarly:
		t.Fatal("queue reported stopped before inflight jobs released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-stoppedEarly:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drain after release")
	}

	if got := atomic.LoadInt64(&finished); got != 4 {
		t.Fatalf("expected all 4 jobs to finish, got %d", got)
	}
}

func TestQueue_SizeTransitionsAreMonotoneDuringDrain(t *testing.T) {
	q := newTestQueue(t, 2)

	for i := 0; i < 5; i++ {
		q.Enqueue(func() (Result, error) { return ok() }, EnqueueOptions{})
	}

	pendingBefore, _ := q.Size()
	if pendingBefore != 5 {
		t.Fatalf("expected 5 pending before start, got %d", pendingBefore)
	}

	q.Start()
	q.Stop()
	q.WaitStopped()

	pendingAfter, inflightAfter := q.Size()
	if pendingAfter != 0 || inflightAfter != 0 {
		t.Fatalf("expected fully drained queue after WaitStopped, got (%d, %d)", pendingAfter, inflightAfter)
	}
}

// TestQueue_SelfRequeueUnderSameKeySucceeds proves a job's own reschedule
// is never rejected by the coalescing check against its own still-inflight
// key (spec §4.4 step 6; see queue.go's runJob doc comment).
func TestQueue_SelfRequeueUnderSameKeySucceeds(t *testing.T) {
	q := newTestQueue(t, 1)

	var runs int64
	var wg sync.WaitGroup
	wg.Add(3)

	var fn JobFunc
	fn = func() (Result, error) {
		n := atomic.AddInt64(&runs, 1)
		wg.Done()
		if n >= 3 {
			return Result{}, nil
		}
		return Result{Reschedule: true, Delay: time.Millisecond, Priority: 1}, nil
	}

	q.Enqueue(fn, EnqueueOptions{Key: "poll:M-1"})
	q.Start()
	waitOrTimeout(t, &wg, 2*time.Second)

	// Let the third run's (non-rescheduling) completion drain before
	// stopping, so WaitStopped doesn't race a still-finishing goroutine.
	deadline := time.Now().Add(time.Second)
	for {
		pending, inflight := q.Size()
		if pending == 0 && inflight == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected queue to drain, got (pending=%d, inflight=%d)", pending, inflight)
		}
		time.Sleep(time.Millisecond)
	}

	q.Stop()
	q.WaitStopped()

	if got := atomic.LoadInt64(&runs); got != 3 {
		t.Fatalf("expected exactly 3 self-requeued runs, got %d", got)
	}
}

// waitOrTimeout fails the test if wg is not done within d.
func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for jobs to complete")
	}
}

type transientError struct{}

func (transientError) Error() string { return "transient failure" }

var errTransient = transientError{}
