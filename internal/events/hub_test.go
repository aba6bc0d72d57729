package events

import (
	"sync"
	"testing"
	"time"

	"github.com/primaltree/piratenation/internal/matchstate"
)

func TestHub_NotifyInvokesObserver(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})

	h.OnUpdate(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		close(done)
	})

	h.Notify(Event{Type: TypeUpdated, Match: &matchstate.MatchState{MatchID: "M-1"}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for observer")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Match.MatchID != "M-1" {
		t.Fatalf("unexpected observed events: %+v", got)
	}
}

func TestHub_ObserverPanicIsSwallowed(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	h.OnUpdate(func(Event) { panic("boom") })

	second := make(chan struct{})
	h.Notify(Event{Type: TypeUpdated})

	// A second notification should still reach the dispatch loop, proving a
	// panicking observer did not take the loop down.
	h.OnUpdate(func(Event) { close(second) })
	h.Notify(Event{Type: TypeUpdated})

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("dispatch loop appears to have died after observer panic")
	}
}

func TestHub_NotifyStampsTimestamp(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	done := make(chan Event, 1)
	h.OnUpdate(func(e Event) { done <- e })

	before := time.Now()
	h.Notify(Event{Type: TypeQueued})

	select {
	case e := <-done:
		if e.Timestamp.Before(before) {
			t.Fatalf("expected Notify to stamp a timestamp no earlier than %v, got %v", before, e.Timestamp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
