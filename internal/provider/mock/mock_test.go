package mock

import (
	"context"
	"testing"

	"github.com/primaltree/piratenation/internal/matchstate"
)

func TestProvider_FullMatchLifecycle(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	var last *matchstate.MatchState
	for i := 0; i < 90; i++ {
		st, err := p.GetLiveScore(ctx, "M-1")
		if err != nil {
			t.Fatalf("unexpected error at minute %d: %v", i+1, err)
		}
		last = st
	}

	if last.Status != matchstate.StatusFullTime {
		t.Fatalf("expected FT after 90 calls, got %s", last.Status)
	}
	if last.Minute != 90 {
		t.Fatalf("expected minute 90, got %d", last.Minute)
	}
	if last.HomeScore != 6 { // floor(45/7)
		t.Fatalf("expected home score 6, got %d", last.HomeScore)
	}
	if last.AwayScore != 8 { // floor(90/11)
		t.Fatalf("expected away score 8, got %d", last.AwayScore)
	}
}

func TestProvider_StatusDAG(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	wantStatusAt := map[int]matchstate.Status{
		1:  matchstate.StatusLive,
		44: matchstate.StatusLive,
		45: matchstate.StatusHalfTime,
		46: matchstate.StatusLive,
		89: matchstate.StatusLive,
		90: matchstate.StatusFullTime,
	}

	for minute := 1; minute <= 90; minute++ {
		st, err := p.GetLiveScore(ctx, "M-2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want, ok := wantStatusAt[minute]; ok && st.Status != want {
			t.Fatalf("minute %d: want status %s, got %s", minute, want, st.Status)
		}
	}
}

func TestProvider_StaysFinishedAfterFT(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	for i := 0; i < 95; i++ {
		if _, err := p.GetLiveScore(ctx, "M-3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	st, err := p.GetLiveScore(ctx, "M-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != matchstate.StatusFullTime || st.Minute != 90 {
		t.Fatalf("expected stable FT@90 after match end, got %s@%d", st.Status, st.Minute)
	}
}
