package issue_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/issue-triage-bot/internal/clock"
	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
)

var t0 = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// countingClock records how often Now is read.
type countingClock struct {
	t     time.Time
	calls int
}

func (c *countingClock) Now() time.Time {
	c.calls++
	return c.t
}

func mustNew(t *testing.T, sev issue.Severity, clk clock.Clock) *issue.Issue {
	t.Helper()
	iss, err := issue.New(sev, clk)
	if err != nil {
		t.Fatalf("New(%q): %v", sev, err)
	}
	return iss
}

func mustAdvance(t *testing.T, clk *clock.Mock, d time.Duration) {
	t.Helper()
	if err := clk.Advance(d); err != nil {
		t.Fatalf("Advance(%v): %v", d, err)
	}
}

func TestNew_NilClock(t *testing.T) {
	iss, err := issue.New(issue.Bug, nil)
	if !errors.Is(err, issue.ErrNilClock) {
		t.Fatalf("New(nil clock) error = %v, want %v", err, issue.ErrNilClock)
	}
	if iss != nil {
		t.Errorf("New(nil clock) returned %v, want nil", iss)
	}
}

func TestNew_CapturesCreationOnce(t *testing.T) {
	clk := clock.NewMock(t0)
	iss := mustNew(t, issue.Bug, clk)

	mustAdvance(t, clk, 72*time.Hour)

	if got := iss.CreatedAt(); !got.Equal(t0) {
		t.Errorf("CreatedAt() = %v, want %v", got, t0)
	}
	if got := iss.Severity(); got != issue.Bug {
		t.Errorf("Severity() = %q, want %q", got, issue.Bug)
	}
	if got := iss.Elapsed(); got != 72*time.Hour {
		t.Errorf("Elapsed() = %v, want %v", got, 72*time.Hour)
	}
}

func TestPriority_Scenarios(t *testing.T) {
	t.Run("new bug is concerning", func(t *testing.T) {
		clk := clock.NewMock(t0)
		iss := mustNew(t, issue.Bug, clk)
		if got := iss.Priority(); got != issue.Concerning {
			t.Errorf("Priority() = %v, want %v", got, issue.Concerning)
		}
	})

	t.Run("bug after two days is immediate", func(t *testing.T) {
		clk := clock.NewMock(t0)
		iss := mustNew(t, issue.Bug, clk)
		if got := iss.Priority(); got != issue.Concerning {
			t.Fatalf("Priority() before advance = %v, want %v", got, issue.Concerning)
		}
		mustAdvance(t, clk, 2*24*time.Hour)
		if got := iss.Priority(); got != issue.Immediate {
			t.Errorf("Priority() = %v, want %v", got, issue.Immediate)
		}
	})

	t.Run("feature stays none after 100 days", func(t *testing.T) {
		clk := clock.NewMock(t0)
		iss := mustNew(t, issue.Feature, clk)
		mustAdvance(t, clk, 100*24*time.Hour)
		if got := iss.Priority(); got != issue.None {
			t.Errorf("Priority() = %v, want %v", got, issue.None)
		}
	})

	t.Run("bug crosses the threshold at exactly 24h", func(t *testing.T) {
		clk := clock.NewMock(t0)
		iss := mustNew(t, issue.Bug, clk)
		mustAdvance(t, clk, 23*time.Hour+59*time.Minute+59*time.Second)
		if got := iss.Priority(); got != issue.Concerning {
			t.Fatalf("Priority() at 23h59m59s = %v, want %v", got, issue.Concerning)
		}
		mustAdvance(t, clk, time.Second)
		if got := iss.Priority(); got != issue.Immediate {
			t.Errorf("Priority() at 24h = %v, want %v", got, issue.Immediate)
		}
	})

	t.Run("other is immediate without any advance", func(t *testing.T) {
		clk := clock.NewMock(t0)
		iss := mustNew(t, issue.Other, clk)
		if got := iss.Priority(); got != issue.Immediate {
			t.Errorf("Priority() = %v, want %v", got, issue.Immediate)
		}
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		severity issue.Severity
		elapsed  time.Duration
		want     issue.Priority
	}{
		{"feature fresh", issue.Feature, 0, issue.None},
		{"feature ancient", issue.Feature, 10000 * time.Hour, issue.None},
		{"bug fresh", issue.Bug, 0, issue.Concerning},
		{"bug one nanosecond short", issue.Bug, issue.EscalationThreshold - time.Nanosecond, issue.Concerning},
		{"bug at threshold", issue.Bug, issue.EscalationThreshold, issue.Immediate},
		{"bug past threshold", issue.Bug, 3 * issue.EscalationThreshold, issue.Immediate},
		{"other fresh", issue.Other, 0, issue.Immediate},
		{"other aged", issue.Other, 48 * time.Hour, issue.Immediate},
		{"unknown severity", issue.Severity("security"), 0, issue.Immediate},
		{"empty severity", issue.Severity(""), time.Hour, issue.Immediate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := issue.Classify(tt.severity, tt.elapsed); got != tt.want {
				t.Errorf("Classify(%q, %v) = %v, want %v", tt.severity, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestPriority_RereadsClockEveryCall(t *testing.T) {
	clk := &countingClock{t: t0}
	iss := mustNew(t, issue.Bug, clk)
	if clk.calls != 1 {
		t.Fatalf("New read the clock %d times, want 1", clk.calls)
	}

	first := iss.Priority()
	second := iss.Priority()
	if first != second {
		t.Errorf("Priority() not idempotent: %v then %v", first, second)
	}
	if clk.calls != 3 {
		t.Errorf("clock read %d times after two queries, want 3", clk.calls)
	}

	clk.t = t0.Add(25 * time.Hour)
	if got := iss.Priority(); got != issue.Immediate {
		t.Errorf("Priority() after clock change = %v, want %v", got, issue.Immediate)
	}
}

func TestPriority_BugIsMonotonic(t *testing.T) {
	clk := clock.NewMock(t0)
	iss := mustNew(t, issue.Bug, clk)

	prev := iss.Priority()
	for range 60 {
		mustAdvance(t, clk, 47*time.Minute)
		got := iss.Priority()
		if got == issue.None {
			t.Fatalf("bug classified as %v", got)
		}
		if got < prev {
			t.Fatalf("priority decreased from %v to %v at %v", prev, got, iss.Elapsed())
		}
		prev = got
	}
	if prev != issue.Immediate {
		t.Errorf("final priority = %v, want %v", prev, issue.Immediate)
	}
}

func TestPriority_SharedClock(t *testing.T) {
	clk := clock.NewMock(t0)
	older := mustNew(t, issue.Bug, clk)
	mustAdvance(t, clk, 12*time.Hour)
	newer := mustNew(t, issue.Bug, clk)
	mustAdvance(t, clk, 12*time.Hour)

	if got := older.Priority(); got != issue.Immediate {
		t.Errorf("older.Priority() = %v, want %v", got, issue.Immediate)
	}
	if got := newer.Priority(); got != issue.Concerning {
		t.Errorf("newer.Priority() = %v, want %v", got, issue.Concerning)
	}
}

func TestElapsed_ClockSetBackwards(t *testing.T) {
	clk := clock.NewMock(t0)
	iss := mustNew(t, issue.Bug, clk)

	clk.Set(t0.Add(-time.Hour))

	if got := iss.Elapsed(); got != 0 {
		t.Errorf("Elapsed() = %v, want 0", got)
	}
	if got := iss.Priority(); got != issue.Concerning {
		t.Errorf("Priority() = %v, want %v", got, issue.Concerning)
	}
}
