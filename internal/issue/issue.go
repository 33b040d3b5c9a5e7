package issue

import (
	"errors"
	"time"

	"github.com/jensholdgaard/issue-triage-bot/internal/clock"
)

// EscalationThreshold is the age at which a Bug becomes Immediate.
const EscalationThreshold = 24 * time.Hour

// ErrNilClock is returned by New when no clock is supplied.
var ErrNilClock = errors.New("issue: clock is required")

// Issue is a reported issue with a fixed severity and creation time.
// The clock is borrowed and may be shared with other issues.
type Issue struct {
	severity  Severity
	createdAt time.Time
	clock     clock.Clock
}

// New creates an Issue stamped with clk.Now().
func New(severity Severity, clk clock.Clock) (*Issue, error) {
	if clk == nil {
		return nil, ErrNilClock
	}
	return &Issue{
		severity:  severity,
		createdAt: clk.Now(),
		clock:     clk,
	}, nil
}

// Severity returns the severity the issue was created with.
func (i *Issue) Severity() Severity { return i.severity }

// CreatedAt returns the creation instant.
func (i *Issue) CreatedAt() time.Time { return i.createdAt }

// Elapsed returns the time since creation according to the issue's clock.
// A clock set back before the creation instant yields zero.
func (i *Issue) Elapsed() time.Duration {
	d := i.clock.Now().Sub(i.createdAt)
	if d < 0 {
		return 0
	}
	return d
}

// Priority classifies the issue at the clock's current reading.
func (i *Issue) Priority() Priority {
	return Classify(i.severity, i.Elapsed())
}

// Classify applies the priority policy to a severity and age.
func Classify(severity Severity, elapsed time.Duration) Priority {
	switch severity {
	case Feature:
		return None
	case Bug:
		if elapsed < EscalationThreshold {
			return Concerning
		}
		return Immediate
	default:
		return Immediate
	}
}
