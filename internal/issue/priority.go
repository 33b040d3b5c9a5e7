package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPriority is returned when parsing an unrecognised priority name.
var ErrUnknownPriority = errors.New("unknown priority")

// Priority is the derived urgency of an issue. Values are ordered, so
// comparisons like p > Concerning are meaningful.
type Priority int

const (
	None Priority = iota
	Concerning
	Immediate
)

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{None, Concerning, Immediate}

func (p Priority) String() string {
	switch p {
	case None:
		return "none"
	case Concerning:
		return "concerning"
	case Immediate:
		return "immediate"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority is the inverse of Priority.String.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return None, nil
	case "concerning":
		return Concerning, nil
	case "immediate":
		return Immediate, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if p < None || p > Immediate {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriority, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	v, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
