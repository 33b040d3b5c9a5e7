package issue

import (
	"errors"
	"strings"
)

// ErrEmptySeverity is returned when parsing a blank severity.
var ErrEmptySeverity = errors.New("severity is empty")

// Severity is the reported class of an issue.
type Severity string

const (
	Feature Severity = "feature"
	Bug     Severity = "bug"
	Other   Severity = "other"
)

// ParseSeverity normalises s into a Severity. Words other than the known
// constants are kept verbatim (lower-cased) and classify like Other.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrEmptySeverity
	}
	return Severity(s), nil
}

// Known reports whether s is one of Feature, Bug or Other.
func (s Severity) Known() bool {
	switch s {
	case Feature, Bug, Other:
		return true
	}
	return false
}

func (s Severity) String() string { return string(s) }
