package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jensholdgaard/issue-triage-bot/internal/event"
	"github.com/jensholdgaard/issue-triage-bot/internal/triage"
)

// maxListed caps list replies well below Discord's 2000 character limit.
const maxListed = 20

// FormatAge renders a duration as days, hours and minutes.
func FormatAge(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatSnapshot renders one open issue on a single line.
func FormatSnapshot(s triage.Snapshot) string {
	return fmt.Sprintf("`%s` **%s** [%s] priority **%s**, open %s",
		s.ID, s.Title, s.Severity, s.Priority, FormatAge(s.Age))
}

// FormatList renders the open issues in the order given.
func FormatList(snaps []triage.Snapshot) string {
	if len(snaps) == 0 {
		return "No open issues."
	}

	var b strings.Builder
	b.WriteString("**Open issues:**\n")
	for idx, s := range snaps {
		if idx == maxListed {
			fmt.Fprintf(&b, "...and %d more\n", len(snaps)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", idx+1, FormatSnapshot(s))
	}
	return b.String()
}

// FormatEscalation renders an escalation notice.
func FormatEscalation(e triage.Escalation) string {
	return fmt.Sprintf("Escalated `%s` **%s** [%s] from %s to **%s** after %s",
		e.ID, e.Title, e.Severity, e.From, e.To, FormatAge(e.Age))
}

// FormatHistory renders the audit trail of one issue.
func FormatHistory(id string, events []event.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**History of `%s`:**\n", id)
	for _, e := range events {
		fmt.Fprintf(&b, "v%d %s %s\n", e.Version, e.CreatedAt.UTC().Format(time.DateTime), describe(e))
	}
	return b.String()
}

// FormatEscalationEvents renders escalation events from the audit trail.
func FormatEscalationEvents(events []event.Event) string {
	if len(events) == 0 {
		return "No escalations yet."
	}

	var b strings.Builder
	b.WriteString("**Recent escalations:**\n")
	for _, e := range events {
		fmt.Fprintf(&b, "%s `%s` %s\n", e.CreatedAt.UTC().Format(time.DateTime), e.AggregateID, describe(e))
	}
	return b.String()
}

func describe(e event.Event) string {
	switch e.Type {
	case event.IssueReported:
		var d event.IssueReportedData
		if err := e.Decode(&d); err != nil {
			return "reported (unreadable)"
		}
		return fmt.Sprintf("reported by <@%s> as %s (%s): %s", d.Reporter, d.Severity, d.Priority, d.Title)
	case event.IssueEscalated:
		var d event.IssueEscalatedData
		if err := e.Decode(&d); err != nil {
			return "escalated (unreadable)"
		}
		return fmt.Sprintf("escalated from %s to %s after %s", d.From, d.To, FormatAge(d.Age))
	case event.IssueClosed:
		var d event.IssueClosedData
		if err := e.Decode(&d); err != nil {
			return "closed (unreadable)"
		}
		return fmt.Sprintf("closed by <@%s> at %s after %s", d.ClosedBy, d.Priority, FormatAge(d.Age))
	default:
		return string(e.Type)
	}
}
