package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
)

// Type identifies an event kind.
type Type string

const (
	IssueReported  Type = "issue.reported"
	IssueEscalated Type = "issue.escalated"
	IssueClosed    Type = "issue.closed"
)

// Event represents a single entry in an issue's audit trail.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// IssueReportedData is the payload for IssueReported events.
type IssueReportedData struct {
	Title    string         `json:"title"`
	Reporter string         `json:"reporter"`
	Severity issue.Severity `json:"severity"`
	Priority issue.Priority `json:"priority"`
}

// IssueEscalatedData is the payload for IssueEscalated events.
type IssueEscalatedData struct {
	From issue.Priority `json:"from"`
	To   issue.Priority `json:"to"`
	Age  time.Duration  `json:"age"`
}

// IssueClosedData is the payload for IssueClosed events.
type IssueClosedData struct {
	ClosedBy string         `json:"closed_by"`
	Priority issue.Priority `json:"priority"`
	Age      time.Duration  `json:"age"`
}

// New builds an event with a JSON-encoded payload.
func New(aggregateID string, t Type, version int, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", t, err)
	}
	return Event{
		AggregateID: aggregateID,
		Type:        t,
		Data:        data,
		Version:     version,
		CreatedAt:   at,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}
