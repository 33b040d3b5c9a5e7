package issue_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
)

func TestPriority_Ordering(t *testing.T) {
	if !(issue.None < issue.Concerning && issue.Concerning < issue.Immediate) {
		t.Fatalf("priorities out of order: %d %d %d", issue.None, issue.Concerning, issue.Immediate)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    issue.Priority
		wantErr bool
	}{
		{"none", issue.None, false},
		{"Concerning", issue.Concerning, false},
		{" IMMEDIATE ", issue.Immediate, false},
		{"urgent", issue.None, true},
		{"", issue.None, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := issue.ParsePriority(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePriority(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, issue.ErrUnknownPriority) {
				t.Errorf("error %v does not wrap ErrUnknownPriority", err)
			}
			if got != tt.want {
				t.Errorf("ParsePriority(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPriority_JSON(t *testing.T) {
	type payload struct {
		From issue.Priority `json:"from"`
		To   issue.Priority `json:"to"`
	}

	data, err := json.Marshal(payload{From: issue.Concerning, To: issue.Immediate})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got, want := string(data), `{"from":"concerning","to":"immediate"}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	if _, err := json.Marshal(payload{From: issue.Priority(7)}); err == nil {
		t.Error("Marshal of out-of-range priority succeeded, want error")
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"from":"bogus","to":"none"}`), &p); err == nil {
		t.Error("Unmarshal of unknown priority succeeded, want error")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in        string
		want      issue.Severity
		wantKnown bool
		wantErr   error
	}{
		{"feature", issue.Feature, true, nil},
		{" Bug ", issue.Bug, true, nil},
		{"OTHER", issue.Other, true, nil},
		{"Security", issue.Severity("security"), false, nil},
		{"   ", "", false, issue.ErrEmptySeverity},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := issue.ParseSeverity(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseSeverity(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got.Known() != tt.wantKnown {
				t.Errorf("%q.Known() = %v, want %v", got, got.Known(), tt.wantKnown)
			}
		})
	}
}
