package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/issue-triage-bot/internal/event"
	"github.com/jensholdgaard/issue-triage-bot/internal/store/postgres"
)

func TestEventStore_AppendAndLoad(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	aggID := "01JXAMPLE0000000000000000"
	events := []event.Event{
		{AggregateID: aggID, Type: event.IssueReported, Data: json.RawMessage(`{"title":"login fails"}`), Version: 1, CreatedAt: at},
		{AggregateID: aggID, Type: event.IssueEscalated, Data: json.RawMessage(`{"from":"concerning","to":"immediate"}`), Version: 2, CreatedAt: at.Add(24 * time.Hour)},
	}

	if err := es.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err := es.Load(ctx, aggID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load returned %d events, want 2", len(loaded))
	}

	// Should be ordered by version.
	if loaded[0].Version != 1 || loaded[1].Version != 2 {
		t.Errorf("versions = [%d, %d], want [1, 2]", loaded[0].Version, loaded[1].Version)
	}
	if loaded[0].Type != event.IssueReported {
		t.Errorf("event[0].Type = %q, want %q", loaded[0].Type, event.IssueReported)
	}
	if !loaded[1].CreatedAt.Equal(at.Add(24 * time.Hour)) {
		t.Errorf("event[1].CreatedAt = %v, want %v", loaded[1].CreatedAt, at.Add(24*time.Hour))
	}
}

func TestEventStore_DefaultsCreatedAt(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	if err := es.Append(ctx, event.Event{AggregateID: "no-time", Type: event.IssueReported, Version: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	loaded, err := es.Load(ctx, "no-time")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].CreatedAt.IsZero() {
		t.Fatalf("expected one event with a database timestamp, got %+v", loaded)
	}
}

func TestEventStore_LoadByType(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	events := []event.Event{
		{AggregateID: "a1", Type: event.IssueReported, Data: json.RawMessage(`{}`), Version: 1},
		{AggregateID: "a1", Type: event.IssueEscalated, Data: json.RawMessage(`{}`), Version: 2},
		{AggregateID: "a2", Type: event.IssueReported, Data: json.RawMessage(`{}`), Version: 1},
	}

	if err := es.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reported, err := es.LoadByType(ctx, event.IssueReported)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(reported) != 2 {
		t.Fatalf("LoadByType(IssueReported) returned %d, want 2", len(reported))
	}

	escalated, err := es.LoadByType(ctx, event.IssueEscalated)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(escalated) != 1 {
		t.Fatalf("LoadByType(IssueEscalated) returned %d, want 1", len(escalated))
	}
}

func TestEventStore_UniqueAggregateVersion(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	e := event.Event{
		AggregateID: "dup-test",
		Type:        event.IssueReported,
		Data:        json.RawMessage(`{}`),
		Version:     1,
	}

	if err := es.Append(ctx, e); err != nil {
		t.Fatalf("first Append: %v", err)
	}

	// Duplicate version for the same aggregate should fail.
	err := es.Append(ctx, e)
	if !errors.Is(err, event.ErrVersionConflict) {
		t.Fatalf("duplicate Append error = %v, want %v", err, event.ErrVersionConflict)
	}
}

func TestEventStore_LoadEmpty(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	loaded, err := es.Load(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty slice, got %d events", len(loaded))
	}
}
