// Package triage keeps the board of open issues, re-classifies them as time
// passes and records an audit trail of reports, escalations and closures.
//
// The board itself lives in memory only; the event store receives the audit
// trail but issues are never rebuilt from it.
package triage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/issue-triage-bot/internal/clock"
	"github.com/jensholdgaard/issue-triage-bot/internal/event"
	"github.com/jensholdgaard/issue-triage-bot/internal/issue"
	"github.com/jensholdgaard/issue-triage-bot/internal/telemetry"
)

// Errors returned by board operations.
var (
	ErrEmptyTitle = errors.New("issue title is empty")
	ErrNotFound   = errors.New("issue not found")
)

// Snapshot is a point-in-time view of an open issue.
type Snapshot struct {
	ID        string
	Title     string
	Reporter  string
	Severity  issue.Severity
	CreatedAt time.Time
	Age       time.Duration
	Priority  issue.Priority
}

// Escalation describes an issue whose priority rose during a sweep.
type Escalation struct {
	ID       string
	Title    string
	Severity issue.Severity
	From     issue.Priority
	To       issue.Priority
	Age      time.Duration
}

type entry struct {
	id       string
	title    string
	reporter string
	issue    *issue.Issue
	version  int
	// last is the priority most recently written to the audit trail.
	last issue.Priority
}

// Board tracks open issues. It is safe for concurrent use; all mutations,
// including their audit append, are serialised by one mutex.
type Board struct {
	mu      sync.Mutex
	entries map[string]*entry
	entropy io.Reader

	events event.Store
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewBoard creates an empty Board. Issues are stamped and classified with clk.
func NewBoard(events event.Store, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Board {
	return &Board{
		entries: make(map[string]*entry),
		entropy: ulid.Monotonic(rand.Reader, 0),
		events:  events,
		logger:  logger,
		tracer:  tp.Tracer("github.com/jensholdgaard/issue-triage-bot/internal/triage"),
		clock:   clk,
	}
}

// Report opens a new issue and records an issue.reported event. Nothing is
// tracked if the event cannot be stored.
func (b *Board) Report(ctx context.Context, title, reporter string, severity issue.Severity) (Snapshot, error) {
	ctx, span := b.tracer.Start(ctx, "Board.Report",
		trace.WithAttributes(
			attribute.String("severity", severity.String()),
			attribute.String("reporter", reporter),
		),
	)
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		return Snapshot{}, ErrEmptyTitle
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	iss, err := issue.New(severity, b.clock)
	if err != nil {
		return Snapshot{}, fmt.Errorf("creating issue: %w", err)
	}

	id, err := ulid.New(ulid.Timestamp(iss.CreatedAt()), b.entropy)
	if err != nil {
		return Snapshot{}, fmt.Errorf("generating issue id: %w", err)
	}

	e := &entry{
		id:       id.String(),
		title:    title,
		reporter: reporter,
		issue:    iss,
		version:  1,
	}
	snap := e.snapshot()
	e.last = snap.Priority

	evt, err := event.New(e.id, event.IssueReported, e.version, iss.CreatedAt(), event.IssueReportedData{
		Title:    title,
		Reporter: reporter,
		Severity: severity,
		Priority: snap.Priority,
	})
	if err != nil {
		return Snapshot{}, err
	}
	if err := b.events.Append(ctx, evt); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, fmt.Errorf("persisting issue reported event: %w", err)
	}

	b.entries[e.id] = e
	span.SetAttributes(attribute.String("issue.id", e.id))

	telemetry.LogWithTrace(ctx, b.logger).InfoContext(ctx, "issue reported",
		slog.String("issue_id", e.id),
		slog.String("severity", severity.String()),
		slog.String("priority", snap.Priority.String()),
	)
	return snap, nil
}

// Get returns the current view of an open issue.
func (b *Board) Get(ctx context.Context, id string) (Snapshot, error) {
	_, span := b.tracer.Start(ctx, "Board.Get",
		trace.WithAttributes(attribute.String("issue.id", id)),
	)
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	snap := e.snapshot()
	span.SetAttributes(attribute.String("priority", snap.Priority.String()))
	return snap, nil
}

// List returns every open issue, most urgent first, then oldest first.
func (b *Board) List(ctx context.Context) []Snapshot {
	_, span := b.tracer.Start(ctx, "Board.List")
	defer span.End()

	b.mu.Lock()
	snaps := make([]Snapshot, 0, len(b.entries))
	for _, e := range b.entries {
		snaps = append(snaps, e.snapshot())
	}
	b.mu.Unlock()

	sort.Slice(snaps, func(i, j int) bool {
		a, c := snaps[i], snaps[j]
		if a.Priority != c.Priority {
			return a.Priority > c.Priority
		}
		if !a.CreatedAt.Equal(c.CreatedAt) {
			return a.CreatedAt.Before(c.CreatedAt)
		}
		return a.ID < c.ID
	})
	span.SetAttributes(attribute.Int("issues", len(snaps)))
	return snaps
}

// Close records an issue.closed event and removes the issue from the board.
// It returns the issue as it stood when closed.
func (b *Board) Close(ctx context.Context, id, closedBy string) (Snapshot, error) {
	ctx, span := b.tracer.Start(ctx, "Board.Close",
		trace.WithAttributes(
			attribute.String("issue.id", id),
			attribute.String("closed_by", closedBy),
		),
	)
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	snap := e.snapshot()

	evt, err := event.New(id, event.IssueClosed, e.version+1, b.clock.Now(), event.IssueClosedData{
		ClosedBy: closedBy,
		Priority: snap.Priority,
		Age:      snap.Age,
	})
	if err != nil {
		return Snapshot{}, err
	}
	if err := b.events.Append(ctx, evt); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, fmt.Errorf("persisting issue closed event: %w", err)
	}

	delete(b.entries, id)

	telemetry.LogWithTrace(ctx, b.logger).InfoContext(ctx, "issue closed",
		slog.String("issue_id", id),
		slog.String("closed_by", closedBy),
		slog.Duration("age", snap.Age),
	)
	return snap, nil
}

// Sweep re-classifies every open issue and records an issue.escalated event
// for each one whose priority rose since it was last recorded. The events of
// one sweep are appended together; if that fails nothing is marked as
// escalated and the next sweep tries again.
func (b *Board) Sweep(ctx context.Context) ([]Escalation, error) {
	ctx, span := b.tracer.Start(ctx, "Board.Sweep")
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.entries))
	for id := range b.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := b.clock.Now()
	var (
		escalations []Escalation
		events      []event.Event
	)
	for _, id := range ids {
		e := b.entries[id]
		snap := e.snapshot()
		if snap.Priority <= e.last {
			continue
		}

		evt, err := event.New(id, event.IssueEscalated, e.version+1, now, event.IssueEscalatedData{
			From: e.last,
			To:   snap.Priority,
			Age:  snap.Age,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
		escalations = append(escalations, Escalation{
			ID:       id,
			Title:    e.title,
			Severity: snap.Severity,
			From:     e.last,
			To:       snap.Priority,
			Age:      snap.Age,
		})
	}

	span.SetAttributes(
		attribute.Int("issues", len(ids)),
		attribute.Int("escalations", len(escalations)),
	)
	if len(escalations) == 0 {
		return nil, nil
	}

	if err := b.events.Append(ctx, events...); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("persisting escalation events: %w", err)
	}

	log := telemetry.LogWithTrace(ctx, b.logger)
	for _, esc := range escalations {
		e := b.entries[esc.ID]
		e.version++
		e.last = esc.To

		log.InfoContext(ctx, "issue escalated",
			slog.String("issue_id", esc.ID),
			slog.String("from", esc.From.String()),
			slog.String("to", esc.To.String()),
			slog.Duration("age", esc.Age),
		)
	}
	return escalations, nil
}

// RunSweeper sweeps every interval until ctx is done, passing each
// escalation to notify. Sweep errors are logged and retried on the next tick.
func (b *Board) RunSweeper(ctx context.Context, interval time.Duration, notify func(context.Context, Escalation)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.InfoContext(ctx, "escalation sweeper started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("escalation sweeper stopped")
			return
		case <-ticker.C:
			escalations, err := b.Sweep(ctx)
			if err != nil {
				b.logger.ErrorContext(ctx, "escalation sweep failed", slog.Any("error", err))
				continue
			}
			if notify == nil {
				continue
			}
			for _, esc := range escalations {
				notify(ctx, esc)
			}
		}
	}
}

// History returns the audit trail of an issue, open or closed.
func (b *Board) History(ctx context.Context, id string) ([]event.Event, error) {
	ctx, span := b.tracer.Start(ctx, "Board.History",
		trace.WithAttributes(attribute.String("issue.id", id)),
	)
	defer span.End()

	events, err := b.events.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading issue history: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	return events, nil
}

// RecentEscalations returns up to limit of the newest escalation events,
// oldest first. A non-positive limit returns all of them.
func (b *Board) RecentEscalations(ctx context.Context, limit int) ([]event.Event, error) {
	ctx, span := b.tracer.Start(ctx, "Board.RecentEscalations")
	defer span.End()

	events, err := b.events.LoadByType(ctx, event.IssueEscalated)
	if err != nil {
		return nil, fmt.Errorf("loading escalations: %w", err)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// snapshot classifies the entry from a single clock reading so Age and
// Priority agree.
func (e *entry) snapshot() Snapshot {
	age := e.issue.Elapsed()
	return Snapshot{
		ID:        e.id,
		Title:     e.title,
		Reporter:  e.reporter,
		Severity:  e.issue.Severity(),
		CreatedAt: e.issue.CreatedAt(),
		Age:       age,
		Priority:  issue.Classify(e.issue.Severity(), age),
	}
}
