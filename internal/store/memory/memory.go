// Package memory provides an in-process event store. Events live only as
// long as the process does.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/jensholdgaard/issue-triage-bot/internal/clock"
	"github.com/jensholdgaard/issue-triage-bot/internal/config"
	"github.com/jensholdgaard/issue-triage-bot/internal/event"
	"github.com/jensholdgaard/issue-triage-bot/internal/store"
)

func init() {
	store.Register("memory", openMemory)
}

func openMemory(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{
		Events: NewEventStore(clk),
		Closer: store.CloserFunc(func() error { return nil }),
		Ping:   func(context.Context) error { return nil },
	}, nil
}

type aggregateVersion struct {
	aggregateID string
	version     int
}

// EventStore implements event.Store in memory. It is safe for concurrent use.
type EventStore struct {
	mu     sync.RWMutex
	events []event.Event
	seen   map[aggregateVersion]struct{}
	nextID int64
	clock  clock.Clock
}

// NewEventStore returns an empty EventStore. Events appended without a
// CreatedAt are stamped from clk.
func NewEventStore(clk clock.Clock) *EventStore {
	return &EventStore{
		seen:  make(map[aggregateVersion]struct{}),
		clock: clk,
	}
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[aggregateVersion]struct{}, len(events))
	for _, e := range events {
		key := aggregateVersion{e.AggregateID, e.Version}
		_, stored := s.seen[key]
		_, dup := batch[key]
		if stored || dup {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): %w", e.AggregateID, e.Version, event.ErrVersionConflict)
		}
		batch[key] = struct{}{}
	}

	for _, e := range events {
		s.nextID++
		e.ID = strconv.FormatInt(s.nextID, 10)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now()
		}
		s.events = append(s.events, e)
		s.seen[aggregateVersion{e.AggregateID, e.Version}] = struct{}{}
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
