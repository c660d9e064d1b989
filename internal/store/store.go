// Package store holds the in-memory, per-room temperature state shared
// between the ingestion source and the presentation. Rooms are created
// lazily on first ingest and live for the process lifetime.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/luki/roomtemps/internal/history"
	"github.com/luki/roomtemps/internal/reading"
)

// Outcome is the result code of an Ingest call.
type Outcome uint8

const (
	Accepted Outcome = iota
	RejectedUnknownCategory
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "rejected: unknown category"
}

// IngestResult tells the caller which notifications an Ingest makes relevant.
type IngestResult struct {
	Outcome    Outcome
	WasNewRoom bool
	Category   reading.Category
}

// Accepted reports whether the reading was stored.
func (r IngestResult) Accepted() bool { return r.Outcome == Accepted }

// roomState is owned exclusively by the Store.
type roomState struct {
	environment *history.Buffer
	reference   *history.Buffer
	lastRefAt   time.Time
	hasRef      bool
}

func newRoomState(capacity int) *roomState {
	return &roomState{
		environment: history.NewBuffer(capacity),
		reference:   history.NewBuffer(capacity),
	}
}

// RoomView is an immutable copy of one room's state.
type RoomView struct {
	ID          string
	Environment []reading.Reading // append order
	Reference   []reading.Reading // append order

	lastRefAt time.Time
	hasRef    bool
}

// NewRoomView builds a view directly, mainly for tests and tools that
// evaluate alerts without a store.
func NewRoomView(id string, env, ref []reading.Reading, lastRefAt time.Time, hasRef bool) RoomView {
	return RoomView{ID: id, Environment: env, Reference: ref, lastRefAt: lastRefAt, hasRef: hasRef}
}

// LastReferenceTime returns the timestamp of the most recently ingested
// Reference reading; ok is false if none was ever ingested.
func (v RoomView) LastReferenceTime() (t time.Time, ok bool) {
	return v.lastRefAt, v.hasRef
}

// LatestEnvironment returns the most recently appended environment reading.
func (v RoomView) LatestEnvironment() (reading.Reading, bool) {
	return latest(v.Environment)
}

// LatestReference returns the most recently appended reference reading.
func (v RoomView) LatestReference() (reading.Reading, bool) {
	return latest(v.Reference)
}

// SortedEnvironment returns the environment readings in chronological order.
// Equal timestamps keep append order.
func (v RoomView) SortedEnvironment() []reading.Reading {
	out := make([]reading.Reading, len(v.Environment))
	copy(out, v.Environment)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func latest(rs []reading.Reading) (reading.Reading, bool) {
	if len(rs) == 0 {
		return reading.Reading{}, false
	}
	return rs[len(rs)-1], true
}

// Store maps room ids to their state. All methods are safe for concurrent
// use; each Ingest is a single indivisible transition with respect to the
// snapshot methods.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*roomState
	capacity int
}

// New creates an empty store retaining capacity readings per series.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = history.DefaultCapacity
	}
	return &Store{
		rooms:    make(map[string]*roomState),
		capacity: capacity,
	}
}

// Capacity returns the per-series capacity.
func (s *Store) Capacity() int { return s.capacity }

// Ingest appends a reading to the room's series for category. Unknown
// categories are rejected without any state change.
func (s *Store) Ingest(roomID string, t time.Time, value float64, category reading.Category) IngestResult {
	if !category.Valid() {
		return IngestResult{Outcome: RejectedUnknownCategory, Category: category}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.rooms[roomID]
	if !ok {
		rs = newRoomState(s.capacity)
		s.rooms[roomID] = rs
	}

	r := reading.New(t, value)
	switch category {
	case reading.Environment:
		rs.environment.Append(r)
	case reading.Reference:
		rs.reference.Append(r)
		rs.lastRefAt = t
		rs.hasRef = true
	}

	return IngestResult{Outcome: Accepted, WasNewRoom: !ok, Category: category}
}

// RoomIDs returns the known room ids, sorted.
func (s *Store) RoomIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// HasRoom reports whether roomID has been ingested at least once.
func (s *Store) HasRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// RoomSnapshot returns a copy of one room's state; ok is false for an
// unknown room.
func (s *Store) RoomSnapshot(roomID string) (RoomView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.rooms[roomID]
	if !ok {
		return RoomView{}, false
	}
	return rs.view(roomID), true
}

// AllSnapshots returns a copy of every room's state, taken under one lock.
func (s *Store) AllSnapshots() map[string]RoomView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]RoomView, len(s.rooms))
	for id, rs := range s.rooms {
		out[id] = rs.view(id)
	}
	return out
}

func (rs *roomState) view(id string) RoomView {
	return RoomView{
		ID:          id,
		Environment: rs.environment.Snapshot(),
		Reference:   rs.reference.Snapshot(),
		lastRefAt:   rs.lastRefAt,
		hasRef:      rs.hasRef,
	}
}
