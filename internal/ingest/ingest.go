// Package ingest connects an ingestion source to the store and the
// coalescer: every reading is stored, then the notification kinds it makes
// stale are raised.
package ingest

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/coalesce"
	"github.com/luki/roomtemps/internal/reading"
	"github.com/luki/roomtemps/internal/store"
)

// Selection is the room chosen for detailed viewing. It is written by the
// consumer and read by the producer on every ingest. The zero value means
// "all rooms".
type Selection struct {
	mu   sync.RWMutex
	room string
	one  bool
}

// Set selects a single room.
func (s *Selection) Set(room string) {
	s.mu.Lock()
	s.room, s.one = room, true
	s.mu.Unlock()
}

// SetAll switches to the all-rooms view.
func (s *Selection) SetAll() {
	s.mu.Lock()
	s.room, s.one = "", false
	s.mu.Unlock()
}

// Get returns the selected room; all is true in all-rooms mode.
func (s *Selection) Get() (room string, all bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room, !s.one
}

// Matches reports whether a change to room affects the current display.
func (s *Selection) Matches(room string) bool {
	selected, all := s.Get()
	return all || selected == room
}

// Notifier receives the notification kinds raised by an ingest.
type Notifier interface {
	Notify(k coalesce.Kind) bool
}

// Pipeline is the single producer-side entry point.
type Pipeline struct {
	store     *store.Store
	notifier  Notifier
	selection *Selection
	logger    *zap.SugaredLogger
}

// NewPipeline creates a Pipeline. A nil selection means all rooms.
func NewPipeline(s *store.Store, n Notifier, sel *Selection, logger *zap.SugaredLogger) *Pipeline {
	if sel == nil {
		sel = &Selection{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{store: s, notifier: n, selection: sel, logger: logger}
}

// Selection returns the selection shared with the consumer.
func (p *Pipeline) Selection() *Selection { return p.selection }

// Handle stores one reading and raises the affected notification kinds:
// Summary always, RoomList when the room is new, Display when the room is
// the selected one or all rooms are shown.
func (p *Pipeline) Handle(roomID string, t time.Time, value float64, category reading.Category) store.IngestResult {
	res := p.store.Ingest(roomID, t, value, category)
	if !res.Accepted() {
		p.logger.Warnw("reading rejected", "room", roomID, "category", category.String(), "reason", res.Outcome.String())
		return res
	}

	p.logger.Debugw("reading stored",
		"room", roomID,
		"category", category.String(),
		"value", value,
		"timestamp", t.Format(time.RFC3339),
		"new_room", res.WasNewRoom,
	)

	p.notifier.Notify(coalesce.Summary)
	if res.WasNewRoom {
		p.notifier.Notify(coalesce.RoomList)
	}
	if p.selection.Matches(roomID) {
		p.notifier.Notify(coalesce.Display)
	}
	return res
}

// HandleCode is Handle for a raw transport category code. Unknown codes are
// rejected without touching the store.
func (p *Pipeline) HandleCode(roomID string, t time.Time, value float64, code string) store.IngestResult {
	category, err := reading.ParseCode(code)
	if err != nil {
		p.logger.Warnw("reading rejected", "room", roomID, "code", code, "error", err)
		return store.IngestResult{Outcome: store.RejectedUnknownCategory}
	}
	return p.Handle(roomID, t, value, category)
}
