// Package coalesce turns a high-frequency stream of "state changed" events
// from the ingestion side into at most one deferred refresh per kind and
// debounce interval, delivered on the consumer's execution context.
package coalesce

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Kind identifies one class of recomputation on the consumer side.
type Kind uint8

const (
	Summary Kind = iota
	RoomList
	Display

	numKinds
)

// Kinds lists every notification kind.
var Kinds = [...]Kind{Summary, RoomList, Display}

func (k Kind) String() string {
	switch k {
	case Summary:
		return "summary"
	case RoomList:
		return "room-list"
	case Display:
		return "display"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Default debounce intervals. Room-list and display refreshes only wait for
// the consumer to become idle.
const (
	DefaultSummaryInterval  = 100 * time.Millisecond
	DefaultRoomListInterval = time.Millisecond
	DefaultDisplayInterval  = time.Millisecond
)

// Executor runs functions on the consumer's single-threaded context. Post
// must not block the caller and must run posted functions one at a time in
// posting order.
type Executor interface {
	Post(fn func())
}

// Handlers are the consumer callbacks, one per kind. Nil handlers are
// skipped.
type Handlers struct {
	OnSummaryChanged  func()
	OnRoomListChanged func()
	OnDisplayChanged  func()
}

// Intervals holds the debounce window per kind.
type Intervals struct {
	Summary  time.Duration
	RoomList time.Duration
	Display  time.Duration
}

// DefaultIntervals returns the default debounce windows.
func DefaultIntervals() Intervals {
	return Intervals{
		Summary:  DefaultSummaryInterval,
		RoomList: DefaultRoomListInterval,
		Display:  DefaultDisplayInterval,
	}
}

// Coalescer tracks one pending flag and at most one scheduled flush per
// kind. A Notify for a kind that is already pending neither schedules
// another flush nor extends the window, so a continuous burst is delivered
// with at most one interval of latency.
type Coalescer struct {
	mu        sync.Mutex
	pending   [numKinds]bool
	timers    [numKinds]*time.Timer
	closed    bool
	intervals [numKinds]time.Duration
	handlers  [numKinds]func()
	flushes   [numKinds]atomic.Uint64
	exec      Executor
	logger    *zap.SugaredLogger
}

// New creates a Coalescer delivering flushes through exec.
func New(exec Executor, iv Intervals, h Handlers, logger *zap.SugaredLogger) *Coalescer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &Coalescer{exec: exec, logger: logger}
	c.intervals[Summary] = iv.Summary
	c.intervals[RoomList] = iv.RoomList
	c.intervals[Display] = iv.Display
	c.handlers[Summary] = h.OnSummaryChanged
	c.handlers[RoomList] = h.OnRoomListChanged
	c.handlers[Display] = h.OnDisplayChanged
	return c
}

// Notify marks k pending and schedules its flush unless one is already
// scheduled. It reports whether a new flush was scheduled. Notify never
// waits on the consumer.
func (c *Coalescer) Notify(k Kind) bool {
	if k >= numKinds {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.pending[k] {
		return false
	}
	c.pending[k] = true
	c.timers[k] = time.AfterFunc(c.intervals[k], func() {
		c.exec.Post(func() { c.flush(k) })
	})
	return true
}

// Pending reports whether a flush for k is scheduled but not yet run.
func (c *Coalescer) Pending(k Kind) bool {
	if k >= numKinds {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[k]
}

// Flushes returns how many times the handler for k has been invoked.
func (c *Coalescer) Flushes(k Kind) uint64 {
	if k >= numKinds {
		return 0
	}
	return c.flushes[k].Load()
}

// Close stops every scheduled flush. Later Notify calls are ignored.
func (c *Coalescer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for k, t := range c.timers {
		if t != nil {
			t.Stop()
			c.timers[k] = nil
		}
		c.pending[k] = false
	}
}

// flush runs on the consumer context. The pending flag is cleared before the
// handler reads state, so any change after this point schedules a new flush.
func (c *Coalescer) flush(k Kind) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending[k] = false
	c.timers[k] = nil
	h := c.handlers[k]
	c.mu.Unlock()

	c.flushes[k].Add(1)
	c.logger.Debugw("flush", "kind", k.String())
	if h != nil {
		h()
	}
}
