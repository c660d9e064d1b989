// Package history provides a fixed-capacity ring buffer of readings for one
// (room, category) series, with FIFO eviction and retained-window statistics.
package history

import (
	"github.com/luki/roomtemps/internal/reading"
)

// DefaultCapacity is the number of readings retained per series when no
// capacity is configured.
const DefaultCapacity = 10

// Buffer stores the most recent readings of one series in append order.
// Appending to a full buffer evicts the oldest element. Buffer is not safe
// for concurrent use; the store serializes access.
type Buffer struct {
	points []reading.Reading
	start  int // index of the oldest element
	size   int
}

// NewBuffer creates a new ring buffer with the given capacity. A capacity
// below one is raised to one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{points: make([]reading.Reading, capacity)}
}

// Append adds r at the tail, evicting the head when the buffer is full.
func (b *Buffer) Append(r reading.Reading) {
	capacity := len(b.points)
	if b.size < capacity {
		b.points[(b.start+b.size)%capacity] = r
		b.size++
		return
	}
	b.points[b.start] = r
	b.start = (b.start + 1) % capacity
}

// Latest returns the most recently appended reading.
func (b *Buffer) Latest() (reading.Reading, bool) {
	if b.size == 0 {
		return reading.Reading{}, false
	}
	return b.at(b.size - 1), true
}

// Snapshot returns a copy of the retained readings in append order.
func (b *Buffer) Snapshot() []reading.Reading {
	return b.LastN(b.size)
}

// LastN returns a copy of the last n readings in append order.
func (b *Buffer) LastN(n int) []reading.Reading {
	if n <= 0 || b.size == 0 {
		return nil
	}
	if n > b.size {
		n = b.size
	}
	out := make([]reading.Reading, n)
	offset := b.size - n
	for i := range out {
		out[i] = b.at(offset + i)
	}
	return out
}

// IsEmpty reports whether no reading is retained.
func (b *Buffer) IsEmpty() bool { return b.size == 0 }

// Len returns the number of retained readings.
func (b *Buffer) Len() int { return b.size }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.points) }

func (b *Buffer) at(i int) reading.Reading {
	return b.points[(b.start+i)%len(b.points)]
}

// Stats summarizes the values of a series over its retained window.
type Stats struct {
	Min  float64
	Peak float64
	Avg  float64
}

// Summarize computes min/peak/avg over readings. ok is false for an empty
// slice.
func Summarize(readings []reading.Reading) (s Stats, ok bool) {
	if len(readings) == 0 {
		return Stats{}, false
	}
	s.Min = readings[0].Value
	s.Peak = readings[0].Value
	sum := 0.0
	for _, r := range readings {
		if r.Value < s.Min {
			s.Min = r.Value
		}
		if r.Value > s.Peak {
			s.Peak = r.Value
		}
		sum += r.Value
	}
	s.Avg = sum / float64(len(readings))
	return s, true
}

// Stats summarizes the retained window.
func (b *Buffer) Stats() (Stats, bool) {
	return Summarize(b.Snapshot())
}
