// Package alert decides whether a room's environment readings exceed the
// room's reference temperature. All functions are pure and operate on a
// store.RoomView snapshot.
//
// An environment reading is only judged against a reference that was
// already known when the reading was taken: readings older than the most
// recently ingested reference are never flagged.
package alert

import (
	"time"

	"github.com/luki/roomtemps/internal/reading"
	"github.com/luki/roomtemps/internal/store"
)

// DefaultThreshold is shown for rooms that never received a reference.
const DefaultThreshold = 25.0

// Status is the room-level alert state.
type Status uint8

const (
	NoData Status = iota
	Ok
	Alert
	AwaitingReference
)

func (s Status) String() string {
	switch s {
	case NoData:
		return "no data"
	case Ok:
		return "ok"
	case Alert:
		return "alert"
	case AwaitingReference:
		return "awaiting reference"
	default:
		return "unknown"
	}
}

// CurrentThreshold returns the value of the most recent reference reading.
func CurrentThreshold(v store.RoomView) (float64, bool) {
	ref, ok := v.LatestReference()
	if !ok {
		return 0, false
	}
	return ref.Value, true
}

// DisplayThreshold returns the threshold to show for the room. Rooms that
// never received a reference get fallback with fromReference false; the
// fallback never takes part in alert decisions.
func DisplayThreshold(v store.RoomView, fallback float64) (value float64, fromReference bool) {
	if t, ok := CurrentThreshold(v); ok {
		return t, true
	}
	return fallback, false
}

// ShouldEvaluate reports whether a reading taken at ts may be compared with
// the room's current reference.
func ShouldEvaluate(v store.RoomView, ts time.Time) bool {
	refAt, ok := v.LastReferenceTime()
	if !ok {
		return false
	}
	return !ts.Before(refAt)
}

// IsAlert reports whether env exceeds the room's current reference.
func IsAlert(v store.RoomView, env reading.Reading) bool {
	if !ShouldEvaluate(v, env.Time) {
		return false
	}
	threshold, ok := CurrentThreshold(v)
	return ok && env.Value > threshold
}

// RoomStatus classifies the room by its latest environment reading.
func RoomStatus(v store.RoomView) Status {
	env, ok := v.LatestEnvironment()
	switch {
	case !ok:
		return NoData
	case !hasReference(v):
		return AwaitingReference
	case IsAlert(v, env):
		return Alert
	default:
		return Ok
	}
}

func hasReference(v store.RoomView) bool {
	_, ok := CurrentThreshold(v)
	return ok
}
