package history

import (
	"testing"
	"time"

	"github.com/luki/roomtemps/internal/reading"
)

func values(rs []reading.Reading) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Value
	}
	return out
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Append(reading.New(now.Add(time.Duration(i)*time.Second), float64(30+i)))
	}

	if h.Len() != 5 {
		t.Errorf("expected 5 points, got %d", h.Len())
	}

	last, ok := h.Latest()
	if !ok || last.Value != 36.0 {
		t.Errorf("Latest(): got %v (ok=%v), want 36.0", last.Value, ok)
	}

	st, ok := h.Stats()
	if !ok {
		t.Fatal("Stats(): expected ok")
	}
	if st.Min != 32.0 {
		t.Errorf("Min: got %f, want 32.0", st.Min)
	}
	if st.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", st.Peak)
	}
	if st.Avg != 34.0 {
		t.Errorf("Avg: got %f, want 34.0", st.Avg)
	}

	vals := h.LastN(3)
	if !equal(values(vals), []float64{34, 35, 36}) {
		t.Errorf("LastN(3): got %v", values(vals))
	}
}

func TestCapacityEviction(t *testing.T) {
	h := NewBuffer(3)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.UTC)

	for i, v := range []float64{10, 20, 30, 40} {
		h.Append(reading.New(base.Add(time.Duration(i)*time.Second), v))
		if h.Len() > 3 {
			t.Fatalf("after append %d: len %d exceeds capacity", i, h.Len())
		}
	}

	if got := values(h.Snapshot()); !equal(got, []float64{20, 30, 40}) {
		t.Errorf("Snapshot(): got %v, want [20 30 40]", got)
	}
}

func TestBufferHoldsLastNInAppendOrder(t *testing.T) {
	const capacity = 4
	h := NewBuffer(capacity)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.UTC)

	var appended []float64
	for i := 0; i < 23; i++ {
		v := float64(i * 3 % 17)
		// Out-of-order timestamps are still appended at the tail.
		h.Append(reading.New(base.Add(time.Duration(-i)*time.Minute), v))
		appended = append(appended, v)

		want := appended
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		if got := values(h.Snapshot()); !equal(got, want) {
			t.Fatalf("after %d appends: got %v, want %v", i+1, got, want)
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	h := NewBuffer(3)
	now := time.Now()
	h.Append(reading.New(now, 1))
	h.Append(reading.New(now, 2))

	snap := h.Snapshot()
	snap[0].Value = 99

	if got := values(h.Snapshot()); !equal(got, []float64{1, 2}) {
		t.Errorf("stored state changed through snapshot: %v", got)
	}
}

func TestEmptyBuffer(t *testing.T) {
	h := NewBuffer(0)
	if h.Cap() != 1 {
		t.Errorf("Cap(): got %d, want 1", h.Cap())
	}
	if !h.IsEmpty() {
		t.Error("new buffer should be empty")
	}
	if _, ok := h.Latest(); ok {
		t.Error("Latest() on empty buffer should report !ok")
	}
	if h.Snapshot() != nil {
		t.Error("Snapshot() on empty buffer should be nil")
	}
	if _, ok := h.Stats(); ok {
		t.Error("Stats() on empty buffer should report !ok")
	}
}
