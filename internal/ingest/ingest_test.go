package ingest

import (
	"sync"
	"testing"
	"time"

	"github.com/luki/roomtemps/internal/coalesce"
	"github.com/luki/roomtemps/internal/reading"
	"github.com/luki/roomtemps/internal/store"
)

type recorder struct {
	mu    sync.Mutex
	kinds []coalesce.Kind
}

func (r *recorder) Notify(k coalesce.Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, k)
	return true
}

func (r *recorder) take() []coalesce.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.kinds
	r.kinds = nil
	return out
}

func sameKinds(a, b []coalesce.Kind) bool {
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

var now = time.Date(2026, 2, 21, 14, 0, 0, 0, time.UTC)

func TestDecisionRule(t *testing.T) {
	rec := &recorder{}
	sel := &Selection{}
	p := NewPipeline(store.New(10), rec, sel, nil)

	// All-rooms mode, new room.
	p.Handle("101", now, 20, reading.Environment)
	if got := rec.take(); !sameKinds(got, []coalesce.Kind{coalesce.Summary, coalesce.RoomList, coalesce.Display}) {
		t.Errorf("new room in all-rooms mode: got %v", got)
	}

	// Known room, all-rooms mode.
	p.Handle("101", now, 21, reading.Reference)
	if got := rec.take(); !sameKinds(got, []coalesce.Kind{coalesce.Summary, coalesce.Display}) {
		t.Errorf("known room in all-rooms mode: got %v", got)
	}

	sel.Set("102")

	// Known room, other room selected.
	p.Handle("101", now, 22, reading.Environment)
	if got := rec.take(); !sameKinds(got, []coalesce.Kind{coalesce.Summary}) {
		t.Errorf("unselected room: got %v", got)
	}

	// New room that is the selected one.
	p.Handle("102", now, 22, reading.Environment)
	if got := rec.take(); !sameKinds(got, []coalesce.Kind{coalesce.Summary, coalesce.RoomList, coalesce.Display}) {
		t.Errorf("selected new room: got %v", got)
	}
}

func TestRejectedReadingRaisesNothing(t *testing.T) {
	rec := &recorder{}
	s := store.New(10)
	p := NewPipeline(s, rec, nil, nil)

	res := p.HandleCode("103", now, 30, "2")
	if res.Outcome != store.RejectedUnknownCategory {
		t.Errorf("Outcome: got %v", res.Outcome)
	}
	res = p.Handle("103", now, 30, reading.Category(5))
	if res.Outcome != store.RejectedUnknownCategory {
		t.Errorf("Outcome: got %v", res.Outcome)
	}

	if got := rec.take(); len(got) != 0 {
		t.Errorf("rejected readings raised %v", got)
	}
	if len(s.RoomIDs()) != 0 {
		t.Error("rejected readings must not create rooms")
	}
}

func TestHandleCode(t *testing.T) {
	rec := &recorder{}
	s := store.New(10)
	p := NewPipeline(s, rec, nil, nil)

	if res := p.HandleCode("101", now, 24, "1"); !res.Accepted() || res.Category != reading.Reference {
		t.Errorf("HandleCode reference: got %+v", res)
	}
	v, _ := s.RoomSnapshot("101")
	if _, ok := v.LastReferenceTime(); !ok {
		t.Error("reference code should set the reference timestamp")
	}
}

func TestSelection(t *testing.T) {
	var sel Selection
	if !sel.Matches("anything") {
		t.Error("zero selection is all-rooms mode")
	}
	sel.Set("101")
	if sel.Matches("102") || !sel.Matches("101") {
		t.Error("single-room selection should match only that room")
	}
	if room, all := sel.Get(); room != "101" || all {
		t.Errorf("Get(): got %q all=%v", room, all)
	}
	sel.SetAll()
	if !sel.Matches("102") {
		t.Error("SetAll should match every room")
	}
}

func TestCoalescedPipeline(t *testing.T) {
	exec := coalesce.NewSerial()
	defer exec.Close()

	summaries := make(chan struct{}, 8)
	c := coalesce.New(exec, coalesce.Intervals{
		Summary:  60 * time.Millisecond,
		RoomList: time.Millisecond,
		Display:  time.Millisecond,
	}, coalesce.Handlers{OnSummaryChanged: func() { summaries <- struct{}{} }}, nil)
	defer c.Close()

	s := store.New(10)
	p := NewPipeline(s, c, nil, nil)
	for i := 0; i < 50; i++ {
		p.Handle("101", now.Add(time.Duration(i)*time.Second), float64(i), reading.Environment)
	}

	select {
	case <-summaries:
	case <-time.After(2 * time.Second):
		t.Fatal("no summary flush")
	}
	time.Sleep(150 * time.Millisecond)

	if got := c.Flushes(coalesce.Summary); got != 1 {
		t.Errorf("Summary flushes for a burst: got %d, want 1", got)
	}
	v, _ := s.RoomSnapshot("101")
	if len(v.Environment) != 10 {
		t.Errorf("retained readings: got %d, want 10", len(v.Environment))
	}
}
