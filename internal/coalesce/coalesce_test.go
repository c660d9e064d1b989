package coalesce

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestBurstProducesSingleFlush(t *testing.T) {
	exec := NewSerial()
	defer exec.Close()

	flushed := make(chan struct{}, 16)
	c := New(exec, Intervals{Summary: 50 * time.Millisecond, RoomList: time.Millisecond, Display: time.Millisecond},
		Handlers{OnSummaryChanged: func() { flushed <- struct{}{} }}, nil)
	defer c.Close()

	scheduled := 0
	for i := 0; i < 500; i++ {
		if c.Notify(Summary) {
			scheduled++
		}
	}
	if scheduled != 1 {
		t.Errorf("scheduled flushes: got %d, want 1", scheduled)
	}
	if !c.Pending(Summary) {
		t.Error("Summary should be pending after Notify")
	}

	waitFor(t, flushed, "summary flush")
	time.Sleep(150 * time.Millisecond)

	if got := c.Flushes(Summary); got != 1 {
		t.Errorf("Flushes(Summary): got %d, want 1", got)
	}
	if c.Pending(Summary) {
		t.Error("Summary should not be pending after its flush")
	}
}

func TestNotifyAfterFlushSchedulesAgain(t *testing.T) {
	exec := NewSerial()
	defer exec.Close()

	flushed := make(chan struct{}, 4)
	c := New(exec, DefaultIntervals(), Handlers{OnRoomListChanged: func() { flushed <- struct{}{} }}, nil)
	defer c.Close()

	c.Notify(RoomList)
	waitFor(t, flushed, "first room-list flush")

	if !c.Notify(RoomList) {
		t.Error("Notify after flush should schedule a new flush")
	}
	waitFor(t, flushed, "second room-list flush")

	if got := c.Flushes(RoomList); got != 2 {
		t.Errorf("Flushes(RoomList): got %d, want 2", got)
	}
}

func TestContinuousLoadDoesNotPostponeFlush(t *testing.T) {
	exec := NewSerial()
	defer exec.Close()

	c := New(exec, Intervals{Summary: 40 * time.Millisecond, RoomList: time.Millisecond, Display: time.Millisecond},
		Handlers{}, nil)
	defer c.Close()

	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		c.Notify(Summary)
		time.Sleep(2 * time.Millisecond)
	}

	// A resetting debounce would never fire while notifications keep coming.
	if got := c.Flushes(Summary); got < 2 {
		t.Errorf("Flushes(Summary) under continuous load: got %d, want at least 2", got)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	exec := NewSerial()
	defer exec.Close()

	var summary, display atomic.Int32
	done := make(chan struct{}, 4)
	c := New(exec, Intervals{Summary: 30 * time.Millisecond, RoomList: time.Millisecond, Display: time.Millisecond},
		Handlers{
			OnSummaryChanged: func() { summary.Add(1); done <- struct{}{} },
			OnDisplayChanged: func() { display.Add(1); done <- struct{}{} },
		}, nil)
	defer c.Close()

	c.Notify(Summary)
	if !c.Notify(Display) {
		t.Error("pending Summary must not suppress Display")
	}
	waitFor(t, done, "first flush")
	waitFor(t, done, "second flush")

	if summary.Load() != 1 || display.Load() != 1 {
		t.Errorf("flushes: summary=%d display=%d, want 1 each", summary.Load(), display.Load())
	}
	if c.Flushes(RoomList) != 0 {
		t.Error("RoomList was never notified")
	}
}

type blockingExecutor struct {
	release chan struct{}
	posted  atomic.Int32
}

func (b *blockingExecutor) Post(fn func()) {
	b.posted.Add(1)
	<-b.release
	fn()
}

func TestNotifyDoesNotWaitOnConsumer(t *testing.T) {
	exec := &blockingExecutor{release: make(chan struct{})}
	c := New(exec, Intervals{Summary: time.Millisecond, RoomList: time.Millisecond, Display: time.Millisecond},
		Handlers{}, nil)

	c.Notify(Summary)
	time.Sleep(20 * time.Millisecond)

	returned := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Notify(Summary)
			c.Notify(Display)
		}
		close(returned)
	}()
	waitFor(t, returned, "Notify to return while the consumer is stalled")

	close(exec.release)
	c.Close()
}

func TestCloseCancelsScheduledFlush(t *testing.T) {
	exec := NewSerial()
	defer exec.Close()

	var calls atomic.Int32
	c := New(exec, Intervals{Summary: 30 * time.Millisecond, RoomList: time.Millisecond, Display: time.Millisecond},
		Handlers{OnSummaryChanged: func() { calls.Add(1) }}, nil)

	c.Notify(Summary)
	c.Close()
	if c.Notify(Summary) {
		t.Error("Notify after Close should be ignored")
	}

	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("handler ran %d times after Close", calls.Load())
	}
}

func TestUnknownKind(t *testing.T) {
	c := New(NewSerial(), DefaultIntervals(), Handlers{}, nil)
	defer c.Close()

	if c.Notify(Kind(9)) {
		t.Error("unknown kind should not be scheduled")
	}
	if Kind(9).String() != "kind(9)" {
		t.Errorf("String(): got %q", Kind(9).String())
	}
}

func TestSerialRunsInOrder(t *testing.T) {
	s := NewSerial()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		s.Post(func() {
			got = append(got, i)
			if i == 49 {
				close(done)
			}
		})
	}
	waitFor(t, done, "posted functions")
	s.Close()

	for i, v := range got {
		if v != i {
			t.Fatalf("position %d: got %d", i, v)
		}
	}

	s.Post(func() { t.Error("function posted after Close must not run") })
	s.Close()
}
