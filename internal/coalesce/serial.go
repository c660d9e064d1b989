package coalesce

import "sync"

// Serial is an Executor backed by a single goroutine and an unbounded queue.
// It is the consumer context when no UI event loop is running.
type Serial struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// NewSerial starts the executor goroutine.
func NewSerial() *Serial {
	s := &Serial{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Post enqueues fn. It never blocks; functions posted after Close are dropped.
func (s *Serial) Post(fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.mu.Unlock()
}

// Close stops the loop after the function currently running, if any, and
// waits for it to exit. Queued functions are discarded. Close must not be
// called from a posted function.
func (s *Serial) Close() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.queue = nil
	close(s.wake)
	s.mu.Unlock()

	<-s.done
}

func (s *Serial) loop() {
	defer close(s.done)
	for range s.wake {
		for {
			s.mu.Lock()
			if s.stopped || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			fn := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()

			fn()
		}
	}
}
