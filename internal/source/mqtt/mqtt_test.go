package mqtt

import (
	"strings"
	"testing"
	"time"

	"github.com/luki/roomtemps/internal/store"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type call struct {
	room, code string
	t          time.Time
	value      float64
}

type fakeSink struct{ calls []call }

func (f *fakeSink) HandleCode(room string, t time.Time, value float64, code string) store.IngestResult {
	f.calls = append(f.calls, call{room, code, t, value})
	return store.IngestResult{}
}

func TestOnMessage(t *testing.T) {
	sink := &fakeSink{}
	s := New(DefaultConfig(), sink, nil)

	body := []byte(`{"timestamp":"2026-02-21T14:30:05Z","value":24.5}`)
	s.onMessage(nil, fakeMessage{topic: "/sensors/101/1", payload: body})
	s.onMessage(nil, fakeMessage{topic: "/sensors/101", payload: body})
	s.onMessage(nil, fakeMessage{topic: "/sensors/102/0", payload: []byte(`{"value":1}`)})

	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 delivered reading, got %d", len(sink.calls))
	}
	c := sink.calls[0]
	if c.room != "101" || c.code != "1" || c.value != 24.5 {
		t.Errorf("delivered %+v", c)
	}
	if !c.t.Equal(time.Date(2026, 2, 21, 14, 30, 5, 0, time.UTC)) {
		t.Errorf("timestamp: got %v", c.t)
	}
}

func TestClientID(t *testing.T) {
	cfg := DefaultConfig()
	if id := cfg.clientID("roomtemps"); !strings.HasPrefix(id, "roomtemps-") || len(id) <= len("roomtemps-") {
		t.Errorf("generated client id: got %q", id)
	}
	cfg.ClientID = "fixed"
	if id := cfg.clientID("roomtemps"); id != "fixed" {
		t.Errorf("configured client id: got %q", id)
	}
}
