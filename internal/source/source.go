// Package source decodes transport messages into readings for the ingest
// pipeline. The MQTT and AMQP transports live in sub-packages and share the
// topic and payload formats defined here.
package source

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/store"
)

var (
	// ErrMalformedTopic is returned for topics that do not name a room and
	// a category code.
	ErrMalformedTopic = errors.New("malformed topic")
	// ErrMalformedPayload is returned for payloads without a usable
	// timestamp or value.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Sink receives decoded readings. The category code is passed through
// untouched; the sink rejects unknown codes.
type Sink interface {
	HandleCode(roomID string, t time.Time, value float64, code string) store.IngestResult
}

// Source is a running transport feeding a Sink.
type Source interface {
	Start() error
	Stop() error
}

const topicRoot = "sensors"

// ParseTopic splits an MQTT topic of the form /sensors/<room>/<code>.
func ParseTopic(topic string) (room, code string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "" || parts[1] != topicRoot || parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	return parts[2], parts[3], nil
}

// Topic builds the MQTT topic for a room and category code.
func Topic(room, code string) string {
	return "/" + topicRoot + "/" + room + "/" + code
}

var routingKeyRegex = regexp.MustCompile(`^sensors\.([^.]+)\.([^.]+)$`)

// ParseRoutingKey splits an AMQP routing key of the form sensors.<room>.<code>.
func ParseRoutingKey(key string) (room, code string, err error) {
	matches := routingKeyRegex.FindStringSubmatch(key)
	if matches == nil {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedTopic, key)
	}
	return matches[1], matches[2], nil
}

// Payload is the JSON body of a reading message.
type Payload struct {
	Timestamp string `json:"timestamp"`
	Value     any    `json:"value"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts ISO-8601 timestamps with or without an offset.
// Timestamps without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedPayload, s)
}

// DecodePayload extracts the timestamp and value of a reading.
func DecodePayload(body []byte) (time.Time, float64, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Timestamp == "" {
		return time.Time{}, 0, fmt.Errorf("%w: missing timestamp", ErrMalformedPayload)
	}
	t, err := ParseTimestamp(p.Timestamp)
	if err != nil {
		return time.Time{}, 0, err
	}

	var value float64
	switch v := p.Value.(type) {
	case float64:
		value = v
	case string:
		value, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("%w: bad value %q", ErrMalformedPayload, v)
		}
	default:
		return time.Time{}, 0, fmt.Errorf("%w: missing or non-numeric value", ErrMalformedPayload)
	}
	return t, value, nil
}

// EncodePayload builds the JSON body for a reading.
func EncodePayload(t time.Time, value float64) ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string  `json:"timestamp"`
		Value     float64 `json:"value"`
	}{
		Timestamp: t.UTC().Format(time.RFC3339Nano),
		Value:     value,
	})
}

// Deliver decodes one message and hands it to sink. Undecodable messages are
// logged and dropped.
func Deliver(sink Sink, room, code string, body []byte, logger *zap.SugaredLogger) {
	t, value, err := DecodePayload(body)
	if err != nil {
		logger.Warnw("dropping message", "room", room, "code", code, "error", err)
		return
	}
	sink.HandleCode(room, t, value, code)
}
