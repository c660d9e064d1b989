// Package mqtt subscribes to room sensor topics on an MQTT broker and feeds
// every message into the ingest pipeline. Message handlers run on the paho
// client's goroutines, which form the producer context.
package mqtt

import (
	"fmt"
	"time"

	"github.com/avast/retry-go"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/roomtemps/internal/source"
)

// Config describes the broker connection.
type Config struct {
	Broker          string        `yaml:"broker"`
	Topic           string        `yaml:"topic"`
	ClientID        string        `yaml:"client_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	QoS             byte          `yaml:"qos"`
	ConnectAttempts uint          `yaml:"connect_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

// DefaultConfig matches a local broker with the sensor topic tree.
func DefaultConfig() Config {
	return Config{
		Broker:          "tcp://localhost:1883",
		Topic:           "/sensors/#",
		QoS:             0,
		ConnectAttempts: 5,
		RetryDelay:      time.Second,
	}
}

// clientID returns the configured client id or a random one with prefix.
func (c Config) clientID(prefix string) string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return prefix + "-" + uuid.New().String()
}

// Source is an MQTT subscriber.
type Source struct {
	config Config
	sink   source.Sink
	client paho.Client
	logger *zap.SugaredLogger
}

var _ source.Source = (*Source)(nil)

// New creates a Source. Nothing connects until Start.
func New(config Config, sink source.Sink, logger *zap.SugaredLogger) *Source {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Source{config: config, sink: sink, logger: logger.With("transport", "mqtt")}

	opts := paho.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.clientID("roomtemps")).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			s.logger.Warnw("connection lost", "error", err)
		})
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	s.client = paho.NewClient(opts)
	return s
}

// Start connects to the broker, retrying up to ConnectAttempts times. The
// subscription is (re)established on every successful connect.
func (s *Source) Start() error {
	attempts := s.config.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}

	err := retry.Do(
		func() error {
			token := s.client.Connect()
			token.Wait()
			return token.Error()
		},
		retry.Attempts(attempts),
		retry.Delay(s.config.RetryDelay),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warnw("connect failed, retrying", "attempt", n+1, "broker", s.config.Broker, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("mqtt: connect %s: %w", s.config.Broker, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (s *Source) Stop() error {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.config.Topic).WaitTimeout(time.Second)
	}
	s.client.Disconnect(250)
	s.logger.Info("disconnected")
	return nil
}

func (s *Source) onConnect(c paho.Client) {
	s.logger.Infow("connected", "broker", s.config.Broker)

	token := c.Subscribe(s.config.Topic, s.config.QoS, s.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Errorw("subscribe failed", "topic", s.config.Topic, "error", err)
		return
	}
	s.logger.Infow("subscribed", "topic", s.config.Topic)
}

func (s *Source) onMessage(_ paho.Client, msg paho.Message) {
	room, code, err := source.ParseTopic(msg.Topic())
	if err != nil {
		s.logger.Debugw("ignoring message", "error", err)
		return
	}
	source.Deliver(s.sink, room, code, msg.Payload(), s.logger)
}

// Publisher publishes readings to the same topic tree the Source consumes.
type Publisher struct {
	config Config
	client paho.Client
}

// NewPublisher connects a publishing client.
func NewPublisher(config Config) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.clientID("roomsim"))
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	c := paho.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", config.Broker, token.Error())
	}
	return &Publisher{config: config, client: c}, nil
}

// Publish sends one reading for room with the given category code.
func (p *Publisher) Publish(room, code string, t time.Time, value float64) error {
	payload, err := source.EncodePayload(t, value)
	if err != nil {
		return err
	}
	token := p.client.Publish(source.Topic(room, code), p.config.QoS, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects the publisher.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
