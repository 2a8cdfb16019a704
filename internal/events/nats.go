package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// connect dials url with unbounded reconnects. name identifies the
// connection in the server's monitoring endpoints.
func connect(url, name string, opts []nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher wraps every event in an Envelope and publishes it on the
// subject named by its topic.
type NATSPublisher struct {
	conn *nats.Conn
	now  func() time.Time
}

// NewNATSPublisher connects to url. The connection reconnects on its own, so
// a NATS outage after startup only loses the events published meanwhile.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := connect(url, "sortgate", opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc, now: time.Now}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(NewEnvelope(topic, event, p.now()))
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes buffered events and closes the connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.Flush()
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing NATS: %w", err)
	}
	return nil
}

// NATSSubscriber delivers raw envelopes from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects to url. Extra options such as reconnect
// handlers are applied after the defaults.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, "sortgate-watch", opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription buffers payloads for one Subscribe call. Payloads arriving
// while the buffer is full are dropped so a slow reader never stalls the
// NATS client.
type subscription struct {
	sub *nats.Subscription
	ch  chan []byte

	mu      sync.Mutex
	stopped bool
	dropped int
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	select {
	case s.ch <- msg.Data:
	default:
		s.dropped++
	}
}

func (s *subscription) stop() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.ch)
}

// Subscribe delivers payloads published on topic, which may use NATS
// wildcards such as "sortgate.>". The cancel function unsubscribes and
// closes the channel; it is safe to call more than once.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	sub := &subscription{ch: make(chan []byte, 64)}

	var err error
	sub.sub, err = s.conn.Subscribe(topic, sub.deliver)
	if err != nil {
		sub.stop()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must reach the server before events published right
	// after Subscribe returns.
	if err := s.conn.Flush(); err != nil {
		sub.stop()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}
	return sub.ch, sub.stop, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// DecodeEnvelope parses a payload received from a subscription. Data is left
// as a generic JSON value.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding event: %w", err)
	}
	return env, nil
}
