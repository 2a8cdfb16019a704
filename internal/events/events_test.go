package events

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNoopPublisher_Publish(t *testing.T) {
	pub := &NoopPublisher{}
	err := pub.Publish(context.Background(), TopicSelectionApplied, SelectionApplied{})
	if err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
}

func TestNoopPublisher_Close(t *testing.T) {
	pub := &NoopPublisher{}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNoopPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	a := NewEnvelope(TopicSelectionQueued, SelectionQueued{ID: "pw-1"}, at)
	b := NewEnvelope(TopicSelectionQueued, SelectionQueued{ID: "pw-1"}, at)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("envelope ids must be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.PublishedAt.Location() != time.UTC {
		t.Errorf("PublishedAt location = %v, want UTC", a.PublishedAt.Location())
	}
	if !a.PublishedAt.Equal(at) {
		t.Errorf("PublishedAt = %v, want %v", a.PublishedAt, at)
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	// Subscribe to capture published messages.
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicSelectionApplied, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := SelectionApplied{Item: "Bottle", Location: "BinA", TimesSelected: 2}
	if err := pub.Publish(context.Background(), TopicSelectionApplied, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		var got struct {
			Envelope
			Data SelectionApplied `json:"data"`
		}
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Topic != TopicSelectionApplied {
			t.Errorf("topic = %q, want %q", got.Topic, TopicSelectionApplied)
		}
		if got.ID == "" {
			t.Error("expected envelope id")
		}
		if got.Data != event {
			t.Errorf("data = %+v, want %+v", got.Data, event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(TopicAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	now := time.Now()
	cases := []struct {
		topic string
		event any
	}{
		{TopicSelectionApplied, SelectionApplied{Item: "Bottle", Location: "BinA", TimesSelected: 1}},
		{TopicSelectionQueued, SelectionQueued{ID: "pw-abc", Item: "Can", Location: "BinB", QueuedAt: now}},
		{TopicQueueReplayed, QueueReplayed{AppliedIDs: []string{"pw-abc"}}},
		{TopicSnapshotRefreshed, SnapshotRefreshed{Resources: []string{"items"}, LastUpdated: now}},
	}
	for _, tc := range cases {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	seen := make(map[string]bool)
	for i := range len(cases) {
		select {
		case payload := <-ch:
			env, err := DecodeEnvelope(payload)
			if err != nil {
				t.Fatalf("DecodeEnvelope: %v", err)
			}
			seen[env.Topic] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	for _, tc := range cases {
		if !seen[tc.topic] {
			t.Errorf("no event received on %s", tc.topic)
		}
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Publishing after close should fail.
	err = pub.Publish(context.Background(), TopicSelectionApplied, SelectionApplied{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
}
