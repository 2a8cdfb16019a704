package events

import (
	"context"
	"errors"
	"testing"
)

type countingPublisher struct {
	published []string
	closed    bool
	err       error
}

func (p *countingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.published = append(p.published, topic)
	return p.err
}

func (p *countingPublisher) Close() error {
	p.closed = true
	return p.err
}

func TestFanout_PublishToAll(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	f := Fanout{a, b}

	if err := f.Publish(context.Background(), TopicSelectionApplied, SelectionApplied{Item: "Bottle"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for i, p := range []*countingPublisher{a, b} {
		if len(p.published) != 1 || p.published[0] != TopicSelectionApplied {
			t.Errorf("publisher %d got %v", i, p.published)
		}
	}
}

func TestFanout_FailureDoesNotStopOthers(t *testing.T) {
	boom := errors.New("nats down")
	failing, ok := &countingPublisher{err: boom}, &countingPublisher{}
	f := Fanout{failing, ok}

	err := f.Publish(context.Background(), TopicSelectionQueued, SelectionQueued{ID: "pw-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("Publish error = %v, want %v", err, boom)
	}
	if len(ok.published) != 1 {
		t.Fatalf("second publisher got %d events, want 1", len(ok.published))
	}

	if err := f.Close(); !errors.Is(err, boom) {
		t.Fatalf("Close error = %v, want %v", err, boom)
	}
	if !failing.closed || !ok.closed {
		t.Fatal("expected every publisher to be closed")
	}
}

func TestFanout_Empty(t *testing.T) {
	var f Fanout
	if err := f.Publish(context.Background(), TopicQueueReplayed, QueueReplayed{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
