package events

import (
	"context"
	"errors"
)

// Fanout publishes every event to each of its publishers in order. One
// failing publisher does not stop the others.
type Fanout []Publisher

var _ Publisher = Fanout(nil)

func (f Fanout) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
