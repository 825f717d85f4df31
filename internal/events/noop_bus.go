package events

import "context"

type noopBus struct{}

// NewNoopBus is used when redis is not configured; publishes are dropped.
func NewNoopBus() Bus { return noopBus{} }

func (noopBus) Publish(ctx context.Context, ev Event) error { return nil }
func (noopBus) Close() error                                { return nil }
