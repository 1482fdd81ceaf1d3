package events

import (
	"context"
	"fmt"
	"log/slog"

	evbus "github.com/asaskevich/EventBus"
)

// Bus is an in-process publish/subscribe Sink. Handlers run on their own goroutine,
// detached from the emitting request's cancellation.
type Bus struct {
	bus    evbus.Bus
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		bus:    evbus.New(),
		logger: logger,
	}
}

// Emit publishes the event on its topic
func (b *Bus) Emit(ctx context.Context, event Event) {
	if !b.bus.HasCallback(event.Topic()) {
		return
	}
	b.bus.Publish(event.Topic(), context.WithoutCancel(ctx), event)
}

// Subscribe registers an asynchronous handler for one topic
func (b *Bus) Subscribe(topic string, handler func(ctx context.Context, event Event)) error {
	wrapped := func(ctx context.Context, event Event) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					slog.String("topic", topic),
					slog.Any("panic", r),
				)
			}
		}()
		handler(ctx, event)
	}
	if err := b.bus.SubscribeAsync(topic, wrapped, false); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}

// Forward delivers every topic to sink asynchronously
func (b *Bus) Forward(sink Sink) error {
	for _, topic := range AllTopics {
		if err := b.Subscribe(topic, sink.Emit); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until in-flight handlers have returned
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}
