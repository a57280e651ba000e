package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler reacts to an account event.
type Handler func(context.Context, Event) error

// Dispatcher fans account events out to in-process subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler Handler)
}

// AccountBus delivers events synchronously, in subscription order, on the
// publisher's goroutine. Cache invalidation therefore completes before the
// admin request that changed the account returns.
type AccountBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewAccountBus returns an empty bus.
func NewAccountBus() *AccountBus {
	return &AccountBus{subscribers: make(map[EventType][]Handler)}
}

// Subscribe registers handler for eventType.
func (b *AccountBus) Subscribe(eventType EventType, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeMany registers handler for each of eventTypes.
func (b *AccountBus) SubscribeMany(handler Handler, eventTypes ...EventType) {
	for _, eventType := range eventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Publish runs every subscriber of event.Type. A failing or panicking
// subscriber does not stop the rest; failures come back joined.
func (b *AccountBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subscribers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	var errs []error
	for i, handler := range subscribers {
		if err := deliver(ctx, handler, event); err != nil {
			errs = append(errs, fmt.Errorf("%s subscriber %d (account %s): %w", event.Type, i, event.AccountID, err))
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
