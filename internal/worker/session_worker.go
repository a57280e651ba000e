package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/revmak/marketplace-api/internal/events"
)

// SessionStore is the part of the session cache the worker needs.
type SessionStore interface {
	Invalidate(id string)
}

// StartSessionInvalidation drops cached account snapshots whenever an
// account's status or role changes, so the next request reloads it.
func StartSessionInvalidation(dispatcher events.Dispatcher, store SessionStore, logger *zap.Logger) {
	if dispatcher == nil || store == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(_ context.Context, event events.Event) error {
		store.Invalidate(event.AccountID)
		logger.Info("session invalidated",
			zap.String("event", string(event.Type)),
			zap.String("account_id", event.AccountID),
		)
		return nil
	}

	for _, eventType := range []events.EventType{
		events.EventAccountDeactivated,
		events.EventAccountActivated,
		events.EventAccountRoleChanged,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
