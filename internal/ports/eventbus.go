// Package ports defines the EventBus interface for event-driven communication.
// The event bus replaces platform callbacks and enables loose coupling between components.
package ports

import (
	"github.com/auralis-music/auralis/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// The event bus decouples event producers (services) from event consumers
// (UI surfaces, analytics, logging). Multiple subscribers can listen to the
// same event, and subscribers don't know about publishers.
//
// Thread-safety: Implementations must be thread-safe as events may be
// published and subscribed from multiple goroutines simultaneously.
//
// Ordering: subscribers observe events of a given publisher in publish order.
// The session coordinator relies on this to guarantee that a song change and
// its position reset are never observed out of order.
type EventBus interface {
	// Publish publishes an event to all subscribers of that event type.
	// This method must not block for long periods; handlers should process
	// events quickly or dispatch to a background goroutine.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Returns a SubscriptionID that can be used to unsubscribe later.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// If the subscription ID is invalid or already unsubscribed, this is a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of
	// type. Useful for logging and debugging.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if there are any active subscriptions for
	// the given event type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and cleans up resources.
	Close() error
}
