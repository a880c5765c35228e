package event

import (
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/docsession/internal/logging"
)

// wildcard is the pseudo event type of SubscribeAll handlers.
const wildcard = "*"

// Handler is a function that handles an event.
type Handler func(Event)

type subscription struct {
	id      string
	owner   string
	handler Handler
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bus is a synchronous pub-sub event bus. Subscriptions may carry an owner
// so that everything a session registered can be released in one call.
type Bus struct {
	mu     sync.RWMutex
	byType map[string][]subscription
	// typeOf maps a subscription ID to its event type.
	typeOf map[string]string
	logger *logging.Logger
}

// NewBus creates a new event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		byType: make(map[string][]subscription),
		typeOf: make(map[string]string),
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers an unowned handler for eventType and returns its
// subscription ID.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	return b.SubscribeOwned("", eventType, handler)
}

// SubscribeOwned registers a handler on behalf of owner. All of an owner's
// subscriptions are removed by ReleaseOwner.
func (b *Bus) SubscribeOwned(owner, eventType string, handler Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, owner: owner, handler: handler})
	b.typeOf[id] = eventType
	return id
}

// SubscribeAll registers a handler called for every published event.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// On registers a typed handler. Events of eventType that are not a T are
// ignored.
func On[T Event](b *Bus, eventType string, fn func(T)) string {
	return OnOwned(b, "", eventType, fn)
}

// OnOwned is On for a subscription owned by owner.
func OnOwned[T Event](b *Bus, owner, eventType string, fn func(T)) string {
	return b.SubscribeOwned(owner, eventType, func(e Event) {
		if typed, ok := e.(T); ok {
			fn(typed)
		}
	})
}

// Unsubscribe removes a subscription by ID and reports whether it existed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	eventType, ok := b.typeOf[id]
	if !ok {
		return false
	}
	delete(b.typeOf, id)
	subs := b.byType[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.dropLocked(eventType, subs, i)
			break
		}
	}
	return true
}

// ReleaseOwner removes every subscription registered by owner and returns
// how many were removed. The empty owner is never released.
func (b *Bus) ReleaseOwner(owner string) int {
	if owner == "" {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for eventType, subs := range b.byType {
		kept := subs[:0:0]
		for _, sub := range subs {
			if sub.owner == owner {
				delete(b.typeOf, sub.id)
				n++
				continue
			}
			kept = append(kept, sub)
		}
		if len(kept) == 0 {
			delete(b.byType, eventType)
		} else {
			b.byType[eventType] = kept
		}
	}
	return n
}

// dropLocked removes subs[i]. The slice is copied so that a Publish holding
// the old slice is unaffected.
func (b *Bus) dropLocked(eventType string, subs []subscription, i int) {
	if len(subs) == 1 {
		delete(b.byType, eventType)
		return
	}
	b.byType[eventType] = append(subs[:i:i], subs[i+1:]...)
}

// Publish dispatches event to the handlers of its type in registration
// order, then to SubscribeAll handlers. A panicking handler is logged and
// delivery continues.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	specific := b.byType[event.EventType()]
	all := b.byType[wildcard]
	b.mu.RUnlock()

	for _, sub := range specific {
		b.deliver(sub, event)
	}
	for _, sub := range all {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", event.EventType(),
				"owner", sub.owner,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	sub.handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType = make(map[string][]subscription)
	b.typeOf = make(map[string]string)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.typeOf)
}

// OwnerCount returns the number of subscriptions held by owner.
func (b *Bus) OwnerCount(owner string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.byType {
		for _, sub := range subs {
			if sub.owner == owner {
				n++
			}
		}
	}
	return n
}
