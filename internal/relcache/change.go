package relcache

import (
	"fmt"

	"github.com/google/uuid"
)

// ChangeKind tags a Change.
type ChangeKind int

const (
	// Added: a value was computed and stored for ID.
	Added ChangeKind = iota + 1
	// Removed: the entry for ID was invalidated.
	Removed
	// Cleared: every entry was dropped. ID is NoRelation.
	Cleared
)

// String returns the kind name.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Cleared:
		return "cleared"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes one modification of a cache's contents.
type Change struct {
	Kind ChangeKind
	ID   ID
}

// Handler receives changes. Handlers run synchronously inside the call
// that caused the change and must not modify the cache.
type Handler func(Change)

// Subscription identifies a registered handler.
type Subscription struct {
	token uuid.UUID
}

// String returns the subscription token.
func (s Subscription) String() string {
	return s.token.String()
}

// IsZero reports whether s is the zero subscription.
func (s Subscription) IsZero() bool {
	return s.token == uuid.Nil
}

type observer struct {
	sub     Subscription
	handler Handler
}

// observers keeps handlers in registration order.
type observers []observer

func (o *observers) add(h Handler) Subscription {
	sub := Subscription{token: uuid.Must(uuid.NewV7())}
	*o = append(*o, observer{sub: sub, handler: h})
	return sub
}

func (o *observers) remove(sub Subscription) bool {
	for i, obs := range *o {
		if obs.sub == sub {
			*o = append((*o)[:i], (*o)[i+1:]...)
			return true
		}
	}
	return false
}

func (o observers) notify(c Change) {
	for _, obs := range o {
		obs.handler(c)
	}
}
