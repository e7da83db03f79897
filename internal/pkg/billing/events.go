package billing

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
)

// Stripe event types handled by the reconciler.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
)

// Event is a verified webhook event. The concrete type is one of
// CheckoutCompleted, SubscriptionUpdated, SubscriptionDeleted or
// UnhandledEvent.
type Event interface {
	EventID() string
	EventType() string
}

// CheckoutCompleted carries only the ids needed to fetch authoritative state.
type CheckoutCompleted struct {
	ID             string
	SessionID      string
	GridID         string
	CustomerID     string
	SubscriptionID string
}

type SubscriptionUpdated struct {
	ID             string
	SubscriptionID string
}

type SubscriptionDeleted struct {
	ID             string
	SubscriptionID string
	GridID         string
	CustomerID     string
}

// UnhandledEvent is any verified event type the reconciler ignores.
type UnhandledEvent struct {
	ID   string
	Type string
}

func (e CheckoutCompleted) EventID() string     { return e.ID }
func (e CheckoutCompleted) EventType() string   { return EventCheckoutSessionCompleted }
func (e SubscriptionUpdated) EventID() string   { return e.ID }
func (e SubscriptionUpdated) EventType() string { return EventSubscriptionUpdated }
func (e SubscriptionDeleted) EventID() string   { return e.ID }
func (e SubscriptionDeleted) EventType() string { return EventSubscriptionDeleted }
func (e UnhandledEvent) EventID() string        { return e.ID }
func (e UnhandledEvent) EventType() string      { return e.Type }

// ParseEvent maps a decoded Stripe event onto the event union.
func ParseEvent(ev stripe.Event) (Event, error) {
	switch string(ev.Type) {
	case EventCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := decodeObject(ev, &s); err != nil {
			return nil, err
		}
		out := CheckoutCompleted{ID: ev.ID, SessionID: s.ID, GridID: s.Metadata[MetadataGridID]}
		if s.Customer != nil {
			out.CustomerID = s.Customer.ID
		}
		if s.Subscription != nil {
			out.SubscriptionID = s.Subscription.ID
		}
		return out, nil

	case EventSubscriptionUpdated:
		var s stripe.Subscription
		if err := decodeObject(ev, &s); err != nil {
			return nil, err
		}
		return SubscriptionUpdated{ID: ev.ID, SubscriptionID: s.ID}, nil

	case EventSubscriptionDeleted:
		var s stripe.Subscription
		if err := decodeObject(ev, &s); err != nil {
			return nil, err
		}
		out := SubscriptionDeleted{ID: ev.ID, SubscriptionID: s.ID, GridID: s.Metadata[MetadataGridID]}
		if s.Customer != nil {
			out.CustomerID = s.Customer.ID
		}
		return out, nil

	default:
		return UnhandledEvent{ID: ev.ID, Type: string(ev.Type)}, nil
	}
}

func decodeObject(ev stripe.Event, v interface{}) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("event %s has no data object", ev.ID)
	}
	if err := json.Unmarshal(ev.Data.Raw, v); err != nil {
		return fmt.Errorf("decode %s object: %w", ev.Type, err)
	}
	return nil
}
