package subscription

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

// Provider event types handled by the webhook pipeline.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrUnhandledEventType is returned for event types outside the
// subscription lifecycle.
var ErrUnhandledEventType = errors.New("unhandled event type")

// IsHandledEventType reports whether the pipeline knows the given type.
func IsHandledEventType(eventType string) bool {
	switch eventType {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		return true
	default:
		return false
	}
}

// Snapshot is the strongly-typed slice of the provider's subscription object
// the pipeline consumes.
type Snapshot struct {
	SubscriptionID    string
	CustomerID        string
	Status            string
	PriceID           string
	CancelAtPeriodEnd bool
}

// Event is the decoded, tagged form of a provider webhook event. Exactly one
// of CreatedEvent, UpdatedEvent or DeletedEvent implements it per event kind.
type Event interface {
	// CustomerID returns the billing-customer id the event refers to.
	CustomerID() string
}

// CreatedEvent signals a newly created provider subscription.
type CreatedEvent struct {
	Subscription Snapshot
}

// UpdatedEvent signals a changed provider subscription. The Previous fields
// are set only when the provider reported the attribute as changed.
type UpdatedEvent struct {
	Subscription    Snapshot
	PreviousStatus  *string
	PreviousPriceID *string
}

// DeletedEvent signals a terminated provider subscription.
type DeletedEvent struct {
	Subscription Snapshot
}

func (e CreatedEvent) CustomerID() string { return e.Subscription.CustomerID }
func (e UpdatedEvent) CustomerID() string { return e.Subscription.CustomerID }
func (e DeletedEvent) CustomerID() string { return e.Subscription.CustomerID }

// wireSubscription matches the provider's subscription object as delivered in
// webhook payloads (customer as id string, price nested under items).
type wireSubscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// wirePreviousAttributes matches the provider's previous_attributes object on
// update events. Pointer fields distinguish "absent" from "empty".
type wirePreviousAttributes struct {
	Status *string `json:"status"`
	Items  *struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// DecodeEvent turns a verified provider event into its tagged variant,
// validating the fields the transitions rely on.
func DecodeEvent(event *stripe.Event) (Event, error) {
	snap, err := decodeSnapshot(event.Data.Raw)
	if err != nil {
		return nil, err
	}

	switch string(event.Type) {
	case EventSubscriptionCreated:
		return CreatedEvent{Subscription: snap}, nil
	case EventSubscriptionUpdated:
		prevStatus, prevPriceID, err := decodePreviousAttributes(event.Data.PreviousAttributes)
		if err != nil {
			return nil, err
		}
		return UpdatedEvent{Subscription: snap, PreviousStatus: prevStatus, PreviousPriceID: prevPriceID}, nil
	case EventSubscriptionDeleted:
		return DeletedEvent{Subscription: snap}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEventType, event.Type)
	}
}

func decodeSnapshot(raw json.RawMessage) (Snapshot, error) {
	var wire wireSubscription
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Snapshot{}, fmt.Errorf("decode subscription object: %w", err)
	}
	if wire.ID == "" {
		return Snapshot{}, errors.New("subscription object missing id")
	}
	if wire.Customer == "" {
		return Snapshot{}, errors.New("subscription object missing customer")
	}
	if wire.Status == "" {
		return Snapshot{}, errors.New("subscription object missing status")
	}
	if len(wire.Items.Data) == 0 || wire.Items.Data[0].Price.ID == "" {
		return Snapshot{}, errors.New("subscription object missing price")
	}

	return Snapshot{
		SubscriptionID:    wire.ID,
		CustomerID:        wire.Customer,
		Status:            wire.Status,
		PriceID:           wire.Items.Data[0].Price.ID,
		CancelAtPeriodEnd: wire.CancelAtPeriodEnd,
	}, nil
}

func decodePreviousAttributes(attrs map[string]interface{}) (*string, *string, error) {
	if len(attrs) == 0 {
		return nil, nil, nil
	}

	// Round-trip through JSON instead of walking the untyped map.
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode previous attributes: %w", err)
	}
	var wire wirePreviousAttributes
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, nil, fmt.Errorf("decode previous attributes: %w", err)
	}

	var prevPriceID *string
	if wire.Items != nil && len(wire.Items.Data) > 0 && wire.Items.Data[0].Price.ID != "" {
		id := wire.Items.Data[0].Price.ID
		prevPriceID = &id
	}
	return wire.Status, prevPriceID, nil
}
