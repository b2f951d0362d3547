package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// transitions is the closed transition table for the order state machine.
// Cancellation is reachable from pending and confirmed only.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether the state machine allows moving from s
// to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled
// by the customer.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// statusMessages holds the canned status-history message per target status.
var statusMessages = map[Status]string{
	StatusPending:    "Order received and awaiting confirmation",
	StatusConfirmed:  "Order confirmed and payment processed",
	StatusProcessing: "Order is being prepared for shipment",
	StatusShipped:    "Order has been shipped and is on its way",
	StatusDelivered:  "Order has been successfully delivered",
	StatusCancelled:  "Order has been cancelled",
}

// Message returns the canned status-history message for s.
func (s Status) Message() string {
	return statusMessages[s]
}

// StatusEntry is one immutable record in an order's status history.
type StatusEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Location  string    `json:"location,omitempty"`
}

// NewOrderID generates a human-readable public order identifier.
func NewOrderID() string {
	return fmt.Sprintf("MV%d%03d", time.Now().UnixMilli(), rand.IntN(1000))
}

// NewTrackingID generates a shipment tracking identifier. Assigned exactly
// once, on the first transition to shipped.
func NewTrackingID() string {
	return fmt.Sprintf("TRK%d%04d", time.Now().UnixMilli(), rand.IntN(10000))
}
