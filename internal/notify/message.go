// Package notify delivers user notifications: an unread in-app record per
// recipient plus an e-mail when the recipient has an address.  Delivery
// is best-effort; callers log failures and carry on.
package notify

import (
	"context"
	"errors"
)

// Message is one notification for one recipient.
type Message struct {
	RecipientID   uint64  `json:"recipientId"`
	Email         string  `json:"email,omitempty"`
	Name          string  `json:"name,omitempty"`
	Subject       string  `json:"subject"`
	Body          string  `json:"body"`
	ReservationID *uint64 `json:"reservationId,omitempty"`
}

// Notifier accepts messages for delivery.  Implementations must not
// block on the actual delivery.
type Notifier interface {
	Notify(ctx context.Context, msgs ...Message) error
}

// ErrQueueFull is returned by Queue.Notify when the backlog is full.
var ErrQueueFull = errors.New("notification queue full")

// Discard drops every message.
type Discard struct{}

func (Discard) Notify(context.Context, ...Message) error { return nil }
