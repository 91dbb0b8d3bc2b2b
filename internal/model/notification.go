package model

import "time"

// Notification is an in-app message, unread by default.
type Notification struct {
	ID            uint64    `db:"id" json:"id"`
	UserID        uint64    `db:"user_id" json:"userId"`
	Message       string    `db:"message" json:"message"`
	ReservationID *uint64   `db:"reservation_id" json:"reservationId,omitempty"`
	IsRead        bool      `db:"is_read" json:"isRead"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
