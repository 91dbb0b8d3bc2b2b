package model

import "time"

// InscriptionStatus is the lifecycle state of a workshop inscription.  It
// is deliberately a separate type from ReservationStatus: only
// inscriptions can be PENDING_EXTRAORDINARY (requested after the workshop
// filled up).
type InscriptionStatus string

const (
	InscriptionPending              InscriptionStatus = "PENDING"
	InscriptionPendingExtraordinary InscriptionStatus = "PENDING_EXTRAORDINARY"
	InscriptionApproved             InscriptionStatus = "APPROVED"
	InscriptionRejected             InscriptionStatus = "REJECTED"
)

// Valid reports whether s is a known inscription status.
func (s InscriptionStatus) Valid() bool {
	switch s {
	case InscriptionPending, InscriptionPendingExtraordinary, InscriptionApproved, InscriptionRejected:
		return true
	}
	return false
}

// Pending reports whether s still awaits a decision.
func (s InscriptionStatus) Pending() bool {
	return s == InscriptionPending || s == InscriptionPendingExtraordinary
}

// Inscription is a row of the `inscriptions` table.
type Inscription struct {
	ID               uint64            `db:"id" json:"id"`
	WorkshopID       uint64            `db:"workshop_id" json:"workshopId"`
	UserID           uint64            `db:"user_id" json:"userId"`
	Status           InscriptionStatus `db:"status" json:"status"`
	ApprovedByUserID *uint64           `db:"approved_by_user_id" json:"approvedByUserId,omitempty"`
	DecidedAt        *time.Time        `db:"decided_at" json:"decidedAt,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// InscriptionItem is an inscription joined with its user and workshop for
// admin listings.
type InscriptionItem struct {
	Inscription
	User     UserSummary     `json:"user"`
	Workshop ResourceSummary `json:"workshop"`
}
