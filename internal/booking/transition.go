package booking

import "github.com/iliyamo/campus-booking/internal/model"

// Decision is an approver's verdict on one item.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// Actor is the resolved caller of a mutating operation.
type Actor struct {
	UserID uint64
	Role   model.Role
}

// Authorize applies the transition rule: a superuser may act on anything,
// resource and reservation admins only on resources they are responsible
// for, everyone else never.
func Authorize(actor Actor, responsibleUserID *uint64) error {
	switch actor.Role {
	case model.RoleSuperuser:
		return nil
	case model.RoleAdminResource, model.RoleAdminReservation:
		if responsibleUserID != nil && *responsibleUserID == actor.UserID {
			return nil
		}
	}
	return ErrForbidden
}

// NextReservationStatus returns the status an item moves to under d.  Only
// PENDING items can move.
func NextReservationStatus(from model.ReservationStatus, d Decision) (model.ReservationStatus, error) {
	if from != model.ReservationPending {
		return from, ErrInvalidTransition
	}
	switch d {
	case Approve:
		return model.ReservationApproved, nil
	case Reject:
		return model.ReservationRejected, nil
	}
	return from, Invalid("decision", "unknown decision "+string(d))
}

// NextInscriptionStatus is the inscription counterpart: both pending
// variants may be approved or rejected, decided ones are terminal.
func NextInscriptionStatus(from model.InscriptionStatus, d Decision) (model.InscriptionStatus, error) {
	if !from.Pending() {
		return from, ErrInvalidTransition
	}
	switch d {
	case Approve:
		return model.InscriptionApproved, nil
	case Reject:
		return model.InscriptionRejected, nil
	}
	return from, Invalid("decision", "unknown decision "+string(d))
}
