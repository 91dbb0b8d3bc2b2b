package booking

import (
	"fmt"
	"time"

	"github.com/iliyamo/campus-booking/internal/model"
)

// Interval is a half-open time window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool { return i.Start.Before(i.End) }

// Overlaps reports whether a and b share any instant.  Back-to-back
// windows (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ResourceRef identifies one bookable resource.
type ResourceRef struct {
	Kind model.ResourceKind
	ID   uint64
}

func (r ResourceRef) String() string { return fmt.Sprintf("%s:%d", r.Kind, r.ID) }

// SpaceRef and EquipmentRef are shorthands for building refs.
func SpaceRef(id uint64) ResourceRef     { return ResourceRef{Kind: model.KindSpace, ID: id} }
func EquipmentRef(id uint64) ResourceRef { return ResourceRef{Kind: model.KindEquipment, ID: id} }

// Booked is an existing reservation as seen by the conflict checks.
type Booked struct {
	ReservationID uint64
	Ref           ResourceRef
	Interval
	Status model.ReservationStatus
}

// BookedFrom converts a persisted reservation.
func BookedFrom(r model.Reservation) Booked {
	kind, id := r.Target()
	return Booked{
		ReservationID: r.ID,
		Ref:           ResourceRef{Kind: kind, ID: id},
		Interval:      Interval{Start: r.StartTime, End: r.EndTime},
		Status:        r.Status,
	}
}

// FirstConflict returns the first entry of existing that books ref during
// proposed.  Rejected entries and entries of other resources never match.
func FirstConflict(existing []Booked, ref ResourceRef, proposed Interval) (Booked, bool) {
	for _, b := range existing {
		if b.Ref != ref || b.Status == model.ReservationRejected {
			continue
		}
		if Overlaps(b.Interval, proposed) {
			return b, true
		}
	}
	return Booked{}, false
}

// CheckAvailable returns a *ConflictError when proposed collides with an
// active reservation of ref, and nil otherwise.
func CheckAvailable(existing []Booked, ref ResourceRef, proposed Interval) error {
	hit, ok := FirstConflict(existing, ref, proposed)
	if !ok {
		return nil
	}
	return &ConflictError{Resource: ref, At: hit.Start, ReservationID: hit.ReservationID}
}
