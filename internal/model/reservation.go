package model

import "time"

// ReservationStatus is the lifecycle state of a single reservation item.
// PENDING moves once to APPROVED or REJECTED; both are terminal.
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "PENDING"
	ReservationApproved ReservationStatus = "APPROVED"
	ReservationRejected ReservationStatus = "REJECTED"
)

// Valid reports whether s is a known reservation status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationApproved || s == ReservationRejected
}

// Reservation records one resource booking request.  Exactly one of
// SpaceID and EquipmentID is set.  Items submitted together share
// CartSubmissionID and DisplayID.
//
// Fields:
//
//	ID                 – primary key identifier.
//	DisplayID          – human readable YYMMDD_SURNAME_NNNN, immutable.
//	UserID             – requester.
//	SpaceID            – booked space (nullable).
//	EquipmentID        – booked equipment (nullable).
//	CartSubmissionID   – shared token of a cart submission (nullable).
//	StartTime, EndTime – half-open booking window, stored in UTC.
//	Status             – PENDING, APPROVED or REJECTED.
//	ApprovedByUserID   – approver, set only on APPROVED.
//	CheckedOut*/In*    – equipment hand-off tracking.
type Reservation struct {
	ID                 uint64            `db:"id" json:"id"`
	DisplayID          string            `db:"display_id" json:"displayId"`
	UserID             uint64            `db:"user_id" json:"userId"`
	SpaceID            *uint64           `db:"space_id" json:"spaceId,omitempty"`
	EquipmentID        *uint64           `db:"equipment_id" json:"equipmentId,omitempty"`
	CartSubmissionID   *string           `db:"cart_submission_id" json:"cartSubmissionId,omitempty"`
	StartTime          time.Time         `db:"start_time" json:"startTime"`
	EndTime            time.Time         `db:"end_time" json:"endTime"`
	Status             ReservationStatus `db:"status" json:"status"`
	Justification      string            `db:"justification" json:"justification"`
	Subject            *string           `db:"subject" json:"subject"`
	Coordinator        *string           `db:"coordinator" json:"coordinator"`
	Teacher            *string           `db:"teacher" json:"teacher"`
	ApprovedByUserID   *uint64           `db:"approved_by_user_id" json:"approvedByUserId,omitempty"`
	ApprovedAt         *time.Time        `db:"approved_at" json:"approvedAt,omitempty"`
	CheckedOutAt       *time.Time        `db:"checked_out_at" json:"checkedOutAt,omitempty"`
	CheckedOutByUserID *uint64           `db:"checked_out_by_user_id" json:"checkedOutByUserId,omitempty"`
	CheckedInAt        *time.Time        `db:"checked_in_at" json:"checkedInAt,omitempty"`
	CheckedInByUserID  *uint64           `db:"checked_in_by_user_id" json:"checkedInByUserId,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// Target returns the kind and id of the booked resource.
func (r Reservation) Target() (ResourceKind, uint64) {
	if r.SpaceID != nil {
		return KindSpace, *r.SpaceID
	}
	if r.EquipmentID != nil {
		return KindEquipment, *r.EquipmentID
	}
	return "", 0
}

// ReservationDocument links an uploaded file to a reservation.
type ReservationDocument struct {
	ID            uint64    `db:"id" json:"id"`
	ReservationID uint64    `db:"reservation_id" json:"reservationId"`
	FileName      string    `db:"file_name" json:"fileName"`
	FilePath      string    `db:"file_path" json:"filePath"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// ReservationItem is a reservation joined with its requester and booked
// resource, the row shape of every reservation listing.
type ReservationItem struct {
	Reservation
	User      UserSummary      `json:"user"`
	Space     *ResourceSummary `json:"space,omitempty"`
	Equipment *ResourceSummary `json:"equipment,omitempty"`
}

// ResponsibleUserID returns the responsible user of the booked resource.
func (i ReservationItem) ResponsibleUserID() *uint64 {
	if i.Space != nil {
		return i.Space.ResponsibleUserID
	}
	if i.Equipment != nil {
		return i.Equipment.ResponsibleUserID
	}
	return nil
}

// ResourceName returns the display name of the booked resource.
func (i ReservationItem) ResourceName() string {
	if i.Space != nil {
		return i.Space.Name
	}
	if i.Equipment != nil {
		return i.Equipment.Name
	}
	return ""
}
