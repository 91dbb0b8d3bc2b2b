package model

import "time"

// ResourceKind names the bookable resource families.  Spaces and equipment
// are reserved by time window; workshops take inscriptions instead.
type ResourceKind string

const (
	KindSpace     ResourceKind = "space"
	KindEquipment ResourceKind = "equipment"
	KindWorkshop  ResourceKind = "workshop"
)

// Space is a row of the `spaces` table: a room, lab or hall that can be
// reserved for a time window.
type Space struct {
	ID                uint64    `db:"id" json:"id"`
	DisplayID         string    `db:"display_id" json:"displayId"`
	Name              string    `db:"name" json:"name"`
	Description       *string   `db:"description" json:"description,omitempty"`
	Location          *string   `db:"location" json:"location,omitempty"`
	Capacity          int       `db:"capacity" json:"capacity"`
	ResponsibleUserID *uint64   `db:"responsible_user_id" json:"responsibleUserId,omitempty"`
	IsActive          bool      `db:"is_active" json:"isActive"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Equipment is a row of the `equipment` table.  When FixedToSpaceID is set
// the item lives in that space and is booked together with it.
type Equipment struct {
	ID                uint64    `db:"id" json:"id"`
	DisplayID         string    `db:"display_id" json:"displayId"`
	Name              string    `db:"name" json:"name"`
	Description       *string   `db:"description" json:"description,omitempty"`
	SerialNumber      *string   `db:"serial_number" json:"serialNumber,omitempty"`
	FixedAssetID      *string   `db:"fixed_asset_id" json:"fixedAssetId,omitempty"`
	FixedToSpaceID    *uint64   `db:"fixed_to_space_id" json:"fixedToSpaceId,omitempty"`
	ResponsibleUserID *uint64   `db:"responsible_user_id" json:"responsibleUserId,omitempty"`
	IsActive          bool      `db:"is_active" json:"isActive"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// Workshop is a row of the `workshops` table.  Capacity zero means
// unlimited.  InscriptionsOpen is flipped by the scheduler once
// InscriptionsStartDate has passed.
type Workshop struct {
	ID                    uint64     `db:"id" json:"id"`
	DisplayID             string     `db:"display_id" json:"displayId"`
	Name                  string     `db:"name" json:"name"`
	Description           *string    `db:"description" json:"description,omitempty"`
	Teacher               *string    `db:"teacher" json:"teacher,omitempty"`
	Capacity              int        `db:"capacity" json:"capacity"`
	StartDate             *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate               *time.Time `db:"end_date" json:"endDate,omitempty"`
	InscriptionsStartDate *time.Time `db:"inscriptions_start_date" json:"inscriptionsStartDate,omitempty"`
	InscriptionsOpen      bool       `db:"inscriptions_open" json:"inscriptionsOpen"`
	ResponsibleUserID     *uint64    `db:"responsible_user_id" json:"responsibleUserId,omitempty"`
	IsActive              bool       `db:"is_active" json:"isActive"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// ResourceSummary is the slice of a space or equipment row embedded in
// reservation listings.
type ResourceSummary struct {
	ID                uint64  `json:"id"`
	DisplayID         string  `json:"displayId"`
	Name              string  `json:"name"`
	ResponsibleUserID *uint64 `json:"responsibleUserId,omitempty"`
}

// Lock is what the reservation workflow reads back after taking a row lock
// on a bookable resource.
type Lock struct {
	Kind              ResourceKind
	ID                uint64
	Name              string
	ResponsibleUserID *uint64
	FixedToSpaceID    *uint64
}
