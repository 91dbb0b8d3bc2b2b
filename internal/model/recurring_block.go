package model

import "time"

// RecurringBlock is a row of the `recurring_blocks` table: a rule that
// denies availability of a space and/or equipment on matching weekdays
// between StartDate and EndDate.  Blocks are expanded on demand and never
// materialised as reservations.
type RecurringBlock struct {
	ID              uint64    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Description     *string   `db:"description" json:"description,omitempty"`
	StartDate       time.Time `db:"start_date" json:"startDate"`
	EndDate         time.Time `db:"end_date" json:"endDate"`
	DaysOfWeek      []int     `db:"-" json:"dayOfWeek"`
	StartTime       string    `db:"start_time" json:"startTime"`
	EndTime         string    `db:"end_time" json:"endTime"`
	SpaceID         *uint64   `db:"space_id" json:"spaceId,omitempty"`
	EquipmentIDs    []uint64  `db:"-" json:"equipmentIds"`
	CreatedByUserID uint64    `db:"created_by_user_id" json:"createdByUserId"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
