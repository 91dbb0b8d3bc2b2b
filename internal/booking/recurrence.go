package booking

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/campus-booking/internal/model"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Before reports whether c is earlier in the day than o.
func (c Clock) Before(o Clock) bool {
	return c.Hour*60+c.Minute < o.Hour*60+o.Minute
}

// On places c on the calendar day of day in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// Block is a recurring block ready for expansion.  StartDate and EndDate
// are calendar dates; only their year, month and day are used.
type Block struct {
	ID           uint64
	StartDate    time.Time
	EndDate      time.Time
	Weekdays     []time.Weekday
	Start        Clock
	End          Clock
	SpaceID      *uint64
	EquipmentIDs []uint64
}

// BlockFrom converts a persisted block.
func BlockFrom(rb model.RecurringBlock) (Block, error) {
	start, err := ParseClock(rb.StartTime)
	if err != nil {
		return Block{}, Invalid("startTime", err.Error())
	}
	end, err := ParseClock(rb.EndTime)
	if err != nil {
		return Block{}, Invalid("endTime", err.Error())
	}
	days := make([]time.Weekday, 0, len(rb.DaysOfWeek))
	for _, d := range rb.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}
	return Block{
		ID:           rb.ID,
		StartDate:    rb.StartDate,
		EndDate:      rb.EndDate,
		Weekdays:     days,
		Start:        start,
		End:          end,
		SpaceID:      rb.SpaceID,
		EquipmentIDs: rb.EquipmentIDs,
	}, nil
}

// Validate checks the block rule itself.
func (b Block) Validate() error {
	v := &ValidationError{}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		v.Add("startDate", "start and end dates are required")
	} else if dateOf(b.EndDate).Before(dateOf(b.StartDate)) {
		v.Add("endDate", "end date is before start date")
	}
	if len(b.Weekdays) == 0 {
		v.Add("dayOfWeek", "at least one weekday is required")
	}
	for _, d := range b.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			v.Add("dayOfWeek", "weekdays range from 0 (Sunday) to 6 (Saturday)")
		}
	}
	if !b.Start.Before(b.End) {
		v.Add("endTime", "end time must be after start time")
	}
	if b.SpaceID == nil && len(b.EquipmentIDs) == 0 {
		v.Add("spaceId", "a space or at least one equipment is required")
	}
	return v.Err()
}

// Targets lists the resources the block denies, space first.
func (b Block) Targets() []ResourceRef {
	out := make([]ResourceRef, 0, len(b.EquipmentIDs)+1)
	if b.SpaceID != nil {
		out = append(out, SpaceRef(*b.SpaceID))
	}
	for _, id := range b.EquipmentIDs {
		out = append(out, EquipmentRef(id))
	}
	return out
}

// Covers reports whether ref is one of the block's targets.
func (b Block) Covers(ref ResourceRef) bool {
	for _, t := range b.Targets() {
		if t == ref {
			return true
		}
	}
	return false
}

// Occurrences expands the block over its whole date range in
// chronological order.
func (b Block) Occurrences(loc *time.Location) []Interval {
	return b.between(dateOf(b.StartDate), dateOf(b.EndDate), loc)
}

// OccurrencesWithin expands only the days that can touch window and keeps
// the occurrences overlapping it.
func (b Block) OccurrencesWithin(window Interval, loc *time.Location) []Interval {
	from := dateOf(window.Start.In(loc))
	to := dateOf(window.End.In(loc))
	if s := dateOf(b.StartDate); from.Before(s) {
		from = s
	}
	if e := dateOf(b.EndDate); to.After(e) {
		to = e
	}
	var out []Interval
	for _, occ := range b.between(from, to, loc) {
		if Overlaps(occ, window) {
			out = append(out, occ)
		}
	}
	return out
}

func (b Block) between(from, to time.Time, loc *time.Location) []Interval {
	var out []Interval
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !b.on(day.Weekday()) {
			continue
		}
		out = append(out, Interval{Start: b.Start.On(day, loc), End: b.End.On(day, loc)})
	}
	return out
}

func (b Block) on(wd time.Weekday) bool {
	for _, d := range b.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// dateOf truncates t to its calendar day, keeping the day in a fixed UTC
// frame so day arithmetic is not affected by DST.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BlockCollision scans the block's occurrences in chronological order and
// returns a *ConflictError for the first one that collides with an active
// reservation of any target.
func BlockCollision(b Block, existing []Booked, loc *time.Location) error {
	targets := b.Targets()
	for _, occ := range b.Occurrences(loc) {
		for _, ref := range targets {
			if hit, ok := FirstConflict(existing, ref, occ); ok {
				return &ConflictError{Resource: ref, At: occ.Start, ReservationID: hit.ReservationID}
			}
		}
	}
	return nil
}

// CheckBlocks returns a *ConflictError when proposed for ref falls on an
// occurrence of any block covering ref.
func CheckBlocks(blocks []Block, ref ResourceRef, proposed Interval, loc *time.Location) error {
	type hit struct {
		block uint64
		at    time.Time
	}
	var hits []hit
	for _, b := range blocks {
		if !b.Covers(ref) {
			continue
		}
		if occ := b.OccurrencesWithin(proposed, loc); len(occ) > 0 {
			hits = append(hits, hit{block: b.ID, at: occ[0].Start})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at.Before(hits[j].at) })
	return &ConflictError{Resource: ref, At: hits[0].at, BlockID: hits[0].block}
}
