package booking

import (
	"strconv"
	"strings"
)

// Line is one resource selection of a submission.
type Line struct {
	SpaceID     *uint64
	EquipmentID *uint64
	Window      Interval
}

// Ref returns the selected resource.  Call Validate first.
func (l Line) Ref() ResourceRef {
	if l.SpaceID != nil {
		return SpaceRef(*l.SpaceID)
	}
	return EquipmentRef(*l.EquipmentID)
}

// Validate enforces exactly one resource reference and start < end.
func (l Line) Validate() error {
	v := &ValidationError{}
	l.validateInto(v, "")
	return v.Err()
}

func (l Line) validateInto(v *ValidationError, prefix string) {
	switch {
	case l.SpaceID == nil && l.EquipmentID == nil:
		v.Add(prefix+"spaceId", "a space or an equipment is required")
	case l.SpaceID != nil && l.EquipmentID != nil:
		v.Add(prefix+"spaceId", "a reservation books either a space or an equipment, not both")
	}
	if l.Window.Start.IsZero() || l.Window.End.IsZero() {
		v.Add(prefix+"startTime", "start and end time are required")
	} else if !l.Window.Valid() {
		v.Add(prefix+"endTime", "end time must be after start time")
	}
}

// ValidateSubmission checks every line and the shared justification.
func ValidateSubmission(lines []Line, justification string) error {
	v := &ValidationError{}
	if len(lines) == 0 {
		v.Add("items", "at least one item is required")
	}
	for i, l := range lines {
		prefix := ""
		if len(lines) > 1 {
			prefix = "items[" + strconv.Itoa(i) + "]."
		}
		l.validateInto(v, prefix)
	}
	if strings.TrimSpace(justification) == "" {
		v.Add("justification", "justification is required")
	}
	return v.Err()
}
