package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/campus-booking/internal/model"
)

var (
	// ErrNotFound is returned when a referenced reservation, resource,
	// block or inscription does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller lacks the role or the
	// resource responsibility required for an action.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("time slot conflict")
	// ErrInvalidTransition is returned when a decision is applied to an
	// item that already left its pending state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyExists is returned when a unique record, such as a user's
	// inscription to a workshop or an e-mail address, is created twice.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDisplayIDExhausted is returned when no free resource display ID
	// was found within MaxDisplayIDAttempts draws.
	ErrDisplayIDExhausted = errors.New("could not allocate a unique display id")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

// Add records msg for field.  The first message for a field wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Err returns e when at least one field failed, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Invalid builds a single-field ValidationError.
func Invalid(field, msg string) error {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

// ConflictError reports the first occurrence that collides with an
// existing booking of the same resource.
type ConflictError struct {
	Resource ResourceRef
	// At is the start of the colliding occurrence.
	At time.Time
	// ReservationID is set when the collision is with a reservation.
	ReservationID uint64
	// BlockID is set when the collision is with a recurring block.
	BlockID uint64
}

func (e *ConflictError) Error() string {
	what := "an existing reservation"
	if e.BlockID != 0 {
		what = "a recurring block"
	}
	return fmt.Sprintf("%s %d collides with %s at %s",
		kindLabel(e.Resource.Kind), e.Resource.ID, what, e.At.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrConflict) true for every ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func kindLabel(k model.ResourceKind) string {
	switch k {
	case model.KindSpace:
		return "space"
	case model.KindEquipment:
		return "equipment"
	case model.KindWorkshop:
		return "workshop"
	}
	return "resource"
}
