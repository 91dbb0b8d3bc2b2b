package booking_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

var (
	resourceIDPattern    = regexp.MustCompile(`^(ES|EQ|TA)_[A-Z0-9]{5}$`)
	reservationIDPattern = regexp.MustCompile(`^\d{6}_[A-Z]+_\d{4}$`)
)

func TestNewResourceDisplayIDUnique(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	seen := make(map[string]struct{})
	exists := func(_ context.Context, id string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := seen[id]; ok {
			return true, nil
		}
		seen[id] = struct{}{}
		return false, nil
	}

	const n = 10000
	for i := 0; i < n; i++ {
		id, err := booking.NewResourceDisplayID(context.Background(), model.KindEquipment, exists)
		require.NoError(t, err)
		require.Regexp(t, resourceIDPattern, id)
	}
	require.Len(t, seen, n)
}

func TestNewResourceDisplayIDRetriesOnCollision(t *testing.T) {
	t.Parallel()
	calls := 0
	exists := func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	}
	id, err := booking.NewResourceDisplayID(context.Background(), model.KindSpace, exists)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, "ES_", id[:3])
}

func TestNewResourceDisplayIDExhausted(t *testing.T) {
	t.Parallel()
	taken := func(context.Context, string) (bool, error) { return true, nil }
	_, err := booking.NewResourceDisplayID(context.Background(), model.KindWorkshop, taken)
	require.ErrorIs(t, err, booking.ErrDisplayIDExhausted)
}

func TestSurname(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"García López": "GARCIA",
		"  núñez ":     "NUNEZ",
		"O'Brien":      "OBRIEN",
		"":             "USER",
		"   ":          "USER",
		"123":          "USER",
		"Müller":       "MULLER",
	}
	for in, want := range tests {
		require.Equal(t, want, booking.Surname(in), "input %q", in)
	}
}

func TestReservationDisplayID(t *testing.T) {
	t.Parallel()
	day := time.Date(2024, time.March, 1, 23, 30, 0, 0, time.UTC)
	id := booking.ReservationDisplayID(day, booking.Surname("Pérez"), 7)
	require.Equal(t, "240301_PEREZ_0007", id)
	require.Regexp(t, reservationIDPattern, id)
	require.Equal(t, "2024-03-01", booking.CounterKey(day))
}
