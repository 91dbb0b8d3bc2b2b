package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

type fixture struct {
	store    *memStore
	notifier *memNotifier
	deps     Deps

	super     model.User
	resAdmin  model.User
	roomAdmin model.User
	requester model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	n := &memNotifier{}
	f := &fixture{
		store:    store,
		notifier: n,
		deps: Deps{
			Store:    store,
			Notifier: n,
			Location: time.UTC,
			Now:      func() time.Time { return store.now() },
		},
	}
	f.super = store.addUser("Sara", "Root", model.RoleSuperuser)
	f.resAdmin = store.addUser("Rita", "Desk", model.RoleAdminReservation)
	f.roomAdmin = store.addUser("Omar", "Rooms", model.RoleAdminResource)
	f.requester = store.addUser("Lucía", "García López", model.RoleUser)
	return f
}

func (f *fixture) actor(u model.User) booking.Actor {
	return booking.Actor{UserID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }

func slot(day string, from, to string) booking.Interval {
	start, err := time.Parse(time.RFC3339, day+"T"+from+":00Z")
	if err != nil {
		panic(err)
	}
	end, err := time.Parse(time.RFC3339, day+"T"+to+":00Z")
	if err != nil {
		panic(err)
	}
	return booking.Interval{Start: start, End: end}
}

func spaceLine(id uint64, w booking.Interval) booking.Line {
	return booking.Line{SpaceID: ptr(id), Window: w}
}

func equipmentLine(id uint64, w booking.Interval) booking.Line {
	return booking.Line{EquipmentID: ptr(id), Window: w}
}

func TestSubmitSingle(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", ptr(f.roomAdmin.ID))
	svc := NewReservationService(f.deps)

	res, err := svc.Submit(context.Background(), f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-20", "10:00", "11:00"))},
		Justification: "  thesis defence  ",
		Subject:       ptr("Databases"),
	})
	require.NoError(t, err)

	assert.Equal(t, "250314_GARCIA_0001", res.DisplayID)
	assert.Nil(t, res.CartSubmissionID)
	require.Len(t, res.Reservations, 1)
	r := res.Reservations[0]
	assert.Equal(t, model.ReservationPending, r.Status)
	assert.Equal(t, "thesis defence", r.Justification)
	assert.Equal(t, f.requester.ID, r.UserID)
	assert.Equal(t, "Databases", *r.Subject)
	assert.Len(t, f.store.reservations(), 1)
}

func TestSubmitCounterIsPerDay(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	svc := NewReservationService(f.deps)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		w := slot("2025-03-20", fmt.Sprintf("%02d:00", 8+i), fmt.Sprintf("%02d:00", 9+i))
		res, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
			Items:         []booking.Line{spaceLine(room.ID, w)},
			Justification: "lab",
		})
		require.NoError(t, err)
		ids = append(ids, res.DisplayID)
	}
	assert.Equal(t, []string{"250314_GARCIA_0001", "250314_GARCIA_0002", "250314_GARCIA_0003"}, ids)

	f.store.now = func() time.Time { return time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC) }
	res, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-21", "08:00", "09:00"))},
		Justification: "lab",
	})
	require.NoError(t, err)
	assert.Equal(t, "250315_GARCIA_0001", res.DisplayID)
}

func TestSubmitConflicts(t *testing.T) {
	tests := []struct {
		name     string
		existing booking.Interval
		status   model.ReservationStatus
		other    bool
		proposed booking.Interval
		wantErr  bool
	}{
		{
			name:     "overlap",
			existing: slot("2025-03-20", "10:00", "12:00"),
			status:   model.ReservationPending,
			proposed: slot("2025-03-20", "11:00", "13:00"),
			wantErr:  true,
		},
		{
			name:     "approved overlap",
			existing: slot("2025-03-20", "10:00", "12:00"),
			status:   model.ReservationApproved,
			proposed: slot("2025-03-20", "09:00", "10:30"),
			wantErr:  true,
		},
		{
			name:     "back to back",
			existing: slot("2025-03-20", "10:00", "12:00"),
			status:   model.ReservationPending,
			proposed: slot("2025-03-20", "12:00", "13:00"),
		},
		{
			name:     "rejected booking frees the slot",
			existing: slot("2025-03-20", "10:00", "12:00"),
			status:   model.ReservationRejected,
			proposed: slot("2025-03-20", "10:00", "12:00"),
		},
		{
			name:     "other resource",
			existing: slot("2025-03-20", "10:00", "12:00"),
			status:   model.ReservationApproved,
			other:    true,
			proposed: slot("2025-03-20", "10:00", "12:00"),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			room := f.store.addSpace("A101", nil)
			other := f.store.addSpace("B202", nil)
			ctx := context.Background()
			svc := NewReservationService(f.deps)

			first := room.ID
			if tc.other {
				first = other.ID
			}
			prior, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
				Items:         []booking.Line{spaceLine(first, tc.existing)},
				Justification: "prior",
			})
			require.NoError(t, err)
			if tc.status != model.ReservationPending {
				d := booking.Approve
				if tc.status == model.ReservationRejected {
					d = booking.Reject
				}
				_, err := NewApprovalService(f.deps).Decide(ctx, f.actor(f.super), prior.Reservations[0].ID, d)
				require.NoError(t, err)
			}

			_, err = svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
				Items:         []booking.Line{spaceLine(room.ID, tc.proposed)},
				Justification: "next",
			})
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, booking.ErrConflict)
			var ce *booking.ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, booking.SpaceRef(room.ID), ce.Resource)
			assert.Equal(t, prior.Reservations[0].ID, ce.ReservationID)
		})
	}
}

func TestSubmitCartSharesDisplayID(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	beamer := f.store.addEquipment("Beamer", nil, nil)
	svc := NewReservationService(f.deps)
	ctx := context.Background()

	w := slot("2025-03-20", "10:00", "12:00")
	res, err := svc.SubmitCart(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, w), equipmentLine(beamer.ID, w)},
		Justification: "workshop",
	})
	require.NoError(t, err)
	require.NotNil(t, res.CartSubmissionID)
	assert.NotEmpty(t, *res.CartSubmissionID)
	require.Len(t, res.Reservations, 2)
	for _, r := range res.Reservations {
		assert.Equal(t, res.DisplayID, r.DisplayID)
		assert.Equal(t, *res.CartSubmissionID, *r.CartSubmissionID)
	}

	// a later submission carrying the same token joins the cart
	more, err := svc.SubmitCart(ctx, f.actor(f.requester), SubmitRequest{
		Items:            []booking.Line{equipmentLine(beamer.ID, slot("2025-03-21", "10:00", "12:00"))},
		Justification:    "workshop day two",
		CartSubmissionID: *res.CartSubmissionID,
	})
	require.NoError(t, err)
	assert.Equal(t, res.DisplayID, more.DisplayID)

	// the counter was consumed once for the whole cart
	single, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-22", "10:00", "12:00"))},
		Justification: "alone",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(single.DisplayID, "_0002"), single.DisplayID)

	groups, err := svc.ListMine(ctx, f.actor(f.requester))
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Items, 3)
	assert.Equal(t, "single-"+fmt.Sprint(single.Reservations[0].ID), groups[1].CartSubmissionID)
}

func TestSubmitCartTokenOfAnotherUser(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	svc := NewReservationService(f.deps)
	ctx := context.Background()

	res, err := svc.SubmitCart(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-20", "10:00", "11:00"))},
		Justification: "mine",
	})
	require.NoError(t, err)

	other := f.store.addUser("Iván", "Pérez", model.RoleUser)
	_, err = svc.SubmitCart(ctx, f.actor(other), SubmitRequest{
		Items:            []booking.Line{spaceLine(room.ID, slot("2025-03-20", "12:00", "13:00"))},
		Justification:    "borrowed token",
		CartSubmissionID: *res.CartSubmissionID,
	})
	var ve *booking.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "cartSubmissionId")
	assert.Len(t, f.store.reservations(), 1, "nothing joins the foreign cart")

	// The counter was not consumed by the rejected submission.
	own, err := svc.Submit(ctx, f.actor(other), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-20", "12:00", "13:00"))},
		Justification: "own cart",
	})
	require.NoError(t, err)
	assert.Equal(t, "250314_PEREZ_0002", own.DisplayID)
}

func TestSubmitCartIntraCartOverlapRollsBack(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	svc := NewReservationService(f.deps)

	_, err := svc.SubmitCart(context.Background(), f.actor(f.requester), SubmitRequest{
		Items: []booking.Line{
			spaceLine(room.ID, slot("2025-03-20", "10:00", "12:00")),
			spaceLine(room.ID, slot("2025-03-20", "11:00", "13:00")),
		},
		Justification: "double",
	})
	require.ErrorIs(t, err, booking.ErrConflict)
	assert.Empty(t, f.store.reservations())
	assert.Empty(t, f.notifier.sent())
}

func TestSubmitBundlesFixedEquipment(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("Aula Magna", nil)
	fixed := f.store.addEquipment("Ceiling projector", nil, ptr(room.ID))
	f.store.addEquipment("Loose mic", nil, nil)
	svc := NewReservationService(f.deps)
	ctx := context.Background()

	w := slot("2025-03-20", "10:00", "12:00")
	res, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, w)},
		Justification: "conference",
		Documents:     []Document{{FileName: "plan.pdf", FilePath: "uploads/x-plan.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{fixed.ID}, res.Bundled)
	require.Len(t, res.Reservations, 2)
	require.NotNil(t, res.CartSubmissionID)
	assert.Equal(t, fixed.ID, *res.Reservations[1].EquipmentID)
	assert.Equal(t, w, booking.Interval{Start: res.Reservations[1].StartTime, End: res.Reservations[1].EndTime})

	docs := f.store.documents()
	require.Len(t, docs, 2)
	got := []uint64{docs[0].ReservationID, docs[1].ReservationID}
	assert.ElementsMatch(t, []uint64{res.Reservations[0].ID, res.Reservations[1].ID}, got)

	// the projector is taken elsewhere in time, so booking the room again fails as a whole
	_, err = svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{equipmentLine(fixed.ID, slot("2025-03-21", "10:00", "12:00"))},
		Justification: "projector only",
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-21", "11:00", "12:00"))},
		Justification: "room",
	})
	var ce *booking.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, booking.EquipmentRef(fixed.ID), ce.Resource)
	assert.Len(t, f.store.reservations(), 3)
}

func TestSubmitRespectsRecurringBlocks(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	ctx := context.Background()
	block, err := NewBlockService(f.deps).Create(ctx, f.actor(f.super), model.RecurringBlock{
		Title:      "Algebra lecture",
		StartDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		DaysOfWeek: []int{int(time.Friday)},
		StartTime:  "10:00",
		EndTime:    "12:00",
		SpaceID:    ptr(room.ID),
	})
	require.NoError(t, err)
	svc := NewReservationService(f.deps)

	tests := []struct {
		name    string
		window  booking.Interval
		blocked bool
	}{
		{"friday inside the block", slot("2025-03-21", "11:00", "13:00"), true},
		{"friday after the block", slot("2025-03-21", "12:00", "13:00"), false},
		{"thursday", slot("2025-03-20", "10:00", "12:00"), false},
		{"friday past end date", slot("2025-07-04", "10:00", "12:00"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
				Items:         []booking.Line{spaceLine(room.ID, tc.window)},
				Justification: "study group",
			})
			if !tc.blocked {
				require.NoError(t, err)
				return
			}
			var ce *booking.ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, block.ID, ce.BlockID)
			assert.Equal(t, time.Date(2025, 3, 21, 10, 0, 0, 0, time.UTC), ce.At)
		})
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	svc := NewReservationService(f.deps)
	ctx := context.Background()
	w := slot("2025-03-20", "10:00", "11:00")

	tests := []struct {
		name   string
		submit func() error
		target error
	}{
		{
			name: "single with two items",
			submit: func() error {
				_, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
					Items:         []booking.Line{spaceLine(room.ID, w), spaceLine(room.ID, w)},
					Justification: "x",
				})
				return err
			},
		},
		{
			name: "missing justification",
			submit: func() error {
				_, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{Items: []booking.Line{spaceLine(room.ID, w)}})
				return err
			},
		},
		{
			name: "end before start",
			submit: func() error {
				_, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
					Items:         []booking.Line{spaceLine(room.ID, booking.Interval{Start: w.End, End: w.Start})},
					Justification: "x",
				})
				return err
			},
		},
		{
			name: "empty cart",
			submit: func() error {
				_, err := svc.SubmitCart(ctx, f.actor(f.requester), SubmitRequest{Justification: "x"})
				return err
			},
		},
		{
			name: "unknown space",
			submit: func() error {
				_, err := svc.Submit(ctx, f.actor(f.requester), SubmitRequest{
					Items:         []booking.Line{spaceLine(9999, w)},
					Justification: "x",
				})
				return err
			},
			target: booking.ErrNotFound,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.submit()
			require.Error(t, err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
				return
			}
			var ve *booking.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
	assert.Empty(t, f.store.reservations())
}

func TestSubmitNotifiesResponsibleAndAdmins(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", ptr(f.roomAdmin.ID))
	svc := NewReservationService(f.deps)

	_, err := svc.Submit(context.Background(), f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-20", "10:00", "11:00"))},
		Justification: "seminar",
	})
	require.NoError(t, err)

	got := f.notifier.recipients()
	assert.Equal(t, map[uint64]int{f.roomAdmin.ID: 1, f.super.ID: 1, f.resAdmin.ID: 1}, got)
	for _, m := range f.notifier.sent() {
		if m.RecipientID == f.roomAdmin.ID {
			assert.Contains(t, m.Body, "A101")
		}
		require.NotNil(t, m.ReservationID)
	}
}

func TestSubmitSucceedsWhenNotifierFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	room := f.store.addSpace("A101", nil)

	_, err := NewReservationService(f.deps).Submit(context.Background(), f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-20", "10:00", "11:00"))},
		Justification: "seminar",
	})
	require.NoError(t, err)
	assert.Len(t, f.store.reservations(), 1)
}

func TestConcurrentSubmitsGetDistinctSequences(t *testing.T) {
	f := newFixture(t)
	const n = 20
	rooms := make([]model.Space, n)
	for i := range rooms {
		rooms[i] = f.store.addSpace(fmt.Sprintf("R%02d", i), nil)
	}
	svc := NewReservationService(f.deps)

	ids := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			res, err := svc.Submit(context.Background(), f.actor(f.requester), SubmitRequest{
				Items:         []booking.Line{spaceLine(rooms[i].ID, slot("2025-03-20", "10:00", "11:00"))},
				Justification: "parallel",
			})
			if err != nil {
				return err
			}
			ids[i] = res.DisplayID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	want := make([]string, n)
	for i := range want {
		want[i] = fmt.Sprintf("250314_GARCIA_%04d", i+1)
	}
	sort.Strings(ids)
	assert.Equal(t, want, ids)
}

func TestConcurrentSubmitsForSameSlot(t *testing.T) {
	f := newFixture(t)
	room := f.store.addSpace("A101", nil)
	svc := NewReservationService(f.deps)

	const n = 10
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = svc.Submit(context.Background(), f.actor(f.requester), SubmitRequest{
				Items:         []booking.Line{spaceLine(room.ID, slot("2025-03-20", "10:00", "11:00"))},
				Justification: "race",
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, booking.ErrConflict)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.store.reservations(), 1)
}
