package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

func TestCreateResources(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()

	sp, err := svc.CreateSpace(ctx, f.actor(f.roomAdmin), model.Space{Name: " Aula 3 ", Capacity: 40, ResponsibleUserID: ptr(f.super.ID)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sp.DisplayID, "ES_"), sp.DisplayID)
	assert.Len(t, sp.DisplayID, 8)
	assert.Equal(t, "Aula 3", sp.Name)
	require.NotNil(t, sp.ResponsibleUserID)
	assert.Equal(t, f.roomAdmin.ID, *sp.ResponsibleUserID, "resource admins own what they create")

	eq, err := svc.CreateEquipment(ctx, f.actor(f.super), model.Equipment{Name: "Projector", FixedToSpaceID: ptr(sp.ID), ResponsibleUserID: ptr(f.resAdmin.ID)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(eq.DisplayID, "EQ_"), eq.DisplayID)
	assert.Equal(t, f.resAdmin.ID, *eq.ResponsibleUserID)

	got, err := svc.GetEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, eq.DisplayID, got.DisplayID)
	_, err = svc.GetSpace(ctx, 9999)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreateWorkshopOpensInscriptions(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()
	now := f.store.now()

	tests := []struct {
		name     string
		startsAt *time.Time
		open     bool
	}{
		{"no start date", nil, true},
		{"started", ptr(now.Add(-time.Hour)), true},
		{"later", ptr(now.Add(24 * time.Hour)), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, err := svc.CreateWorkshop(ctx, f.actor(f.super), model.Workshop{Name: "Go 101", Capacity: 10, InscriptionsStartDate: tc.startsAt})
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(w.DisplayID, "TA_"), w.DisplayID)
			assert.Equal(t, tc.open, w.InscriptionsOpen)
		})
	}
}

func TestCreateResourceRejects(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()

	_, err := svc.CreateSpace(ctx, f.actor(f.requester), model.Space{Name: "Mine"})
	assert.ErrorIs(t, err, booking.ErrForbidden)
	_, err = svc.CreateSpace(ctx, f.actor(f.resAdmin), model.Space{Name: "Mine"})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	var ve *booking.ValidationError
	_, err = svc.CreateSpace(ctx, f.actor(f.super), model.Space{Name: "", Capacity: -1})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "capacity")

	_, err = svc.CreateEquipment(ctx, f.actor(f.super), model.Equipment{Name: "Mic", FixedToSpaceID: ptr(uint64(777))})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "fixedToSpaceId")

	_, err = svc.CreateSpace(ctx, f.actor(f.super), model.Space{Name: "Ghost", ResponsibleUserID: ptr(uint64(777))})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "responsibleUserId")
}

func TestCreateRetriesTakenDisplayID(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	calls := 0
	err := svc.create(context.Background(), model.KindSpace, func(string) error {
		calls++
		if calls < 2 {
			return booking.ErrAlreadyExists
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = svc.create(context.Background(), model.KindSpace, func(string) error {
		calls++
		return booking.ErrAlreadyExists
	})
	assert.ErrorIs(t, err, booking.ErrAlreadyExists)
	assert.Equal(t, createAttempts, calls)
}

func TestUpdateResources(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()
	room := f.store.addSpace("A101", ptr(f.roomAdmin.ID))
	other := f.store.addUser("Nora", "Labs", model.RoleAdminResource)

	sp, err := svc.UpdateSpace(ctx, f.actor(f.roomAdmin), room.ID, model.Space{Name: " A101 renovated ", Capacity: 30})
	require.NoError(t, err)
	assert.Equal(t, "A101 renovated", sp.Name)
	assert.Equal(t, 30, sp.Capacity)
	assert.Equal(t, f.roomAdmin.ID, *sp.ResponsibleUserID, "omitted responsible user is kept")

	sp, err = svc.UpdateSpace(ctx, f.actor(f.roomAdmin), room.ID, model.Space{Name: "A101", ResponsibleUserID: ptr(other.ID)})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *sp.ResponsibleUserID)

	// Responsibility moved, so the previous admin lost the right to edit.
	_, err = svc.UpdateSpace(ctx, f.actor(f.roomAdmin), room.ID, model.Space{Name: "Mine again"})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	tests := []struct {
		name  string
		actor booking.Actor
		id    uint64
		in    model.Space
		check func(t *testing.T, err error)
	}{
		{"plain user", f.actor(f.requester), room.ID, model.Space{Name: "x"}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrForbidden)
		}},
		{"reservation admin", f.actor(f.resAdmin), room.ID, model.Space{Name: "x"}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrForbidden)
		}},
		{"missing space", f.actor(f.super), 9999, model.Space{Name: "x"}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, booking.ErrNotFound)
		}},
		{"blank name", f.actor(f.super), room.ID, model.Space{Name: " "}, func(t *testing.T, err error) {
			var ve *booking.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "name")
		}},
		{"unknown responsible user", f.actor(f.super), room.ID, model.Space{Name: "x", ResponsibleUserID: ptr(uint64(777))}, func(t *testing.T, err error) {
			var ve *booking.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "responsibleUserId")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateSpace(ctx, tc.actor, tc.id, tc.in)
			tc.check(t, err)
		})
	}
}

func TestUpdateWorkshopReevaluatesInscriptions(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()
	w := f.store.addWorkshop(model.Workshop{Name: "Pottery", InscriptionsOpen: true, ResponsibleUserID: ptr(f.roomAdmin.ID)})

	later := f.store.now().Add(48 * time.Hour)
	got, err := svc.UpdateWorkshop(ctx, f.actor(f.roomAdmin), w.ID, model.Workshop{Name: "Pottery II", Capacity: 8, InscriptionsStartDate: &later})
	require.NoError(t, err)
	assert.False(t, got.InscriptionsOpen)
	assert.Equal(t, 8, got.Capacity)

	_, err = NewInscriptionService(f.deps).Enroll(ctx, f.actor(f.requester), w.ID)
	var ve *booking.ValidationError
	assert.ErrorAs(t, err, &ve, "inscriptions are closed again")
}

func TestUpdateEquipmentFixedSpace(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()
	room := f.store.addSpace("A101", nil)
	gone := f.store.addSpace("B202", nil)
	eq := f.store.addEquipment("Projector", ptr(f.roomAdmin.ID), nil)
	require.NoError(t, svc.Deactivate(ctx, f.actor(f.super), model.KindSpace, gone.ID))

	got, err := svc.UpdateEquipment(ctx, f.actor(f.roomAdmin), eq.ID, model.Equipment{Name: "Projector", FixedToSpaceID: ptr(room.ID)})
	require.NoError(t, err)
	assert.Equal(t, room.ID, *got.FixedToSpaceID)

	_, err = svc.UpdateEquipment(ctx, f.actor(f.roomAdmin), eq.ID, model.Equipment{Name: "Projector", FixedToSpaceID: ptr(gone.ID)})
	var ve *booking.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "fixedToSpaceId")
}

func TestDeactivatedResourcesCannotBeBooked(t *testing.T) {
	f := newFixture(t)
	resources := NewResourceService(f.deps)
	reservations := NewReservationService(f.deps)
	inscriptions := NewInscriptionService(f.deps)
	ctx := context.Background()
	w := slot("2025-03-20", "10:00", "11:00")

	room := f.store.addSpace("A101", ptr(f.roomAdmin.ID))
	mic := f.store.addEquipment("Mic", ptr(f.roomAdmin.ID), nil)
	beamer := f.store.addEquipment("Beamer", nil, ptr(room.ID))
	course := f.store.addWorkshop(model.Workshop{Name: "Pottery", InscriptionsOpen: true, ResponsibleUserID: ptr(f.roomAdmin.ID)})

	// Deactivated fixed equipment is no longer bundled with its space.
	require.NoError(t, resources.Deactivate(ctx, f.actor(f.super), model.KindEquipment, beamer.ID))
	res, err := reservations.Submit(ctx, f.actor(f.requester), SubmitRequest{
		Items:         []booking.Line{spaceLine(room.ID, w)},
		Justification: "seminar",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Bundled)
	assert.Len(t, res.Reservations, 1)

	require.NoError(t, resources.Deactivate(ctx, f.actor(f.roomAdmin), model.KindSpace, room.ID))
	require.NoError(t, resources.Deactivate(ctx, f.actor(f.roomAdmin), model.KindEquipment, mic.ID))
	require.NoError(t, resources.Deactivate(ctx, f.actor(f.roomAdmin), model.KindWorkshop, course.ID))

	tests := []struct {
		name string
		line booking.Line
	}{
		{"space", spaceLine(room.ID, slot("2025-03-21", "10:00", "11:00"))},
		{"equipment", equipmentLine(mic.ID, w)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reservations.Submit(ctx, f.actor(f.requester), SubmitRequest{
				Items:         []booking.Line{tc.line},
				Justification: "seminar",
			})
			assert.ErrorIs(t, err, booking.ErrNotFound)
		})
	}

	_, err = inscriptions.Enroll(ctx, f.actor(f.requester), course.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = resources.GetSpace(ctx, room.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	spaces, err := resources.ListSpaces(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, spaces)

	// A second deactivation finds nothing left to deactivate.
	err = resources.Deactivate(ctx, f.actor(f.super), model.KindSpace, room.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestDeactivateRequiresResponsibility(t *testing.T) {
	f := newFixture(t)
	svc := NewResourceService(f.deps)
	ctx := context.Background()
	room := f.store.addSpace("A101", ptr(f.super.ID))

	err := svc.Deactivate(ctx, f.actor(f.roomAdmin), model.KindSpace, room.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)
	err = svc.Deactivate(ctx, f.actor(f.requester), model.KindSpace, room.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	got, err := svc.GetSpace(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
