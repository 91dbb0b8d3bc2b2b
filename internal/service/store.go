// Package service implements the booking workflows on top of a Store:
// reservation submission, approval, recurring blocks, the resource
// catalogue, workshop inscriptions and the notification read side.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/repository"
)

// Store is the persistence the workflows need outside transactions.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error

	UserByID(ctx context.Context, id uint64) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UsersByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error)
	CreateUser(ctx context.Context, u *model.User) error

	DisplayIDExists(ctx context.Context, kind model.ResourceKind, id string) (bool, error)
	CreateSpace(ctx context.Context, s *model.Space) error
	CreateEquipment(ctx context.Context, e *model.Equipment) error
	CreateWorkshop(ctx context.Context, w *model.Workshop) error
	UpdateSpace(ctx context.Context, s *model.Space) error
	UpdateEquipment(ctx context.Context, e *model.Equipment) error
	UpdateWorkshop(ctx context.Context, w *model.Workshop) error
	DeactivateResource(ctx context.Context, kind model.ResourceKind, id uint64) error
	ListSpaces(ctx context.Context, search string) ([]model.Space, error)
	ListEquipment(ctx context.Context, search string) ([]model.Equipment, error)
	ListWorkshops(ctx context.Context, search string) ([]model.Workshop, error)
	GetSpace(ctx context.Context, id uint64) (model.Space, error)
	GetEquipment(ctx context.Context, id uint64) (model.Equipment, error)
	GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error)
	FixedEquipment(ctx context.Context, spaceIDs []uint64) ([]model.Equipment, error)
	OpenDueInscriptions(ctx context.Context, now time.Time) (int64, error)

	ListReservations(ctx context.Context, f repository.ReservationFilter) ([]model.ReservationItem, error)
	DeleteReservation(ctx context.Context, id uint64) error

	ListBlocks(ctx context.Context) ([]model.RecurringBlock, error)
	DeleteBlock(ctx context.Context, id uint64) error

	ListInscriptions(ctx context.Context, f repository.InscriptionFilter) ([]model.InscriptionItem, error)

	ListNotifications(ctx context.Context, userID uint64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uint64) error
	MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error)
}

// Tx is the transactional part of the Store.  Lock* methods take row
// locks that are held until the transaction ends.
type Tx interface {
	LockResources(ctx context.Context, refs []booking.ResourceRef) ([]model.Lock, error)
	ActiveBookings(ctx context.Context, refs []booking.ResourceRef, window booking.Interval) ([]booking.Booked, error)
	BlocksOverlapping(ctx context.Context, from, to time.Time) ([]model.RecurringBlock, error)
	CartMember(ctx context.Context, cart string) (repository.CartMember, bool, error)
	NextCounter(ctx context.Context, day string) (int, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	InsertDocument(ctx context.Context, d *model.ReservationDocument) error

	LockReservation(ctx context.Context, id uint64) (model.ReservationItem, error)
	UpdateReservationStatus(ctx context.Context, c repository.StatusChange) error
	CheckOut(ctx context.Context, id, by uint64, at time.Time) error
	CheckIn(ctx context.Context, id, by uint64, at time.Time) error

	InsertBlock(ctx context.Context, b *model.RecurringBlock) error

	LockWorkshop(ctx context.Context, id uint64) (model.Workshop, error)
	CountActiveInscriptions(ctx context.Context, workshopID uint64) (int, error)
	InsertInscription(ctx context.Context, in *model.Inscription) error
	LockInscription(ctx context.Context, id uint64) (model.InscriptionItem, error)
	UpdateInscriptionStatus(ctx context.Context, c repository.InscriptionChange) error
}

// SQLStore adapts *repository.Store to Store.
type SQLStore struct{ s *repository.Store }

func NewSQLStore(s *repository.Store) *SQLStore { return &SQLStore{s: s} }

func (a *SQLStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return a.s.InTx(ctx, func(tx *repository.Tx) error { return fn(tx) })
}

func (a *SQLStore) UserByID(ctx context.Context, id uint64) (model.User, error) {
	return a.s.Users.GetByID(ctx, id)
}

func (a *SQLStore) UserByEmail(ctx context.Context, email string) (model.User, error) {
	return a.s.Users.GetByEmail(ctx, email)
}

func (a *SQLStore) UsersByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error) {
	return a.s.Users.ListByRoles(ctx, roles...)
}

func (a *SQLStore) CreateUser(ctx context.Context, u *model.User) error {
	return a.s.Users.Create(ctx, u)
}

func (a *SQLStore) DisplayIDExists(ctx context.Context, kind model.ResourceKind, id string) (bool, error) {
	return a.s.Resources.DisplayIDExists(ctx, kind, id)
}

func (a *SQLStore) CreateSpace(ctx context.Context, s *model.Space) error {
	return a.s.Resources.CreateSpace(ctx, s)
}

func (a *SQLStore) CreateEquipment(ctx context.Context, e *model.Equipment) error {
	return a.s.Resources.CreateEquipment(ctx, e)
}

func (a *SQLStore) CreateWorkshop(ctx context.Context, w *model.Workshop) error {
	return a.s.Resources.CreateWorkshop(ctx, w)
}

func (a *SQLStore) UpdateSpace(ctx context.Context, s *model.Space) error {
	return a.s.Resources.UpdateSpace(ctx, s)
}

func (a *SQLStore) UpdateEquipment(ctx context.Context, e *model.Equipment) error {
	return a.s.Resources.UpdateEquipment(ctx, e)
}

func (a *SQLStore) UpdateWorkshop(ctx context.Context, w *model.Workshop) error {
	return a.s.Resources.UpdateWorkshop(ctx, w)
}

func (a *SQLStore) DeactivateResource(ctx context.Context, kind model.ResourceKind, id uint64) error {
	return a.s.Resources.Deactivate(ctx, kind, id)
}

func (a *SQLStore) ListSpaces(ctx context.Context, search string) ([]model.Space, error) {
	return a.s.Resources.ListSpaces(ctx, search)
}

func (a *SQLStore) ListEquipment(ctx context.Context, search string) ([]model.Equipment, error) {
	return a.s.Resources.ListEquipment(ctx, search)
}

func (a *SQLStore) ListWorkshops(ctx context.Context, search string) ([]model.Workshop, error) {
	return a.s.Resources.ListWorkshops(ctx, search)
}

func (a *SQLStore) GetSpace(ctx context.Context, id uint64) (model.Space, error) {
	return a.s.Resources.GetSpace(ctx, id)
}

func (a *SQLStore) GetEquipment(ctx context.Context, id uint64) (model.Equipment, error) {
	return a.s.Resources.GetEquipment(ctx, id)
}

func (a *SQLStore) GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error) {
	return a.s.Resources.GetWorkshop(ctx, id)
}

func (a *SQLStore) FixedEquipment(ctx context.Context, spaceIDs []uint64) ([]model.Equipment, error) {
	return a.s.Resources.FixedEquipment(ctx, spaceIDs)
}

func (a *SQLStore) OpenDueInscriptions(ctx context.Context, now time.Time) (int64, error) {
	return a.s.Resources.OpenDueInscriptions(ctx, now)
}

func (a *SQLStore) ListReservations(ctx context.Context, f repository.ReservationFilter) ([]model.ReservationItem, error) {
	return a.s.Reservations.ListItems(ctx, f)
}

func (a *SQLStore) DeleteReservation(ctx context.Context, id uint64) error {
	return a.s.Reservations.Delete(ctx, id)
}

func (a *SQLStore) ListBlocks(ctx context.Context) ([]model.RecurringBlock, error) {
	return a.s.Blocks.List(ctx)
}

func (a *SQLStore) DeleteBlock(ctx context.Context, id uint64) error {
	return a.s.Blocks.Delete(ctx, id)
}

func (a *SQLStore) ListInscriptions(ctx context.Context, f repository.InscriptionFilter) ([]model.InscriptionItem, error) {
	return a.s.Inscriptions.List(ctx, f)
}

func (a *SQLStore) ListNotifications(ctx context.Context, userID uint64) ([]model.Notification, error) {
	return a.s.Notifications.ListByUser(ctx, userID)
}

func (a *SQLStore) MarkNotificationRead(ctx context.Context, userID, id uint64) error {
	return a.s.Notifications.MarkRead(ctx, userID, id)
}

func (a *SQLStore) MarkAllNotificationsRead(ctx context.Context, userID uint64) (int64, error) {
	return a.s.Notifications.MarkAllRead(ctx, userID)
}

// translate maps storage sentinels onto the domain taxonomy.  A
// conditional update that lost a race surfaces as an invalid transition.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return booking.ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return booking.ErrAlreadyExists
	case errors.Is(err, repository.ErrConflict):
		return booking.ErrInvalidTransition
	}
	return err
}
