package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/notify"
	"github.com/iliyamo/campus-booking/internal/repository"
)

// ApprovalService serves the admin reservation queue.
type ApprovalService struct {
	d   Deps
	log *zap.Logger
}

func NewApprovalService(d Deps) *ApprovalService {
	d = d.withDefaults()
	return &ApprovalService{d: d, log: d.Log.Named("approvals")}
}

// List returns the grouped queue visible to actor, narrowed by f.  Resource
// admins only see items of resources they are responsible for.
func (s *ApprovalService) List(ctx context.Context, actor booking.Actor, f booking.StatusFilter) ([]booking.GroupedReservation, error) {
	var filter repository.ReservationFilter
	switch actor.Role {
	case model.RoleSuperuser, model.RoleAdminReservation:
	case model.RoleAdminResource:
		uid := actor.UserID
		filter.ResponsibleUserID = &uid
	default:
		return nil, booking.ErrForbidden
	}
	items, err := s.d.Store.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return booking.Filter(booking.Group(items), f), nil
}

// Decide approves or rejects one reservation and notifies its requester.
func (s *ApprovalService) Decide(ctx context.Context, actor booking.Actor, id uint64, d booking.Decision) (model.ReservationItem, error) {
	var item model.ReservationItem
	err := s.d.Store.InTx(ctx, func(tx Tx) error {
		var err error
		item, err = tx.LockReservation(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := booking.Authorize(actor, item.ResponsibleUserID()); err != nil {
			return err
		}
		next, err := booking.NextReservationStatus(item.Status, d)
		if err != nil {
			return err
		}
		change := repository.StatusChange{ID: id, Status: next}
		if next == model.ReservationApproved {
			by, at := actor.UserID, s.d.Now().UTC()
			change.ApprovedBy, change.ApprovedAt = &by, &at
		}
		if err := tx.UpdateReservationStatus(ctx, change); err != nil {
			return translate(err)
		}
		item.Status = next
		item.ApprovedByUserID = change.ApprovedBy
		item.ApprovedAt = change.ApprovedAt
		return nil
	})
	if err != nil {
		return model.ReservationItem{}, err
	}

	s.log.Info("reservation decided",
		zap.Uint64("reservation_id", id),
		zap.String("status", string(item.Status)),
		zap.Uint64("actor_id", actor.UserID),
	)
	s.d.notify(ctx, []notify.Message{decisionMessage(item, item.Status)})
	return item, nil
}

// CheckOut records that approved equipment left with its requester.
func (s *ApprovalService) CheckOut(ctx context.Context, actor booking.Actor, id uint64) (model.ReservationItem, error) {
	return s.handoff(ctx, actor, id, "check-out", func(tx Tx, item *model.ReservationItem) error {
		if item.Status != model.ReservationApproved || item.CheckedOutAt != nil {
			return booking.ErrInvalidTransition
		}
		at := s.d.Now().UTC()
		if err := tx.CheckOut(ctx, id, actor.UserID, at); err != nil {
			return translate(err)
		}
		by := actor.UserID
		item.CheckedOutAt, item.CheckedOutByUserID = &at, &by
		return nil
	})
}

// CheckIn records the return of checked-out equipment.
func (s *ApprovalService) CheckIn(ctx context.Context, actor booking.Actor, id uint64) (model.ReservationItem, error) {
	return s.handoff(ctx, actor, id, "check-in", func(tx Tx, item *model.ReservationItem) error {
		if item.CheckedOutAt == nil || item.CheckedInAt != nil {
			return booking.ErrInvalidTransition
		}
		at := s.d.Now().UTC()
		if err := tx.CheckIn(ctx, id, actor.UserID, at); err != nil {
			return translate(err)
		}
		by := actor.UserID
		item.CheckedInAt, item.CheckedInByUserID = &at, &by
		return nil
	})
}

func (s *ApprovalService) handoff(ctx context.Context, actor booking.Actor, id uint64, op string,
	apply func(Tx, *model.ReservationItem) error) (model.ReservationItem, error) {
	var item model.ReservationItem
	err := s.d.Store.InTx(ctx, func(tx Tx) error {
		var err error
		item, err = tx.LockReservation(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := booking.Authorize(actor, item.ResponsibleUserID()); err != nil {
			return err
		}
		if item.EquipmentID == nil {
			return booking.Invalid("reservationId", "only equipment reservations can be handed out")
		}
		return apply(tx, &item)
	})
	if err != nil {
		return model.ReservationItem{}, err
	}
	s.log.Info("equipment "+op, zap.Uint64("reservation_id", id), zap.Uint64("actor_id", actor.UserID))
	return item, nil
}

// Delete removes a reservation for good.  Superuser only.
func (s *ApprovalService) Delete(ctx context.Context, actor booking.Actor, id uint64) error {
	if actor.Role != model.RoleSuperuser {
		return booking.ErrForbidden
	}
	if err := s.d.Store.DeleteReservation(ctx, id); err != nil {
		return translate(err)
	}
	s.log.Info("reservation deleted", zap.Uint64("reservation_id", id), zap.Uint64("actor_id", actor.UserID))
	return nil
}
