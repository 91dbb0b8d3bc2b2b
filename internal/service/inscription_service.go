package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/notify"
	"github.com/iliyamo/campus-booking/internal/repository"
)

// InscriptionService handles workshop enrolment and its review.
type InscriptionService struct {
	d   Deps
	log *zap.Logger
}

func NewInscriptionService(d Deps) *InscriptionService {
	d = d.withDefaults()
	return &InscriptionService{d: d, log: d.Log.Named("inscriptions")}
}

// Enroll requests a place in a workshop.  Once the workshop is full new
// requests are kept as PENDING_EXTRAORDINARY.
func (s *InscriptionService) Enroll(ctx context.Context, actor booking.Actor, workshopID uint64) (model.Inscription, error) {
	var (
		in model.Inscription
		w  model.Workshop
	)
	err := s.d.Store.InTx(ctx, func(tx Tx) error {
		var err error
		w, err = tx.LockWorkshop(ctx, workshopID)
		if err != nil {
			return translate(err)
		}
		if !w.IsActive {
			return booking.ErrNotFound
		}
		if !w.InscriptionsOpen {
			return booking.Invalid("workshopId", "inscriptions are not open for this workshop")
		}
		taken, err := tx.CountActiveInscriptions(ctx, workshopID)
		if err != nil {
			return err
		}
		in = model.Inscription{WorkshopID: workshopID, UserID: actor.UserID, Status: model.InscriptionPending}
		if w.Capacity > 0 && taken >= w.Capacity {
			in.Status = model.InscriptionPendingExtraordinary
		}
		return translate(tx.InsertInscription(ctx, &in))
	})
	if err != nil {
		return model.Inscription{}, err
	}
	s.log.Info("inscription requested",
		zap.Uint64("workshop_id", workshopID),
		zap.Uint64("user_id", actor.UserID),
		zap.String("status", string(in.Status)),
	)
	s.d.notify(ctx, s.enrolMessages(ctx, actor.UserID, w, in))
	return in, nil
}

func (s *InscriptionService) enrolMessages(ctx context.Context, userID uint64, w model.Workshop, in model.Inscription) []notify.Message {
	if w.ResponsibleUserID == nil {
		return nil
	}
	resp, err := s.d.Store.UserByID(ctx, *w.ResponsibleUserID)
	if err != nil {
		s.log.Warn("responsible user lookup failed", zap.Uint64("user_id", *w.ResponsibleUserID), zap.Error(err))
		return nil
	}
	who := fmt.Sprintf("user %d", userID)
	if u, err := s.d.Store.UserByID(ctx, userID); err == nil {
		who = u.FullName()
	}
	body := fmt.Sprintf("%s asked to join the workshop %q.", who, w.Name)
	if in.Status == model.InscriptionPendingExtraordinary {
		body += " The workshop is full, so the request is extraordinary."
	}
	return []notify.Message{messageTo(resp, "New workshop inscription", body, nil)}
}

// List returns inscriptions visible to actor.  An empty status lists all.
func (s *InscriptionService) List(ctx context.Context, actor booking.Actor, status string) ([]model.InscriptionItem, error) {
	var f repository.InscriptionFilter
	switch actor.Role {
	case model.RoleSuperuser, model.RoleAdminReservation:
	case model.RoleAdminResource:
		uid := actor.UserID
		f.ResponsibleUserID = &uid
	default:
		return nil, booking.ErrForbidden
	}
	if status = strings.ToUpper(strings.TrimSpace(status)); status != "" {
		f.Status = model.InscriptionStatus(status)
		if !f.Status.Valid() {
			return nil, booking.Invalid("status", "unknown inscription status "+status)
		}
	}
	return s.d.Store.ListInscriptions(ctx, f)
}

// Decide approves or rejects a pending inscription under the same rule as
// reservations: the workshop's responsible user or a superuser.
func (s *InscriptionService) Decide(ctx context.Context, actor booking.Actor, id uint64, d booking.Decision) (model.InscriptionItem, error) {
	var item model.InscriptionItem
	err := s.d.Store.InTx(ctx, func(tx Tx) error {
		var err error
		item, err = tx.LockInscription(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := booking.Authorize(actor, item.Workshop.ResponsibleUserID); err != nil {
			return err
		}
		next, err := booking.NextInscriptionStatus(item.Status, d)
		if err != nil {
			return err
		}
		at := s.d.Now().UTC()
		err = tx.UpdateInscriptionStatus(ctx, repository.InscriptionChange{
			ID:        id,
			From:      item.Status,
			Status:    next,
			DecidedBy: actor.UserID,
			DecidedAt: at,
		})
		if err != nil {
			return translate(err)
		}
		by := actor.UserID
		item.Status, item.ApprovedByUserID, item.DecidedAt = next, &by, &at
		return nil
	})
	if err != nil {
		return model.InscriptionItem{}, err
	}
	s.log.Info("inscription decided",
		zap.Uint64("inscription_id", id),
		zap.String("status", string(item.Status)),
		zap.Uint64("actor_id", actor.UserID),
	)
	s.d.notify(ctx, []notify.Message{inscriptionDecisionMessage(item, item.Status)})
	return item, nil
}

// OpenDue opens inscriptions of every workshop whose inscription start
// date has passed and reports how many were opened.
func (s *InscriptionService) OpenDue(ctx context.Context) (int64, error) {
	n, err := s.d.Store.OpenDueInscriptions(ctx, s.d.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("workshop inscriptions opened", zap.Int64("workshops", n))
	}
	return n, nil
}
