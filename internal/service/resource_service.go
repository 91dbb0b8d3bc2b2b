package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

// createAttempts bounds retries when a freshly drawn display ID loses an
// insert race against the unique key.
const createAttempts = 3

// ResourceService manages the catalogue of spaces, equipment and
// workshops.
type ResourceService struct {
	d   Deps
	log *zap.Logger
}

func NewResourceService(d Deps) *ResourceService {
	d = d.withDefaults()
	return &ResourceService{d: d, log: d.Log.Named("resources")}
}

// owner applies the creation rule: superusers may assign any responsible
// user, resource admins always own what they create.
func owner(actor booking.Actor, requested *uint64) (*uint64, error) {
	switch actor.Role {
	case model.RoleSuperuser:
		return requested, nil
	case model.RoleAdminResource:
		uid := actor.UserID
		return &uid, nil
	}
	return nil, booking.ErrForbidden
}

func (s *ResourceService) CreateSpace(ctx context.Context, actor booking.Actor, sp model.Space) (model.Space, error) {
	resp, err := owner(actor, sp.ResponsibleUserID)
	if err != nil {
		return model.Space{}, err
	}
	sp.ResponsibleUserID = resp
	sp.Name = strings.TrimSpace(sp.Name)
	v := &booking.ValidationError{}
	if sp.Name == "" {
		v.Add("name", "name is required")
	}
	if sp.Capacity < 0 {
		v.Add("capacity", "capacity cannot be negative")
	}
	if err := v.Err(); err != nil {
		return model.Space{}, err
	}
	if err := s.checkResponsible(ctx, resp); err != nil {
		return model.Space{}, err
	}
	sp.IsActive = true
	err = s.create(ctx, model.KindSpace, func(id string) error {
		sp.DisplayID = id
		return s.d.Store.CreateSpace(ctx, &sp)
	})
	if err != nil {
		return model.Space{}, err
	}
	s.log.Info("space created", zap.String("display_id", sp.DisplayID))
	return sp, nil
}

func (s *ResourceService) CreateEquipment(ctx context.Context, actor booking.Actor, eq model.Equipment) (model.Equipment, error) {
	resp, err := owner(actor, eq.ResponsibleUserID)
	if err != nil {
		return model.Equipment{}, err
	}
	eq.ResponsibleUserID = resp
	eq.Name = strings.TrimSpace(eq.Name)
	if eq.Name == "" {
		return model.Equipment{}, booking.Invalid("name", "name is required")
	}
	if eq.FixedToSpaceID != nil {
		if _, err := s.d.Store.GetSpace(ctx, *eq.FixedToSpaceID); err != nil {
			if errors.Is(translate(err), booking.ErrNotFound) {
				return model.Equipment{}, booking.Invalid("fixedToSpaceId", "space does not exist")
			}
			return model.Equipment{}, err
		}
	}
	if err := s.checkResponsible(ctx, resp); err != nil {
		return model.Equipment{}, err
	}
	eq.IsActive = true
	err = s.create(ctx, model.KindEquipment, func(id string) error {
		eq.DisplayID = id
		return s.d.Store.CreateEquipment(ctx, &eq)
	})
	if err != nil {
		return model.Equipment{}, err
	}
	s.log.Info("equipment created", zap.String("display_id", eq.DisplayID))
	return eq, nil
}

// CreateWorkshop opens inscriptions right away unless they start later;
// the scheduler opens those.
func (s *ResourceService) CreateWorkshop(ctx context.Context, actor booking.Actor, w model.Workshop) (model.Workshop, error) {
	resp, err := owner(actor, w.ResponsibleUserID)
	if err != nil {
		return model.Workshop{}, err
	}
	w.ResponsibleUserID = resp
	w.Name = strings.TrimSpace(w.Name)
	v := &booking.ValidationError{}
	if w.Name == "" {
		v.Add("name", "name is required")
	}
	if w.Capacity < 0 {
		v.Add("capacity", "capacity cannot be negative")
	}
	if w.StartDate != nil && w.EndDate != nil && w.EndDate.Before(*w.StartDate) {
		v.Add("endDate", "end date is before start date")
	}
	if err := v.Err(); err != nil {
		return model.Workshop{}, err
	}
	if err := s.checkResponsible(ctx, resp); err != nil {
		return model.Workshop{}, err
	}
	w.IsActive = true
	w.InscriptionsOpen = w.InscriptionsStartDate == nil || !w.InscriptionsStartDate.After(s.d.Now())
	err = s.create(ctx, model.KindWorkshop, func(id string) error {
		w.DisplayID = id
		return s.d.Store.CreateWorkshop(ctx, &w)
	})
	if err != nil {
		return model.Workshop{}, err
	}
	s.log.Info("workshop created", zap.String("display_id", w.DisplayID))
	return w, nil
}

// create draws a free display ID and runs insert with it.  A duplicate key
// on insert means another request took the same code in between.
func (s *ResourceService) create(ctx context.Context, kind model.ResourceKind, insert func(displayID string) error) error {
	exists := func(ctx context.Context, id string) (bool, error) {
		return s.d.Store.DisplayIDExists(ctx, kind, id)
	}
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		var id string
		id, err = booking.NewResourceDisplayID(ctx, kind, exists)
		if err != nil {
			return err
		}
		err = translate(insert(id))
		if !errors.Is(err, booking.ErrAlreadyExists) {
			return err
		}
		s.log.Debug("display id taken on insert, retrying", zap.String("display_id", id))
	}
	return err
}

func (s *ResourceService) checkResponsible(ctx context.Context, id *uint64) error {
	if id == nil {
		return nil
	}
	if _, err := s.d.Store.UserByID(ctx, *id); err != nil {
		if errors.Is(translate(err), booking.ErrNotFound) {
			return booking.Invalid("responsibleUserId", "user does not exist")
		}
		return err
	}
	return nil
}

func (s *ResourceService) ListSpaces(ctx context.Context, search string) ([]model.Space, error) {
	return s.d.Store.ListSpaces(ctx, strings.TrimSpace(search))
}

func (s *ResourceService) ListEquipment(ctx context.Context, search string) ([]model.Equipment, error) {
	return s.d.Store.ListEquipment(ctx, strings.TrimSpace(search))
}

func (s *ResourceService) ListWorkshops(ctx context.Context, search string) ([]model.Workshop, error) {
	return s.d.Store.ListWorkshops(ctx, strings.TrimSpace(search))
}

// GetSpace, GetEquipment and GetWorkshop hide deactivated resources.
func (s *ResourceService) GetSpace(ctx context.Context, id uint64) (model.Space, error) {
	sp, err := s.d.Store.GetSpace(ctx, id)
	if err == nil && !sp.IsActive {
		return model.Space{}, booking.ErrNotFound
	}
	return sp, translate(err)
}

func (s *ResourceService) GetEquipment(ctx context.Context, id uint64) (model.Equipment, error) {
	eq, err := s.d.Store.GetEquipment(ctx, id)
	if err == nil && !eq.IsActive {
		return model.Equipment{}, booking.ErrNotFound
	}
	return eq, translate(err)
}

func (s *ResourceService) GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error) {
	w, err := s.d.Store.GetWorkshop(ctx, id)
	if err == nil && !w.IsActive {
		return model.Workshop{}, booking.ErrNotFound
	}
	return w, translate(err)
}

// manage applies the catalogue management rule: superusers manage
// everything, resource admins only what they are responsible for.
func manage(actor booking.Actor, responsible *uint64) error {
	if actor.Role != model.RoleSuperuser && actor.Role != model.RoleAdminResource {
		return booking.ErrForbidden
	}
	return booking.Authorize(actor, responsible)
}

// reassign resolves the responsible user of an update.  Nil keeps the
// current one.
func (s *ResourceService) reassign(ctx context.Context, current, requested *uint64) (*uint64, error) {
	if requested == nil {
		return current, nil
	}
	if err := s.checkResponsible(ctx, requested); err != nil {
		return nil, err
	}
	return requested, nil
}

// UpdateSpace replaces the editable fields of space id.
func (s *ResourceService) UpdateSpace(ctx context.Context, actor booking.Actor, id uint64, sp model.Space) (model.Space, error) {
	cur, err := s.GetSpace(ctx, id)
	if err != nil {
		return model.Space{}, err
	}
	if err := manage(actor, cur.ResponsibleUserID); err != nil {
		return model.Space{}, err
	}
	sp.Name = strings.TrimSpace(sp.Name)
	v := &booking.ValidationError{}
	if sp.Name == "" {
		v.Add("name", "name is required")
	}
	if sp.Capacity < 0 {
		v.Add("capacity", "capacity cannot be negative")
	}
	if err := v.Err(); err != nil {
		return model.Space{}, err
	}
	if sp.ResponsibleUserID, err = s.reassign(ctx, cur.ResponsibleUserID, sp.ResponsibleUserID); err != nil {
		return model.Space{}, err
	}
	sp.ID = id
	if err := translate(s.d.Store.UpdateSpace(ctx, &sp)); err != nil {
		return model.Space{}, err
	}
	s.log.Info("space updated", zap.String("display_id", sp.DisplayID), zap.Uint64("by", actor.UserID))
	return sp, nil
}

// UpdateEquipment replaces the editable fields of equipment id.  Equipment
// cannot be fixed to an inactive space.
func (s *ResourceService) UpdateEquipment(ctx context.Context, actor booking.Actor, id uint64, eq model.Equipment) (model.Equipment, error) {
	cur, err := s.GetEquipment(ctx, id)
	if err != nil {
		return model.Equipment{}, err
	}
	if err := manage(actor, cur.ResponsibleUserID); err != nil {
		return model.Equipment{}, err
	}
	eq.Name = strings.TrimSpace(eq.Name)
	if eq.Name == "" {
		return model.Equipment{}, booking.Invalid("name", "name is required")
	}
	if eq.FixedToSpaceID != nil {
		if _, err := s.GetSpace(ctx, *eq.FixedToSpaceID); err != nil {
			if errors.Is(err, booking.ErrNotFound) {
				return model.Equipment{}, booking.Invalid("fixedToSpaceId", "space does not exist")
			}
			return model.Equipment{}, err
		}
	}
	if eq.ResponsibleUserID, err = s.reassign(ctx, cur.ResponsibleUserID, eq.ResponsibleUserID); err != nil {
		return model.Equipment{}, err
	}
	eq.ID = id
	if err := translate(s.d.Store.UpdateEquipment(ctx, &eq)); err != nil {
		return model.Equipment{}, err
	}
	s.log.Info("equipment updated", zap.String("display_id", eq.DisplayID), zap.Uint64("by", actor.UserID))
	return eq, nil
}

// UpdateWorkshop replaces the editable fields of workshop id.  Moving the
// inscription start date re-evaluates whether inscriptions are open.
func (s *ResourceService) UpdateWorkshop(ctx context.Context, actor booking.Actor, id uint64, w model.Workshop) (model.Workshop, error) {
	cur, err := s.GetWorkshop(ctx, id)
	if err != nil {
		return model.Workshop{}, err
	}
	if err := manage(actor, cur.ResponsibleUserID); err != nil {
		return model.Workshop{}, err
	}
	w.Name = strings.TrimSpace(w.Name)
	v := &booking.ValidationError{}
	if w.Name == "" {
		v.Add("name", "name is required")
	}
	if w.Capacity < 0 {
		v.Add("capacity", "capacity cannot be negative")
	}
	if w.StartDate != nil && w.EndDate != nil && w.EndDate.Before(*w.StartDate) {
		v.Add("endDate", "end date is before start date")
	}
	if err := v.Err(); err != nil {
		return model.Workshop{}, err
	}
	if w.ResponsibleUserID, err = s.reassign(ctx, cur.ResponsibleUserID, w.ResponsibleUserID); err != nil {
		return model.Workshop{}, err
	}
	w.ID = id
	w.InscriptionsOpen = w.InscriptionsStartDate == nil || !w.InscriptionsStartDate.After(s.d.Now())
	if err := translate(s.d.Store.UpdateWorkshop(ctx, &w)); err != nil {
		return model.Workshop{}, err
	}
	s.log.Info("workshop updated", zap.String("display_id", w.DisplayID), zap.Uint64("by", actor.UserID))
	return w, nil
}

// Deactivate removes a resource from the catalogue.  The row stays so
// past reservations and inscriptions keep their references; new
// submissions and enrolments treat it as missing.
func (s *ResourceService) Deactivate(ctx context.Context, actor booking.Actor, kind model.ResourceKind, id uint64) error {
	var (
		resp *uint64
		err  error
	)
	switch kind {
	case model.KindSpace:
		var sp model.Space
		sp, err = s.GetSpace(ctx, id)
		resp = sp.ResponsibleUserID
	case model.KindEquipment:
		var eq model.Equipment
		eq, err = s.GetEquipment(ctx, id)
		resp = eq.ResponsibleUserID
	case model.KindWorkshop:
		var w model.Workshop
		w, err = s.GetWorkshop(ctx, id)
		resp = w.ResponsibleUserID
	default:
		return booking.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := manage(actor, resp); err != nil {
		return err
	}
	if err := translate(s.d.Store.DeactivateResource(ctx, kind, id)); err != nil {
		return err
	}
	s.log.Info("resource deactivated", zap.String("kind", string(kind)), zap.Uint64("id", id), zap.Uint64("by", actor.UserID))
	return nil
}
