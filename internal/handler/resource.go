package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/model"
)

// Catalog is the resource catalogue.
type Catalog interface {
	ListSpaces(ctx context.Context, search string) ([]model.Space, error)
	ListEquipment(ctx context.Context, search string) ([]model.Equipment, error)
	ListWorkshops(ctx context.Context, search string) ([]model.Workshop, error)
	GetSpace(ctx context.Context, id uint64) (model.Space, error)
	GetEquipment(ctx context.Context, id uint64) (model.Equipment, error)
	GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error)
	CreateSpace(ctx context.Context, actor booking.Actor, sp model.Space) (model.Space, error)
	CreateEquipment(ctx context.Context, actor booking.Actor, eq model.Equipment) (model.Equipment, error)
	CreateWorkshop(ctx context.Context, actor booking.Actor, w model.Workshop) (model.Workshop, error)
	UpdateSpace(ctx context.Context, actor booking.Actor, id uint64, sp model.Space) (model.Space, error)
	UpdateEquipment(ctx context.Context, actor booking.Actor, id uint64, eq model.Equipment) (model.Equipment, error)
	UpdateWorkshop(ctx context.Context, actor booking.Actor, id uint64, w model.Workshop) (model.Workshop, error)
	Deactivate(ctx context.Context, actor booking.Actor, kind model.ResourceKind, id uint64) error
}

// ResourceHandler serves the public catalogue and its administration.
type ResourceHandler struct {
	svc Catalog
	log *zap.Logger
}

func NewResourceHandler(svc Catalog, log *zap.Logger) *ResourceHandler {
	return &ResourceHandler{svc: svc, log: log.Named("resources")}
}

type spaceReq struct {
	Name              string  `json:"name" validate:"required,max=150"`
	Description       *string `json:"description"`
	Location          *string `json:"location" validate:"omitempty,max=150"`
	Capacity          int     `json:"capacity" validate:"gte=0"`
	ResponsibleUserID *uint64 `json:"responsibleUserId"`
}

type equipmentReq struct {
	Name              string  `json:"name" validate:"required,max=150"`
	Description       *string `json:"description"`
	SerialNumber      *string `json:"serialNumber" validate:"omitempty,max=100"`
	FixedAssetID      *string `json:"fixedAssetId" validate:"omitempty,max=100"`
	FixedToSpaceID    *uint64 `json:"fixedToSpaceId"`
	ResponsibleUserID *uint64 `json:"responsibleUserId"`
}

type workshopReq struct {
	Name                  string     `json:"name" validate:"required,max=150"`
	Description           *string    `json:"description"`
	Teacher               *string    `json:"teacher" validate:"omitempty,max=150"`
	Capacity              int        `json:"capacity" validate:"gte=0"`
	StartDate             *time.Time `json:"startDate"`
	EndDate               *time.Time `json:"endDate"`
	InscriptionsStartDate *time.Time `json:"inscriptionsStartDate"`
	ResponsibleUserID     *uint64    `json:"responsibleUserId"`
}

// ListSpaces, ListEquipment and ListWorkshops accept ?search= on the name.
func (h *ResourceHandler) ListSpaces(c echo.Context) error {
	return list(c, h.log, "list spaces", h.svc.ListSpaces)
}

func (h *ResourceHandler) ListEquipment(c echo.Context) error {
	return list(c, h.log, "list equipment", h.svc.ListEquipment)
}

func (h *ResourceHandler) ListWorkshops(c echo.Context) error {
	return list(c, h.log, "list workshops", h.svc.ListWorkshops)
}

func (h *ResourceHandler) GetSpace(c echo.Context) error {
	return get(c, h.log, "get space", h.svc.GetSpace)
}

func (h *ResourceHandler) GetEquipment(c echo.Context) error {
	return get(c, h.log, "get equipment", h.svc.GetEquipment)
}

func (h *ResourceHandler) GetWorkshop(c echo.Context) error {
	return get(c, h.log, "get workshop", h.svc.GetWorkshop)
}

func (r spaceReq) model() model.Space {
	return model.Space{
		Name:              r.Name,
		Description:       r.Description,
		Location:          r.Location,
		Capacity:          r.Capacity,
		ResponsibleUserID: r.ResponsibleUserID,
	}
}

func (r equipmentReq) model() model.Equipment {
	return model.Equipment{
		Name:              r.Name,
		Description:       r.Description,
		SerialNumber:      r.SerialNumber,
		FixedAssetID:      r.FixedAssetID,
		FixedToSpaceID:    r.FixedToSpaceID,
		ResponsibleUserID: r.ResponsibleUserID,
	}
}

func (r workshopReq) model() model.Workshop {
	return model.Workshop{
		Name:                  r.Name,
		Description:           r.Description,
		Teacher:               r.Teacher,
		Capacity:              r.Capacity,
		StartDate:             r.StartDate,
		EndDate:               r.EndDate,
		InscriptionsStartDate: r.InscriptionsStartDate,
		ResponsibleUserID:     r.ResponsibleUserID,
	}
}

func (h *ResourceHandler) CreateSpace(c echo.Context) error {
	var req spaceReq
	return create(c, h.log, "create space", &req, func(ctx context.Context, a booking.Actor) (model.Space, error) {
		return h.svc.CreateSpace(ctx, a, req.model())
	})
}

func (h *ResourceHandler) CreateEquipment(c echo.Context) error {
	var req equipmentReq
	return create(c, h.log, "create equipment", &req, func(ctx context.Context, a booking.Actor) (model.Equipment, error) {
		return h.svc.CreateEquipment(ctx, a, req.model())
	})
}

func (h *ResourceHandler) CreateWorkshop(c echo.Context) error {
	var req workshopReq
	return create(c, h.log, "create workshop", &req, func(ctx context.Context, a booking.Actor) (model.Workshop, error) {
		return h.svc.CreateWorkshop(ctx, a, req.model())
	})
}

// UpdateSpace, UpdateEquipment and UpdateWorkshop replace the editable
// fields; an omitted responsibleUserId keeps the current one.
func (h *ResourceHandler) UpdateSpace(c echo.Context) error {
	var req spaceReq
	return update(c, h.log, "update space", &req, func(ctx context.Context, a booking.Actor, id uint64) (model.Space, error) {
		return h.svc.UpdateSpace(ctx, a, id, req.model())
	})
}

func (h *ResourceHandler) UpdateEquipment(c echo.Context) error {
	var req equipmentReq
	return update(c, h.log, "update equipment", &req, func(ctx context.Context, a booking.Actor, id uint64) (model.Equipment, error) {
		return h.svc.UpdateEquipment(ctx, a, id, req.model())
	})
}

func (h *ResourceHandler) UpdateWorkshop(c echo.Context) error {
	var req workshopReq
	return update(c, h.log, "update workshop", &req, func(ctx context.Context, a booking.Actor, id uint64) (model.Workshop, error) {
		return h.svc.UpdateWorkshop(ctx, a, id, req.model())
	})
}

func (h *ResourceHandler) DeleteSpace(c echo.Context) error {
	return h.deactivate(c, model.KindSpace)
}

func (h *ResourceHandler) DeleteEquipment(c echo.Context) error {
	return h.deactivate(c, model.KindEquipment)
}

func (h *ResourceHandler) DeleteWorkshop(c echo.Context) error {
	return h.deactivate(c, model.KindWorkshop)
}

// deactivate answers 204; the row is kept for existing bookings.
func (h *ResourceHandler) deactivate(c echo.Context, kind model.ResourceKind) error {
	op := "deactivate " + string(kind)
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.log, op, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Deactivate(ctx, actor, kind, id); err != nil {
		return fail(c, h.log, op, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func list[T any](c echo.Context, log *zap.Logger, op string, fn func(context.Context, string) ([]T, error)) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := fn(ctx, c.QueryParam("search"))
	if err != nil {
		return fail(c, log, op, err)
	}
	return c.JSON(http.StatusOK, items)
}

func get[T any](c echo.Context, log *zap.Logger, op string, fn func(context.Context, uint64) (T, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, log, op, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := fn(ctx, id)
	if err != nil {
		return fail(c, log, op, err)
	}
	return c.JSON(http.StatusOK, item)
}

// create binds and validates req, then runs fn as the caller.
func create[T any](c echo.Context, log *zap.Logger, op string, req interface{}, fn func(context.Context, booking.Actor) (T, error)) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	if err := c.Bind(req); err != nil {
		return fail(c, log, op, invalidBody())
	}
	if err := c.Validate(req); err != nil {
		return fail(c, log, op, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := fn(ctx, actor)
	if err != nil {
		return fail(c, log, op, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// update is create for an existing :id, answering 200.
func update[T any](c echo.Context, log *zap.Logger, op string, req interface{}, fn func(context.Context, booking.Actor, uint64) (T, error)) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, log, op, err)
	}
	if err := c.Bind(req); err != nil {
		return fail(c, log, op, invalidBody())
	}
	if err := c.Validate(req); err != nil {
		return fail(c, log, op, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := fn(ctx, actor, id)
	if err != nil {
		return fail(c, log, op, err)
	}
	return c.JSON(http.StatusOK, item)
}
