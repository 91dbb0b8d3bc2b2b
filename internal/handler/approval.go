package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/model"
)

// Approver is the admin side of reservations.
type Approver interface {
	List(ctx context.Context, actor booking.Actor, f booking.StatusFilter) ([]booking.GroupedReservation, error)
	Decide(ctx context.Context, actor booking.Actor, id uint64, d booking.Decision) (model.ReservationItem, error)
	CheckOut(ctx context.Context, actor booking.Actor, id uint64) (model.ReservationItem, error)
	CheckIn(ctx context.Context, actor booking.Actor, id uint64) (model.ReservationItem, error)
	Delete(ctx context.Context, actor booking.Actor, id uint64) error
}

// ApprovalHandler serves /v1/admin/reservations.
type ApprovalHandler struct {
	svc Approver
	log *zap.Logger
}

func NewApprovalHandler(svc Approver, log *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{svc: svc, log: log.Named("approvals")}
}

// List returns the grouped queue.  With page or pageSize set the response
// is a booking.Page, otherwise a plain array.
func (h *ApprovalHandler) List(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	filter, err := booking.ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return fail(c, h.log, "list reservations", err)
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return fail(c, h.log, "list reservations", err)
	}
	size, err := queryInt(c, "pageSize", booking.DefaultPageSize)
	if err != nil {
		return fail(c, h.log, "list reservations", err)
	}
	if size > booking.MaxPageSize {
		return fail(c, h.log, "list reservations",
			booking.Invalid("pageSize", "must be at most "+strconv.Itoa(booking.MaxPageSize)))
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	groups, err := h.svc.List(ctx, actor, filter)
	if err != nil {
		return fail(c, h.log, "list reservations", err)
	}
	if c.QueryParam("page") == "" && c.QueryParam("pageSize") == "" {
		return c.JSON(http.StatusOK, groups)
	}
	return c.JSON(http.StatusOK, booking.Paginate(groups, page, size))
}

func (h *ApprovalHandler) Approve(c echo.Context) error {
	return h.decide(c, booking.Approve)
}

func (h *ApprovalHandler) Reject(c echo.Context) error {
	return h.decide(c, booking.Reject)
}

func (h *ApprovalHandler) decide(c echo.Context, d booking.Decision) error {
	return h.apply(c, string(d), func(ctx context.Context, a booking.Actor, id uint64) (model.ReservationItem, error) {
		return h.svc.Decide(ctx, a, id, d)
	})
}

func (h *ApprovalHandler) CheckOut(c echo.Context) error {
	return h.apply(c, "check out", h.svc.CheckOut)
}

func (h *ApprovalHandler) CheckIn(c echo.Context) error {
	return h.apply(c, "check in", h.svc.CheckIn)
}

// Delete removes a reservation for good.
func (h *ApprovalHandler) Delete(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.log, "delete reservation", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Delete(ctx, actor, id); err != nil {
		return fail(c, h.log, "delete reservation", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ApprovalHandler) apply(c echo.Context, op string, fn func(context.Context, booking.Actor, uint64) (model.ReservationItem, error)) error {
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
	item, err := fn(ctx, actor, id)
	if err != nil {
		return fail(c, h.log, op, err)
	}
	return c.JSON(http.StatusOK, item)
}
