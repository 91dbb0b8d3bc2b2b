package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/model"
)

// Inscriptions manages workshop enrolment.
type Inscriptions interface {
	Enroll(ctx context.Context, actor booking.Actor, workshopID uint64) (model.Inscription, error)
	List(ctx context.Context, actor booking.Actor, status string) ([]model.InscriptionItem, error)
	Decide(ctx context.Context, actor booking.Actor, id uint64, d booking.Decision) (model.InscriptionItem, error)
}

type InscriptionHandler struct {
	svc Inscriptions
	log *zap.Logger
}

func NewInscriptionHandler(svc Inscriptions, log *zap.Logger) *InscriptionHandler {
	return &InscriptionHandler{svc: svc, log: log.Named("inscriptions")}
}

// Enroll signs the caller up for workshop :id.
func (h *InscriptionHandler) Enroll(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.log, "enroll", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	in, err := h.svc.Enroll(ctx, actor, id)
	if err != nil {
		return fail(c, h.log, "enroll", err)
	}
	return c.JSON(http.StatusCreated, in)
}

func (h *InscriptionHandler) List(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := h.svc.List(ctx, actor, c.QueryParam("status"))
	if err != nil {
		return fail(c, h.log, "list inscriptions", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *InscriptionHandler) Approve(c echo.Context) error { return h.decide(c, booking.Approve) }
func (h *InscriptionHandler) Reject(c echo.Context) error  { return h.decide(c, booking.Reject) }

func (h *InscriptionHandler) decide(c echo.Context, d booking.Decision) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.log, "decide inscription", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := h.svc.Decide(ctx, actor, id, d)
	if err != nil {
		return fail(c, h.log, "decide inscription", err)
	}
	return c.JSON(http.StatusOK, item)
}
