package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/model"
)

// Inbox is the read side of in-app notifications.
type Inbox interface {
	List(ctx context.Context, userID uint64) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id uint64) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
}

type NotificationHandler struct {
	svc Inbox
	log *zap.Logger
}

func NewNotificationHandler(svc Inbox, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log.Named("notifications")}
}

func (h *NotificationHandler) List(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.svc.List(ctx, actor.UserID)
	if err != nil {
		return fail(c, h.log, "list notifications", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.log, "mark notification read", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.MarkRead(ctx, actor.UserID, id); err != nil {
		return fail(c, h.log, "mark notification read", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.svc.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return fail(c, h.log, "mark notifications read", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
