package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/service"
)

// requestTimeout bounds the service call of every handler.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// httpError maps a service error to a status code and a JSON body.  The
// raw error text only reaches the client for domain errors; anything
// unrecognised becomes a generic 500.
func httpError(err error) (int, echo.Map) {
	var ve *booking.ValidationError
	var ce *booking.ConflictError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": ve.Fields}
	case errors.As(err, &ce):
		body := echo.Map{
			"error":    "time slot not available",
			"detail":   ce.Error(),
			"resource": ce.Resource.String(),
			"at":       ce.At,
		}
		if ce.ReservationID != 0 {
			body["reservationId"] = ce.ReservationID
		}
		if ce.BlockID != 0 {
			body["blockId"] = ce.BlockID
		}
		return http.StatusConflict, body
	case errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict, echo.Map{"error": "status transition not allowed"}
	case errors.Is(err, booking.ErrAlreadyExists):
		return http.StatusConflict, echo.Map{"error": "already exists"}
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, echo.Map{"error": "not found"}
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden, echo.Map{"error": "forbidden"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, echo.Map{"error": "invalid credentials"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, echo.Map{"error": "request timed out"}
	}
	return http.StatusInternalServerError, echo.Map{"error": "internal error"}
}

// fail writes err as JSON.  Server errors are logged with op.
func fail(c echo.Context, log *zap.Logger, op string, err error) error {
	status, body := httpError(err)
	if status >= http.StatusInternalServerError {
		log.Error(op, zap.Error(err))
	}
	return c.JSON(status, body)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, booking.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional positive integer query parameter; def is
// returned when it is absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, booking.Invalid(name, "must be a positive integer")
	}
	return n, nil
}

func invalidBody() error {
	return booking.Invalid("body", "malformed request body")
}
