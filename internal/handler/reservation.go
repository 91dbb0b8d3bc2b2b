package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/service"
)

// Submitter runs reservation submissions.
type Submitter interface {
	Submit(ctx context.Context, actor booking.Actor, req service.SubmitRequest) (service.SubmitResult, error)
	SubmitCart(ctx context.Context, actor booking.Actor, req service.SubmitRequest) (service.SubmitResult, error)
	ListMine(ctx context.Context, actor booking.Actor) ([]booking.GroupedReservation, error)
}

// ReservationHandler serves the requester side of reservations.
type ReservationHandler struct {
	svc     Submitter
	uploads Uploads
	log     *zap.Logger
}

func NewReservationHandler(svc Submitter, uploads Uploads, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{svc: svc, uploads: uploads, log: log.Named("reservations")}
}

type itemReq struct {
	SpaceID     *uint64   `json:"spaceId"`
	EquipmentID *uint64   `json:"equipmentId"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
}

func (r itemReq) line() booking.Line {
	return booking.Line{
		SpaceID:     r.SpaceID,
		EquipmentID: r.EquipmentID,
		Window:      booking.Interval{Start: r.StartTime, End: r.EndTime},
	}
}

type submitReq struct {
	SpaceID          *uint64   `json:"spaceId"`
	EquipmentID      *uint64   `json:"equipmentId"`
	StartTime        time.Time `json:"startTime" validate:"required"`
	EndTime          time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	Justification    string    `json:"justification" validate:"required"`
	Subject          *string   `json:"subject"`
	Coordinator      *string   `json:"coordinator"`
	Teacher          *string   `json:"teacher"`
	CartSubmissionID string    `json:"cartSubmissionId" validate:"max=64"`
}

type cartReq struct {
	Items            []itemReq `json:"items" validate:"required,min=1,dive"`
	Justification    string    `json:"justification" validate:"required"`
	Subject          *string   `json:"subject"`
	Coordinator      *string   `json:"coordinator"`
	Teacher          *string   `json:"teacher"`
	CartSubmissionID string    `json:"cartSubmissionId" validate:"max=64"`
}

// Submit books one item.  It accepts JSON or a multipart form whose
// "file*" parts are stored as reservation documents.
func (h *ReservationHandler) Submit(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	var (
		req  submitReq
		docs []service.Document
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return fail(c, h.log, "submit", invalidBody())
		}
		if req, err = submitFromForm(c); err != nil {
			return fail(c, h.log, "submit", err)
		}
		if err := c.Validate(&req); err != nil {
			return fail(c, h.log, "submit", err)
		}
		if docs, err = h.uploads.save(form); err != nil {
			return fail(c, h.log, "store documents", err)
		}
	} else {
		if err := c.Bind(&req); err != nil {
			return fail(c, h.log, "submit", invalidBody())
		}
		if err := c.Validate(&req); err != nil {
			return fail(c, h.log, "submit", err)
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.svc.Submit(ctx, actor, service.SubmitRequest{
		Items: []booking.Line{{
			SpaceID:     req.SpaceID,
			EquipmentID: req.EquipmentID,
			Window:      booking.Interval{Start: req.StartTime, End: req.EndTime},
		}},
		Justification:    req.Justification,
		Subject:          req.Subject,
		Coordinator:      req.Coordinator,
		Teacher:          req.Teacher,
		CartSubmissionID: req.CartSubmissionID,
		Documents:        docs,
	})
	if err != nil {
		h.uploads.discard(docs)
		return fail(c, h.log, "submit", err)
	}
	return c.JSON(http.StatusCreated, res)
}

// SubmitCart books several items under one display ID.
func (h *ReservationHandler) SubmitCart(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req cartReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, "submit cart", invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, "submit cart", err)
	}
	lines := make([]booking.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, it.line())
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.svc.SubmitCart(ctx, actor, service.SubmitRequest{
		Items:            lines,
		Justification:    req.Justification,
		Subject:          req.Subject,
		Coordinator:      req.Coordinator,
		Teacher:          req.Teacher,
		CartSubmissionID: req.CartSubmissionID,
	})
	if err != nil {
		return fail(c, h.log, "submit cart", err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMine returns the caller's reservations grouped by submission.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	groups, err := h.svc.ListMine(ctx, actor)
	if err != nil {
		return fail(c, h.log, "list my reservations", err)
	}
	return c.JSON(http.StatusOK, groups)
}

// submitFromForm reads a single-item submission from multipart fields.
func submitFromForm(c echo.Context) (submitReq, error) {
	v := &booking.ValidationError{}
	req := submitReq{
		SpaceID:          formUint(c, v, "spaceId"),
		EquipmentID:      formUint(c, v, "equipmentId"),
		StartTime:        formTime(c, v, "startTime"),
		EndTime:          formTime(c, v, "endTime"),
		Justification:    c.FormValue("justification"),
		Subject:          formString(c, "subject"),
		Coordinator:      formString(c, "coordinator"),
		Teacher:          formString(c, "teacher"),
		CartSubmissionID: strings.TrimSpace(c.FormValue("cartSubmissionId")),
	}
	return req, v.Err()
}

func formUint(c echo.Context, v *booking.ValidationError, name string) *uint64 {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		v.Add(name, "must be a positive integer")
		return nil
	}
	return &n
}

func formTime(c echo.Context, v *booking.ValidationError, name string) time.Time {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		v.Add(name, "must be an RFC 3339 timestamp")
	}
	return t
}

func formString(c echo.Context, name string) *string {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
