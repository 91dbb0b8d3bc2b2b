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

const dateLayout = "2006-01-02"

// Blocks manages recurring blocks.
type Blocks interface {
	List(ctx context.Context, actor booking.Actor) ([]model.RecurringBlock, error)
	Create(ctx context.Context, actor booking.Actor, rb model.RecurringBlock) (model.RecurringBlock, error)
	Delete(ctx context.Context, actor booking.Actor, id uint64) error
}

type BlockHandler struct {
	svc Blocks
	log *zap.Logger
}

func NewBlockHandler(svc Blocks, log *zap.Logger) *BlockHandler {
	return &BlockHandler{svc: svc, log: log.Named("blocks")}
}

type blockReq struct {
	Title        string   `json:"title" validate:"required"`
	Description  *string  `json:"description"`
	StartDate    string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	DayOfWeek    []int    `json:"dayOfWeek" validate:"required,min=1,dive,min=0,max=6"`
	StartTime    string   `json:"startTime" validate:"required"`
	EndTime      string   `json:"endTime" validate:"required"`
	SpaceID      *uint64  `json:"spaceId"`
	EquipmentIDs []uint64 `json:"equipmentIds"`
}

func (h *BlockHandler) List(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	blocks, err := h.svc.List(ctx, actor)
	if err != nil {
		return fail(c, h.log, "list blocks", err)
	}
	return c.JSON(http.StatusOK, blocks)
}

// Create stores a block; occurrences colliding with active reservations
// are reported as 409.
func (h *BlockHandler) Create(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req blockReq
	if err := c.Bind(&req); err != nil {
		return fail(c, h.log, "create block", invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.log, "create block", err)
	}
	// Layouts were checked by the validator.
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)

	ctx, cancel := requestContext(c)
	defer cancel()
	rb, err := h.svc.Create(ctx, actor, model.RecurringBlock{
		Title:        req.Title,
		Description:  req.Description,
		StartDate:    start,
		EndDate:      end,
		DaysOfWeek:   req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SpaceID:      req.SpaceID,
		EquipmentIDs: req.EquipmentIDs,
	})
	if err != nil {
		return fail(c, h.log, "create block", err)
	}
	return c.JSON(http.StatusCreated, rb)
}

func (h *BlockHandler) Delete(c echo.Context) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.log, "delete block", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Delete(ctx, actor, id); err != nil {
		return fail(c, h.log, "delete block", err)
	}
	return c.NoContent(http.StatusNoContent)
}
