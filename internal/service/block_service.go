package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

// BlockService manages recurring blocks.  Every operation is superuser
// only.
type BlockService struct {
	d   Deps
	log *zap.Logger
}

func NewBlockService(d Deps) *BlockService {
	d = d.withDefaults()
	return &BlockService{d: d, log: d.Log.Named("blocks")}
}

func (s *BlockService) List(ctx context.Context, actor booking.Actor) ([]model.RecurringBlock, error) {
	if actor.Role != model.RoleSuperuser {
		return nil, booking.ErrForbidden
	}
	return s.d.Store.ListBlocks(ctx)
}

// Create stores rb unless one of its occurrences collides with an active
// reservation of a target resource.
func (s *BlockService) Create(ctx context.Context, actor booking.Actor, rb model.RecurringBlock) (model.RecurringBlock, error) {
	if actor.Role != model.RoleSuperuser {
		return model.RecurringBlock{}, booking.ErrForbidden
	}
	rb.Title = strings.TrimSpace(rb.Title)
	if rb.Title == "" {
		return model.RecurringBlock{}, booking.Invalid("title", "title is required")
	}
	rb.EquipmentIDs = uniqueSorted(rb.EquipmentIDs)
	b, err := booking.BlockFrom(rb)
	if err != nil {
		return model.RecurringBlock{}, err
	}
	if err := b.Validate(); err != nil {
		return model.RecurringBlock{}, err
	}
	rb.StartTime, rb.EndTime = b.Start.String(), b.End.String()
	rb.CreatedByUserID = actor.UserID

	loc := s.d.Location
	window := dateSpan(rb.StartDate, rb.EndDate, loc)
	err = s.d.Store.InTx(ctx, func(tx Tx) error {
		targets := b.Targets()
		if _, err := tx.LockResources(ctx, targets); err != nil {
			return translate(err)
		}
		existing, err := tx.ActiveBookings(ctx, targets, window)
		if err != nil {
			return err
		}
		if err := booking.BlockCollision(b, existing, loc); err != nil {
			return err
		}
		return tx.InsertBlock(ctx, &rb)
	})
	if err != nil {
		return model.RecurringBlock{}, err
	}
	s.log.Info("recurring block created", zap.Uint64("block_id", rb.ID), zap.String("title", rb.Title))
	return rb, nil
}

func (s *BlockService) Delete(ctx context.Context, actor booking.Actor, id uint64) error {
	if actor.Role != model.RoleSuperuser {
		return booking.ErrForbidden
	}
	if err := s.d.Store.DeleteBlock(ctx, id); err != nil {
		return translate(err)
	}
	s.log.Info("recurring block deleted", zap.Uint64("block_id", id))
	return nil
}

// dateSpan covers the calendar days from..to inclusive in loc.
func dateSpan(from, to time.Time, loc *time.Location) booking.Interval {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	return booking.Interval{
		Start: time.Date(fy, fm, fd, 0, 0, 0, 0, loc),
		End:   time.Date(ty, tm, td+1, 0, 0, 0, 0, loc),
	}
}

func uniqueSorted(ids []uint64) []uint64 {
	if len(ids) == 0 {
		return ids
	}
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for _, id := range out[1:] {
		if id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}
