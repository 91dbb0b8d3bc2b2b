package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/notify"
	"github.com/iliyamo/campus-booking/internal/repository"
)

// Document is an uploaded file already written to storage.
type Document struct {
	FileName string
	FilePath string
}

// SubmitRequest is one submission: a single item or a cart.
type SubmitRequest struct {
	Items         []booking.Line
	Justification string
	Subject       *string
	Coordinator   *string
	Teacher       *string
	// CartSubmissionID groups items submitted across several calls.
	CartSubmissionID string
	// Documents are linked to every reservation of the submission.
	Documents []Document
}

// SubmitResult reports what a submission created.  Bundled lists the
// fixed equipment added automatically.
type SubmitResult struct {
	DisplayID        string              `json:"displayId"`
	CartSubmissionID *string             `json:"cartSubmissionId,omitempty"`
	Reservations     []model.Reservation `json:"reservations"`
	Bundled          []uint64            `json:"bundledEquipmentIds,omitempty"`
}

// ReservationService runs the submission workflow.
type ReservationService struct {
	d   Deps
	log *zap.Logger
}

func NewReservationService(d Deps) *ReservationService {
	d = d.withDefaults()
	return &ReservationService{d: d, log: d.Log.Named("reservations")}
}

// Submit books exactly one resource window.
func (s *ReservationService) Submit(ctx context.Context, actor booking.Actor, req SubmitRequest) (SubmitResult, error) {
	if len(req.Items) != 1 {
		return SubmitResult{}, booking.Invalid("items", "a single reservation books exactly one resource")
	}
	return s.submit(ctx, actor, req, false)
}

// SubmitCart books every item of req in one transaction.  All items share
// a cart token, generated when the caller sends none, and a display ID.
func (s *ReservationService) SubmitCart(ctx context.Context, actor booking.Actor, req SubmitRequest) (SubmitResult, error) {
	return s.submit(ctx, actor, req, true)
}

func (s *ReservationService) submit(ctx context.Context, actor booking.Actor, req SubmitRequest, cart bool) (SubmitResult, error) {
	if err := booking.ValidateSubmission(req.Items, req.Justification); err != nil {
		return SubmitResult{}, err
	}
	requester, err := s.d.Store.UserByID(ctx, actor.UserID)
	if err != nil {
		return SubmitResult{}, translate(err)
	}

	lines, bundled, err := s.bundleFixedEquipment(ctx, req.Items)
	if err != nil {
		return SubmitResult{}, err
	}

	cartID := strings.TrimSpace(req.CartSubmissionID)
	if cartID == "" && (cart || len(lines) > 1) {
		cartID = uuid.NewString()
	}
	var cartPtr *string
	if cartID != "" {
		cartPtr = &cartID
	}

	refs := distinctRefs(lines)
	span := spanOf(lines)
	loc := s.d.Location

	var (
		displayID string
		created   []model.Reservation
		locks     []model.Lock
	)
	err = s.d.Store.InTx(ctx, func(tx Tx) error {
		var err error
		locks, err = tx.LockResources(ctx, refs)
		if err != nil {
			return translate(err)
		}
		existing, err := tx.ActiveBookings(ctx, refs, span)
		if err != nil {
			return err
		}
		rows, err := tx.BlocksOverlapping(ctx, span.Start.In(loc), span.End.In(loc))
		if err != nil {
			return err
		}
		blocks := make([]booking.Block, 0, len(rows))
		for _, rb := range rows {
			b, err := booking.BlockFrom(rb)
			if err != nil {
				s.log.Warn("skipping malformed recurring block", zap.Uint64("block_id", rb.ID), zap.Error(err))
				continue
			}
			blocks = append(blocks, b)
		}

		accepted := make([]booking.Booked, 0, len(lines))
		for _, l := range lines {
			ref := l.Ref()
			if err := booking.CheckAvailable(existing, ref, l.Window); err != nil {
				return err
			}
			if err := booking.CheckAvailable(accepted, ref, l.Window); err != nil {
				return err
			}
			if err := booking.CheckBlocks(blocks, ref, l.Window, loc); err != nil {
				return err
			}
			accepted = append(accepted, booking.Booked{Ref: ref, Interval: l.Window, Status: model.ReservationPending})
		}

		if cartID != "" {
			member, ok, err := tx.CartMember(ctx, cartID)
			if err != nil {
				return err
			}
			if ok && member.UserID != requester.ID {
				return booking.Invalid("cartSubmissionId", "cart belongs to another user")
			}
			displayID = member.DisplayID
		}
		if displayID == "" {
			day := s.d.Now().In(loc)
			seq, err := tx.NextCounter(ctx, booking.CounterKey(day))
			if err != nil {
				return err
			}
			displayID = booking.ReservationDisplayID(day, booking.Surname(requester.LastName), seq)
		}

		created = make([]model.Reservation, 0, len(lines))
		for _, l := range lines {
			r := model.Reservation{
				DisplayID:        displayID,
				UserID:           requester.ID,
				SpaceID:          l.SpaceID,
				EquipmentID:      l.EquipmentID,
				CartSubmissionID: cartPtr,
				StartTime:        l.Window.Start.UTC(),
				EndTime:          l.Window.End.UTC(),
				Status:           model.ReservationPending,
				Justification:    strings.TrimSpace(req.Justification),
				Subject:          req.Subject,
				Coordinator:      req.Coordinator,
				Teacher:          req.Teacher,
			}
			if err := tx.InsertReservation(ctx, &r); err != nil {
				return err
			}
			for _, doc := range req.Documents {
				d := model.ReservationDocument{ReservationID: r.ID, FileName: doc.FileName, FilePath: doc.FilePath}
				if err := tx.InsertDocument(ctx, &d); err != nil {
					return err
				}
			}
			created = append(created, r)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	s.log.Info("reservation submitted",
		zap.String("display_id", displayID),
		zap.Uint64("user_id", requester.ID),
		zap.Int("items", len(created)),
	)
	s.d.notify(ctx, s.submissionMessages(ctx, requester, displayID, created, locks))

	return SubmitResult{
		DisplayID:        displayID,
		CartSubmissionID: cartPtr,
		Reservations:     created,
		Bundled:          bundled,
	}, nil
}

// bundleFixedEquipment appends, for every space line, the active equipment
// fixed to that space with the same window.  A fixed item the caller
// already listed for the same window is not added twice.
func (s *ReservationService) bundleFixedEquipment(ctx context.Context, items []booking.Line) ([]booking.Line, []uint64, error) {
	var spaceIDs []uint64
	for _, l := range items {
		if l.SpaceID != nil {
			spaceIDs = append(spaceIDs, *l.SpaceID)
		}
	}
	lines := append([]booking.Line(nil), items...)
	if len(spaceIDs) == 0 {
		return lines, nil, nil
	}
	fixed, err := s.d.Store.FixedEquipment(ctx, spaceIDs)
	if err != nil {
		return nil, nil, translate(err)
	}
	var bundled []uint64
	for _, l := range items {
		if l.SpaceID == nil {
			continue
		}
		for _, eq := range fixed {
			if eq.FixedToSpaceID == nil || *eq.FixedToSpaceID != *l.SpaceID {
				continue
			}
			if hasLine(lines, booking.EquipmentRef(eq.ID), l.Window) {
				continue
			}
			id := eq.ID
			lines = append(lines, booking.Line{EquipmentID: &id, Window: l.Window})
			bundled = append(bundled, id)
		}
	}
	return lines, bundled, nil
}

func hasLine(lines []booking.Line, ref booking.ResourceRef, w booking.Interval) bool {
	for _, l := range lines {
		if l.Ref() == ref && l.Window.Start.Equal(w.Start) && l.Window.End.Equal(w.End) {
			return true
		}
	}
	return false
}

// distinctRefs lists the resources of lines, spaces first, each kind in
// ascending id order.
func distinctRefs(lines []booking.Line) []booking.ResourceRef {
	seen := make(map[booking.ResourceRef]bool)
	var refs []booking.ResourceRef
	for _, l := range lines {
		ref := l.Ref()
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind == model.KindSpace
		}
		return refs[i].ID < refs[j].ID
	})
	return refs
}

func spanOf(lines []booking.Line) booking.Interval {
	span := lines[0].Window
	for _, l := range lines[1:] {
		if l.Window.Start.Before(span.Start) {
			span.Start = l.Window.Start
		}
		if l.Window.End.After(span.End) {
			span.End = l.Window.End
		}
	}
	return span
}

func (s *ReservationService) submissionMessages(ctx context.Context, requester model.User, displayID string,
	created []model.Reservation, locks []model.Lock) []notify.Message {
	byRef := make(map[booking.ResourceRef]model.Lock, len(locks))
	for _, l := range locks {
		byRef[booking.ResourceRef{Kind: l.Kind, ID: l.ID}] = l
	}
	names := make(map[uint64]string, len(created))
	responsible := make(map[uint64][]string)
	for _, r := range created {
		kind, id := r.Target()
		lock := byRef[booking.ResourceRef{Kind: kind, ID: id}]
		names[r.ID] = lock.Name
		if lock.ResponsibleUserID != nil && !contains(responsible[*lock.ResponsibleUserID], lock.Name) {
			responsible[*lock.ResponsibleUserID] = append(responsible[*lock.ResponsibleUserID], lock.Name)
		}
	}
	users := make(map[uint64]model.User, len(responsible))
	for uid := range responsible {
		u, err := s.d.Store.UserByID(ctx, uid)
		if err != nil {
			s.log.Warn("responsible user lookup failed", zap.Uint64("user_id", uid), zap.Error(err))
			continue
		}
		users[uid] = u
	}
	admins, err := s.d.Store.UsersByRoles(ctx, model.AdminRoles...)
	if err != nil {
		s.log.Warn("admin lookup failed", zap.Error(err))
	}
	return submissionMessages(requester, displayID, created, names, responsible, users, admins, s.d.Location)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ListMine returns the caller's reservations grouped by submission.
func (s *ReservationService) ListMine(ctx context.Context, actor booking.Actor) ([]booking.GroupedReservation, error) {
	uid := actor.UserID
	items, err := s.d.Store.ListReservations(ctx, repository.ReservationFilter{UserID: &uid})
	if err != nil {
		return nil, err
	}
	return booking.Group(items), nil
}
