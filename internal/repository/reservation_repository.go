package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

const reservationColumns = "r.id, r.display_id, r.user_id, r.space_id, r.equipment_id, r.cart_submission_id, " +
	"r.start_time, r.end_time, r.status, r.justification, r.subject, r.coordinator, r.teacher, " +
	"r.approved_by_user_id, r.approved_at, r.checked_out_at, r.checked_out_by_user_id, " +
	"r.checked_in_at, r.checked_in_by_user_id, r.created_at, r.updated_at"

// itemColumns extends reservationColumns with the requester and the
// booked resource, all aliased so sqlx can map them onto itemRow.
var itemColumns = append(strings.Split(reservationColumns, ", "),
	"u.first_name AS u_first_name",
	"u.last_name AS u_last_name",
	"u.email AS u_email",
	"s.display_id AS s_display_id",
	"s.name AS s_name",
	"s.responsible_user_id AS s_responsible_user_id",
	"e.display_id AS e_display_id",
	"e.name AS e_name",
	"e.responsible_user_id AS e_responsible_user_id",
)

// ReservationRepo persists reservations and their documents.  All
// timestamps are stored in UTC.
type ReservationRepo struct{ db *sqlx.DB }

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationFilter narrows ListItems.  Zero values mean no restriction.
type ReservationFilter struct {
	UserID *uint64
	// ResponsibleUserID keeps items whose space or equipment is managed
	// by that user.
	ResponsibleUserID *uint64
	Status            model.ReservationStatus
}

type itemRow struct {
	model.Reservation
	UserFirstName        string  `db:"u_first_name"`
	UserLastName         string  `db:"u_last_name"`
	UserEmail            string  `db:"u_email"`
	SpaceDisplayID       *string `db:"s_display_id"`
	SpaceName            *string `db:"s_name"`
	SpaceResponsible     *uint64 `db:"s_responsible_user_id"`
	EquipmentDisplayID   *string `db:"e_display_id"`
	EquipmentName        *string `db:"e_name"`
	EquipmentResponsible *uint64 `db:"e_responsible_user_id"`
}

func (row itemRow) item() model.ReservationItem {
	u := model.User{FirstName: row.UserFirstName, LastName: row.UserLastName}
	it := model.ReservationItem{
		Reservation: row.Reservation,
		User:        model.UserSummary{ID: row.UserID, Name: u.FullName(), Email: row.UserEmail},
	}
	if row.SpaceID != nil && row.SpaceName != nil {
		it.Space = &model.ResourceSummary{
			ID:                *row.SpaceID,
			DisplayID:         deref(row.SpaceDisplayID),
			Name:              *row.SpaceName,
			ResponsibleUserID: row.SpaceResponsible,
		}
	}
	if row.EquipmentID != nil && row.EquipmentName != nil {
		it.Equipment = &model.ResourceSummary{
			ID:                *row.EquipmentID,
			DisplayID:         deref(row.EquipmentDisplayID),
			Name:              *row.EquipmentName,
			ResponsibleUserID: row.EquipmentResponsible,
		}
	}
	return it
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itemsQuery() sq.SelectBuilder {
	return qb.Select(itemColumns...).
		From("reservations r").
		Join("users u ON u.id = r.user_id").
		LeftJoin("spaces s ON s.id = r.space_id").
		LeftJoin("equipment e ON e.id = r.equipment_id")
}

// listItemsQuery builds the listing statement for f, newest first.
func listItemsQuery(f ReservationFilter) sq.SelectBuilder {
	b := itemsQuery().OrderBy("r.created_at DESC", "r.id ASC")
	if f.UserID != nil {
		b = b.Where(sq.Eq{"r.user_id": *f.UserID})
	}
	if f.ResponsibleUserID != nil {
		b = b.Where(sq.Or{
			sq.Eq{"s.responsible_user_id": *f.ResponsibleUserID},
			sq.Eq{"e.responsible_user_id": *f.ResponsibleUserID},
		})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"r.status": f.Status})
	}
	return b
}

// ListItems returns reservations joined with requester and resource.
func (r *ReservationRepo) ListItems(ctx context.Context, f ReservationFilter) ([]model.ReservationItem, error) {
	q, args, err := listItemsQuery(f).ToSql()
	if err != nil {
		return nil, wrap(err, "build reservation list")
	}
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrap(err, "list reservations")
	}
	items := make([]model.ReservationItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

// LockItemTx loads one reservation with its joins and locks the
// reservation row only.
func (r *ReservationRepo) LockItemTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.ReservationItem, error) {
	q, args, err := itemsQuery().Where(sq.Eq{"r.id": id}).Suffix("FOR UPDATE OF r").ToSql()
	if err != nil {
		return model.ReservationItem{}, wrap(err, "build reservation lock")
	}
	var row itemRow
	if err := tx.GetContext(ctx, &row, q, args...); err != nil {
		return model.ReservationItem{}, wrap(err, "lock reservation")
	}
	return row.item(), nil
}

// activeBookingsQuery selects the non-rejected reservations of refs that
// overlap window.
func activeBookingsQuery(refs []booking.ResourceRef, window booking.Interval) (sq.SelectBuilder, bool) {
	var spaceIDs, equipmentIDs []uint64
	for _, ref := range refs {
		switch ref.Kind {
		case model.KindSpace:
			spaceIDs = append(spaceIDs, ref.ID)
		case model.KindEquipment:
			equipmentIDs = append(equipmentIDs, ref.ID)
		}
	}
	target := sq.Or{}
	if len(spaceIDs) > 0 {
		target = append(target, sq.Eq{"r.space_id": spaceIDs})
	}
	if len(equipmentIDs) > 0 {
		target = append(target, sq.Eq{"r.equipment_id": equipmentIDs})
	}
	b := qb.Select(strings.Split(reservationColumns, ", ")...).
		From("reservations r").
		Where(target).
		Where(sq.NotEq{"r.status": model.ReservationRejected}).
		Where(sq.Lt{"r.start_time": window.End.UTC()}).
		Where(sq.Gt{"r.end_time": window.Start.UTC()}).
		OrderBy("r.start_time", "r.id").
		Suffix("LOCK IN SHARE MODE")
	return b, len(target) > 0
}

// ActiveBookingsTx returns the non-rejected reservations of refs that
// overlap window.  Rows are read with a shared lock so they cannot change
// until the transaction ends.
func (r *ReservationRepo) ActiveBookingsTx(ctx context.Context, tx *sqlx.Tx, refs []booking.ResourceRef, window booking.Interval) ([]booking.Booked, error) {
	b, ok := activeBookingsQuery(refs, window)
	if !ok {
		return nil, nil
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, wrap(err, "build active bookings")
	}
	var rows []model.Reservation
	if err := tx.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrap(err, "active bookings")
	}
	out := make([]booking.Booked, 0, len(rows))
	for _, res := range rows {
		out = append(out, booking.BookedFrom(res))
	}
	return out, nil
}

// CartMember is the first persisted reservation of a cart.
type CartMember struct {
	DisplayID string `db:"display_id"`
	UserID    uint64 `db:"user_id"`
}

// CartMemberTx locks and returns the first persisted member of cart.
// ok is false when the cart has no member yet.
func (r *ReservationRepo) CartMemberTx(ctx context.Context, tx *sqlx.Tx, cart string) (CartMember, bool, error) {
	var rows []CartMember
	err := tx.SelectContext(ctx, &rows,
		"SELECT display_id, user_id FROM reservations WHERE cart_submission_id=? ORDER BY id LIMIT 1 FOR UPDATE", cart)
	if err != nil {
		return CartMember{}, false, wrap(err, "cart member")
	}
	if len(rows) == 0 {
		return CartMember{}, false, nil
	}
	return rows[0], true, nil
}

// InsertTx inserts res as a new row and fills ID and timestamps.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	q, args, err := qb.Insert("reservations").
		Columns("display_id", "user_id", "space_id", "equipment_id", "cart_submission_id",
			"start_time", "end_time", "status", "justification", "subject", "coordinator", "teacher").
		Values(res.DisplayID, res.UserID, res.SpaceID, res.EquipmentID, res.CartSubmissionID,
			res.StartTime.UTC(), res.EndTime.UTC(), res.Status, res.Justification,
			res.Subject, res.Coordinator, res.Teacher).
		ToSql()
	if err != nil {
		return wrap(err, "build reservation insert")
	}
	result, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(err, "insert reservation")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return wrap(err, "reservation id")
	}
	res.ID = uint64(id)
	err = tx.GetContext(ctx, res,
		"SELECT "+strings.ReplaceAll(reservationColumns, "r.", "")+" FROM reservations WHERE id=?", res.ID)
	return wrap(err, "reload reservation")
}

// InsertDocumentTx links an uploaded file to a reservation.
func (r *ReservationRepo) InsertDocumentTx(ctx context.Context, tx *sqlx.Tx, d *model.ReservationDocument) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reservation_documents (reservation_id, file_name, file_path) VALUES (?,?,?)",
		d.ReservationID, d.FileName, d.FilePath)
	if err != nil {
		return wrap(err, "insert document")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap(err, "document id")
	}
	d.ID = uint64(id)
	return nil
}

// StatusChange is the outcome written by UpdateStatusTx.
type StatusChange struct {
	ID         uint64
	Status     model.ReservationStatus
	ApprovedBy *uint64
	ApprovedAt *time.Time
}

// UpdateStatusTx moves a PENDING reservation to d.Status.  A row that is
// no longer PENDING yields ErrConflict.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, d StatusChange) error {
	q, args, err := qb.Update("reservations").
		Set("status", d.Status).
		Set("approved_by_user_id", d.ApprovedBy).
		Set("approved_at", utcPtr(d.ApprovedAt)).
		Where(sq.Eq{"id": d.ID, "status": model.ReservationPending}).
		ToSql()
	if err != nil {
		return wrap(err, "build status update")
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(err, "update status")
	}
	return conflictIfNone(res, "update status")
}

// CheckOutTx records the hand-out of approved equipment that is not out
// yet.  Any other state yields ErrConflict.
func (r *ReservationRepo) CheckOutTx(ctx context.Context, tx *sqlx.Tx, id, by uint64, at time.Time) error {
	q, args, err := qb.Update("reservations").
		Set("checked_out_at", at.UTC()).
		Set("checked_out_by_user_id", by).
		Where(sq.Eq{"id": id, "status": model.ReservationApproved, "checked_out_at": nil}).
		Where(sq.NotEq{"equipment_id": nil}).
		ToSql()
	if err != nil {
		return wrap(err, "build check-out")
	}
	return r.handoff(ctx, tx, q, args, "check-out")
}

// CheckInTx records the return of checked-out equipment.
func (r *ReservationRepo) CheckInTx(ctx context.Context, tx *sqlx.Tx, id, by uint64, at time.Time) error {
	q, args, err := qb.Update("reservations").
		Set("checked_in_at", at.UTC()).
		Set("checked_in_by_user_id", by).
		Where(sq.Eq{"id": id, "checked_in_at": nil}).
		Where(sq.NotEq{"checked_out_at": nil}).
		ToSql()
	if err != nil {
		return wrap(err, "build check-in")
	}
	return r.handoff(ctx, tx, q, args, "check-in")
}

func (r *ReservationRepo) handoff(ctx context.Context, tx *sqlx.Tx, q string, args []any, op string) error {
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(err, op)
	}
	return conflictIfNone(res, op)
}

// Delete removes a reservation; its documents cascade.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id)
	if err != nil {
		return wrap(err, "delete reservation")
	}
	return affected(res, "delete reservation")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (t *Tx) ActiveBookings(ctx context.Context, refs []booking.ResourceRef, window booking.Interval) ([]booking.Booked, error) {
	return t.s.Reservations.ActiveBookingsTx(ctx, t.tx, refs, window)
}

func (t *Tx) CartMember(ctx context.Context, cart string) (CartMember, bool, error) {
	return t.s.Reservations.CartMemberTx(ctx, t.tx, cart)
}

func (t *Tx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	return t.s.Reservations.InsertTx(ctx, t.tx, res)
}

func (t *Tx) InsertDocument(ctx context.Context, d *model.ReservationDocument) error {
	return t.s.Reservations.InsertDocumentTx(ctx, t.tx, d)
}

func (t *Tx) LockReservation(ctx context.Context, id uint64) (model.ReservationItem, error) {
	return t.s.Reservations.LockItemTx(ctx, t.tx, id)
}

func (t *Tx) UpdateReservationStatus(ctx context.Context, d StatusChange) error {
	return t.s.Reservations.UpdateStatusTx(ctx, t.tx, d)
}

func (t *Tx) CheckOut(ctx context.Context, id, by uint64, at time.Time) error {
	return t.s.Reservations.CheckOutTx(ctx, t.tx, id, by, at)
}

func (t *Tx) CheckIn(ctx context.Context, id, by uint64, at time.Time) error {
	return t.s.Reservations.CheckInTx(ctx, t.tx, id, by, at)
}
