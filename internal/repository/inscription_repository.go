package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/campus-booking/internal/model"
)

// InscriptionRepo stores workshop inscriptions.
type InscriptionRepo struct{ db *sqlx.DB }

func NewInscriptionRepo(db *sqlx.DB) *InscriptionRepo { return &InscriptionRepo{db: db} }

// InscriptionFilter narrows List.  Zero values mean no restriction.
type InscriptionFilter struct {
	Status            model.InscriptionStatus
	ResponsibleUserID *uint64
	WorkshopID        *uint64
}

type inscriptionRow struct {
	model.Inscription
	UserFirstName       string  `db:"u_first_name"`
	UserLastName        string  `db:"u_last_name"`
	UserEmail           string  `db:"u_email"`
	WorkshopDisplayID   string  `db:"w_display_id"`
	WorkshopName        string  `db:"w_name"`
	WorkshopResponsible *uint64 `db:"w_responsible_user_id"`
}

func (row inscriptionRow) item() model.InscriptionItem {
	u := model.User{FirstName: row.UserFirstName, LastName: row.UserLastName}
	return model.InscriptionItem{
		Inscription: row.Inscription,
		User:        model.UserSummary{ID: row.UserID, Name: u.FullName(), Email: row.UserEmail},
		Workshop: model.ResourceSummary{
			ID:                row.WorkshopID,
			DisplayID:         row.WorkshopDisplayID,
			Name:              row.WorkshopName,
			ResponsibleUserID: row.WorkshopResponsible,
		},
	}
}

func inscriptionQuery() sq.SelectBuilder {
	return qb.Select(
		"i.id", "i.workshop_id", "i.user_id", "i.status", "i.approved_by_user_id", "i.decided_at",
		"i.created_at", "i.updated_at",
		"u.first_name AS u_first_name", "u.last_name AS u_last_name", "u.email AS u_email",
		"w.display_id AS w_display_id", "w.name AS w_name", "w.responsible_user_id AS w_responsible_user_id",
	).
		From("inscriptions i").
		Join("users u ON u.id = i.user_id").
		Join("workshops w ON w.id = i.workshop_id")
}

func listInscriptionsQuery(f InscriptionFilter) sq.SelectBuilder {
	b := inscriptionQuery().OrderBy("i.created_at DESC", "i.id DESC")
	if f.Status != "" {
		b = b.Where(sq.Eq{"i.status": f.Status})
	}
	if f.ResponsibleUserID != nil {
		b = b.Where(sq.Eq{"w.responsible_user_id": *f.ResponsibleUserID})
	}
	if f.WorkshopID != nil {
		b = b.Where(sq.Eq{"i.workshop_id": *f.WorkshopID})
	}
	return b
}

// List returns inscriptions joined with user and workshop, newest first.
func (r *InscriptionRepo) List(ctx context.Context, f InscriptionFilter) ([]model.InscriptionItem, error) {
	q, args, err := listInscriptionsQuery(f).ToSql()
	if err != nil {
		return nil, wrap(err, "build inscription list")
	}
	var rows []inscriptionRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrap(err, "list inscriptions")
	}
	items := make([]model.InscriptionItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}
	return items, nil
}

// CountActiveTx counts the inscriptions of a workshop that hold or claim
// a seat: pending ones and approved ones.
func (r *InscriptionRepo) CountActiveTx(ctx context.Context, tx *sqlx.Tx, workshopID uint64) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM inscriptions WHERE workshop_id=? AND status IN (?, ?)",
		workshopID, model.InscriptionPending, model.InscriptionApproved)
	if err != nil {
		return 0, wrap(err, "count inscriptions")
	}
	return n, nil
}

// InsertTx stores in and fills ID and timestamps.  A second inscription
// of the same user to the same workshop yields ErrDuplicate.
func (r *InscriptionRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, in *model.Inscription) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO inscriptions (workshop_id, user_id, status) VALUES (?,?,?)",
		in.WorkshopID, in.UserID, in.Status)
	if err != nil {
		return wrap(err, "insert inscription")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap(err, "inscription id")
	}
	in.ID = uint64(id)
	err = tx.GetContext(ctx, in,
		`SELECT id, workshop_id, user_id, status, approved_by_user_id, decided_at, created_at, updated_at
		 FROM inscriptions WHERE id=?`, in.ID)
	return wrap(err, "reload inscription")
}

// LockItemTx loads one inscription with its joins and locks it.
func (r *InscriptionRepo) LockItemTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.InscriptionItem, error) {
	q, args, err := inscriptionQuery().Where(sq.Eq{"i.id": id}).Suffix("FOR UPDATE OF i").ToSql()
	if err != nil {
		return model.InscriptionItem{}, wrap(err, "build inscription lock")
	}
	var row inscriptionRow
	if err := tx.GetContext(ctx, &row, q, args...); err != nil {
		return model.InscriptionItem{}, wrap(err, "lock inscription")
	}
	return row.item(), nil
}

// InscriptionChange is the outcome written by UpdateStatusTx.
type InscriptionChange struct {
	ID        uint64
	From      model.InscriptionStatus
	Status    model.InscriptionStatus
	DecidedBy uint64
	DecidedAt time.Time
}

// UpdateStatusTx applies c if the row still has status c.From, and
// reports ErrConflict otherwise.
func (r *InscriptionRepo) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, c InscriptionChange) error {
	q, args, err := qb.Update("inscriptions").
		Set("status", c.Status).
		Set("approved_by_user_id", c.DecidedBy).
		Set("decided_at", c.DecidedAt.UTC()).
		Where(sq.Eq{"id": c.ID, "status": c.From}).
		ToSql()
	if err != nil {
		return wrap(err, "build inscription update")
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(err, "update inscription")
	}
	return conflictIfNone(res, "update inscription")
}

func (t *Tx) CountActiveInscriptions(ctx context.Context, workshopID uint64) (int, error) {
	return t.s.Inscriptions.CountActiveTx(ctx, t.tx, workshopID)
}

func (t *Tx) InsertInscription(ctx context.Context, in *model.Inscription) error {
	return t.s.Inscriptions.InsertTx(ctx, t.tx, in)
}

func (t *Tx) LockInscription(ctx context.Context, id uint64) (model.InscriptionItem, error) {
	return t.s.Inscriptions.LockItemTx(ctx, t.tx, id)
}

func (t *Tx) UpdateInscriptionStatus(ctx context.Context, c InscriptionChange) error {
	return t.s.Inscriptions.UpdateStatusTx(ctx, t.tx, c)
}
