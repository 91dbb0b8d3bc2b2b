package repository

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
)

const (
	spaceColumns     = "id, display_id, name, description, location, capacity, responsible_user_id, is_active, created_at, updated_at"
	equipmentColumns = "id, display_id, name, description, serial_number, fixed_asset_id, fixed_to_space_id, responsible_user_id, is_active, created_at, updated_at"
	workshopColumns  = "id, display_id, name, description, teacher, capacity, start_date, end_date, inscriptions_start_date, inscriptions_open, responsible_user_id, is_active, created_at, updated_at"
)

// ResourceRepo manages spaces, equipment and workshops.
type ResourceRepo struct{ db *sqlx.DB }

func NewResourceRepo(db *sqlx.DB) *ResourceRepo { return &ResourceRepo{db: db} }

func tableFor(kind model.ResourceKind) (string, error) {
	switch kind {
	case model.KindSpace:
		return "spaces", nil
	case model.KindEquipment:
		return "equipment", nil
	case model.KindWorkshop:
		return "workshops", nil
	}
	return "", errors.Errorf("unknown resource kind %q", kind)
}

// DisplayIDExists reports whether a resource of kind already uses id.
func (r *ResourceRepo) DisplayIDExists(ctx context.Context, kind model.ResourceKind, id string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table+" WHERE display_id=?", id); err != nil {
		return false, wrap(err, "display id lookup")
	}
	return n > 0, nil
}

// CreateSpace inserts s and reloads it so defaults are populated.
func (r *ResourceRepo) CreateSpace(ctx context.Context, s *model.Space) error {
	q, args, err := qb.Insert("spaces").
		Columns("display_id", "name", "description", "location", "capacity", "responsible_user_id").
		Values(s.DisplayID, s.Name, s.Description, s.Location, s.Capacity, s.ResponsibleUserID).
		ToSql()
	if err != nil {
		return wrap(err, "build space insert")
	}
	id, err := r.insert(ctx, q, args, "insert space")
	if err != nil {
		return err
	}
	got, err := r.GetSpace(ctx, id)
	if err != nil {
		return err
	}
	*s = got
	return nil
}

// CreateEquipment inserts e and reloads it.
func (r *ResourceRepo) CreateEquipment(ctx context.Context, e *model.Equipment) error {
	q, args, err := qb.Insert("equipment").
		Columns("display_id", "name", "description", "serial_number", "fixed_asset_id", "fixed_to_space_id", "responsible_user_id").
		Values(e.DisplayID, e.Name, e.Description, e.SerialNumber, e.FixedAssetID, e.FixedToSpaceID, e.ResponsibleUserID).
		ToSql()
	if err != nil {
		return wrap(err, "build equipment insert")
	}
	id, err := r.insert(ctx, q, args, "insert equipment")
	if err != nil {
		return err
	}
	got, err := r.GetEquipment(ctx, id)
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// CreateWorkshop inserts w and reloads it.
func (r *ResourceRepo) CreateWorkshop(ctx context.Context, w *model.Workshop) error {
	q, args, err := qb.Insert("workshops").
		Columns("display_id", "name", "description", "teacher", "capacity", "start_date", "end_date",
			"inscriptions_start_date", "inscriptions_open", "responsible_user_id").
		Values(w.DisplayID, w.Name, w.Description, w.Teacher, w.Capacity, w.StartDate, w.EndDate,
			w.InscriptionsStartDate, w.InscriptionsOpen, w.ResponsibleUserID).
		ToSql()
	if err != nil {
		return wrap(err, "build workshop insert")
	}
	id, err := r.insert(ctx, q, args, "insert workshop")
	if err != nil {
		return err
	}
	got, err := r.GetWorkshop(ctx, id)
	if err != nil {
		return err
	}
	*w = got
	return nil
}

// UpdateSpace overwrites the editable columns of an active space and
// reloads it.
func (r *ResourceRepo) UpdateSpace(ctx context.Context, s *model.Space) error {
	err := r.update(ctx, "spaces", s.ID, map[string]any{
		"name":                s.Name,
		"description":         s.Description,
		"location":            s.Location,
		"capacity":            s.Capacity,
		"responsible_user_id": s.ResponsibleUserID,
	})
	if err != nil {
		return err
	}
	got, err := r.GetSpace(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = got
	return nil
}

// UpdateEquipment overwrites the editable columns of active equipment and
// reloads it.
func (r *ResourceRepo) UpdateEquipment(ctx context.Context, e *model.Equipment) error {
	err := r.update(ctx, "equipment", e.ID, map[string]any{
		"name":                e.Name,
		"description":         e.Description,
		"serial_number":       e.SerialNumber,
		"fixed_asset_id":      e.FixedAssetID,
		"fixed_to_space_id":   e.FixedToSpaceID,
		"responsible_user_id": e.ResponsibleUserID,
	})
	if err != nil {
		return err
	}
	got, err := r.GetEquipment(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// UpdateWorkshop overwrites the editable columns of an active workshop and
// reloads it.
func (r *ResourceRepo) UpdateWorkshop(ctx context.Context, w *model.Workshop) error {
	err := r.update(ctx, "workshops", w.ID, map[string]any{
		"name":                    w.Name,
		"description":             w.Description,
		"teacher":                 w.Teacher,
		"capacity":                w.Capacity,
		"start_date":              w.StartDate,
		"end_date":                w.EndDate,
		"inscriptions_start_date": w.InscriptionsStartDate,
		"inscriptions_open":       w.InscriptionsOpen,
		"responsible_user_id":     w.ResponsibleUserID,
	})
	if err != nil {
		return err
	}
	got, err := r.GetWorkshop(ctx, w.ID)
	if err != nil {
		return err
	}
	*w = got
	return nil
}

// update does not look at RowsAffected: MySQL reports zero for an update
// that changes nothing, so callers check existence beforehand.
func (r *ResourceRepo) update(ctx context.Context, table string, id uint64, cols map[string]any) error {
	q, args, err := qb.Update(table).
		SetMap(cols).
		Where(sq.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return wrap(err, "build "+table+" update")
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return wrap(err, "update "+table)
	}
	return nil
}

// Deactivate hides a resource from the catalogue and from new bookings.
// Existing reservations and inscriptions keep pointing at it.
func (r *ResourceRepo) Deactivate(ctx context.Context, kind model.ResourceKind, id uint64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	q, args, err := qb.Update(table).
		Set("is_active", false).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return wrap(err, "build deactivate")
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return wrap(err, "deactivate "+table)
	}
	return nil
}

func (r *ResourceRepo) insert(ctx context.Context, q string, args []any, op string) (uint64, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrap(err, op)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap(err, op)
	}
	return uint64(id), nil
}

// searchQuery lists active rows of table, optionally filtered by a
// case-insensitive match on name or display id.
func searchQuery(table, columns, search string) sq.SelectBuilder {
	b := qb.Select(strings.Split(columns, ", ")...).
		From(table).
		Where(sq.Eq{"is_active": true}).
		OrderBy("name", "id")
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		b = b.Where(sq.Or{
			sq.Like{"LOWER(name)": like},
			sq.Like{"LOWER(display_id)": like},
		})
	}
	return b
}

// ListSpaces returns active spaces matching search.
func (r *ResourceRepo) ListSpaces(ctx context.Context, search string) ([]model.Space, error) {
	q, args, err := searchQuery("spaces", spaceColumns, search).ToSql()
	if err != nil {
		return nil, wrap(err, "build spaces list")
	}
	items := []model.Space{}
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, wrap(err, "list spaces")
	}
	return items, nil
}

// ListEquipment returns active equipment matching search.
func (r *ResourceRepo) ListEquipment(ctx context.Context, search string) ([]model.Equipment, error) {
	q, args, err := searchQuery("equipment", equipmentColumns, search).ToSql()
	if err != nil {
		return nil, wrap(err, "build equipment list")
	}
	items := []model.Equipment{}
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, wrap(err, "list equipment")
	}
	return items, nil
}

// ListWorkshops returns active workshops matching search.
func (r *ResourceRepo) ListWorkshops(ctx context.Context, search string) ([]model.Workshop, error) {
	q, args, err := searchQuery("workshops", workshopColumns, search).ToSql()
	if err != nil {
		return nil, wrap(err, "build workshops list")
	}
	items := []model.Workshop{}
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, wrap(err, "list workshops")
	}
	return items, nil
}

func (r *ResourceRepo) GetSpace(ctx context.Context, id uint64) (model.Space, error) {
	var s model.Space
	err := r.db.GetContext(ctx, &s, "SELECT "+spaceColumns+" FROM spaces WHERE id=?", id)
	return s, wrap(err, "get space")
}

func (r *ResourceRepo) GetEquipment(ctx context.Context, id uint64) (model.Equipment, error) {
	var e model.Equipment
	err := r.db.GetContext(ctx, &e, "SELECT "+equipmentColumns+" FROM equipment WHERE id=?", id)
	return e, wrap(err, "get equipment")
}

func (r *ResourceRepo) GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error) {
	var w model.Workshop
	err := r.db.GetContext(ctx, &w, "SELECT "+workshopColumns+" FROM workshops WHERE id=?", id)
	return w, wrap(err, "get workshop")
}

// FixedEquipment returns the active equipment fixed to any of spaceIDs,
// ordered by id.
func (r *ResourceRepo) FixedEquipment(ctx context.Context, spaceIDs []uint64) ([]model.Equipment, error) {
	if len(spaceIDs) == 0 {
		return nil, nil
	}
	q, args, err := qb.Select(strings.Split(equipmentColumns, ", ")...).
		From("equipment").
		Where(sq.Eq{"fixed_to_space_id": spaceIDs, "is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, wrap(err, "build fixed equipment")
	}
	var items []model.Equipment
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, wrap(err, "list fixed equipment")
	}
	return items, nil
}

type lockRow struct {
	ID                uint64  `db:"id"`
	Name              string  `db:"name"`
	ResponsibleUserID *uint64 `db:"responsible_user_id"`
	FixedToSpaceID    *uint64 `db:"fixed_to_space_id"`
}

// LockTx takes an exclusive row lock on every active resource in refs.
// Spaces are locked before equipment and each table in ascending id
// order, so concurrent submissions always acquire locks in the same
// sequence.  A missing or inactive resource yields ErrNotFound.
func (r *ResourceRepo) LockTx(ctx context.Context, tx *sqlx.Tx, refs []booking.ResourceRef) ([]model.Lock, error) {
	var spaceIDs, equipmentIDs []uint64
	for _, ref := range refs {
		switch ref.Kind {
		case model.KindSpace:
			spaceIDs = append(spaceIDs, ref.ID)
		case model.KindEquipment:
			equipmentIDs = append(equipmentIDs, ref.ID)
		default:
			return nil, errors.Errorf("resource kind %q cannot be locked", ref.Kind)
		}
	}

	locks := make([]model.Lock, 0, len(refs))
	for _, part := range []struct {
		kind  model.ResourceKind
		table string
		cols  []string
		ids   []uint64
	}{
		{model.KindSpace, "spaces", []string{"id", "name", "responsible_user_id", "NULL AS fixed_to_space_id"}, spaceIDs},
		{model.KindEquipment, "equipment", []string{"id", "name", "responsible_user_id", "fixed_to_space_id"}, equipmentIDs},
	} {
		if len(part.ids) == 0 {
			continue
		}
		q, args, err := qb.Select(part.cols...).
			From(part.table).
			Where(sq.Eq{"id": part.ids, "is_active": true}).
			OrderBy("id").
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return nil, wrap(err, "build resource lock")
		}
		var rows []lockRow
		if err := tx.SelectContext(ctx, &rows, q, args...); err != nil {
			return nil, wrap(err, "lock "+part.table)
		}
		if len(rows) != len(distinct(part.ids)) {
			return nil, ErrNotFound
		}
		for _, row := range rows {
			locks = append(locks, model.Lock{
				Kind:              part.kind,
				ID:                row.ID,
				Name:              row.Name,
				ResponsibleUserID: row.ResponsibleUserID,
				FixedToSpaceID:    row.FixedToSpaceID,
			})
		}
	}
	return locks, nil
}

// LockWorkshopTx locks one active workshop row.
func (r *ResourceRepo) LockWorkshopTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Workshop, error) {
	var w model.Workshop
	err := tx.GetContext(ctx, &w,
		"SELECT "+workshopColumns+" FROM workshops WHERE id=? AND is_active=1 FOR UPDATE", id)
	return w, wrap(err, "lock workshop")
}

// OpenDueInscriptions opens inscriptions of every workshop whose
// inscription start date is not after now.  It returns how many
// workshops were opened.
func (r *ResourceRepo) OpenDueInscriptions(ctx context.Context, now time.Time) (int64, error) {
	q, args, err := qb.Update("workshops").
		Set("inscriptions_open", true).
		Where(sq.Eq{"inscriptions_open": false, "is_active": true}).
		Where(sq.NotEq{"inscriptions_start_date": nil}).
		Where(sq.LtOrEq{"inscriptions_start_date": now.UTC()}).
		ToSql()
	if err != nil {
		return 0, wrap(err, "build open inscriptions")
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrap(err, "open inscriptions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(err, "open inscriptions")
	}
	return n, nil
}

func distinct(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// LockResources locks refs; see ResourceRepo.LockTx.
func (t *Tx) LockResources(ctx context.Context, refs []booking.ResourceRef) ([]model.Lock, error) {
	return t.s.Resources.LockTx(ctx, t.tx, refs)
}

// LockWorkshop locks one workshop; see ResourceRepo.LockWorkshopTx.
func (t *Tx) LockWorkshop(ctx context.Context, id uint64) (model.Workshop, error) {
	return t.s.Resources.LockWorkshopTx(ctx, t.tx, id)
}
