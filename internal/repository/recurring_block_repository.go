package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/iliyamo/campus-booking/internal/model"
)

const blockColumns = "id, title, description, start_date, end_date, days_of_week, start_time, end_time, space_id, created_by_user_id, created_at"

// RecurringBlockRepo stores recurring availability blocks.  Weekdays are
// kept as a comma separated list ("1,3,5") and equipment targets in
// recurring_block_equipment.
type RecurringBlockRepo struct{ db *sqlx.DB }

func NewRecurringBlockRepo(db *sqlx.DB) *RecurringBlockRepo { return &RecurringBlockRepo{db: db} }

type blockRow struct {
	model.RecurringBlock
	DaysOfWeek string `db:"days_of_week"`
}

func encodeWeekdays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "weekday %q", p)
		}
		days = append(days, d)
	}
	return days, nil
}

// List returns every block ordered by start date.
func (r *RecurringBlockRepo) List(ctx context.Context) ([]model.RecurringBlock, error) {
	q, args, err := qb.Select(strings.Split(blockColumns, ", ")...).
		From("recurring_blocks").
		OrderBy("start_date", "id").
		ToSql()
	if err != nil {
		return nil, wrap(err, "build block list")
	}
	return r.load(ctx, r.db, q, args)
}

// overlappingQuery selects blocks whose date range touches [from, to].
// Both bounds are calendar dates.
func overlappingQuery(from, to time.Time) sq.SelectBuilder {
	return qb.Select(strings.Split(blockColumns, ", ")...).
		From("recurring_blocks").
		Where(sq.LtOrEq{"start_date": to.Format(time.DateOnly)}).
		Where(sq.GtOrEq{"end_date": from.Format(time.DateOnly)}).
		OrderBy("id")
}

// OverlappingTx returns the blocks whose date range touches the calendar
// days from..to, read inside tx.
func (r *RecurringBlockRepo) OverlappingTx(ctx context.Context, tx *sqlx.Tx, from, to time.Time) ([]model.RecurringBlock, error) {
	q, args, err := overlappingQuery(from, to).ToSql()
	if err != nil {
		return nil, wrap(err, "build overlapping blocks")
	}
	return r.load(ctx, tx, q, args)
}

func (r *RecurringBlockRepo) load(ctx context.Context, db sqlx.QueryerContext, q string, args []any) ([]model.RecurringBlock, error) {
	var rows []blockRow
	if err := sqlx.SelectContext(ctx, db, &rows, q, args...); err != nil {
		return nil, wrap(err, "list blocks")
	}
	blocks := make([]model.RecurringBlock, 0, len(rows))
	if len(rows) == 0 {
		return blocks, nil
	}
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	eq, eargs, err := qb.Select("block_id", "equipment_id").
		From("recurring_block_equipment").
		Where(sq.Eq{"block_id": ids}).
		OrderBy("block_id", "equipment_id").
		ToSql()
	if err != nil {
		return nil, wrap(err, "build block equipment")
	}
	var links []struct {
		BlockID     uint64 `db:"block_id"`
		EquipmentID uint64 `db:"equipment_id"`
	}
	if err := sqlx.SelectContext(ctx, db, &links, eq, eargs...); err != nil {
		return nil, wrap(err, "list block equipment")
	}
	equipment := make(map[uint64][]uint64, len(rows))
	for _, l := range links {
		equipment[l.BlockID] = append(equipment[l.BlockID], l.EquipmentID)
	}
	for _, row := range rows {
		b := row.RecurringBlock
		days, err := decodeWeekdays(row.DaysOfWeek)
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", row.ID)
		}
		b.DaysOfWeek = days
		b.EquipmentIDs = equipment[row.ID]
		if b.EquipmentIDs == nil {
			b.EquipmentIDs = []uint64{}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// InsertTx stores b with its equipment targets and fills ID.
func (r *RecurringBlockRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, b *model.RecurringBlock) error {
	q, args, err := qb.Insert("recurring_blocks").
		Columns("title", "description", "start_date", "end_date", "days_of_week",
			"start_time", "end_time", "space_id", "created_by_user_id").
		Values(b.Title, b.Description, b.StartDate.Format(time.DateOnly), b.EndDate.Format(time.DateOnly),
			encodeWeekdays(b.DaysOfWeek), b.StartTime, b.EndTime, b.SpaceID, b.CreatedByUserID).
		ToSql()
	if err != nil {
		return wrap(err, "build block insert")
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(err, "insert block")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap(err, "block id")
	}
	b.ID = uint64(id)

	if len(b.EquipmentIDs) > 0 {
		ins := qb.Insert("recurring_block_equipment").Columns("block_id", "equipment_id")
		for _, eid := range distinct(b.EquipmentIDs) {
			ins = ins.Values(b.ID, eid)
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return wrap(err, "build block equipment insert")
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return wrap(err, "insert block equipment")
		}
	}
	return nil
}

// Delete removes a block; its equipment links cascade.
func (r *RecurringBlockRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recurring_blocks WHERE id=?", id)
	if err != nil {
		return wrap(err, "delete block")
	}
	return affected(res, "delete block")
}

func (t *Tx) BlocksOverlapping(ctx context.Context, from, to time.Time) ([]model.RecurringBlock, error) {
	return t.s.Blocks.OverlappingTx(ctx, t.tx, from, to)
}

func (t *Tx) InsertBlock(ctx context.Context, b *model.RecurringBlock) error {
	return t.s.Blocks.InsertTx(ctx, t.tx, b)
}
