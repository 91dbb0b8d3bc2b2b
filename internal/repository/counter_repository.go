package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// upsertCounter creates the day row at 1 or increments it.  Both branches
// route the new value through LAST_INSERT_ID(expr) so the follow-up
// SELECT LAST_INSERT_ID() on the same connection returns exactly the
// number this statement wrote, even under concurrent increments.
const upsertCounter = `INSERT INTO reservation_counters (date, last_number) VALUES (?, LAST_INSERT_ID(1))
ON DUPLICATE KEY UPDATE last_number = LAST_INSERT_ID(last_number + 1)`

// CounterRepo hands out the per-day reservation sequence.
type CounterRepo struct{ db *sqlx.DB }

func NewCounterRepo(db *sqlx.DB) *CounterRepo { return &CounterRepo{db: db} }

// NextTx increments the counter of day (YYYY-MM-DD) and returns the new
// value.  The row stays locked until tx ends.
func (r *CounterRepo) NextTx(ctx context.Context, tx *sqlx.Tx, day string) (int, error) {
	if _, err := tx.ExecContext(ctx, upsertCounter, day); err != nil {
		return 0, wrap(err, "increment counter")
	}
	var n int
	if err := tx.GetContext(ctx, &n, "SELECT LAST_INSERT_ID()"); err != nil {
		return 0, wrap(err, "read counter")
	}
	return n, nil
}

func (t *Tx) NextCounter(ctx context.Context, day string) (int, error) {
	return t.s.Counters.NextTx(ctx, t.tx, day)
}
