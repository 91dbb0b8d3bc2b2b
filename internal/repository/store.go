package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// qb builds MySQL statements with ? placeholders.
var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store bundles the repositories that share one connection pool.
type Store struct {
	db *sqlx.DB

	Users         *UserRepo
	Resources     *ResourceRepo
	Reservations  *ReservationRepo
	Counters      *CounterRepo
	Blocks        *RecurringBlockRepo
	Inscriptions  *InscriptionRepo
	Notifications *NotificationRepo
}

// NewStore wires every repository to db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepo(db),
		Resources:     NewResourceRepo(db),
		Reservations:  NewReservationRepo(db),
		Counters:      NewCounterRepo(db),
		Blocks:        NewRecurringBlockRepo(db),
		Inscriptions:  NewInscriptionRepo(db),
		Notifications: NewNotificationRepo(db),
	}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sqlx.DB { return s.db }

// InTx runs fn inside a READ COMMITTED transaction.  The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{tx: sqlTx, s: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	committed = true
	return nil
}

// Tx is an open transaction.  Its methods delegate to the repositories'
// ...Tx variants so callers never touch *sqlx.Tx directly.
type Tx struct {
	tx *sqlx.Tx
	s  *Store
}

// Raw returns the wrapped transaction.
func (t *Tx) Raw() *sqlx.Tx { return t.tx }
