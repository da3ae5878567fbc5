package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	models "storefront/model"
)

// PostgreSQL error codes the store gives domain meaning to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNumericOutOfRange   = "22003"
)

// PostgresStore is a Store backed by Postgres. It keeps no state of its own:
// all coordination between requests happens in the database.
type PostgresStore struct {
	DB  *sqlx.DB
	log logrus.FieldLogger
}

func NewPostgresStore(db *sqlx.DB, log logrus.FieldLogger) *PostgresStore {
	return &PostgresStore{DB: db, log: log.WithField("component", "store")}
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *PostgresStore) Close() error { return s.DB.Close() }

func (s *PostgresStore) debug(op, query string, args ...interface{}) {
	s.log.WithFields(logrus.Fields{"op": op, "args": args}).Debugf("query: %s", query)
}

// classify maps a driver error onto the domain taxonomy. onMissing is
// returned for sql.ErrNoRows since its meaning depends on the statement.
func classify(op string, err error, onMissing error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && onMissing != nil {
		return onMissing
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return errors.Wrap(models.ErrDuplicateIdentity, op)
		case codeForeignKeyViolation:
			return errors.Wrapf(models.ErrNotFound, "%s: %s", op, pqErr.Detail)
		case codeCheckViolation:
			if pqErr.Constraint == "products_amount_in_stock_check" {
				return errors.Wrap(models.ErrInsufficientStock, op)
			}
			return models.Invalid(pqErr.Column, pqErr.Message)
		case codeNumericOutOfRange:
			// validation bounds single values; sums like stock + amount can still overflow
			return models.Invalid("amount", "out of range")
		}
	}
	return &models.StoreError{Op: op, Err: err}
}

// rollback is deferred after BeginTxx; it is a no-op once the tx committed.
func (s *PostgresStore) rollback(op string, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.WithError(err).WithField("op", op).Warn("rollback failed")
	}
}

// exists names the failure of a conditional write that touched no rows.
// It never decides whether a write happens.
func (s *PostgresStore) exists(ctx context.Context, op, query string, id interface{}) (bool, error) {
	var found bool
	s.debug(op, query, id)
	if err := s.DB.GetContext(ctx, &found, query, id); err != nil {
		return false, classify(op, err, nil)
	}
	return found, nil
}
