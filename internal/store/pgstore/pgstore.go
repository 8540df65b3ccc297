// Package pgstore is the Postgres-backed implementation of store.Store.
// Grounded on the teacher's common/pkg/database/client contract (observed
// through its test suite: a Client wrapping a nil-checked db handle,
// squirrel.Eq filters passed into Select/Count methods) combined with
// jmoiron/sqlx for scanning and lib/pq as the driver.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ifcserve/hub/internal/store"
)

var errDBNotInitialized = errors.New("db has not been initialized")

// psql is the squirrel statement builder configured for Postgres's $N
// placeholder style.
var psql = sqrl.StatementBuilder.PlaceholderFormat(sqrl.Dollar)

// Client implements store.Store over a *sqlx.DB. The zero value is invalid;
// use Open or New.
type Client struct {
	db execer
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx, letting every query
// method run unmodified inside or outside a transaction.
type execer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Open connects to Postgres at dsn and verifies connectivity.
func Open(dsn string) (*Client, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(db), nil
}

// New wraps an already-connected *sqlx.DB.
func New(db *sqlx.DB) *Client {
	return &Client{db: db}
}

func (c *Client) requireDB() error {
	if c == nil || c.db == nil {
		return errDBNotInitialized
	}
	return nil
}

// WithTx runs fn against a Client bound to a single transaction, committing
// on nil error and rolling back otherwise. Authorization-code consumption,
// refresh-token rotation and the audit row written during a code exchange
// go through this; PAT and OAuth-app admin audit writes do not.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	sqlxDB, ok := c.db.(*sqlx.DB)
	if !ok {
		// Already inside a transaction: nesting reuses the same tx rather
		// than opening a new one, matching Postgres's lack of true nested
		// transactions.
		return fn(ctx, c)
	}
	tx, err := sqlxDB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txClient := &Client{db: tx}
	if err := fn(ctx, txClient); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound{What: what}
	}
	return err
}

var _ store.Store = (*Client)(nil)

func paginate(f store.Filter) (limit, offset int) {
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = 20
	case size > 100:
		size = 100
	}
	return size, (page - 1) * size
}
