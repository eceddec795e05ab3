package ctxdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNoDB   = fmt.Errorf("ctxdb: no db found in context")
	ErrClosed = fmt.Errorf("ctxdb: connection already released")
)

// context registration

var dbKey int

func WithDB(ctx context.Context, db *sqlx.DB) context.Context {
	return context.WithValue(ctx, &dbKey, db)
}

func GetDB(ctx context.Context) *sqlx.DB {
	if v := ctx.Value(&dbKey); v != nil {
		return v.(*sqlx.DB)
	}

	return nil
}

// Holder hands out a single connection from the pool, acquired the first time
// it is asked for and kept until Release.
type Holder struct {
	m      sync.Mutex
	db     *sqlx.DB
	conn   *sqlx.Conn
	closed bool
}

func NewHolder(db *sqlx.DB) *Holder {
	return &Holder{db: db}
}

func (h *Holder) Conn(ctx context.Context) (*sqlx.Conn, error) {
	h.m.Lock()
	defer h.m.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	if h.conn != nil {
		return h.conn, nil
	}

	c, err := h.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ctxdb.Holder.Conn: %w", err)
	}

	h.conn = c

	return c, nil
}

func (h *Holder) Acquired() bool {
	h.m.Lock()
	defer h.m.Unlock()

	return h.conn != nil
}

func (h *Holder) Release() error {
	h.m.Lock()
	defer h.m.Unlock()

	h.closed = true

	if h.conn == nil {
		return nil
	}

	c := h.conn
	h.conn = nil

	if err := c.Close(); err != nil {
		return fmt.Errorf("ctxdb.Holder.Release: %w", err)
	}

	return nil
}

var holderKey int

func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, &holderKey, h)
}

func GetHolder(ctx context.Context) *Holder {
	if v := ctx.Value(&holderKey); v != nil {
		return v.(*Holder)
	}

	return nil
}

func GetConn(ctx context.Context) (*sqlx.Conn, error) {
	h := GetHolder(ctx)
	if h == nil {
		return nil, ErrNoDB
	}

	return h.Conn(ctx)
}

type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

func UsingTx(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	db := GetDB(ctx)
	if db == nil {
		return ErrNoDB
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// middleware

func Register(db *sqlx.DB) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		h := NewHolder(db)
		defer h.Release()

		next(rw, r.WithContext(WithHolder(WithDB(r.Context(), db), h)))
	}
}
