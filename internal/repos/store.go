package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"makiti/internal/domain"
)

// Options bound every store call. Reads are retried on transient failures; writes are not.
type Options struct {
	Timeout      time.Duration
	ReadRetries  int
	RetryBackoff time.Duration
}

func DefaultOptions() Options {
	return Options{Timeout: 3 * time.Second, ReadRetries: 2, RetryBackoff: 25 * time.Millisecond}
}

type base struct {
	db   *sqlx.DB
	opts Options
}

func newBase(db *sqlx.DB, opts []Options) base {
	o := DefaultOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	return base{db: db, opts: o}
}

func (b base) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.opts.Timeout)
}

func (b base) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= b.opts.ReadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * b.opts.RetryBackoff):
			case <-ctx.Done():
				return classify(op, ctx.Err())
			}
		}
		cctx, cancel := b.bound(ctx)
		err = classify(op, fn(cctx))
		cancel()
		if err == nil || !domain.IsTransient(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (b base) write(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	cctx, cancel := b.bound(ctx)
	defer cancel()
	return classify(op, fn(cctx))
}

// tx runs fn in a transaction bounded like a write.
func (b base) tx(ctx context.Context, op string, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	return b.write(ctx, op, func(ctx context.Context) error {
		tx, err := b.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// classify turns driver errors into domain errors. Errors that are already
// domain errors pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.WrapError(domain.ErrCodeTransient, op+" timed out", err)
	}
	var sErr *sqlite.Error
	if errors.As(err, &sErr) {
		switch sErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return domain.WrapError(domain.ErrCodeTransient, op+" store busy", err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return domain.WrapError(domain.ErrCodeTransient, op+" connection lost", err)
	}
	return domain.WrapError(domain.ErrCodeInternal, op, err)
}

func isUniqueViolation(err error) bool {
	var sErr *sqlite.Error
	if errors.As(err, &sErr) {
		code := sErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, nf *domain.Error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nf
	}
	return err
}
