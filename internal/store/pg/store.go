// Package pg implements the auth, library, share and flow stores on
// PostgreSQL through database/sql and the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"sopline.io/internal/auth"
	"sopline.io/internal/flow"
	"sopline.io/internal/library"
	"sopline.io/internal/rbac"
	"sopline.io/internal/share"
)

const (
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
	pgErrCheckViolation       = "23514"
	pgErrInvalidText          = "22P02"
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
)

var (
	_ auth.Store    = (*Store)(nil)
	_ library.Store = (*Store)(nil)
	_ share.Store   = (*Store)(nil)
	_ flow.Store    = (*Store)(nil)
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures Store.
type Option func(*Store)

// WithClock sets the source of updated_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database is reachable. It backs /readyz.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) stamp() time.Time { return s.now().UTC() }

// errorKinds are the sentinel errors of one package, used by mapError.
type errorKinds struct {
	notFound, conflict, invalid error
	// retryable is nil for packages without retry semantics.
	retryable error
}

var (
	authErrors    = errorKinds{notFound: auth.ErrNotFound, conflict: auth.ErrConflict, invalid: auth.ErrInvalidInput}
	libraryErrors = errorKinds{notFound: library.ErrNotFound, conflict: library.ErrConflict, invalid: library.ErrInvalidInput, retryable: library.ErrRetryable}
	shareErrors   = errorKinds{notFound: share.ErrNotFound, conflict: share.ErrConflict, invalid: share.ErrInvalidInput}
	flowErrors    = errorKinds{notFound: flow.ErrNotFound, conflict: flow.ErrInvalidInput, invalid: flow.ErrInvalidInput}
)

// mapError translates driver errors into the package's sentinels. Errors it
// does not recognise are returned unchanged.
func mapError(err error, kinds errorKinds) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return kinds.notFound
	}
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %s", kinds.conflict, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", kinds.notFound, pgErr.ConstraintName)
	case pgErrCheckViolation, pgErrInvalidText:
		return fmt.Errorf("%w: %s", kinds.invalid, pgErr.Message)
	case pgErrSerializationFailure, pgErrDeadlockDetected:
		if kinds.retryable != nil {
			return kinds.retryable
		}
	}
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// inTx runs fn in a transaction, committing when fn succeeds.
func (s *Store) inTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// placeholders renders $from..$from+n-1 as a comma separated list.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

// scopeWhere returns the SQL condition restricting rows to scope and the
// arguments it binds, numbered after the args already in use. An empty scope
// yields ok=false and a caller returns no rows.
func scopeWhere(scope rbac.Scope, orgCol, deptCol string, args []any) (string, []any, bool) {
	if scope.Empty() {
		return "", args, false
	}
	args = append(args, scope.OrgID)
	cond := fmt.Sprintf("%s = $%d", orgCol, len(args))
	if scope.AllDepartments {
		return cond, args, true
	}
	from := len(args) + 1
	for _, id := range scope.DepartmentIDs {
		args = append(args, id)
	}
	return fmt.Sprintf("%s and %s in (%s)", cond, deptCol, placeholders(from, len(scope.DepartmentIDs))), args, true
}

// affectedOne maps a write that touched no row to kinds.notFound.
func affectedOne(res sql.Result, err error, kinds errorKinds) error {
	if err != nil {
		return mapError(err, kinds)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return kinds.notFound
	}
	return nil
}
