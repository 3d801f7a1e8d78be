package pgstore

import (
	"context"
	"embed"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
)

// Migrations holds the goose migrations of the queue schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// DB is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is a PostgreSQL jobqueue.Store.
type Store struct {
	db       DB
	registry *jobqueue.Registry
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithClock makes the store stamp rows with now instead of the database
// clock. Meant for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store over db. The registry decides which payload table
// each work type uses.
func New(db DB, registry *jobqueue.Registry, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if registry == nil {
		return nil, jobqueue.ErrRegistryNil
	}

	s := &Store{
		db:       db,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WithTx returns a copy of the store whose statements run inside tx.
// Internal transactions become savepoints.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	c := *s
	c.db = tx
	return &c
}

// clock is bound to COALESCE($n::timestamptz, now()).
func (s *Store) clock() any {
	if s.now == nil {
		return nil
	}
	return s.now()
}

// txNow pins one instant for every statement of a transaction.
func (s *Store) txNow(ctx context.Context, q DB) (time.Time, error) {
	var now time.Time
	err := q.QueryRow(ctx, `SELECT COALESCE($1::timestamptz, now())`, s.clock()).Scan(&now)
	return now, err
}

func millis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}

var (
	_ jobqueue.Store           = (*Store)(nil)
	_ jobqueue.FailureRecorder = (*Store)(nil)
)
