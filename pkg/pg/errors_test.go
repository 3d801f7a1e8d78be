package pg_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/jobqueue/pkg/pg"
)

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	wrap := func(code string) error {
		return fmt.Errorf("insert envelope: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, pg.IsDuplicateKeyError(wrap("23505")))
	assert.False(t, pg.IsDuplicateKeyError(wrap("23503")))
	assert.True(t, pg.IsForeignKeyViolationError(wrap("23503")))
	assert.True(t, pg.IsRetryableTxError(wrap("40001")))
	assert.True(t, pg.IsRetryableTxError(wrap("40P01")))
	assert.False(t, pg.IsRetryableTxError(wrap("23505")))
	assert.True(t, pg.IsLockNotAvailableError(wrap("55P03")))

	assert.True(t, pg.IsNotFoundError(fmt.Errorf("peek: %w", pgx.ErrNoRows)))
	assert.True(t, pg.IsTxClosedError(pgx.ErrTxClosed))

	for _, fn := range []func(error) bool{
		pg.IsNotFoundError, pg.IsTxClosedError, pg.IsDuplicateKeyError,
		pg.IsForeignKeyViolationError, pg.IsRetryableTxError, pg.IsLockNotAvailableError,
	} {
		assert.False(t, fn(nil))
		assert.False(t, fn(errors.New("plain")))
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, pg.Healthcheck(fakePinger{})(context.Background()))

	down := errors.New("connection refused")
	err := pg.Healthcheck(fakePinger{err: down})(context.Background())
	assert.ErrorIs(t, err, pg.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, down)
}

func TestConnect_EmptyConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

func TestConnect_InvalidConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{ConnectionString: "postgres://%zz"})
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestMigrate_MissingDir(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"other/001_init.sql": {Data: []byte("-- +goose Up\n")}}
	err := pg.Migrate(context.Background(), nil, fsys, "migrations", pg.Config{}, nil)
	assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)

	err = pg.Migrate(context.Background(), nil, nil, "migrations", pg.Config{}, nil)
	assert.ErrorIs(t, err, pg.ErrMigrationsNotProvided)
}
