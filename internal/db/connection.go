package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

type infoLogger interface {
	Info(msg string, args ...any)
}

// Adapts app logger to migrate.Logger
type migrateLogger struct {
	l infoLogger
}

func (m migrateLogger) Printf(format string, v ...any) {
	m.l.Info("migrate", "event", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m migrateLogger) Verbose() bool {
	return false
}

type options struct {
	logger infoLogger
}

type Option func(*options)

// Report applied migrations to the logger
func WithLogger(l infoLogger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run embedded migrations
// Check the example at https://github.com/golang-migrate/migrate/blob/v4.18.1/source/iofs/example_test.go
// dsn: database source name in format postgres://...
func Migrate(dsn string, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}

	migrator, err := migrate.NewWithSourceInstance(
		"iofs",
		source,
		strings.NewReplacer(
			"postgres://", "pgx5://", // golang-migrate expects dsn in format 'pgx5://...' only, make it happy with 'postgres://...'
			"postgresql://", "pgx5://",
		).Replace(dsn),
	)
	if err != nil {
		return fmt.Errorf("error while preparing migrator. Err: %w", err)
	}
	defer migrator.Close() // nolint:errcheck

	if o.logger != nil {
		migrator.Log = migrateLogger{l: o.logger}
	}

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error while applying migrations. Err: %w", err)
	}

	if o.logger != nil {
		version, dirty, err := migrator.Version()
		if err == nil {
			o.logger.Info("database schema is up to date", "version", version, "dirty", dirty)
		}
	}

	return nil
}

// Open pool and make sure the database answers
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cant initialize connection pool. Err: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database is not reachable. Err: %w", err)
	}

	return pool, nil
}

func ConnectAndMigrate(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	err := Migrate(dsn, opts...)
	if err != nil {
		return nil, err
	}

	return Connect(ctx, dsn)
}
