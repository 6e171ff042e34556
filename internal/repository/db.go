package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jzielinski/invoicescan/internal/common"
)

// Dialect distinguishes the two supported engines. Queries are written with
// "?" placeholders and rebound for postgres.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB bundles a database handle with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect

	pool *pgxpool.Pool // non-nil for postgres only
}

// Open connects according to the configured driver. Postgres goes through a
// pgx pool wrapped as database/sql; sqlite opens the file directly.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	switch Dialect(cfg.Driver) {
	case DialectSQLite:
		return openSQLite(cfg, logger)
	case DialectPostgres:
		return openPostgres(ctx, cfg, logger)
	}
	return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown database driver %q", cfg.Driver), common.ErrInvalidInput)
}

func openSQLite(cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("opening sqlite database", "dsn", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, common.WrapError(err, "open sqlite")
	}
	// the sqlite file is a single writer; more connections just contend
	db.SetMaxOpenConns(1)
	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dsn", cfg.DSN)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, common.WrapError(err, "parse postgres dsn")
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "invoicescan"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.WrapError(err, "connect postgres")
	}

	logger.Info("successfully connected to database")
	return &DB{DB: stdlib.OpenDBFromPool(pool), Dialect: DialectPostgres, pool: pool}, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close(logger *slog.Logger) {
	logger.Info("closing database connections")
	if err := d.DB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.PingContext(ctx)
}

// rebind converts "?" placeholders to "$N" for postgres. SQLite takes them
// as written.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
