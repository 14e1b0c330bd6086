// Package sqlstore is the relational storage adapter. Queries are written
// with PostgreSQL placeholders and rebound for SQLite at runtime.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/sqlstore/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultConnectTimeout = 10 * time.Second

	// sqliteTimeLayout is fixed width so that text timestamps sort chronologically.
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

var pgPlaceholderRe = regexp.MustCompile(`\$(\d+)`)

// dialect hides the differences between the two supported engines.
type dialect struct {
	name       string
	sqlDriver  string
	goose      goose.Dialect
	lockSuffix string
}

var (
	postgresDialect = dialect{name: DriverPostgres, sqlDriver: "pgx", goose: goose.DialectPostgres, lockSuffix: " FOR UPDATE"}
	sqliteDialect   = dialect{name: DriverSQLite, sqlDriver: "sqlite", goose: goose.DialectSQLite3}
)

func (d dialect) rebind(query string) string {
	if d.name == DriverSQLite {
		return pgPlaceholderRe.ReplaceAllString(query, "?")
	}
	return query
}

// timestamp converts t to the value stored in a timestamp column.
func (d dialect) timestamp(t time.Time) any {
	if d.name == DriverSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// Config selects the engine and its data source.
type Config struct {
	Driver string // postgres or sqlite
	DSN    string // postgres URL or sqlite file path
}

// Store implements ports.Store on top of database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	newID   func() string
}

var _ ports.Store = (*Store)(nil)

// Open connects, pings and applies the embedded migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var d dialect
	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverPostgres:
		d = postgresDialect
	case DriverSQLite:
		d = sqliteDialect
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if d.name == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := &Store{db: db, dialect: d, newID: uuid.NewString}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations.FS, s.dialect.name)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(s.dialect.goose, s.db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

func (s *Store) Users() ports.UserRepository               { return &userRepository{s} }
func (s *Store) Transactions() ports.TransactionRepository { return &transactionRepository{s} }
func (s *Store) Messages() ports.MessageRepository         { return &messageRepository{s} }
func (s *Store) Driver() string                            { return s.dialect.name }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// DB exposes the pool for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) rebind(query string) string { return s.dialect.rebind(query) }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// timeScanner reads timestamp columns stored natively or as text.
type timeScanner struct{ t *time.Time }

func (ts timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into timestamp", src)
}

func (ts timeScanner) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*ts.t = t.UTC()
	return nil
}
