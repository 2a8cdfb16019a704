// Package sqlstore implements store.Accessor on top of a PostgreSQL or MySQL
// database.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/alfredjeanlab/sortgate/internal/store"
)

// Driver names accepted by Open.
const (
	DriverPQ    = "postgres"
	DriverPGX   = "pgx"
	DriverMySQL = "mysql"
)

// Tables names the four upstream tables.
type Tables struct {
	Items         string
	TrashBins     string
	TrashBinItems string
	Selections    string
}

// DefaultTables returns the table names used by the deployed schema. Names
// are quoted as given, so on PostgreSQL they must match the stored case: a
// schema created without quotes folds trashBins to trashbins.
func DefaultTables() Tables {
	return Tables{
		Items:         "items",
		TrashBins:     "trashBins",
		TrashBinItems: "trashBinItems",
		Selections:    "selected_at_location",
	}
}

// Accessor implements store.Accessor. Every call acquires its own connection
// from the pool and releases it before returning.
type Accessor struct {
	db *sqlx.DB
	q  queries
}

// Compile-time check that Accessor implements store.Accessor.
var _ store.Accessor = (*Accessor)(nil)

// Open prepares a connection pool for the database at databaseURL. It does
// not contact the server, so the service can start while the store is down.
// MySQL takes a driver DSN such as "user:pass@tcp(host:3306)/db".
func Open(driver, databaseURL string, tables Tables) (*Accessor, error) {
	switch driver {
	case DriverPQ, DriverPGX, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return New(db, tables), nil
}

// New wraps an existing handle. The SQL dialect follows db.DriverName().
func New(db *sqlx.DB, tables Tables) *Accessor {
	return &Accessor{db: db, q: newQueries(db.DriverName(), tables)}
}

// WithSession acquires a dedicated connection, pings it, and runs fn with a
// session bound to it.
func (a *Accessor) WithSession(ctx context.Context, fn func(store.Session) error) error {
	conn, err := a.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", store.ErrUnavailable, err)
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", store.ErrUnavailable, err)
	}

	return fn(&session{conn: conn, q: a.q})
}

// Close closes the underlying pool.
func (a *Accessor) Close() error {
	return a.db.Close()
}
