package storage

import (
	"fmt"
	"strings"
)

// Driver names registered with database/sql, plus the in-memory store.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMemory   = "memory"
)

// ParseURL maps a database URL onto a driver name and its DSN. It accepts the
// SQLAlchemy spellings used by existing deployments: sqlite:///relative.db,
// sqlite:////absolute.db, sqlite:// (in-memory), postgresql+driver://..., and
// memory:// for the non-persistent store.
func ParseURL(raw string) (driver, dsn string, err error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDatabase, raw)
	}
	scheme = strings.ToLower(scheme)
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}

	switch scheme {
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" || path == ":memory:" {
			path = ":memory:"
		}
		return DriverSQLite, path, nil
	case "postgres", "postgresql":
		return DriverPostgres, "postgres://" + rest, nil
	case "memory":
		return DriverMemory, "", nil
	}
	return "", "", fmt.Errorf("%w: scheme %q", ErrUnsupportedDatabase, scheme)
}
