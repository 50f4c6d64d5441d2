package persist

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/leadscore/schema"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names.
const (
	frameworkConfigsTable = "leadscore_framework_configs"
	scoringRunsTable      = "leadscore_scoring_runs"
	contactScoresTable    = "leadscore_contact_scores"
)

// Text timestamp layouts. SQLite keeps fixed-width UTC text so it sorts chronologically.
const (
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	mysqlTimeLayout  = "2006-01-02 15:04:05.999999"
)

// openSQL opens and pings a database for a SQL backend.
// An empty SQLite connection string falls back to defaultPath.
func openSQL(backend schema.DatabaseBackend, connStr, defaultPath string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = defaultPath
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		dsn, dsnErr := mysqlDSN(connStr)
		if dsnErr != nil {
			return nil, fmt.Errorf("failed to parse MySQL connection string: %w. Check connection string format: user:password@tcp(host:port)/dbname", dsnErr)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported SQL backend: %s", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}
	return db, nil
}

// mysqlDSN turns on parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(connStr string) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func rebind(query string, backend schema.DatabaseBackend) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quoteTableName quotes an identifier for the backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(sqliteTimeLayout)
	default:
		return t.UTC()
	}
}

// dbTime scans a timestamp stored natively or as text.
type dbTime struct {
	t *time.Time
}

// Scan implements sql.Scanner.
func (d dbTime) Scan(src any) error {
	t, err := parseDBTime(src)
	if err != nil {
		return err
	}
	if t != nil {
		*d.t = *t
	}
	return nil
}

// nullDBTime scans a nullable timestamp stored natively or as text.
type nullDBTime struct {
	t **time.Time
}

// Scan implements sql.Scanner.
func (d nullDBTime) Scan(src any) error {
	t, err := parseDBTime(src)
	if err != nil {
		return err
	}
	*d.t = t
	return nil
}

func parseDBTime(src any) (*time.Time, error) {
	var text string
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := v.UTC()
		return &t, nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("unsupported timestamp type %T", src)
	}
	for _, layout := range []string{time.RFC3339Nano, mysqlTimeLayout} {
		if t, err := time.Parse(layout, text); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("failed to parse timestamp %q", text)
}

// rowsAffected reports whether a statement touched exactly one row.
func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// isUniqueViolation reports whether err is a duplicate key error from any SQL backend.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
