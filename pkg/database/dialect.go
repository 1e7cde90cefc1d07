package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
)

// Dialect captures the SQL differences between the supported engines.
type Dialect string

const (
	Postgres  Dialect = "postgres"
	SQLServer Dialect = "sqlserver"
	SQLite    Dialect = "sqlite"
)

// ParseDialect accepts a dialect name and a few common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", s)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLServer:
		return "sqlserver"
	default:
		return "sqlite"
	}
}

// Placeholder returns the n-th (1-based) bind parameter. The same placeholder
// may appear several times in one statement.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("$%d", n)
	case SQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return fmt.Sprintf("?%d", n)
	}
}

// InsertIgnore builds a single-row insert that silently skips rows whose key
// already exists.
func (d Dialect) InsertIgnore(table string, cols []string, key string) string {
	ph := make([]string, len(cols))
	keyArg := ""
	for i, c := range cols {
		ph[i] = d.Placeholder(i + 1)
		if c == key {
			keyArg = ph[i]
		}
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	if d == SQLServer {
		return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM %s WHERE %s = %s) %s", table, key, keyArg, insert)
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, key)
}

// Limit returns the trailing clause restricting an ordered query to n rows.
func (d Dialect) Limit(n int) string {
	if d == SQLServer {
		return fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n)
	}
	return fmt.Sprintf("LIMIT %d", n)
}

// AgeYears returns an integer expression for the number of whole calendar
// years between the date column col and the date parameter ref.
func (d Dialect) AgeYears(col, ref string) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("EXTRACT(YEAR FROM AGE(CAST(%[2]s AS DATE), %[1]s))", col, ref)
	case SQLServer:
		return fmt.Sprintf("(DATEDIFF(YEAR, %[1]s, CAST(%[2]s AS DATE)) - CASE WHEN DATEADD(YEAR, DATEDIFF(YEAR, %[1]s, CAST(%[2]s AS DATE)), %[1]s) > CAST(%[2]s AS DATE) THEN 1 ELSE 0 END)", col, ref)
	default:
		return fmt.Sprintf("(CAST(strftime('%%Y', %[2]s) AS INTEGER) - CAST(strftime('%%Y', %[1]s) AS INTEGER) - (strftime('%%m-%%d', %[2]s) < strftime('%%m-%%d', %[1]s)))", col, ref)
	}
}

// BindDate converts a calendar date into the argument type the dialect's
// driver maps onto a DATE column.
func (d Dialect) BindDate(v civil.Date) any {
	switch d {
	case Postgres:
		return v.In(time.UTC)
	case SQLServer:
		return v
	default:
		return v.String()
	}
}

// Bind converts args for the dialect's driver.
func (d Dialect) Bind(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if v, ok := a.(civil.Date); ok {
			out[i] = d.BindDate(v)
			continue
		}
		out[i] = a
	}
	return out
}
