package database

import (
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"postgres":   Postgres,
		"PostgreSQL": Postgres,
		"pgx":        Postgres,
		"mssql":      SQLServer,
		"sqlserver":  SQLServer,
		" sqlite ":   SQLite,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}

func TestInsertIgnore(t *testing.T) {
	cols := []string{"id", "name"}
	assert.Equal(t,
		"INSERT INTO rooms (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
		Postgres.InsertIgnore("rooms", cols, "id"))
	assert.Equal(t,
		"INSERT INTO rooms (id, name) VALUES (?1, ?2) ON CONFLICT (id) DO NOTHING",
		SQLite.InsertIgnore("rooms", cols, "id"))
	assert.Equal(t,
		"IF NOT EXISTS (SELECT 1 FROM rooms WHERE id = @p1) INSERT INTO rooms (id, name) VALUES (@p1, @p2)",
		SQLServer.InsertIgnore("rooms", cols, "id"))
}

func TestLimit(t *testing.T) {
	assert.Equal(t, "LIMIT 5", Postgres.Limit(5))
	assert.Equal(t, "LIMIT 5", SQLite.Limit(5))
	assert.Equal(t, "OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY", SQLServer.Limit(5))
}

func TestAgeYearsUsesBothOperands(t *testing.T) {
	for _, d := range []Dialect{Postgres, SQLServer, SQLite} {
		expr := d.AgeYears("s.birthday", d.Placeholder(1))
		assert.Contains(t, expr, "s.birthday", d)
		assert.Contains(t, expr, d.Placeholder(1), d)
		assert.NotContains(t, expr, "%!", d)
	}
}

func TestBindDate(t *testing.T) {
	day := civil.Date{Year: 2000, Month: time.February, Day: 29}
	assert.Equal(t, time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), Postgres.BindDate(day))
	assert.Equal(t, day, SQLServer.BindDate(day))
	assert.Equal(t, "2000-02-29", SQLite.BindDate(day))

	args := SQLite.Bind([]any{int64(1), day, "x"})
	assert.Equal(t, []any{int64(1), "2000-02-29", "x"}, args)
}
