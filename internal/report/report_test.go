package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/roomstat/internal/export"
	"github.com/BartekS5/roomstat/internal/metrics"
	"github.com/BartekS5/roomstat/internal/schema"
	"github.com/BartekS5/roomstat/pkg/database"
	"github.com/BartekS5/roomstat/pkg/database/dbtest"
)

var evalTime = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return evalTime }

func TestQueriesPerDialect(t *testing.T) {
	pg := Queries(database.Postgres)
	require.Len(t, pg, 4)
	assert.Equal(t, []string{Occupancy, YoungestAverage, WidestAgeSpread, MixedOccupancy},
		[]string{pg[0].Name, pg[1].Name, pg[2].Name, pg[3].Name})
	assert.Contains(t, pg[0].SQL, "LEFT JOIN students")
	assert.Contains(t, pg[1].SQL, "LIMIT 5")
	assert.Contains(t, pg[1].SQL, "AGE(CAST($1 AS DATE), s.birthday)")
	assert.Contains(t, pg[2].SQL, "ORDER BY age_spread DESC, r.id ASC")
	assert.Contains(t, pg[3].SQL, "HAVING COUNT(DISTINCT s.sex) >= 2")

	ms := Queries(database.SQLServer)
	assert.Contains(t, ms[1].SQL, "OFFSET 0 ROWS FETCH NEXT 5 ROWS ONLY")
	assert.Contains(t, ms[2].SQL, "DATEDIFF(YEAR, s.birthday, CAST(@p1 AS DATE))")
	assert.NotContains(t, ms[1].SQL, "LIMIT")

	lite := Queries(database.SQLite)
	assert.Contains(t, lite[1].SQL, "strftime('%Y', ?1)")
}

func TestRunBindsEvaluationDate(t *testing.T) {
	db := dbtest.New()
	r := &Runner{DB: db, Dialect: db.Dialect(), Now: fixedNow}

	outcomes := r.Run(context.Background())
	require.Len(t, outcomes, 4)
	require.Len(t, db.Queries, 4)

	assert.Empty(t, db.Queries[0].Args)
	assert.Equal(t, []any{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}, db.Queries[1].Args)
	assert.Equal(t, []any{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}, db.Queries[2].Args)
	assert.Empty(t, db.Queries[3].Args)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.NotNil(t, o.Rows)
	}
}

func TestRunIsolatesFailingQuery(t *testing.T) {
	boom := errors.New("relation does not exist")
	db := dbtest.New().
		FailOn("COUNT(DISTINCT s.sex)", boom).
		OnQuery("student_count", database.Row{
			{Name: "id", Type: "INT8", Value: int64(1)},
			{Name: "name", Type: "TEXT", Value: "Room #1"},
			{Name: "student_count", Type: "INT8", Value: int64(3)},
		}).
		OnQuery("avg_age", database.Row{
			{Name: "id", Type: "INT8", Value: int64(1)},
			{Name: "name", Type: "TEXT", Value: "Room #1"},
			{Name: "avg_age", Type: "NUMERIC", Value: "21"},
		})
	rec := metrics.New()
	r := &Runner{DB: db, Dialect: db.Dialect(), Now: fixedNow, Metrics: rec}

	outcomes := r.Run(context.Background())
	require.Len(t, outcomes, 4)
	assert.Equal(t, 1, Failed(outcomes))

	mixed := outcomes[3]
	assert.Equal(t, MixedOccupancy, mixed.Name)
	assert.ErrorIs(t, mixed.Err, boom)
	assert.Empty(t, mixed.Rows)

	require.Len(t, outcomes[0].Rows, 1)
	count, _ := outcomes[0].Rows[0].Get("student_count")
	assert.Equal(t, int64(3), export.Convert(count))

	require.Len(t, outcomes[1].Rows, 1)
	avg, _ := outcomes[1].Rows[0].Get("avg_age")
	assert.Equal(t, export.KindDecimal, avg.Kind())
	assert.Equal(t, 21.0, export.Convert(avg))

	expected := `
# HELP roomstat_report_runs_total Report query executions by outcome.
# TYPE roomstat_report_runs_total counter
roomstat_report_runs_total{report="mixed_occupancy",status="error"} 1
roomstat_report_runs_total{report="occupancy",status="ok"} 1
roomstat_report_runs_total{report="widest_age_spread",status="ok"} 1
roomstat_report_runs_total{report="youngest_average",status="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "roomstat_report_runs_total"))
}

func TestSectionsKeepReportOrder(t *testing.T) {
	sections := Sections([]Outcome{
		{Name: Occupancy, Rows: []export.Record{}},
		{Name: MixedOccupancy, Err: errors.New("x")},
	})
	require.Len(t, sections, 2)
	assert.Equal(t, Occupancy, sections[0].Name)
	assert.Equal(t, export.SectionRows, sections[1].Kind)
}

func openStore(t *testing.T) *database.SQLDB {
	t.Helper()
	ctx := context.Background()
	db, err := database.ConnectSQL(ctx, database.SQLite, filepath.Join(t.TempDir(), "report.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	schemaPath, indexesPath := schema.DefaultPaths(filepath.Join("..", "..", "sql"), database.SQLite)
	require.NoError(t, schema.EnsureSchema(ctx, db, schemaPath))
	require.NoError(t, schema.EnsureIndexes(ctx, db, indexesPath))
	return db
}

func seed(t *testing.T, db database.DB) {
	t.Helper()
	ctx := context.Background()
	d := db.Dialect()
	rooms := [][]any{}
	for i := int64(1); i <= 7; i++ {
		rooms = append(rooms, []any{i, fmt.Sprintf("Room #%d", i)})
	}
	day := func(y, m, dd int) civil.Date { return civil.Date{Year: y, Month: time.Month(m), Day: dd} }
	// Ages as of evalTime: room 1 has 24 (birthday today) and 19 (turns 20
	// tomorrow), room 3 has 33 and 19, room 5 has 22 and 23.
	students := [][]any{
		{int64(1), "Ann", "F", day(2000, 6, 1), int64(1)},
		{int64(2), "Bob", "M", day(2004, 6, 2), int64(1)},
		{int64(3), "Cid", "F", day(2003, 1, 1), int64(2)},
		{int64(4), "Dan", "M", day(1990, 12, 31), int64(3)},
		{int64(5), "Eve", "M", day(2005, 1, 1), int64(3)},
		{int64(6), "Fay", "F", day(2006, 6, 1), int64(4)},
		{int64(7), "Gus", "F", day(2002, 2, 28), int64(5)},
		{int64(8), "Hal", "M", day(2001, 3, 1), int64(5)},
		{int64(9), "Ivy", "M", day(1999, 7, 1), int64(6)},
	}
	require.NoError(t, db.Transaction(ctx, func(tx database.Execer) error {
		if err := tx.ExecMany(ctx, d.InsertIgnore("rooms", []string{"id", "name"}, "id"), rooms); err != nil {
			return err
		}
		return tx.ExecMany(ctx, d.InsertIgnore("students", []string{"id", "name", "sex", "birthday", "room_id"}, "id"), students)
	}))
}

func column(t *testing.T, rows []export.Record, name string) []any {
	t.Helper()
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		v, ok := r.Get(name)
		require.True(t, ok, name)
		out = append(out, export.Convert(v))
	}
	return out
}

func TestReportsOnSQLite(t *testing.T) {
	db := openStore(t)
	seed(t, db)

	r := &Runner{DB: db, Dialect: db.Dialect(), Now: fixedNow}
	outcomes := r.Run(context.Background())
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		require.NoError(t, o.Err, o.Name)
	}

	occ := outcomes[0].Rows
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5), int64(6), int64(7)}, column(t, occ, "id"))
	assert.Equal(t, []any{int64(2), int64(1), int64(2), int64(1), int64(2), int64(1), int64(0)}, column(t, occ, "student_count"))
	assert.Equal(t, []string{"id", "name", "student_count"}, []string{occ[0][0].Name, occ[0][1].Name, occ[0][2].Name})

	young := outcomes[1].Rows
	assert.Equal(t, []any{int64(4), int64(2), int64(1), int64(5), int64(6)}, column(t, young, "id"))
	assert.Equal(t, []any{18.0, 21.0, 22.0, 23.0, 24.0}, column(t, young, "avg_age"))

	spread := outcomes[2].Rows
	assert.Equal(t, []any{int64(3), int64(1), int64(5), int64(2), int64(4)}, column(t, spread, "id"))
	assert.Equal(t, []any{int64(14), int64(5), int64(1), int64(0), int64(0)}, column(t, spread, "age_spread"))

	mixed := outcomes[3].Rows
	assert.Equal(t, []any{int64(1), int64(5)}, column(t, mixed, "id"))
}
