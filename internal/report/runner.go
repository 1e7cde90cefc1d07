package report

import (
	"context"
	"time"

	"github.com/golang-sql/civil"

	"github.com/BartekS5/roomstat/internal/export"
	"github.com/BartekS5/roomstat/internal/metrics"
	"github.com/BartekS5/roomstat/pkg/database"
	"github.com/BartekS5/roomstat/pkg/logger"
)

// Outcome is the result of one report. Rows is empty when Err is set.
type Outcome struct {
	Name string
	Rows []export.Record
	Err  error
}

// Runner executes every report against DB. Ages are computed as of the
// calendar date of Now(), defaulting to time.Now.
type Runner struct {
	DB      database.Execer
	Dialect database.Dialect
	Now     func() time.Time
	Metrics *metrics.Recorder
}

// Run executes the reports in order. A failing report is logged and yields
// no rows; the others still run.
func (r *Runner) Run(ctx context.Context) []Outcome {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ref := r.Dialect.BindDate(civil.DateOf(now()))

	queries := Queries(r.Dialect)
	outcomes := make([]Outcome, 0, len(queries))
	for _, q := range queries {
		var args []any
		if q.DatedArg {
			args = []any{ref}
		}
		out := Outcome{Name: q.Name, Rows: []export.Record{}}
		rows, err := r.DB.Query(ctx, q.SQL, args...)
		if err != nil {
			out.Err = err
			logger.Error().Err(err).Str("report", q.Name).Msg("report failed")
		} else {
			out.Rows = Records(rows)
			logger.Info().Str("report", q.Name).Int("rows", len(out.Rows)).Msg("report finished")
		}
		r.Metrics.RecordReport(q.Name, len(out.Rows), out.Err)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// Records converts driver rows into export records, keeping column order.
func Records(rows []database.Row) []export.Record {
	out := make([]export.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(export.Record, 0, len(row))
		for _, col := range row {
			rec = append(rec, export.Field{Name: col.Name, Value: export.FromDriver(col.Value, col.Type)})
		}
		out = append(out, rec)
	}
	return out
}

// Sections turns outcomes into export sections named after the reports.
func Sections(outcomes []Outcome) []export.Section {
	sections := make([]export.Section, 0, len(outcomes))
	for _, o := range outcomes {
		sections = append(sections, export.Rows(o.Name, o.Rows))
	}
	return sections
}

// Failed counts the outcomes that carry an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
