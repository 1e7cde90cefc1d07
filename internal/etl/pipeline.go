package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BartekS5/roomstat/internal/export"
	"github.com/BartekS5/roomstat/internal/metrics"
	"github.com/BartekS5/roomstat/internal/report"
	"github.com/BartekS5/roomstat/internal/schema"
	"github.com/BartekS5/roomstat/pkg/database"
	"github.com/BartekS5/roomstat/pkg/logger"
)

// MetaSection is the result key of the run summary.
const MetaSection = "meta"

// Pipeline provisions the schema, loads rooms then students and runs the
// reports over one store connection.
type Pipeline struct {
	DB          database.DB
	Loader      *Loader
	Reports     *report.Runner
	SchemaPath  string
	IndexesPath string
	SkipSchema  bool
	Now         func() time.Time
	Metrics     *metrics.Recorder
}

// RunStats summarises a pipeline run.
type RunStats struct {
	RunID         string
	Rooms         LoadStats
	Students      LoadStats
	FailedReports int
	GeneratedAt   time.Time
	Elapsed       time.Duration
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) loader() *Loader {
	if p.Loader == nil {
		p.Loader = NewLoader(p.DB)
		p.Loader.Metrics = p.Metrics
	}
	return p.Loader
}

func (p *Pipeline) reports() *report.Runner {
	if p.Reports == nil {
		p.Reports = &report.Runner{DB: p.DB, Dialect: p.DB.Dialect(), Now: p.Now, Metrics: p.Metrics}
	}
	return p.Reports
}

// Provision applies the schema and index scripts unless SkipSchema is set.
func (p *Pipeline) Provision(ctx context.Context) error {
	if p.SkipSchema {
		logger.Info().Msg("schema provisioning skipped")
		return nil
	}
	if err := schema.EnsureSchema(ctx, p.DB, p.SchemaPath); err != nil {
		return err
	}
	return schema.EnsureIndexes(ctx, p.DB, p.IndexesPath)
}

// Run executes the whole flow. Source, store and schema errors abort the run;
// a failing report only empties its own section.
func (p *Pipeline) Run(ctx context.Context, roomsPath, studentsPath string) (export.Result, error) {
	start := p.now()
	stats := RunStats{RunID: uuid.NewString()}
	logger.Info().Str("run_id", stats.RunID).Msg("starting pipeline")

	if err := p.Provision(ctx); err != nil {
		return nil, err
	}

	var err error
	if stats.Rooms, err = p.loader().LoadRooms(ctx, roomsPath); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	if stats.Students, err = p.loader().LoadStudents(ctx, studentsPath); err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}

	return p.finish(ctx, start, stats), nil
}

// Report runs the reports over data already in the store.
func (p *Pipeline) Report(ctx context.Context) export.Result {
	start := p.now()
	stats := RunStats{RunID: uuid.NewString()}
	return p.finish(ctx, start, stats)
}

func (p *Pipeline) finish(ctx context.Context, start time.Time, stats RunStats) export.Result {
	outcomes := p.reports().Run(ctx)
	stats.FailedReports = report.Failed(outcomes)
	stats.GeneratedAt = p.now()
	stats.Elapsed = stats.GeneratedAt.Sub(start)

	result := export.Result(report.Sections(outcomes))
	result = append(result, export.Single(MetaSection, stats.Meta()))

	p.Metrics.RecordRun(stats.Elapsed, stats.GeneratedAt)

	rate := 0.0
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		rate = float64(stats.Rooms.Submitted+stats.Students.Submitted) / secs
	}
	logger.Info().
		Str("run_id", stats.RunID).
		Int("failed_reports", stats.FailedReports).
		Dur("elapsed", stats.Elapsed).
		Str("rate", fmt.Sprintf("%.2f records/sec", rate)).
		Msg("pipeline finished")
	return result
}

// Meta is the run summary record exported under MetaSection.
func (s RunStats) Meta() export.Record {
	return export.Record{}.
		With("inserted_rooms", s.Rooms.Submitted).
		With("inserted_students", s.Students.Submitted).
		With("skipped_rooms", s.Rooms.Skipped).
		With("skipped_students", s.Students.Skipped).
		With("failed_reports", s.FailedReports).
		With("run_id", s.RunID).
		With("generated_at", s.GeneratedAt).
		With("elapsed", s.Elapsed)
}

// RunID returns the run id recorded in r's meta section, or "".
func RunID(r export.Result) string {
	s, ok := r.Get(MetaSection)
	if !ok {
		return ""
	}
	v, ok := s.Row.Get("run_id")
	if !ok {
		return ""
	}
	id, _ := export.Convert(v).(string)
	return id
}
