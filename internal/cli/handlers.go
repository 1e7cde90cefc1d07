package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/BartekS5/roomstat/internal/config"
	"github.com/BartekS5/roomstat/internal/etl"
	"github.com/BartekS5/roomstat/internal/export"
	"github.com/BartekS5/roomstat/internal/metrics"
	"github.com/BartekS5/roomstat/internal/publish"
	"github.com/BartekS5/roomstat/internal/schema"
	"github.com/BartekS5/roomstat/internal/storage"
	"github.com/BartekS5/roomstat/pkg/database"
	"github.com/BartekS5/roomstat/pkg/logger"
)

// setup loads the configuration and configures logging from it, letting
// command line flags win.
func setup(globals *GlobalOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	lc := logger.Config{Level: cfg.LogLevel, File: cfg.LogFile, Pretty: !globals.LogJSON}
	if globals.LogLevel != "" {
		lc.Level = globals.LogLevel
	}
	if globals.LogFile != "" {
		lc.File = globals.LogFile
	}
	if err := logger.Configure(lc); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*database.SQLDB, error) {
	db, err := database.ConnectSQL(ctx, cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", string(cfg.Dialect)).Msg("connected to store")
	return db, nil
}

func (o StoreOptions) paths(d database.Dialect) (string, string) {
	schemaPath, indexesPath := schema.DefaultPaths(o.SchemaDir, d)
	if o.SchemaPath != "" {
		schemaPath = o.SchemaPath
	}
	if o.IndexesPath != "" {
		indexesPath = o.IndexesPath
	}
	return schemaPath, indexesPath
}

func (o LoadOptions) loader(db database.DB, rec *metrics.Recorder) *etl.Loader {
	l := etl.NewLoader(db)
	l.BatchSize = o.BatchSize
	l.Metrics = rec
	l.DryRun = o.DryRun
	if o.Strict {
		l.Policy = etl.PolicyStrict
	}
	return l
}

func runPipeline(cmd *cobra.Command, globals *GlobalOptions, opts *RunOptions) error {
	format, err := export.ParseFormat(opts.Output.Format)
	if err != nil {
		return err
	}
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec := metrics.New()
	schemaPath, indexesPath := opts.Store.paths(cfg.Dialect)
	p := &etl.Pipeline{
		DB:          db,
		Loader:      opts.Load.loader(db, rec),
		SchemaPath:  schemaPath,
		IndexesPath: indexesPath,
		SkipSchema:  opts.SkipSchema,
		Metrics:     rec,
	}

	result, err := p.Run(ctx, opts.RoomsPath, opts.StudentsPath)
	if err != nil {
		return err
	}
	return deliver(cmd, cfg, &opts.Output, format, result, rec)
}

func runReport(cmd *cobra.Command, globals *GlobalOptions, opts *OutputOptions) error {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec := metrics.New()
	p := &etl.Pipeline{DB: db, Metrics: rec}
	return deliver(cmd, cfg, opts, format, p.Report(ctx), rec)
}

func runLoad(cmd *cobra.Command, globals *GlobalOptions, opts *LoadOptions, kindArg, path string) error {
	kind, err := etl.ParseKind(kindArg)
	if err != nil {
		return err
	}
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := opts.loader(db, nil).Load(ctx, kind, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: submitted=%d skipped=%d chunks=%d\n", kind, stats.Submitted, stats.Skipped, stats.Chunks)
	return nil
}

func runSchema(cmd *cobra.Command, globals *GlobalOptions, opts *StoreOptions) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	schemaPath, indexesPath := opts.paths(cfg.Dialect)
	p := &etl.Pipeline{DB: db, SchemaPath: schemaPath, IndexesPath: indexesPath}
	if err := p.Provision(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema applied successfully.")
	return nil
}

// deliver writes the document locally, then to the optional upload target,
// Mongo and the metrics textfile. Any failure is fatal.
func deliver(cmd *cobra.Command, cfg *config.Config, opts *OutputOptions, format export.Format, result export.Result, rec *metrics.Recorder) error {
	ctx := cmd.Context()
	data, err := export.Encode(format, result)
	if err != nil {
		return err
	}

	name := export.EnsureExt(opts.Output, format)
	dir := opts.OutDir
	if dir == "" {
		dir = cfg.ResultsDir
	}
	if filepath.IsAbs(name) {
		dir, name = filepath.Dir(name), filepath.Base(name)
	}
	local := &storage.FS{Dir: dir}
	if err := local.Put(ctx, name, data, format.ContentType()); err != nil {
		return err
	}
	logger.Info().Str("path", local.Location(name)).Int("bytes", len(data)).Msg("result written")
	fmt.Fprintln(cmd.OutOrStdout(), local.Location(name))

	if opts.Upload != "" {
		target, err := storage.ParseTarget(opts.Upload)
		if err != nil {
			return err
		}
		sink, err := storage.Open(ctx, target, storage.S3Config{Region: cfg.AWSRegion, Endpoint: cfg.S3Endpoint})
		if err != nil {
			return err
		}
		if err := sink.Put(ctx, filepath.Base(name), data, format.ContentType()); err != nil {
			return err
		}
		logger.Info().Str("location", sink.Location(filepath.Base(name))).Msg("result uploaded")
	}

	if opts.PublishMongo {
		if err := publishMongo(ctx, cfg, result); err != nil {
			return err
		}
	}

	if opts.MetricsFile != "" {
		if err := rec.WriteTextfile(opts.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

func publishMongo(ctx context.Context, cfg *config.Config, result export.Result) error {
	if err := cfg.RequireMongo(); err != nil {
		return err
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoConnString)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()
	return publish.NewMongoPublisher(client, cfg.MongoDatabase).Publish(ctx, etl.RunID(result), result)
}
