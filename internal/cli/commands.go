package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/roomstat/internal/etl"
)

// StoreOptions locate the schema scripts.
type StoreOptions struct {
	SchemaDir   string
	SchemaPath  string
	IndexesPath string
}

// OutputOptions select the document format and where it goes.
type OutputOptions struct {
	Format       string
	Output       string
	OutDir       string
	Upload       string
	PublishMongo bool
	MetricsFile  string
}

// LoadOptions tune a load call.
type LoadOptions struct {
	BatchSize int
	Strict    bool
	DryRun    bool
}

type RunOptions struct {
	RoomsPath    string
	StudentsPath string
	SkipSchema   bool
	Store        StoreOptions
	Output       OutputOptions
	Load         LoadOptions
}

func addStoreFlags(cmd *cobra.Command, o *StoreOptions) {
	cmd.Flags().StringVar(&o.SchemaDir, "schema-dir", "sql", "Directory holding schema_<driver>.sql and indexes_<driver>.sql")
	cmd.Flags().StringVar(&o.SchemaPath, "schema", "", "Table schema script (default <schema-dir>/schema_<driver>.sql)")
	cmd.Flags().StringVar(&o.IndexesPath, "indexes", "", "Index script (default <schema-dir>/indexes_<driver>.sql)")
}

func addOutputFlags(cmd *cobra.Command, o *OutputOptions) {
	cmd.Flags().StringVarP(&o.Format, "format", "f", "json", "Output format: json or xml")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "result", "Output file name; the format extension is added when missing")
	cmd.Flags().StringVar(&o.OutDir, "out-dir", "", "Output directory (default RESULTS_DIR)")
	cmd.Flags().StringVar(&o.Upload, "upload", "", "Also upload the document to s3://bucket/prefix")
	cmd.Flags().BoolVar(&o.PublishMongo, "publish-mongo", false, "Also store the result in MongoDB (MONGO_CONNECTION_STRING)")
	cmd.Flags().StringVar(&o.MetricsFile, "metrics-file", "", "Write prometheus metrics in textfile format to this path")
}

func addLoadFlags(cmd *cobra.Command, o *LoadOptions) {
	cmd.Flags().IntVarP(&o.BatchSize, "batch-size", "b", etl.DefaultBatchSize, "Records per bulk insert")
	cmd.Flags().BoolVar(&o.Strict, "strict", false, "Fail on the first invalid record instead of skipping it")
}

func NewRunCmd(globals *GlobalOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Provision the schema, load both sources, run the reports and export them",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runPipeline(c, globals, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.RoomsPath, "rooms", "r", "", "Path to the rooms JSON file")
	cmd.Flags().StringVarP(&opts.StudentsPath, "students", "s", "", "Path to the students JSON file")
	cmd.Flags().BoolVar(&opts.SkipSchema, "skip-schema", false, "Do not apply the schema and index scripts")
	addStoreFlags(cmd, &opts.Store)
	addOutputFlags(cmd, &opts.Output)
	addLoadFlags(cmd, &opts.Load)

	_ = cmd.MarkFlagRequired("rooms")
	_ = cmd.MarkFlagRequired("students")

	return cmd
}

func NewLoadCmd(globals *GlobalOptions) *cobra.Command {
	opts := &LoadOptions{}

	cmd := &cobra.Command{
		Use:       "load rooms|students FILE",
		Short:     "Validate a source file and insert its records",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(etl.Rooms), string(etl.Students)},
		RunE: func(c *cobra.Command, args []string) error {
			return runLoad(c, globals, opts, args[0], args[1])
		},
	}

	addLoadFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate only, write nothing")

	return cmd
}

func NewReportCmd(globals *GlobalOptions) *cobra.Command {
	opts := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the reports over data already in the store and export them",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runReport(c, globals, opts)
		},
	}

	addOutputFlags(cmd, opts)
	return cmd
}

func NewSchemaCmd(globals *GlobalOptions) *cobra.Command {
	opts := &StoreOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Apply the table and index scripts",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runSchema(c, globals, opts)
		},
	}

	addStoreFlags(cmd, opts)
	return cmd
}
