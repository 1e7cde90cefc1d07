// Package cli wires the roomstat commands with cobra.
package cli

import (
	"github.com/spf13/cobra"
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	LogLevel string
	LogFile  string
	LogJSON  bool
}

func NewRootCmd() *cobra.Command {
	globals := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "roomstat",
		Short: "roomstat - load rooms and students into SQL and export occupancy reports",
		Long: `roomstat reads rooms and students from JSON files, loads them into a
relational store (PostgreSQL, SQL Server or SQLite), runs four aggregate
reports and exports them as JSON or XML.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&globals.LogFile, "log-file", "", "Also append JSON log lines to this file (overrides LOG_FILE)")
	rootCmd.PersistentFlags().BoolVar(&globals.LogJSON, "log-json", false, "Write JSON instead of console formatted logs")

	rootCmd.AddCommand(
		NewRunCmd(globals),
		NewLoadCmd(globals),
		NewReportCmd(globals),
		NewSchemaCmd(globals),
	)

	return rootCmd
}
