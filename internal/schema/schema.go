// Package schema applies the table and index scripts to a store before any
// data is loaded.
package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BartekS5/roomstat/pkg/database"
	"github.com/BartekS5/roomstat/pkg/logger"
)

// DefaultPaths returns the bundled scripts for dialect d, relative to dir.
func DefaultPaths(dir string, d database.Dialect) (schemaPath, indexesPath string) {
	return filepath.Join(dir, fmt.Sprintf("schema_%s.sql", d)),
		filepath.Join(dir, fmt.Sprintf("indexes_%s.sql", d))
}

// EnsureSchema creates the tables described by the script at path.
func EnsureSchema(ctx context.Context, db database.Execer, path string) error {
	return apply(ctx, db, "schema", path)
}

// EnsureIndexes creates the indexes described by the script at path.
func EnsureIndexes(ctx context.Context, db database.Execer, path string) error {
	return apply(ctx, db, "indexes", path)
}

func apply(ctx context.Context, db database.Execer, what, path string) error {
	script, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msgf("cannot read %s script", what)
		return fmt.Errorf("read %s script: %w", what, err)
	}
	logger.Info().Str("path", path).Int("bytes", len(script)).Msgf("applying %s", what)
	if err := db.Exec(ctx, string(script)); err != nil {
		logger.Error().Err(err).Str("path", path).Msgf("applying %s failed", what)
		return fmt.Errorf("apply %s %s: %w", what, path, err)
	}
	return nil
}
