package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BartekS5/roomstat/internal/metrics"
	"github.com/BartekS5/roomstat/pkg/database"
	"github.com/BartekS5/roomstat/pkg/logger"
	"github.com/BartekS5/roomstat/pkg/models"
)

// Kind names a record collection. It is also the table name and the wrapper
// key accepted in source documents.
type Kind string

const (
	Rooms    Kind = "rooms"
	Students Kind = "students"
)

// ParseKind validates a collection name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Rooms, Students:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown record kind %q (expected rooms or students)", s)
	}
}

func (k Kind) singular() string {
	if k == Students {
		return "student"
	}
	return "room"
}

func (k Kind) columns() []string {
	if k == Students {
		return models.StudentColumns
	}
	return models.RoomColumns
}

func (k Kind) tuple(raw map[string]any) ([]any, error) {
	if k == Students {
		s, err := ParseStudent(raw)
		if err != nil {
			return nil, err
		}
		return s.Tuple(), nil
	}
	r, err := ParseRoom(raw)
	if err != nil {
		return nil, err
	}
	return r.Tuple(), nil
}

// Policy decides what a validation failure does to a load call.
type Policy int

const (
	// PolicySkip drops the record with a diagnostic and keeps loading.
	PolicySkip Policy = iota
	// PolicyStrict fails the call on the first invalid record, before any
	// store access.
	PolicyStrict
)

// LoadStats summarises one load call.
type LoadStats struct {
	Kind Kind
	// Submitted counts validated records sent to the store. Rows ignored on
	// key conflict are included.
	Submitted int
	Skipped   int
	Chunks    int
}

// Loader reads a JSON source, validates its records and inserts them in
// chunks inside a single transaction.
type Loader struct {
	DB        database.DB
	BatchSize int
	Policy    Policy
	Metrics   *metrics.Recorder
	// DryRun validates and chunks the source without touching the store.
	DryRun bool
}

// NewLoader returns a skip-policy loader with the default batch size.
func NewLoader(db database.DB) *Loader {
	return &Loader{DB: db, BatchSize: DefaultBatchSize}
}

func (l *Loader) LoadRooms(ctx context.Context, path string) (LoadStats, error) {
	return l.Load(ctx, Rooms, path)
}

func (l *Loader) LoadStudents(ctx context.Context, path string) (LoadStats, error) {
	return l.Load(ctx, Students, path)
}

// Load runs one load call for kind from the file at path.
func (l *Loader) Load(ctx context.Context, kind Kind, path string) (LoadStats, error) {
	stats := LoadStats{Kind: kind}
	logger.Info().Str("kind", string(kind)).Str("path", path).Msg("loading source")

	items, err := readSource(path, kind)
	if err != nil {
		logger.Error().Err(err).Str("kind", string(kind)).Msg("cannot read source")
		return stats, err
	}

	tuples, skipped, err := l.validate(kind, items)
	stats.Skipped = skipped
	if err != nil {
		return stats, err
	}

	chunks := Chunk(tuples, l.BatchSize)
	if l.DryRun {
		stats.Chunks = len(chunks)
		logger.Info().
			Str("kind", string(kind)).
			Int("valid", len(tuples)).
			Int("skipped", stats.Skipped).
			Int("chunks", stats.Chunks).
			Msg("[dry run] nothing written")
		return stats, nil
	}
	insert := l.DB.Dialect().InsertIgnore(string(kind), kind.columns(), "id")
	err = l.DB.Transaction(ctx, func(tx database.Execer) error {
		for i, chunk := range chunks {
			if err := tx.ExecMany(ctx, insert, chunk); err != nil {
				return fmt.Errorf("insert %s chunk %d/%d: %w", kind, i+1, len(chunks), err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("kind", string(kind)).Msg("load rolled back")
		return stats, err
	}

	stats.Submitted = len(tuples)
	stats.Chunks = len(chunks)
	l.Metrics.RecordLoad(string(kind), stats.Submitted, stats.Skipped)
	logger.Info().
		Str("kind", string(kind)).
		Int("submitted", stats.Submitted).
		Int("skipped", stats.Skipped).
		Int("chunks", stats.Chunks).
		Msg("load committed")
	return stats, nil
}

func (l *Loader) validate(kind Kind, items []any) ([][]any, int, error) {
	tuples := make([][]any, 0, len(items))
	skipped := 0
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			skipped++
			logger.Warn().
				Str("kind", string(kind)).
				Int("index", i+1).
				Interface("raw", item).
				Msg("skipping element: not an object")
			continue
		}
		tuple, err := kind.tuple(obj)
		if err != nil {
			if l.Policy == PolicyStrict {
				return nil, skipped, fmt.Errorf("%s at index %d: %w", kind, i+1, err)
			}
			skipped++
			logger.Warn().
				Str("kind", string(kind)).
				Int("index", i+1).
				Interface("raw", obj).
				Err(err).
				Msg("skipping invalid record")
			continue
		}
		tuples = append(tuples, tuple)
	}
	return tuples, skipped, nil
}

func readSource(path string, kind Kind) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s source: %w", kind, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedSource, path, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: %s: trailing data after JSON document", ErrMalformedSource, path)
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if items, ok := v[string(kind)].([]any); ok && len(v) == 1 {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: expected an array or {%q: [...]}, got %s", ErrMalformedSource, path, kind, describe(doc))
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return fmt.Sprintf("object with %d key(s)", len(t))
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
