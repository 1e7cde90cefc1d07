package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BartekS5/roomstat/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	_ "modernc.org/sqlite"              // registers "sqlite"
)

// Compile-time contract assertion.
var _ DB = (*SQLDB)(nil)

const defaultPingTimeout = 5 * time.Second

// SQLDB is the database/sql adapter of the DB port. It holds at most one open
// connection for its whole lifetime.
type SQLDB struct {
	dialect     Dialect
	dsn         string
	db          *sql.DB
	PingTimeout time.Duration
}

// NewSQLDB returns an unconnected adapter. Connect is called lazily by the
// first statement if the caller did not call it.
func NewSQLDB(d Dialect, dsn string) *SQLDB {
	return &SQLDB{dialect: d, dsn: dsn, PingTimeout: defaultPingTimeout}
}

// ConnectSQL opens and pings a store of dialect d.
func ConnectSQL(ctx context.Context, d Dialect, dsn string) (*SQLDB, error) {
	s := NewSQLDB(d, dsn)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLDB) Dialect() Dialect { return s.dialect }

func (s *SQLDB) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.dialect.DriverName(), s.dsn)
	if err != nil {
		return fmt.Errorf("error opening %s database: %w", s.dialect, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, s.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("error connecting to %s database (ping failed): %w", s.dialect, err)
	}

	logger.Info().Str("dialect", string(s.dialect)).Msg("connected to database")
	s.db = db
	return nil
}

func (s *SQLDB) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLDB) handle(ctx context.Context) (runner, error) {
	if err := s.Connect(ctx); err != nil {
		return runner{}, err
	}
	return runner{q: s.db, d: s.dialect}, nil
}

func (s *SQLDB) Exec(ctx context.Context, query string, args ...any) error {
	r, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return r.Exec(ctx, query, args...)
}

func (s *SQLDB) ExecMany(ctx context.Context, query string, rows [][]any) error {
	r, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return r.ExecMany(ctx, query, rows)
}

func (s *SQLDB) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	r, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, query, args...)
}

func (s *SQLDB) Transaction(ctx context.Context, fn func(tx Execer) error) (retErr error) {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error().Err(rbErr).Msg("rollback failed")
		}
	}()

	if err := fn(runner{q: tx, d: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// querier is the part of *sql.DB and *sql.Tx a runner needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type runner struct {
	q querier
	d Dialect
}

func (r runner) Exec(ctx context.Context, query string, args ...any) error {
	_, err := r.q.ExecContext(ctx, query, r.d.Bind(args)...)
	return err
}

func (r runner) ExecMany(ctx context.Context, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := r.q.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, r.d.Bind(row)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func (r runner) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := r.q.QueryContext(ctx, query, r.d.Bind(args)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(types))
		for i, ct := range types {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = Column{Name: ct.Name(), Type: strings.ToUpper(ct.DatabaseTypeName()), Value: v}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
