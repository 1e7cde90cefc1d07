// Package dbtest provides a deterministic in-memory double of the database
// port for unit tests.
package dbtest

import (
	"context"
	"strings"
	"sync"

	"github.com/BartekS5/roomstat/pkg/database"
)

var _ database.DB = (*FakeDB)(nil)

// Call is one recorded statement.
type Call struct {
	Query string
	Args  []any
	Rows  [][]any
	// Tx is the 1-based number of the transaction the call ran in, 0 outside.
	Tx int
}

type failure struct {
	substr string
	err    error
}

type canned struct {
	substr string
	rows   []database.Row
}

// FakeDB records every call. Statements containing a substring registered
// with FailOn return that error; queries matching OnQuery return canned rows.
type FakeDB struct {
	D database.Dialect

	mu        sync.Mutex
	Connected bool
	Closed    bool
	Execs     []Call
	ExecManys []Call
	Queries   []Call
	Commits   int
	Rollbacks int

	failures []failure
	results  []canned

	txCount   int
	inTx      int
	committed map[int]bool
}

// New returns a fake speaking the postgres dialect.
func New() *FakeDB { return &FakeDB{D: database.Postgres} }

// FailOn makes every statement containing substr fail with err.
func (f *FakeDB) FailOn(substr string, err error) *FakeDB {
	f.failures = append(f.failures, failure{substr: substr, err: err})
	return f
}

// OnQuery makes queries containing substr return rows. The first match wins.
func (f *FakeDB) OnQuery(substr string, rows ...database.Row) *FakeDB {
	f.results = append(f.results, canned{substr: substr, rows: rows})
	return f
}

func (f *FakeDB) failFor(query string) error {
	for _, fl := range f.failures {
		if strings.Contains(query, fl.substr) {
			return fl.err
		}
	}
	return nil
}

func (f *FakeDB) Dialect() database.Dialect { return f.D }

func (f *FakeDB) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = true
	return nil
}

func (f *FakeDB) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *FakeDB) Exec(_ context.Context, query string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Execs = append(f.Execs, Call{Query: query, Args: args, Tx: f.inTx})
	return f.failFor(query)
}

func (f *FakeDB) ExecMany(_ context.Context, query string, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([][]any, len(rows))
	copy(cp, rows)
	f.ExecManys = append(f.ExecManys, Call{Query: query, Rows: cp, Tx: f.inTx})
	return f.failFor(query)
}

func (f *FakeDB) Query(_ context.Context, query string, args ...any) ([]database.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, Call{Query: query, Args: args, Tx: f.inTx})
	if err := f.failFor(query); err != nil {
		return nil, err
	}
	for _, c := range f.results {
		if strings.Contains(query, c.substr) {
			return append([]database.Row(nil), c.rows...), nil
		}
	}
	return nil, nil
}

func (f *FakeDB) Transaction(_ context.Context, fn func(tx database.Execer) error) (err error) {
	f.mu.Lock()
	f.txCount++
	f.inTx = f.txCount
	f.mu.Unlock()

	done := false
	defer func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.inTx = 0
		if !done {
			f.Rollbacks++
		}
	}()

	if err := fn(f); err != nil {
		return err
	}
	f.mu.Lock()
	f.Commits++
	if f.committed == nil {
		f.committed = map[int]bool{}
	}
	f.committed[f.inTx] = true
	f.mu.Unlock()
	done = true
	return nil
}

// CommittedRows returns the ExecMany argument rows of committed
// transactions and of calls made outside any transaction.
func (f *FakeDB) CommittedRows() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]any
	for _, c := range f.ExecManys {
		if c.Tx != 0 && !f.committed[c.Tx] {
			continue
		}
		out = append(out, c.Rows...)
	}
	return out
}
