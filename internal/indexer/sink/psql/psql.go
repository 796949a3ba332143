// Package psql implements an indexer sink backed by a PostgreSQL database.
package psql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/libs/service"
	"github.com/protocolindex/projectsink/types"

	// Register the Postgres database driver.
	_ "github.com/lib/pq"
)

const (
	TableChainOutput = "chain_output"
	DriverName       = "postgres"

	// DefaultRefreshInterval is the default coalescing window of view
	// refreshes.
	DefaultRefreshInterval = time.Second
)

var (
	// ErrUnknownView is returned by Refresh for views the schema does not
	// define.
	ErrUnknownView = errors.New("unknown materialized view")

	// ErrNoRegistry is returned by Watch when the sink has no stake-watch
	// registry.
	ErrNoRegistry = errors.New("no stake watch registry configured")
)

var knownViews = map[indexer.View]bool{
	indexer.ViewProjectSummary: true,
}

var (
	_ indexer.Sink        = (*Sink)(nil)
	_ indexer.OutputStore = (*Sink)(nil)
)

// Sink is an indexer backend storing project rows in a PostgreSQL database
// using the schema applied by InitSchema.
type Sink struct {
	service.BaseService

	store     *sql.DB
	logger    log.Logger
	registry  *stakewatch.Registry
	refresher *Refresher
}

// SinkArgs are arguments for constructing a Sink.
type SinkArgs struct {
	// ConnString is the PostgreSQL connection string.
	ConnString string

	// Registry receives stake-watch registrations. Watch fails when nil.
	Registry *stakewatch.Registry

	// RefreshInterval is the coalescing window of view refreshes.
	RefreshInterval time.Duration

	Logger log.Logger
}

// NewSink constructs a sink associated with the PostgreSQL database
// specified by args.ConnString. The connection is not verified until the
// sink starts.
func NewSink(args SinkArgs) (*Sink, error) {
	if args.ConnString == "" {
		return nil, errors.New("the psql connection settings cannot be empty")
	}
	db, err := sql.Open(DriverName, args.ConnString)
	if err != nil {
		return nil, err
	}
	return NewSinkFromDB(db, args), nil
}

// NewSinkFromDB wraps an open database handle. args.ConnString is ignored.
func NewSinkFromDB(db *sql.DB, args SinkArgs) *Sink {
	logger := args.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	interval := args.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	s := &Sink{
		store:     db,
		logger:    logger,
		registry:  args.Registry,
		refresher: NewRefresher(db, interval, logger.With("module", "refresher")),
	}
	s.BaseService = *service.NewBaseService(logger, "PostgresSink", s)
	return s
}

// DB returns the underlying Postgres connection used by the sink.
// This is exported to support testing.
func (s *Sink) DB() *sql.DB { return s.store }

// Refresher returns the sink's view refresher.
func (s *Sink) Refresher() *Refresher { return s.refresher }

// OnStart implements service.Service by checking the connection and
// starting the refresher.
func (s *Sink) OnStart(ctx context.Context) error {
	if err := s.store.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	return s.refresher.Start(ctx)
}

// OnStop implements service.Service by stopping the refresher and closing
// the database.
func (s *Sink) OnStop() {
	if s.refresher.IsRunning() {
		if err := s.refresher.Stop(); err != nil {
			s.logger.Error("failed to stop refresher", "err", err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("failed to close database", "err", err)
	}
}

// EnsureOutputs records the outputs of tx in the output ledger. Outputs
// already recorded are left untouched.
func (s *Sink) EnsureOutputs(ctx context.Context, tx *types.Tx) error {
	if len(tx.Outputs) == 0 {
		return nil
	}
	stmt := sq.
		Insert(TableChainOutput).
		Columns("id", "tx_id", "output_index").
		PlaceholderFormat(sq.Dollar).
		Suffix("ON CONFLICT (id) DO NOTHING")
	for i, out := range tx.Outputs {
		stmt = stmt.Values(out.ID, tx.ID.String(), i)
	}
	if _, err := stmt.RunWith(s.store).ExecContext(ctx); err != nil {
		return fmt.Errorf("recording outputs of %s: %w", tx.ID, err)
	}
	return nil
}

// Store implements indexer.Driver.
func (s *Sink) Store(ctx context.Context, tx *types.Tx, indices []int, decode indexer.DecodeFunc) ([]indexer.Row, error) {
	rows := indexer.Collect(tx, indices, false, decode)
	return rows, s.insert(ctx, rows)
}

// StoreWithScript implements indexer.Driver.
func (s *Sink) StoreWithScript(ctx context.Context, tx *types.Tx, indices []int, decode indexer.DecodeFunc) ([]indexer.Row, error) {
	rows := indexer.Collect(tx, indices, true, decode)
	return rows, s.insert(ctx, rows)
}

// insert writes rows with one statement per table. Rows whose primary key
// already exists are ignored.
func (s *Sink) insert(ctx context.Context, rows []indexer.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var (
		order []string
		stmts = make(map[string]sq.InsertBuilder)
	)
	for _, row := range rows {
		table := row.Record.Table()
		stmt, ok := stmts[table]
		if !ok {
			stmt = sq.
				Insert(table).
				Columns(append([]string{"id"}, row.Record.Columns()...)...).
				PlaceholderFormat(sq.Dollar).
				Suffix("ON CONFLICT (id) DO NOTHING")
			order = append(order, table)
		}
		stmts[table] = stmt.Values(append([]interface{}{row.OutputID}, row.Record.Values()...)...)
	}

	for _, table := range order {
		if _, err := stmts[table].RunWith(s.store).ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

// Notify implements indexer.Driver with a PostgreSQL notification.
func (s *Sink) Notify(ctx context.Context, topic indexer.Topic) error {
	if _, err := s.store.ExecContext(ctx, "SELECT pg_notify($1, '')", string(topic)); err != nil {
		return fmt.Errorf("notifying %s: %w", topic, err)
	}
	return nil
}

// Refresh implements indexer.Driver. The refresh happens asynchronously.
func (s *Sink) Refresh(ctx context.Context, view indexer.View) error {
	if !knownViews[view] {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.refresher.Request(view)
	return nil
}

// Watch implements indexer.Driver.
func (s *Sink) Watch(ctx context.Context, hash types.Hash28, kind stakewatch.Kind) error {
	if s.registry == nil {
		return ErrNoRegistry
	}
	return s.registry.Watch(ctx, hash, kind)
}
