// Package memory implements an in-process indexer sink. It keeps every
// stored row and every signal in memory and is used for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/internal/stakewatch"
	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/libs/service"
	"github.com/protocolindex/projectsink/types"
)

var _ indexer.Sink = (*Sink)(nil)

// Watch is a recorded stake-watch registration.
type Watch struct {
	Hash types.Hash28
	Kind stakewatch.Kind
}

// Sink records rows and signals in memory. Rows are unique per output id
// within a table; storing an existing id is a no-op.
type Sink struct {
	service.BaseService

	logger   log.Logger
	registry *stakewatch.Registry

	mtx           sync.Mutex
	tables        map[string][]indexer.Row
	ids           map[string]map[int64]struct{}
	notifications []indexer.Topic
	refreshes     []indexer.View
	watches       []Watch
	storeErr      error
}

// NewSink returns an empty sink. When registry is non-nil, Watch also
// registers the credential there.
func NewSink(logger log.Logger, registry *stakewatch.Registry) *Sink {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Sink{
		logger:   logger,
		registry: registry,
		tables:   make(map[string][]indexer.Row),
		ids:      make(map[string]map[int64]struct{}),
	}
	s.BaseService = *service.NewBaseService(logger, "MemorySink", s)
	return s
}

// OnStart implements service.Service.
func (s *Sink) OnStart(context.Context) error { return nil }

// OnStop implements service.Service.
func (s *Sink) OnStop() {}

// FailStores makes every subsequent Store call return err. A nil err
// restores normal operation.
func (s *Sink) FailStores(err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.storeErr = err
}

// Store implements indexer.Driver.
func (s *Sink) Store(ctx context.Context, tx *types.Tx, indices []int, decode indexer.DecodeFunc) ([]indexer.Row, error) {
	return s.store(ctx, indexer.Collect(tx, indices, false, decode))
}

// StoreWithScript implements indexer.Driver.
func (s *Sink) StoreWithScript(ctx context.Context, tx *types.Tx, indices []int, decode indexer.DecodeFunc) ([]indexer.Row, error) {
	return s.store(ctx, indexer.Collect(tx, indices, true, decode))
}

func (s *Sink) store(ctx context.Context, rows []indexer.Row) ([]indexer.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}

	for _, row := range rows {
		table := row.Record.Table()
		ids, ok := s.ids[table]
		if !ok {
			ids = make(map[int64]struct{})
			s.ids[table] = ids
		}
		if _, ok := ids[row.OutputID]; ok {
			continue
		}
		ids[row.OutputID] = struct{}{}
		s.tables[table] = append(s.tables[table], row)
	}
	s.logger.Debug("stored rows", "count", len(rows))
	return rows, nil
}

// Notify implements indexer.Driver.
func (s *Sink) Notify(ctx context.Context, topic indexer.Topic) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.notifications = append(s.notifications, topic)
	return nil
}

// Refresh implements indexer.Driver.
func (s *Sink) Refresh(ctx context.Context, view indexer.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.refreshes = append(s.refreshes, view)
	return nil
}

// Watch implements indexer.Driver.
func (s *Sink) Watch(ctx context.Context, hash types.Hash28, kind stakewatch.Kind) error {
	if s.registry != nil {
		if err := s.registry.Watch(ctx, hash, kind); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.watches = append(s.watches, Watch{Hash: hash, Kind: kind})
	return nil
}

// Rows returns the rows stored in table in insertion order.
func (s *Sink) Rows(table string) []indexer.Row {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]indexer.Row(nil), s.tables[table]...)
}

// Notifications returns the topics signalled so far.
func (s *Sink) Notifications() []indexer.Topic {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]indexer.Topic(nil), s.notifications...)
}

// Refreshes returns the views refreshed so far.
func (s *Sink) Refreshes() []indexer.View {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]indexer.View(nil), s.refreshes...)
}

// Watches returns the stake-watch registrations so far.
func (s *Sink) Watches() []Watch {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]Watch(nil), s.watches...)
}
