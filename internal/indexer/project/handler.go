// Package project decodes project, project detail and project script
// outputs into relational rows and handles their event batches.
package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/types"
)

var (
	// ErrNoDatum is reported for outputs without an inline datum.
	ErrNoDatum = errors.New("output carries no datum")
	// ErrNoScriptRef is reported for script outputs without a reference
	// script.
	ErrNoScriptRef = errors.New("output carries no reference script")
)

// Decoder turns one output into a row or reports why it cannot.
type Decoder func(indexer.Output) (indexer.Row, error)

// rowKey builds the batch-local deduplication key of a record.
func rowKey(kind string, projectID fmt.Stringer) string {
	return kind + ":" + projectID.String()
}

// Handlers handles the project, detail and script event batches.
type Handlers struct {
	driver  indexer.Driver
	network types.Network
	logger  log.Logger
	metrics *indexer.Metrics
}

// HandlersArgs are arguments for constructing Handlers.
type HandlersArgs struct {
	Driver  indexer.Driver
	Network types.Network
	Logger  log.Logger
	Metrics *indexer.Metrics
}

// NewHandlers constructs Handlers.
func NewHandlers(args HandlersArgs) *Handlers {
	h := &Handlers{
		driver:  args.Driver,
		network: args.Network,
		logger:  args.Logger,
		metrics: args.Metrics,
	}
	if h.network == "" {
		h.network = types.Mainnet
	}
	if h.logger == nil {
		h.logger = log.NewNopLogger()
	}
	if h.metrics == nil {
		h.metrics = indexer.NopMetrics()
	}
	return h
}

// Register installs the three handlers in r.
func (h *Handlers) Register(r *indexer.Registry) {
	r.Register(indexer.EventProject, indexer.HandlerFunc(h.HandleProject))
	r.Register(indexer.EventProjectDetail, indexer.HandlerFunc(h.HandleDetail))
	r.Register(indexer.EventProjectScript, indexer.HandlerFunc(h.HandleScript))
}

// batch describes how one record kind is stored and what it triggers.
type batch struct {
	kind       string
	withScript bool
	decode     Decoder
	effects    func([]indexer.Row) []indexer.Effect
}

// handle stores the decodable outputs of ev and then runs the effects
// derived from the stored rows. A batch without a single decodable output
// is a no-op.
func (h *Handlers) handle(ctx context.Context, tx *types.Tx, ev indexer.Event, b batch) error {
	logger := h.logger.With("kind", b.kind, "tx", tx.ID)

	decode := func(out indexer.Output) (indexer.Row, bool) {
		row, err := b.decode(out)
		if err != nil {
			logger.Error("skipping output", "index", out.Index, "output_id", out.ID, "err", err)
			h.metrics.OutputsSkipped.With("kind", b.kind).Add(1)
			return indexer.Row{}, false
		}
		return row, true
	}

	store := h.driver.Store
	if b.withScript {
		store = h.driver.StoreWithScript
	}

	rows, err := store(ctx, tx, ev.Indices, decode)
	if err != nil {
		return fmt.Errorf("storing %s rows: %w", b.kind, err)
	}
	if len(rows) == 0 {
		logger.Info("no decodable outputs in batch", "indices", len(ev.Indices))
		h.metrics.EmptyBatches.With("kind", b.kind).Add(1)
		return nil
	}
	h.metrics.RecordsStored.With("kind", b.kind).Add(float64(len(rows)))
	logger.Debug("stored rows", "count", len(rows))

	return indexer.RunEffects(ctx, h.driver, b.effects(rows), h.metrics)
}
