package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/types"
)

// Processor classifies a transaction and dispatches each resulting event to
// its handler.
type Processor struct {
	classifier *Classifier
	handlers   *Registry
	logger     log.Logger
	metrics    *Metrics
}

// ProcessorArgs are arguments for constructing a Processor.
type ProcessorArgs struct {
	Classifier *Classifier
	Handlers   *Registry
	Logger     log.Logger
	Metrics    *Metrics
}

// NewProcessor constructs a Processor.
func NewProcessor(args ProcessorArgs) *Processor {
	p := &Processor{
		classifier: args.Classifier,
		handlers:   args.Handlers,
		logger:     args.Logger,
		metrics:    args.Metrics,
	}
	if p.handlers == nil {
		p.handlers = NewRegistry()
	}
	if p.logger == nil {
		p.logger = log.NewNopLogger()
	}
	if p.metrics == nil {
		p.metrics = NopMetrics()
	}
	return p
}

// Process handles every event of tx in classifier order. It stops at the
// first handler error. Events without a handler are acknowledged.
func (p *Processor) Process(ctx context.Context, tx *types.Tx) error {
	events := p.classifier.Classify(tx)
	p.metrics.TransactionsProcessed.Add(1)

	for _, ev := range events {
		p.metrics.EventsClassified.With("event", string(ev.Type)).Add(1)

		h, ok := p.handlers.Lookup(ev.Type)
		if !ok {
			p.logger.Info("acknowledged event without handler", "tx", tx.ID, "event", ev.Type)
			continue
		}

		start := time.Now()
		if err := h.Handle(ctx, tx, ev); err != nil {
			return fmt.Errorf("handling %s in tx %s: %w", ev, tx.ID, err)
		}
		p.metrics.HandlerSeconds.With("event", string(ev.Type)).Observe(time.Since(start).Seconds())
		p.logger.Debug("handled event", "tx", tx.ID, "event", ev)
	}
	return nil
}
