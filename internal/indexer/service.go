package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/libs/service"
	"github.com/protocolindex/projectsink/types"
)

// Source delivers confirmed transactions in chain order. Next returns io.EOF
// once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (*types.Tx, error)
}

// Service pulls transactions from a Source and feeds them to a Processor
// until the source is exhausted, an error occurs or the service is stopped.
type Service struct {
	service.BaseService

	source    Source
	outputs   OutputStore
	processor *Processor
	logger    log.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mtx       sync.Mutex
	err       error
	processed int64
}

// ServiceArgs are arguments for constructing a new indexer service.
type ServiceArgs struct {
	Source Source

	// Outputs, when set, records every transaction's outputs before the
	// transaction is processed.
	Outputs OutputStore

	Processor *Processor
	Logger    log.Logger
}

// NewService constructs a new indexer service from the given arguments.
func NewService(args ServiceArgs) *Service {
	s := &Service{
		source:    args.Source,
		outputs:   args.Outputs,
		processor: args.Processor,
		logger:    args.Logger,
		done:      make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = log.NewNopLogger()
	}
	s.BaseService = *service.NewBaseService(s.logger, "IndexerService", s)
	return s
}

// OnStart implements service.Service by starting the processing loop.
func (s *Service) OnStart(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

// OnStop implements service.Service by canceling the loop and waiting for
// the in-flight transaction to finish.
func (s *Service) OnStop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// Done returns a channel closed once the processing loop has exited.
func (s *Service) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the processing loop. It is nil while the
// loop runs, when the source was exhausted or when the service was stopped.
func (s *Service) Err() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.err
}

// Processed returns the number of transactions processed so far.
func (s *Service) Processed() int64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.processed
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	for {
		tx, err := s.source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.logger.Info("transaction source exhausted", "processed", s.Processed())
			return
		case ctx.Err() != nil:
			return
		case err != nil:
			s.fail(fmt.Errorf("reading transaction: %w", err))
			return
		}

		if err := tx.ValidateBasic(); err != nil {
			s.fail(fmt.Errorf("invalid transaction %s: %w", tx.ID, err))
			return
		}

		if s.outputs != nil {
			if err := s.outputs.EnsureOutputs(ctx, tx); err != nil {
				s.fail(err)
				return
			}
		}

		if err := s.processor.Process(ctx, tx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fail(err)
			return
		}

		s.mtx.Lock()
		s.processed++
		s.mtx.Unlock()
	}
}

func (s *Service) fail(err error) {
	s.logger.Error("indexing stopped", "err", err)
	s.mtx.Lock()
	s.err = err
	s.mtx.Unlock()
}
