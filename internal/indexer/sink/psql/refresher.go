package psql

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/protocolindex/projectsink/internal/indexer"
	"github.com/protocolindex/projectsink/libs/log"
	"github.com/protocolindex/projectsink/libs/service"
)

// flushTimeout bounds the final refresh run when the refresher stops.
const flushTimeout = 30 * time.Second

// Refresher refreshes materialized views in the background. Requests for a
// view that is already pending are coalesced.
type Refresher struct {
	service.BaseService

	db       *sql.DB
	logger   log.Logger
	interval time.Duration

	mtx     sync.Mutex
	pending map[indexer.View]struct{}

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher returns a refresher that waits interval after the first of a
// burst of requests before refreshing.
func NewRefresher(db *sql.DB, interval time.Duration, logger log.Logger) *Refresher {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	r := &Refresher{
		db:       db,
		logger:   logger,
		interval: interval,
		pending:  make(map[indexer.View]struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	r.BaseService = *service.NewBaseService(logger, "Refresher", r)
	return r
}

// OnStart implements service.Service.
func (r *Refresher) OnStart(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
	return nil
}

// OnStop implements service.Service. Requests still waiting for the
// coalescing window are refreshed before it returns.
func (r *Refresher) OnStop() {
	r.cancel()
	<-r.done

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := r.Flush(ctx); err != nil {
		r.logger.Error("views left stale on stop", "views", r.Pending(), "err", err)
	}
}

// Request schedules a refresh of view.
func (r *Refresher) Request(view indexer.View) {
	r.mtx.Lock()
	r.pending[view] = struct{}{}
	r.mtx.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending returns the views waiting for a refresh.
func (r *Refresher) Pending() []indexer.View {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	out := make([]indexer.View, 0, len(r.pending))
	for view := range r.pending {
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Flush refreshes every pending view now. Views that fail to refresh stay
// pending.
func (r *Refresher) Flush(ctx context.Context) error {
	views := r.Pending()

	r.mtx.Lock()
	for _, view := range views {
		delete(r.pending, view)
	}
	r.mtx.Unlock()

	var firstErr error
	for _, view := range views {
		start := time.Now()
		stmt := "REFRESH MATERIALIZED VIEW CONCURRENTLY " + pq.QuoteIdentifier(string(view))
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			r.logger.Error("failed to refresh view", "view", view, "err", err)
			r.mtx.Lock()
			r.pending[view] = struct{}{}
			r.mtx.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		r.logger.Debug("refreshed view", "view", view, "took", time.Since(start))
	}
	return firstErr
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		}

		if r.interval > 0 {
			timer := time.NewTimer(r.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		// errors are logged by Flush and the views retried on the next wake
		_ = r.Flush(ctx)
	}
}
