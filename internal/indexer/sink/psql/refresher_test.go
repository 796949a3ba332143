package psql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protocolindex/projectsink/internal/indexer"
	pslog "github.com/protocolindex/projectsink/libs/log"
)

// recorder is a database/sql driver that records executed statements
// without a server.
type recorder struct {
	mtx   sync.Mutex
	stmts []string
}

func (r *recorder) Open(string) (driver.Conn, error)             { return &recorderConn{r: r}, nil }
func (r *recorder) Connect(context.Context) (driver.Conn, error) { return &recorderConn{r: r}, nil }
func (r *recorder) Driver() driver.Driver                        { return r }

func (r *recorder) statements() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]string(nil), r.stmts...)
}

type recorderConn struct{ r *recorder }

func (*recorderConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare not supported") }
func (*recorderConn) Close() error                        { return nil }
func (*recorderConn) Begin() (driver.Tx, error)           { return nil, errors.New("transactions not supported") }

func (c *recorderConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.r.mtx.Lock()
	c.r.stmts = append(c.r.stmts, query)
	c.r.mtx.Unlock()
	return driver.RowsAffected(0), nil
}

const refreshSummary = `REFRESH MATERIALIZED VIEW CONCURRENTLY "project_summary"`

func TestStopRefreshesPendingViews(t *testing.T) {
	rec := &recorder{}
	sink := NewSinkFromDB(sql.OpenDB(rec), SinkArgs{
		RefreshInterval: time.Hour,
		Logger:          pslog.TestingLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sink.Start(ctx))
	require.NoError(t, sink.Refresh(ctx, indexer.ViewProjectSummary))
	require.NoError(t, sink.Refresh(ctx, indexer.ViewProjectSummary))
	assert.Empty(t, rec.statements())

	require.NoError(t, sink.Stop())

	assert.Equal(t, []string{refreshSummary}, rec.statements())
	assert.Empty(t, sink.Refresher().Pending())
}

func TestRefresherStoppedByContextFlushes(t *testing.T) {
	rec := &recorder{}
	r := NewRefresher(sql.OpenDB(rec), time.Hour, pslog.TestingLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	r.Request(indexer.ViewProjectSummary)

	cancel()
	r.Wait()

	assert.Equal(t, []string{refreshSummary}, rec.statements())
}
