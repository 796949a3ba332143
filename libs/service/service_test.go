package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

type testService struct {
	BaseService

	startErr error
	onStop   func()
}

func newTestService(name string) *testService {
	ts := &testService{}
	ts.BaseService = *NewBaseService(nil, name, ts)
	return ts
}

func (ts *testService) OnStart(context.Context) error { return ts.startErr }

func (ts *testService) OnStop() {
	if ts.onStop != nil {
		ts.onStop()
	}
}

func TestBaseServiceWait(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService("TestService")
	require.NoError(t, ts.Start(ctx))

	waitFinished := make(chan struct{})
	go func() {
		ts.Wait()
		close(waitFinished)
	}()

	go ts.Stop() //nolint:errcheck // ignore for tests

	select {
	case <-waitFinished:
		// all good
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected Wait() to finish within 100 ms.")
	}
}

func TestBaseServiceLifecycleErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService("TestService")
	require.ErrorIs(t, ts.Stop(), ErrNotStarted)

	require.NoError(t, ts.Start(ctx))
	require.True(t, ts.IsRunning())
	require.ErrorIs(t, ts.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, ts.Stop())
	require.False(t, ts.IsRunning())
	require.ErrorIs(t, ts.Stop(), ErrAlreadyStopped)
}

func TestBaseServiceStartFailureIsRetryable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService("TestService")
	ts.startErr = errors.New("boom")
	require.Error(t, ts.Start(ctx))
	require.False(t, ts.IsRunning())

	ts.startErr = nil
	require.NoError(t, ts.Start(ctx))
	require.NoError(t, ts.Stop())
}

func TestBaseServiceStopsOnContextCancel(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())
	ts := newTestService("TestService")
	require.NoError(t, ts.Start(ctx))

	cancel()

	select {
	case <-ts.Quit():
	case <-time.After(time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
}

func TestGroupStopsInReverseOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []string
	a, b := newTestService("a"), newTestService("b")
	a.onStop = func() { order = append(order, "a") }
	b.onStop = func() { order = append(order, "b") }

	g := NewGroup(nil, "group", a, b)
	require.NoError(t, g.Start(ctx))
	require.True(t, a.IsRunning())
	require.True(t, b.IsRunning())

	require.NoError(t, g.Stop())
	require.Equal(t, []string{"b", "a"}, order)
}

func TestGroupUnwindsOnStartFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := newTestService("a"), newTestService("b")
	b.startErr = errors.New("boom")

	g := NewGroup(nil, "group", a, b)
	require.Error(t, g.Start(ctx))
	require.False(t, a.IsRunning())
}
