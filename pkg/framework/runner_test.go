package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerStopsAllOnFirstExit(t *testing.T) {
	errBoom := errors.New("boom")
	r := NewRunner().Go(
		NamedRun("blocker", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failer", RunFunc(func(context.Context) error {
			return errBoom
		})),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Wait() }()
	select {
	case err := <-errCh:
		require.Error(t, err)
		require.True(t, errors.Is(err, errBoom))
		require.Contains(t, err.Error(), "failer")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("runner wait timeout")
	}
}

func TestRunnerCleanStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	e1, e2 := errors.New("e1"), errors.New("e2")
	err := errs.Add(e1, nil, e2).Aggregate()
	require.Error(t, err)
	require.Equal(t, "Multiple errors:\ne1\ne2", err.Error())
	require.True(t, errors.Is(err, e2))
}

func TestRunWithContextCloser(t *testing.T) {
	c := &testCloser{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithContextCloser(ctx, c, func() error {
			<-c.ch
			return errors.New("closed")
		})
	}()
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("cancel did not close")
	}
	require.Equal(t, 1, c.closes)

	c = &testCloser{ch: make(chan struct{})}
	errBoom := errors.New("boom")
	err := RunWithContextCloser(context.Background(), c, func() error {
		return errBoom
	})
	require.Equal(t, errBoom, err)
	require.Equal(t, 1, c.closes)
}

type testCloser struct {
	ch     chan struct{}
	closes int
}

func (c *testCloser) Close() error {
	c.closes++
	close(c.ch)
	return nil
}
