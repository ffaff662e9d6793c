package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches name to runnable for logs and error messages.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Runner supervises a group of Runnables sharing one lifetime.
// The first one to return cancels the rest.
type Runner struct {
	Context context.Context
	Runners []Runnable

	cancel context.CancelFunc
	errCh  chan error
	exitCh chan struct{}
}

// NewRunner is NewRunnerWith(context.Background()).
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith derives the group context from parent.
func NewRunnerWith(parent context.Context) *Runner {
	r := &Runner{
		errCh:  make(chan error, 1),
		exitCh: make(chan struct{}),
	}
	r.Context, r.cancel = context.WithCancel(parent)
	return r
}

// HandleSignals stops the group on SIGINT or SIGTERM.
// A second signal makes Wait return ErrForcedExit without waiting.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		glog.Infof("%v received, stopping", sig)
		r.Stop()
		sig = <-sigCh
		glog.Errorf("%v received while stopping, exit now", sig)
		close(r.exitCh)
	}()
	return r
}

// Stop cancels the group context.
func (r *Runner) Stop() {
	r.cancel()
}

// Go starts runners under the group context.
func (r *Runner) Go(runners ...Runnable) *Runner {
	return r.GoWith(r.Context, runners...)
}

// GoWith starts runners under ctx, which should derive from r.Context
// for Stop to reach them.
func (r *Runner) GoWith(ctx context.Context, runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := r.nameOf(runner)
		r.Runners = append(r.Runners, runner)
		go r.supervise(ctx, runner, name)
	}
	return r
}

func (r *Runner) nameOf(runner Runnable) string {
	if named, ok := runner.(Named); ok {
		return named.Name()
	}
	return strconv.Itoa(len(r.Runners))
}

func (r *Runner) supervise(ctx context.Context, runner Runnable, name string) {
	glog.V(4).Infof("%s: running", name)
	err := runner.Run(ctx)
	glog.V(4).Infof("%s: returned %v", name, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%s: %w", name, err)
	}
	r.errCh <- err
}

// Wait blocks until every started runner returns.
// Cancellation is not reported, other failures are aggregated.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for n := len(r.Runners); n > 0; n-- {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case err := <-r.errCh:
			r.cancel()
			if !errors.Is(err, context.Canceled) {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCancel adapts a blocking fn without a context.
// onCancel must make fn return; the result is then context.Canceled.
func RunWithContextCancel(ctx context.Context, onCancel func(), fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}
	if onCancel != nil {
		onCancel()
	}
	<-done
	return context.Canceled
}

// RunWithContext runs fn until it returns, reporting context.Canceled
// if ctx ends first.
func RunWithContext(ctx context.Context, fn func() error) error {
	return RunWithContextCancel(ctx, nil, fn)
}

// RunWithContextCloser closes closer exactly once, either to interrupt fn
// on cancellation or after fn returns on its own.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	var closed bool
	err := RunWithContextCancel(ctx, func() {
		closer.Close()
		closed = true
	}, fn)
	if !closed {
		closer.Close()
	}
	return err
}
