package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/ctxlog"
	"github.com/specialistvlad/svcgrid/internal/dag"
	"github.com/specialistvlad/svcgrid/internal/executor"
	"github.com/specialistvlad/svcgrid/internal/node"
)

const (
	// DefaultMaxParallelism caps the number of branches enabled at once.
	DefaultMaxParallelism = 10
	// DefaultPollInterval is how often a waiting branch re-reads node state
	// in addition to being woken by state changes.
	DefaultPollInterval = 100 * time.Millisecond
)

// ErrWaitTimeout is logged when a node stays in Enabling longer than the
// configured wait timeout.
var ErrWaitTimeout = errors.New("timed out waiting for service to finish enabling")

// Provider performs the actual enabling of a node. Enable may fail
// synchronously; otherwise it is expected to move the node out of Enabling
// asynchronously. Enabling a node that is already Enabling or Enabled must be
// a no-op.
type Provider interface {
	Enable(ctx context.Context, n *node.Node) error
}

// Options tunes an activation pass.
type Options struct {
	// MaxParallelism bounds the number of concurrently running branches.
	// Zero means DefaultMaxParallelism.
	MaxParallelism int
	// PollInterval is a fallback re-check period while waiting for a node to
	// leave Enabling. Zero means DefaultPollInterval; negative disables
	// polling and relies on state-change notifications alone.
	PollInterval time.Duration
	// WaitTimeout bounds the wait for a single node. Zero waits forever.
	WaitTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxParallelism <= 0 {
		o.MaxParallelism = DefaultMaxParallelism
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// activation holds the collaborators of one pass.
type activation struct {
	provider Provider
	sink     bulletin.Sink
	opts     Options
}

// Activate enables every branch concurrently and returns once all of them
// have been processed. It never fails: problems are logged and reported to
// sink.
func Activate(ctx context.Context, branches []dag.Branch, provider Provider, sink bulletin.Sink, opts Options) {
	logger := ctxlog.FromContext(ctx)
	if len(branches) == 0 {
		logger.Debug("No branches to activate.")
		return
	}
	if sink == nil {
		sink = bulletin.Discard
	}

	a := &activation{provider: provider, sink: sink, opts: opts.withDefaults()}
	workers := min(a.opts.MaxParallelism, len(branches))

	start := time.Now()
	pool := executor.New(ctx, workers)
	logger.Info("Activating services.", "branches", len(branches), "workers", pool.Workers())

	for _, branch := range branches {
		if err := pool.Submit(func(taskCtx context.Context) {
			a.enableBranch(taskCtx, branch)
		}); err != nil {
			logger.Error("Failed to submit branch.", "branch", branch.String(), "error", err)
		}
	}
	pool.Shutdown()

	logger.Info("Activation pass finished.", "branches", len(branches), "duration", time.Since(start))
}

// enableBranch handles the nodes of one branch strictly in order.
func (a *activation) enableBranch(ctx context.Context, branch dag.Branch) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Enabling service branch.", "branch", branch.String())

	for i, n := range branch {
		if err := ctx.Err(); err != nil {
			logger.Error("Activation cancelled, skipping remainder of branch.",
				"branch", branch.String(), "service", n.String(), "skipped", len(branch)-i, "error", err)
			a.report(bulletin.Warning, fmt.Sprintf("Activation of %s cancelled before enabling %s", branch, n))
			return
		}
		a.enableNode(ctx, n)
	}
}

// enableNode is the per-node failure boundary: nothing that happens here
// escapes to the rest of the branch.
func (a *activation) enableNode(ctx context.Context, n *node.Node) {
	ctx, logger := ctxlog.With(ctx, "service", n.String())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Failed to enable service.", "error", fmt.Sprintf("%v", r))
			a.report(bulletin.Error, fmt.Sprintf("Could not start %s due to %v", n, r))
		}
	}()

	if !n.ResumeIntent() {
		logger.Debug("Service is not configured to be enabled, skipping.")
		return
	}

	if n.State() == node.Disabled {
		logger.Info("Enabling service.")
		if err := a.provider.Enable(ctx, n); err != nil {
			logger.Error("Failed to enable service.", "error", err)
			a.report(bulletin.Error, fmt.Sprintf("Could not start %s due to %v", n, err))
		}
	}

	state, err := a.awaitSettled(ctx, n)
	if err != nil {
		logger.Error("Failed while waiting for service to finish enabling.", "state", state.String(), "error", err)
		if errors.Is(err, ErrWaitTimeout) {
			a.report(bulletin.Error, fmt.Sprintf("Could not start %s due to %v", n, err))
		}
		return
	}
	logger.Info("Service state settled.", "state", state.String())
}

// awaitSettled blocks until n leaves Enabling. It wakes on every state
// change and, as a fallback, every poll interval.
func (a *activation) awaitSettled(ctx context.Context, n *node.Node) (node.State, error) {
	waitCtx := ctx
	if a.opts.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.opts.WaitTimeout)
		defer cancel()
	}

	var tick <-chan time.Time
	if a.opts.PollInterval > 0 {
		ticker := time.NewTicker(a.opts.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		changed := n.Changed()
		state := n.State()
		if state != node.Enabling {
			return state, nil
		}

		select {
		case <-changed:
		case <-tick:
		case <-waitCtx.Done():
			if ctx.Err() == nil {
				return n.State(), fmt.Errorf("%w: %s still %s after %s", ErrWaitTimeout, n, n.State(), a.opts.WaitTimeout)
			}
			return n.State(), ctx.Err()
		}
	}
}

// report delivers a bulletin without letting a misbehaving sink affect
// activation.
func (a *activation) report(severity bulletin.Severity, message string) {
	defer func() {
		_ = recover()
	}()
	a.sink.Report(bulletin.CategoryControllerService, severity, message)
}
