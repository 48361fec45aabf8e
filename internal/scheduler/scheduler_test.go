package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/specialistvlad/svcgrid/internal/bulletin"
	"github.com/specialistvlad/svcgrid/internal/dag"
	"github.com/specialistvlad/svcgrid/internal/graph"
	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/specialistvlad/svcgrid/internal/scheduler"
	"github.com/specialistvlad/svcgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func service(id string) *node.Node {
	n := node.New(id, "ServiceA", &node.PropertyDescriptor{Name: "dep", ServiceType: "ServiceA"})
	n.SetResumeIntent(true)
	return n
}

func registryOf(t *testing.T, nodes ...*node.Node) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		require.NoError(t, g.Add(n))
	}
	return g
}

type panickingSink struct{}

func (panickingSink) Report(string, bulletin.Severity, string) { panic("sink is broken") }

func TestActivate_DependencyBeforeDependent(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.LoggedContext(t)

	n1, n2 := service("1"), service("2")
	n1.SetProperty("dep", "2")
	branches := dag.Resolve(ctx, registryOf(t, n1, n2))

	provider := &testutil.FakeProvider{Delay: 30 * time.Millisecond}
	scheduler.Activate(ctx, branches, provider, nil, scheduler.Options{MaxParallelism: 4})

	assert.Equal(t, node.Enabled, n1.State())
	assert.Equal(t, node.Enabled, n2.State())
	assert.Equal(t, []string{"2", "1"}, provider.Settled(), "the dependency settles before the dependent")
}

func TestActivate_FailureStaysLocal(t *testing.T) {
	t.Parallel()
	ctx, logs := testutil.LoggedContext(t)

	x, y, z := service("x"), service("y"), service("z")
	provider := &testutil.FakeProvider{Fail: map[string]error{"x": errors.New("boom")}}
	sink := &testutil.RecordingSink{}

	branches := []dag.Branch{{x, y}, {z}}
	scheduler.Activate(ctx, branches, provider, sink, scheduler.Options{MaxParallelism: 2})

	assert.Equal(t, node.Disabled, x.State())
	assert.Equal(t, node.Enabled, y.State(), "the rest of the branch still runs")
	assert.Equal(t, node.Enabled, z.State(), "other branches are unaffected")

	bulletins := sink.Bulletins()
	require.Len(t, bulletins, 1)
	assert.Equal(t, bulletin.CategoryControllerService, bulletins[0].Category)
	assert.Equal(t, bulletin.Error, bulletins[0].Severity)
	assert.Equal(t, "Could not start ServiceA[id=x] due to boom", bulletins[0].Message)
	assert.Contains(t, logs.String(), "Failed to enable service.")
}

func TestActivate_AsyncRevertIsNotAnError(t *testing.T) {
	t.Parallel()
	ctx, logs := testutil.LoggedContext(t)

	a, b := service("a"), service("b")
	provider := &testutil.FakeProvider{Delay: 10 * time.Millisecond, Revert: map[string]bool{"a": true}}

	scheduler.Activate(ctx, []dag.Branch{{a, b}}, provider, nil, scheduler.Options{})

	assert.Equal(t, node.Disabled, a.State())
	assert.Equal(t, node.Enabled, b.State())
	assert.Contains(t, logs.String(), "state=DISABLED")
}

func TestActivate_SkipsNodes(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.LoggedContext(t)

	paused := service("paused")
	paused.SetResumeIntent(false)
	running := service("running")
	running.SetState(node.Enabled)
	fresh := service("fresh")

	provider := &testutil.FakeProvider{}
	scheduler.Activate(ctx, []dag.Branch{{paused, running, fresh}}, provider, nil, scheduler.Options{})

	assert.Equal(t, []string{"fresh"}, provider.Calls())
	assert.Equal(t, node.Disabled, paused.State())
	assert.Equal(t, node.Enabled, running.State())
	assert.Equal(t, node.Enabled, fresh.State())
}

func TestActivate_SharedDependencyEnabledOnce(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.LoggedContext(t)

	n1, n2, n3 := service("1"), service("2"), service("3")
	n1.SetProperty("dep", "2")
	n3.SetProperty("dep", "2")
	branches := dag.Resolve(ctx, registryOf(t, n1, n2, n3))
	require.Len(t, branches, 3)

	provider := &testutil.FakeProvider{Delay: 20 * time.Millisecond}
	scheduler.Activate(ctx, branches, provider, nil, scheduler.Options{MaxParallelism: 3})

	for _, n := range []*node.Node{n1, n2, n3} {
		assert.Equal(t, node.Enabled, n.State(), n.ID())
	}
	settled := provider.Settled()
	assert.Len(t, settled, 3, "each node goes through Enabling exactly once")
	assert.Equal(t, "2", settled[0])
}

func TestActivate_WaitTimeout(t *testing.T) {
	t.Parallel()
	ctx, logs := testutil.LoggedContext(t)

	stuck, after := service("stuck"), service("after")
	provider := &testutil.FakeProvider{Hang: map[string]bool{"stuck": true}}
	sink := &testutil.RecordingSink{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Activate(ctx, []dag.Branch{{stuck, after}}, provider, sink, scheduler.Options{
			PollInterval: 5 * time.Millisecond,
			WaitTimeout:  30 * time.Millisecond,
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("activation did not give up on a hung service")
	}

	assert.Equal(t, node.Enabling, stuck.State())
	assert.Equal(t, node.Enabled, after.State())
	assert.Contains(t, logs.String(), scheduler.ErrWaitTimeout.Error())

	require.Len(t, sink.Bulletins(), 1)
	b := sink.Bulletins()[0]
	assert.Equal(t, bulletin.Error, b.Severity)
	assert.Equal(t, bulletin.CategoryControllerService, b.Category)
	assert.Contains(t, b.Message, "Could not start ServiceA[id=stuck]")
	assert.Contains(t, b.Message, scheduler.ErrWaitTimeout.Error())
}

func TestActivate_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before start", func(t *testing.T) {
		base, _ := testutil.LoggedContext(t)
		ctx, cancel := context.WithCancel(base)
		cancel()

		a, b := service("a"), service("b")
		provider := &testutil.FakeProvider{}
		sink := &testutil.RecordingSink{}
		scheduler.Activate(ctx, []dag.Branch{{a, b}}, provider, sink, scheduler.Options{})

		assert.Empty(t, provider.Calls())
		require.Len(t, sink.Bulletins(), 1)
		assert.Equal(t, bulletin.Warning, sink.Bulletins()[0].Severity)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		base, logs := testutil.LoggedContext(t)
		ctx, cancel := context.WithCancel(base)

		stuck, after := service("stuck"), service("after")
		provider := &testutil.FakeProvider{Hang: map[string]bool{"stuck": true}}

		time.AfterFunc(30*time.Millisecond, cancel)
		scheduler.Activate(ctx, []dag.Branch{{stuck, after}}, provider, nil, scheduler.Options{})

		assert.Equal(t, []string{"stuck"}, provider.Calls())
		assert.Equal(t, node.Disabled, after.State(), "the remainder of the branch is skipped")
		assert.Contains(t, logs.String(), "Activation cancelled")
	})
}

func TestActivate_PanicIsContained(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.LoggedContext(t)

	p, next := service("p"), service("next")
	provider := &testutil.FakeProvider{Panic: map[string]bool{"p": true}}
	sink := &testutil.RecordingSink{}

	scheduler.Activate(ctx, []dag.Branch{{p, next}}, provider, sink, scheduler.Options{})

	assert.Equal(t, node.Enabled, next.State())
	require.Len(t, sink.Messages(), 1)
	assert.Contains(t, sink.Messages()[0], "Could not start ServiceA[id=p] due to enable exploded")
}

func TestActivate_BrokenSinkIsIgnored(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.LoggedContext(t)

	bad, good := service("bad"), service("good")
	provider := &testutil.FakeProvider{Fail: map[string]error{"bad": errors.New("nope")}}

	scheduler.Activate(ctx, []dag.Branch{{bad, good}}, provider, panickingSink{}, scheduler.Options{})

	assert.Equal(t, node.Enabled, good.State())
}

func TestActivate_ParallelismBound(t *testing.T) {
	t.Parallel()
	ctx, logs := testutil.LoggedContext(t)

	var branches []dag.Branch
	var nodes []*node.Node
	for i := 0; i < 6; i++ {
		n := service(fmt.Sprintf("n%d", i))
		nodes = append(nodes, n)
		branches = append(branches, dag.Branch{n})
	}

	provider := &testutil.FakeProvider{Delay: 30 * time.Millisecond}
	scheduler.Activate(ctx, branches, provider, nil, scheduler.Options{MaxParallelism: 2})

	for _, n := range nodes {
		assert.Equal(t, node.Enabled, n.State())
	}
	assert.LessOrEqual(t, provider.MaxConcurrent(), 2)
	assert.GreaterOrEqual(t, provider.MaxConcurrent(), 1)
	assert.Contains(t, logs.String(), `msg="Activating services." branches=6 workers=2`)
}

func TestActivate_NoBranches(t *testing.T) {
	t.Parallel()
	ctx, logs := testutil.LoggedContext(t)

	scheduler.Activate(ctx, nil, &testutil.FakeProvider{}, nil, scheduler.Options{})
	assert.Contains(t, logs.String(), "No branches to activate.")
}
