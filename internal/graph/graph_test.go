package graph

import (
	"sync"
	"testing"

	"github.com/specialistvlad/svcgrid/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceA(id string) *node.Node {
	return node.New(id, "ServiceA",
		&node.PropertyDescriptor{Name: "other_service", ServiceType: "ServiceB"},
		&node.PropertyDescriptor{Name: "other_service_2", ServiceType: "ServiceA"},
		&node.PropertyDescriptor{Name: "label"},
	)
}

func TestGraph_AddAndLookup(t *testing.T) {
	g := New()
	n1 := newServiceA("1")
	n2 := node.New("2", "ServiceB")

	require.NoError(t, g.Add(n1))
	require.NoError(t, g.Add(n2))

	assert.Equal(t, 2, g.Len())
	assert.Same(t, n1, g.Lookup("1"))
	assert.Nil(t, g.Lookup("missing"), "unknown ids yield nil rather than failing")
	assert.Equal(t, []*node.Node{n1, n2}, g.Nodes(), "iteration follows insertion order")

	t.Run("duplicate id", func(t *testing.T) {
		err := g.Add(node.New("1", "ServiceB"))
		assert.ErrorIs(t, err, ErrDuplicateService)
	})

	t.Run("empty id and nil", func(t *testing.T) {
		assert.Error(t, g.Add(node.New("", "ServiceB")))
		assert.Error(t, g.Add(nil))
	})

	t.Run("remove", func(t *testing.T) {
		g.Remove("1")
		g.Remove("missing")
		assert.Equal(t, []*node.Node{n2}, g.Nodes())
	})
}

func TestReferenceExtraction(t *testing.T) {
	n := newServiceA("1")
	n.SetProperty("label", "2")

	t.Run("unset reference", func(t *testing.T) {
		id, isRef := ReferenceOf(n, "other_service")
		assert.True(t, isRef)
		assert.Empty(t, id)
		assert.Empty(t, References(n))
	})

	t.Run("plain property holding an id is not a reference", func(t *testing.T) {
		_, isRef := ReferenceOf(n, "label")
		assert.False(t, isRef)
	})

	t.Run("set reference", func(t *testing.T) {
		n.SetProperty("other_service", "2")
		n.SetProperty("other_service_2", "1")

		id, isRef := ReferenceOf(n, "other_service")
		assert.True(t, isRef)
		assert.Equal(t, "2", id)
		assert.Equal(t, []Reference{
			{Property: "other_service", TargetID: "2"},
			{Property: "other_service_2", TargetID: "1"},
		}, References(n))
	})
}

func TestGraph_DependenciesAreLive(t *testing.T) {
	g := New()
	n1 := newServiceA("1")
	n2 := node.New("2", "ServiceB")
	n3 := node.New("3", "ServiceB")
	require.NoError(t, g.Add(n1))
	require.NoError(t, g.Add(n2))
	require.NoError(t, g.Add(n3))

	n1.SetProperty("other_service", "2")
	assert.Equal(t, []*node.Node{n2}, g.Dependencies(n1))
	assert.Equal(t, []*node.Node{n1}, g.Dependents(n2))

	n1.SetProperty("other_service", "3")
	assert.Equal(t, []*node.Node{n3}, g.Dependencies(n1), "edges reflect the current property value")
	assert.Empty(t, g.Dependents(n2))

	n1.SetProperty("other_service", "dangling")
	assert.Empty(t, g.Dependencies(n1), "dangling references are skipped")
}

func TestGraph_ConcurrentAccess(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = g.Add(node.New(string(rune('a'+i%26))+string(rune('0'+i/26)), "ServiceB"))
		}(i)
		go func() {
			defer wg.Done()
			_ = g.Nodes()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, g.Len())
}
