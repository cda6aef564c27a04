package declare

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGraph(t *testing.T) {
	set, err := New(DefaultOptions("sats-dev-"))
	require.NoError(t, err)

	g, err := set.Graph()
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 5)
	assert.True(t, g.DependsOn(BucketName, EncryptionKeyName))
	assert.True(t, g.DependsOn(BucketName, LoggingBucketName))
	assert.True(t, g.DependsOn(InitName, BucketName))
	assert.True(t, g.DependsOn(InitName, RoleName))
	assert.False(t, g.DependsOn(BucketName, InitName))

	pos := map[string]int{}
	for i, name := range g.TopoOrder {
		pos[name] = i
	}
	require.Len(t, pos, 5)
	for _, e := range g.Edges {
		assert.Less(t, pos[e.To], pos[e.From], "%s must come before %s", e.To, e.From)
	}
	assert.Equal(t, InitName, g.TopoOrder[len(g.TopoOrder)-1])
}

func TestSetGraph_Deterministic(t *testing.T) {
	a, err := New(DefaultOptions("sats-dev-"))
	require.NoError(t, err)
	b, err := New(DefaultOptions("sats-dev-"))
	require.NoError(t, err)

	ga, err := a.Graph()
	require.NoError(t, err)
	gb, err := b.Graph()
	require.NoError(t, err)
	assert.Equal(t, ga, gb)
	assert.Equal(t, ga.DOT(), gb.DOT())
}

func TestBuildGraph_Errors(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		_, err := buildGraph([]graphNode{
			{GraphNode{"a", "Bucket"}, []Ref{"nope"}},
		})
		var target DependencyNotFoundError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "a", target.From)
		assert.Equal(t, Ref("nope"), target.To)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := buildGraph([]graphNode{
			{GraphNode{"a", "Bucket"}, nil},
			{GraphNode{"a", "Role"}, nil},
		})
		assert.Equal(t, DuplicateNodeError{Name: "a"}, err)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := buildGraph([]graphNode{
			{GraphNode{"a", "Bucket"}, []Ref{"b"}},
			{GraphNode{"b", "Role"}, []Ref{"a"}},
		})
		var target CycleDetectedError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, []string{"a", "b", "a"}, target.Path)
		assert.Equal(t, "declaration dependency cycle detected: a -> b -> a", err.Error())
	})
}

func TestGraphExport(t *testing.T) {
	set, err := New(DefaultOptions("sats-dev-"))
	require.NoError(t, err)
	g, err := set.Graph()
	require.NoError(t, err)

	dot := g.DOT()
	assert.True(t, strings.HasPrefix(dot, "digraph pipeline {\n"))
	assert.Contains(t, dot, `[label="CreateWIPFolder\n(InitializationAction)"]`)
	assert.Equal(t, len(g.Edges), strings.Count(dot, " -> "))

	mmd := g.Mermaid()
	assert.True(t, strings.HasPrefix(mmd, "graph TD\n"))
	assert.Equal(t, len(g.Edges), strings.Count(mmd, " --> "))
}
