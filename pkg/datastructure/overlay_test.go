package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildOverlayTestGraph(t *testing.T) *Graph {
	g, err := BuildGraph(
		[]Node{NewNode(1, 0, 0), NewNode(2, 0, 1), NewNode(3, 1, 1)},
		[]Edge{{From: 1, To: 2, Weight: 1}, {From: 2, To: 3, Weight: 1}},
		false,
	)
	require.NoError(t, err)
	return g
}

func TestOverlayZeroTemporaryDataReturnsBase(t *testing.T) {
	g := buildOverlayTestGraph(t)

	view := NewOverlay(g)

	// same identity, so result cache entries stay valid
	assert.Equal(t, g.IdentityToken(), view.IdentityToken())
	if base, ok := view.(*Graph); assert.True(t, ok) {
		assert.Same(t, g, base)
	}
}

func TestOverlayCarriesFreshToken(t *testing.T) {
	g := buildOverlayTestGraph(t)

	point := TemporaryPoint{
		Node:  NewNode(-1, 0, 0.5),
		Edges: []Edge{{From: -1, To: 1, Weight: 10}, {From: 1, To: -1, Weight: 10}},
	}

	view1 := NewOverlay(g, point)
	view2 := NewOverlay(g, point)

	assert.NotEqual(t, g.IdentityToken(), view1.IdentityToken())
	assert.NotEqual(t, view1.IdentityToken(), view2.IdentityToken())
}

func TestOverlayMergesTemporaryEdges(t *testing.T) {
	g := buildOverlayTestGraph(t)

	point := TemporaryPoint{
		Node: NewNode(-1, 0, 0.5),
		Edges: []Edge{
			{From: -1, To: 1, Weight: 10},
			{From: 1, To: -1, Weight: 10},
			{From: -1, To: 2, Weight: 12},
			{From: 2, To: -1, Weight: 12},
		},
	}
	view := NewOverlay(g, point)

	assert.True(t, view.HasNode(-1))
	assert.Len(t, view.GetNodeOutEdges(-1), 2)

	// node 1 sees its base edge plus the virtual edge
	merged := view.GetNodeOutEdges(1)
	assert.Len(t, merged, 2)

	// node 3 carries no temporary data, lookups defer to the base graph
	assert.Equal(t, g.GetNodeOutEdges(3), view.GetNodeOutEdges(3))

	assert.Equal(t, g.GetNumNodes()+1, view.GetNumNodes())
}

func TestOverlayDoesNotMutateBaseGraph(t *testing.T) {
	g := buildOverlayTestGraph(t)

	before := len(g.GetNodeOutEdges(1))

	point := TemporaryPoint{
		Node:  NewNode(-1, 0, 0.5),
		Edges: []Edge{{From: 1, To: -1, Weight: 10}, {From: -1, To: 1, Weight: 10}},
	}
	view := NewOverlay(g, point)
	_ = view.GetNodeOutEdges(1)

	assert.Len(t, g.GetNodeOutEdges(1), before)
	assert.False(t, g.HasNode(-1))
}
