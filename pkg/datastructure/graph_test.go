package datastructure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGraphNodeLink(t *testing.T) {
	dump := `{
		"directed": false,
		"nodes": [{"id": 1, "x": 104.9282, "y": 11.5564}, {"id": 2, "x": 104.93, "y": 11.56}, {"id": 3, "x": 104.94, "y": 11.57}],
		"links": [{"source": 1, "target": 2, "length": 10.5}, {"source": 2, "target": 3, "length": 20.0}]
	}`

	g, err := LoadGraph(strings.NewReader(dump))
	require.NoError(t, err)

	assert.Equal(t, 3, g.GetNumNodes())
	assert.False(t, g.Directed())

	node, ok := g.GetNode(1)
	require.True(t, ok)
	assert.Equal(t, 11.5564, node.Lat)
	assert.Equal(t, 104.9282, node.Lon)

	// undirected dump materializes the reverse adjacency
	out := g.GetNodeOutEdges(2)
	assert.Len(t, out, 2)

	assert.Equal(t, []int64{1, 2, 3}, g.AllNodeIDs())
}

func TestLoadGraphEdgeUnknownNode(t *testing.T) {
	dump := `{
		"directed": true,
		"nodes": [{"id": 1, "x": 0, "y": 0}],
		"links": [{"source": 1, "target": 99, "length": 1.0}]
	}`

	_, err := LoadGraph(strings.NewReader(dump))
	assert.ErrorIs(t, err, ErrMalformedGraph)
}

func TestLoadGraphNegativeWeight(t *testing.T) {
	dump := `{
		"directed": true,
		"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 1, "y": 1}],
		"links": [{"source": 1, "target": 2, "length": -5.0}]
	}`

	_, err := LoadGraph(strings.NewReader(dump))
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestLoadGraphNotJSON(t *testing.T) {
	_, err := LoadGraph(strings.NewReader("not a graph"))
	assert.ErrorIs(t, err, ErrMalformedGraph)
}

func TestBuildGraphDuplicateNode(t *testing.T) {
	_, err := BuildGraph([]Node{NewNode(1, 0, 0), NewNode(1, 1, 1)}, nil, true)
	assert.ErrorIs(t, err, ErrMalformedGraph)
}

func TestBuildGraphDegreeZeroNodeIsKnown(t *testing.T) {
	g, err := BuildGraph(
		[]Node{NewNode(1, 0, 0), NewNode(2, 0, 1), NewNode(7, 5, 5)},
		[]Edge{{From: 1, To: 2, Weight: 1}},
		true,
	)
	require.NoError(t, err)

	assert.True(t, g.HasNode(7))
	assert.Empty(t, g.GetNodeOutEdges(7))
	assert.False(t, g.HasNode(99999))
}

func TestGraphIdentityTokenChangesOnReload(t *testing.T) {
	nodes := []Node{NewNode(1, 0, 0)}

	g1, err := BuildGraph(nodes, nil, true)
	require.NoError(t, err)
	g2, err := BuildGraph(nodes, nil, true)
	require.NoError(t, err)

	assert.NotEqual(t, g1.IdentityToken(), g2.IdentityToken())
}
