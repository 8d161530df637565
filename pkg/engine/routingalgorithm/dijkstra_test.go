package routingalgorithm

import (
	"context"
	"testing"

	"banyu/routegraph/pkg/datastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTriangleGraph(t *testing.T, directed bool) *datastructure.Graph {
	g, err := datastructure.BuildGraph(
		[]datastructure.Node{
			datastructure.NewNode(1, 0, 0),
			datastructure.NewNode(2, 0, 1),
			datastructure.NewNode(3, 1, 1),
		},
		[]datastructure.Edge{
			{From: 1, To: 2, Weight: 1},
			{From: 2, To: 3, Weight: 1},
		},
		directed,
	)
	require.NoError(t, err)
	return g
}

func TestRouteTwoHops(t *testing.T) {
	g := buildTriangleGraph(t, false)
	rt := NewRouteAlgorithm()

	result, err := rt.Route(context.Background(), g, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, 2.0, result.Dist)
	assert.Equal(t, []int64{1, 2, 3}, result.Path)
	assert.Len(t, result.Coords, 3)
}

func TestRouteSelf(t *testing.T) {
	g := buildTriangleGraph(t, false)
	rt := NewRouteAlgorithm()

	result, err := rt.Route(context.Background(), g, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Dist)
	assert.Equal(t, []int64{2}, result.Path)
}

func TestRouteUnknownNode(t *testing.T) {
	g := buildTriangleGraph(t, false)
	rt := NewRouteAlgorithm()

	_, err := rt.Route(context.Background(), g, 1, 99999)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = rt.Route(context.Background(), g, 99999, 1)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRouteDisconnectedComponents(t *testing.T) {
	g, err := datastructure.BuildGraph(
		[]datastructure.Node{
			datastructure.NewNode(1, 0, 0),
			datastructure.NewNode(2, 0, 1),
			datastructure.NewNode(3, 5, 5),
			datastructure.NewNode(4, 5, 6),
		},
		[]datastructure.Edge{
			{From: 1, To: 2, Weight: 1},
			{From: 3, To: 4, Weight: 1},
		},
		false,
	)
	require.NoError(t, err)
	rt := NewRouteAlgorithm()

	_, err = rt.Route(context.Background(), g, 1, 3)
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestRouteUndirectedSymmetry(t *testing.T) {
	g := buildTriangleGraph(t, false)
	rt := NewRouteAlgorithm()

	forward, err := rt.Route(context.Background(), g, 1, 3)
	require.NoError(t, err)
	backward, err := rt.Route(context.Background(), g, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, forward.Dist, backward.Dist)
}

func TestRouteDirectedAsymmetry(t *testing.T) {
	g := buildTriangleGraph(t, true)
	rt := NewRouteAlgorithm()

	forward, err := rt.Route(context.Background(), g, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2.0, forward.Dist)

	_, err = rt.Route(context.Background(), g, 3, 1)
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestRoutePicksCheaperDetour(t *testing.T) {
	// direct edge 1->3 costs 10, the detour through 2 costs 2
	g, err := datastructure.BuildGraph(
		[]datastructure.Node{
			datastructure.NewNode(1, 0, 0),
			datastructure.NewNode(2, 0, 1),
			datastructure.NewNode(3, 1, 1),
		},
		[]datastructure.Edge{
			{From: 1, To: 3, Weight: 10},
			{From: 1, To: 2, Weight: 1},
			{From: 2, To: 3, Weight: 1},
		},
		true,
	)
	require.NoError(t, err)
	rt := NewRouteAlgorithm()

	result, err := rt.Route(context.Background(), g, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, 2.0, result.Dist)
	assert.Equal(t, []int64{1, 2, 3}, result.Path)
}

func TestSingleSourceMatchesEarlyExit(t *testing.T) {
	g, err := datastructure.BuildGraph(
		[]datastructure.Node{
			datastructure.NewNode(1, 0, 0),
			datastructure.NewNode(2, 0, 1),
			datastructure.NewNode(3, 1, 1),
			datastructure.NewNode(4, 1, 0),
			datastructure.NewNode(5, 2, 2),
		},
		[]datastructure.Edge{
			{From: 1, To: 2, Weight: 2},
			{From: 1, To: 4, Weight: 1},
			{From: 4, To: 3, Weight: 3},
			{From: 2, To: 3, Weight: 1},
			{From: 3, To: 5, Weight: 4},
		},
		false,
	)
	require.NoError(t, err)
	rt := NewRouteAlgorithm()

	table, err := rt.SingleSource(context.Background(), g, 1)
	require.NoError(t, err)

	for _, target := range []int64{2, 3, 4, 5} {
		direct, err := rt.Route(context.Background(), g, 1, target)
		require.NoError(t, err)

		fromTable, err := ReconstructPath(g, table, target)
		require.NoError(t, err)

		assert.Equal(t, direct.Dist, fromTable.Dist)
		assert.Equal(t, direct.Path, fromTable.Path)
	}
}

func TestSingleSourceTriangleInequality(t *testing.T) {
	g, err := datastructure.BuildGraph(
		[]datastructure.Node{
			datastructure.NewNode(1, 0, 0),
			datastructure.NewNode(2, 0, 1),
			datastructure.NewNode(3, 1, 1),
			datastructure.NewNode(4, 1, 0),
		},
		[]datastructure.Edge{
			{From: 1, To: 2, Weight: 1},
			{From: 2, To: 3, Weight: 2},
			{From: 3, To: 4, Weight: 1},
			{From: 1, To: 4, Weight: 5},
		},
		false,
	)
	require.NoError(t, err)
	rt := NewRouteAlgorithm()

	table, err := rt.SingleSource(context.Background(), g, 1)
	require.NoError(t, err)

	// d(1,v) <= d(1,u) + w(u,v) for every relaxed edge
	for _, edge := range g.GetEdges() {
		du, okU := table.Dist[edge.From]
		dv, okV := table.Dist[edge.To]
		if okU && okV {
			assert.LessOrEqual(t, dv, du+edge.Weight)
		}
	}
}

func TestRouteCancelledContext(t *testing.T) {
	nodes := make([]datastructure.Node, 0, 3000)
	edges := make([]datastructure.Edge, 0, 3000)
	for i := int64(1); i <= 3000; i++ {
		nodes = append(nodes, datastructure.NewNode(i, float64(i)*1e-4, 0))
		if i > 1 {
			edges = append(edges, datastructure.Edge{From: i - 1, To: i, Weight: 1})
		}
	}
	g, err := datastructure.BuildGraph(nodes, edges, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := NewRouteAlgorithm()
	_, err = rt.Route(ctx, g, 1, 3000)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouteOverOverlay(t *testing.T) {
	g := buildTriangleGraph(t, false)

	point := datastructure.TemporaryPoint{
		Node: datastructure.NewNode(-1, 0, 0.5),
		Edges: []datastructure.Edge{
			{From: -1, To: 1, Weight: 0.5},
			{From: 1, To: -1, Weight: 0.5},
			{From: -1, To: 2, Weight: 0.5},
			{From: 2, To: -1, Weight: 0.5},
		},
	}
	view := datastructure.NewOverlay(g, point)

	rt := NewRouteAlgorithm()
	result, err := rt.Route(context.Background(), view, -1, 3)
	require.NoError(t, err)

	assert.Equal(t, 1.5, result.Dist)
	assert.Equal(t, []int64{-1, 2, 3}, result.Path)
}
