package service

import (
	"context"
	"testing"

	"banyu/routegraph/pkg/cache"
	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/engine/routingalgorithm"
	"banyu/routegraph/pkg/geo"
	"banyu/routegraph/pkg/server"
	"banyu/routegraph/pkg/snap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a small corridor along the equator, edge weights in haversine meters so
// coordinate queries and node queries agree on distances.
func buildServiceGraph(t *testing.T) *datastructure.Graph {
	nodes := []datastructure.Node{
		datastructure.NewNode(1, 0, 0),
		datastructure.NewNode(2, 0, 0.01),
		datastructure.NewNode(3, 0, 0.02),
	}
	edges := []datastructure.Edge{
		{From: 1, To: 2, Weight: geo.HaversineMeters(0, 0, 0, 0.01)},
		{From: 2, To: 3, Weight: geo.HaversineMeters(0, 0.01, 0, 0.02)},
	}
	g, err := datastructure.BuildGraph(nodes, edges, false)
	require.NoError(t, err)
	return g
}

func newTestService(t *testing.T, g *datastructure.Graph) *RouterService {
	return NewRouterService(
		g,
		snap.NewRoadSnapper(g),
		routingalgorithm.NewRouteAlgorithm(),
		cache.NewRouteCache(cache.DefaultCapacity),
	)
}

func TestShortestPathBetweenCoordinates(t *testing.T) {
	g := buildServiceGraph(t)
	svc := newTestService(t, g)

	poly, result, err := svc.ShortestPath(context.Background(), 0, 0.001, 0, 0.019)
	require.NoError(t, err)

	assert.NotEmpty(t, poly)
	assert.Equal(t, tempSourceID, result.Path[0])
	assert.Equal(t, tempTargetID, result.Path[len(result.Path)-1])

	// ~0.018 degrees of longitude along the equator
	expected := geo.HaversineMeters(0, 0.001, 0, 0.019)
	assert.InDelta(t, expected, result.Dist, 25)
}

func TestShortestPathLeavesBaseGraphUntouched(t *testing.T) {
	g := buildServiceGraph(t)
	svc := newTestService(t, g)

	_, _, err := svc.ShortestPath(context.Background(), 0.0005, 0.005, 0, 0.019)
	require.NoError(t, err)

	// temporary splice nodes must not leak into later node queries
	assert.False(t, g.HasNode(tempSourceID))
	assert.False(t, g.HasNode(tempTargetID))

	_, result, err := svc.RouteBetweenNodes(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, result.Path)
}

func TestRouteBetweenNodes(t *testing.T) {
	g := buildServiceGraph(t)
	svc := newTestService(t, g)

	poly, result, err := svc.RouteBetweenNodes(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.NotEmpty(t, poly)
	assert.Equal(t, []int64{1, 2, 3}, result.Path)
	assert.InDelta(t, geo.HaversineMeters(0, 0, 0, 0.02), result.Dist, 5)
}

func TestRouteBetweenNodesUnknownID(t *testing.T) {
	svc := newTestService(t, buildServiceGraph(t))

	_, _, err := svc.RouteBetweenNodes(context.Background(), 1, 99999)
	require.Error(t, err)

	var svcErr *server.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, server.ErrNotFound, svcErr.Code())
}

func TestRouteBetweenNodesNoPath(t *testing.T) {
	g, err := datastructure.BuildGraph(
		[]datastructure.Node{
			datastructure.NewNode(1, 0, 0),
			datastructure.NewNode(2, 0, 0.01),
			datastructure.NewNode(3, 1, 1),
		},
		[]datastructure.Edge{{From: 1, To: 2, Weight: geo.HaversineMeters(0, 0, 0, 0.01)}},
		false,
	)
	require.NoError(t, err)
	svc := newTestService(t, g)

	_, _, err = svc.RouteBetweenNodes(context.Background(), 1, 3)
	require.Error(t, err)

	var svcErr *server.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, server.ErrConflict, svcErr.Code())
}

func TestRouteBetweenNodesWarmCacheMatchesCold(t *testing.T) {
	g := buildServiceGraph(t)
	svc := newTestService(t, g)

	_, cold, err := svc.RouteBetweenNodes(context.Background(), 1, 3)
	require.NoError(t, err)
	_, warm, err := svc.RouteBetweenNodes(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.Equal(t, cold.Dist, warm.Dist)
	assert.Equal(t, cold.Path, warm.Path)

	hits, misses, _ := svc.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestRouteBetweenNodesSharedSourceHitsCache(t *testing.T) {
	g := buildServiceGraph(t)
	svc := newTestService(t, g)

	_, _, err := svc.RouteBetweenNodes(context.Background(), 1, 2)
	require.NoError(t, err)
	_, _, err = svc.RouteBetweenNodes(context.Background(), 1, 3)
	require.NoError(t, err)

	// both queries share source 1, the second reuses its distance table
	hits, misses, _ := svc.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestNearestNode(t *testing.T) {
	svc := newTestService(t, buildServiceGraph(t))

	nodeID, dist, err := svc.NearestNode(context.Background(), 0.0001, 0.0199)
	require.NoError(t, err)

	assert.Equal(t, int64(3), nodeID)
	assert.Less(t, dist, 50.0)
}

func TestDistanceToPointPrefersSegmentProjection(t *testing.T) {
	svc := newTestService(t, buildServiceGraph(t))

	// midway along the 1-2 segment, far from both endpoints but near the road
	nodeID, dist, err := svc.DistanceToPoint(context.Background(), 0.0005, 0.005)
	require.NoError(t, err)

	assert.Contains(t, []int64{1, 2}, nodeID)
	assert.InDelta(t, 55.6, dist, 2.0)
}

func TestEmptyGraphMapsToNotFound(t *testing.T) {
	g, err := datastructure.BuildGraph(nil, nil, false)
	require.NoError(t, err)
	svc := newTestService(t, g)

	_, _, err = svc.NearestNode(context.Background(), 0, 0)
	require.Error(t, err)

	var svcErr *server.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, server.ErrNotFound, svcErr.Code())
}
