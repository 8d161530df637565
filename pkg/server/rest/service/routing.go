package service

import (
	"context"
	"errors"

	"banyu/routegraph/pkg/cache"
	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/engine/routingalgorithm"
	"banyu/routegraph/pkg/server"
)

// request-local ids for the spliced source/target points. negative so they
// can never collide with base graph ids.
const (
	tempSourceID = int64(-1)
	tempTargetID = int64(-2)
)

type Snapper interface {
	NearestNode(lat, lon float64) (int64, float64, error)
	Project(lat, lon float64, tempID int64) (datastructure.TemporaryPoint, error)
}

type RoutingAlgorithm interface {
	SingleSource(ctx context.Context, view datastructure.GraphView, source int64) (*routingalgorithm.DistanceTable, error)
	Route(ctx context.Context, view datastructure.GraphView, from, to int64) (datastructure.PathResult, error)
}

type ResultCache interface {
	GetOrCompute(token uint64, sourceID int64, compute cache.ComputeFunc) (*routingalgorithm.DistanceTable, error)
	Stats() (hits, misses, evictions uint64)
}

type RouterService struct {
	graph   *datastructure.Graph
	snapper Snapper
	routing RoutingAlgorithm
	cache   ResultCache
}

func NewRouterService(graph *datastructure.Graph, snapper Snapper, routing RoutingAlgorithm, resultCache ResultCache) *RouterService {
	return &RouterService{
		graph:   graph,
		snapper: snapper,
		routing: routing,
		cache:   resultCache,
	}
}

// ShortestPath routes between two arbitrary coordinates. Both endpoints are
// projected onto their nearest road segment and spliced into a request-scoped
// overlay; the search always runs fresh on the overlay, never through the
// result cache.
func (svc *RouterService) ShortestPath(ctx context.Context, srcLat, srcLon, dstLat, dstLon float64) (string, datastructure.PathResult, error) {
	srcPoint, err := svc.snapper.Project(srcLat, srcLon, tempSourceID)
	if err != nil {
		return "", datastructure.PathResult{}, svc.wrapSnapErr(err)
	}
	dstPoint, err := svc.snapper.Project(dstLat, dstLon, tempTargetID)
	if err != nil {
		return "", datastructure.PathResult{}, svc.wrapSnapErr(err)
	}

	view := datastructure.NewOverlay(svc.graph, srcPoint, dstPoint)

	result, err := svc.routing.Route(ctx, view, srcPoint.Node.ID, dstPoint.Node.ID)
	if err != nil {
		return "", datastructure.PathResult{}, svc.wrapRouteErr(err)
	}

	return datastructure.CreatePolyline(result.Coords), result, nil
}

// RouteBetweenNodes routes between two existing graph node ids over the base
// graph. Single-source tables are memoized per (graph identity, source).
func (svc *RouterService) RouteBetweenNodes(ctx context.Context, fromID, toID int64) (string, datastructure.PathResult, error) {
	if !svc.graph.HasNode(fromID) {
		return "", datastructure.PathResult{}, server.NewErrorf(server.ErrNotFound, "node %d not found in graph", fromID)
	}
	if !svc.graph.HasNode(toID) {
		return "", datastructure.PathResult{}, server.NewErrorf(server.ErrNotFound, "node %d not found in graph", toID)
	}

	table, err := svc.cache.GetOrCompute(svc.graph.IdentityToken(), fromID, func() (*routingalgorithm.DistanceTable, error) {
		return svc.routing.SingleSource(ctx, svc.graph, fromID)
	})
	if err != nil {
		return "", datastructure.PathResult{}, svc.wrapRouteErr(err)
	}

	result, err := routingalgorithm.ReconstructPath(svc.graph, table, toID)
	if err != nil {
		return "", datastructure.PathResult{}, svc.wrapRouteErr(err)
	}

	return datastructure.CreatePolyline(result.Coords), result, nil
}

// NearestNode returns the graph node closest to the coordinate and the
// geodesic distance to it in meters.
func (svc *RouterService) NearestNode(ctx context.Context, lat, lon float64) (int64, float64, error) {
	nodeID, dist, err := svc.snapper.NearestNode(lat, lon)
	if err != nil {
		return 0, 0, svc.wrapSnapErr(err)
	}
	return nodeID, dist, nil
}

// DistanceToPoint answers "how far is this coordinate from the graph": the
// nearest node id plus the geodesic distance to the nearest point of the
// road network (projection onto the nearest segment when that is closer than
// any node). No shortest-path search runs.
func (svc *RouterService) DistanceToPoint(ctx context.Context, lat, lon float64) (int64, float64, error) {
	nodeID, dist, err := svc.snapper.NearestNode(lat, lon)
	if err != nil {
		return 0, 0, svc.wrapSnapErr(err)
	}

	if point, err := svc.snapper.Project(lat, lon, tempSourceID); err == nil && point.Dist < dist {
		dist = point.Dist
	}
	return nodeID, dist, nil
}

func (svc *RouterService) CacheStats() (hits, misses, evictions uint64) {
	return svc.cache.Stats()
}

func (svc *RouterService) wrapSnapErr(err error) error {
	if errors.Is(err, datastructure.ErrEmptyGraph) {
		return server.WrapErrorf(err, server.ErrNotFound, "the loaded graph has no nodes")
	}
	return server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
}

func (svc *RouterService) wrapRouteErr(err error) error {
	switch {
	case errors.Is(err, routingalgorithm.ErrNodeNotFound):
		return server.WrapErrorf(err, server.ErrNotFound, "node not found in graph")
	case errors.Is(err, routingalgorithm.ErrNoPath):
		return server.WrapErrorf(err, server.ErrConflict, "no route exists between the requested points")
	default:
		return server.WrapErrorf(err, server.ErrInternalServerError, "internal server error")
	}
}
