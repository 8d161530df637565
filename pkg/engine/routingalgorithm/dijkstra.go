package routingalgorithm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/util"
)

var (
	ErrNodeNotFound = errors.New("node not found in graph")
	ErrNoPath       = errors.New("no path between nodes")
)

const (
	// how many frontier pops between context cancellation checks. dijkstra
	// never blocks, so checking every pop would only add overhead.
	cancelCheckInterval = 1024
)

// DistanceTable is a full single-source dijkstra result: tentative distances
// and predecessor links for every settled node. This is the value the result
// cache stores.
type DistanceTable struct {
	Source int64
	Dist   map[int64]float64
	Pred   map[int64]int64
}

type RouteAlgorithm struct{}

func NewRouteAlgorithm() *RouteAlgorithm {
	return &RouteAlgorithm{}
}

// SingleSource runs dijkstra from source over the whole view. Weights are
// validated non-negative at graph load, so every extracted node is settled.
func (rt *RouteAlgorithm) SingleSource(ctx context.Context, view datastructure.GraphView, source int64) (*DistanceTable, error) {
	return rt.run(ctx, view, source, nil)
}

// run executes dijkstra. When target is non-nil the search stops the moment
// the target is extracted from the frontier; its distance is final at that
// point, so the early exit returns identical distances to a full run.
func (rt *RouteAlgorithm) run(ctx context.Context, view datastructure.GraphView, source int64, target *int64) (*DistanceTable, error) {
	if !view.HasNode(source) {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, source)
	}

	dist := make(map[int64]float64)
	pred := make(map[int64]int64)
	settled := make(map[int64]struct{})

	frontier := datastructure.NewMinHeap[int64]()
	dist[source] = 0
	frontier.Insert(datastructure.PriorityQueueNode[int64]{Rank: 0, Item: source})

	pops := 0
	for frontier.Size() > 0 {
		pops++
		if pops%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		node, err := frontier.ExtractMin()
		if err != nil {
			break
		}
		u := node.Item
		if _, ok := settled[u]; ok {
			continue
		}
		settled[u] = struct{}{}

		if target != nil && u == *target {
			break
		}

		for _, edge := range view.GetNodeOutEdges(u) {
			v := edge.ToNodeID
			if _, ok := settled[v]; ok {
				continue
			}
			newDist := dist[u] + edge.Weight
			old, seen := dist[v]
			if !seen {
				dist[v] = newDist
				pred[v] = u
				frontier.Insert(datastructure.PriorityQueueNode[int64]{Rank: newDist, Item: v})
			} else if newDist < old {
				dist[v] = newDist
				pred[v] = u
				if frontier.Contains(v) {
					frontier.DecreaseKey(datastructure.PriorityQueueNode[int64]{Rank: newDist, Item: v})
				} else {
					frontier.Insert(datastructure.PriorityQueueNode[int64]{Rank: newDist, Item: v})
				}
			}
		}
	}

	return &DistanceTable{Source: source, Dist: dist, Pred: pred}, nil
}

// Route computes the shortest path from 'from' to 'to' over the view with
// early exit on the target. Both ids must exist in the view; a valid but
// unreachable target yields ErrNoPath.
func (rt *RouteAlgorithm) Route(ctx context.Context, view datastructure.GraphView, from, to int64) (datastructure.PathResult, error) {
	if !view.HasNode(from) {
		return datastructure.PathResult{}, fmt.Errorf("%w: %d", ErrNodeNotFound, from)
	}
	if !view.HasNode(to) {
		return datastructure.PathResult{}, fmt.Errorf("%w: %d", ErrNodeNotFound, to)
	}

	table, err := rt.run(ctx, view, from, &to)
	if err != nil {
		return datastructure.PathResult{}, err
	}
	return ReconstructPath(view, table, to)
}

// ReconstructPath walks the predecessor links from target back to the table's
// source. An unset predecessor with target != source is the no-path case.
func ReconstructPath(view datastructure.GraphView, table *DistanceTable, target int64) (datastructure.PathResult, error) {
	if !view.HasNode(target) {
		return datastructure.PathResult{}, fmt.Errorf("%w: %d", ErrNodeNotFound, target)
	}

	if target == table.Source {
		coords := pathCoords(view, []int64{target})
		return datastructure.PathResult{
			Source: table.Source,
			Dest:   target,
			Dist:   0,
			Path:   []int64{target},
			Coords: coords,
		}, nil
	}

	targetDist, ok := table.Dist[target]
	if !ok || math.IsInf(targetDist, 1) {
		return datastructure.PathResult{}, fmt.Errorf("%w: %d -> %d", ErrNoPath, table.Source, target)
	}
	if _, ok := table.Pred[target]; !ok {
		return datastructure.PathResult{}, fmt.Errorf("%w: %d -> %d", ErrNoPath, table.Source, target)
	}

	reversed := []int64{target}
	current := target
	for current != table.Source {
		prev, ok := table.Pred[current]
		if !ok {
			return datastructure.PathResult{}, fmt.Errorf("%w: %d -> %d", ErrNoPath, table.Source, target)
		}
		reversed = append(reversed, prev)
		current = prev
	}

	path := util.ReverseG(reversed)
	return datastructure.PathResult{
		Source: table.Source,
		Dest:   target,
		Dist:   targetDist,
		Path:   path,
		Coords: pathCoords(view, path),
	}, nil
}

func pathCoords(view datastructure.GraphView, path []int64) []datastructure.Coordinate {
	coords := make([]datastructure.Coordinate, 0, len(path))
	for _, id := range path {
		if n, ok := view.GetNode(id); ok {
			coords = append(coords, datastructure.NewCoordinate(n.Lat, n.Lon))
		}
	}
	return coords
}
