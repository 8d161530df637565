package snap

import (
	"math"
	"sort"

	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/geo"

	"github.com/dhconnelly/rtreego"
)

const (
	// linear scan below this many nodes, r-tree lookups above. a full scan of
	// a small graph is cheaper than maintaining index candidates and is
	// trivially deterministic.
	indexThreshold = 512

	// number of index candidates to refine with exact geodesic distance.
	nearestCandidates = 8

	pointRectSide = 1e-6 // degrees, r-tree leaves need a non-degenerate rect
)

// EdgeSource supplies candidate road segments near a coordinate. Backed by
// the h3-indexed kv store for graphs too large to keep an in-memory edge
// tree hot.
type EdgeSource interface {
	NearestEdgesFromPoint(lat, lon float64) ([]datastructure.Edge, error)
}

type nodeItem struct {
	node datastructure.Node
	rect rtreego.Rect
}

func (n nodeItem) Bounds() rtreego.Rect {
	return n.rect
}

type edgeItem struct {
	edge datastructure.Edge
	from datastructure.Coordinate
	to   datastructure.Coordinate
	rect rtreego.Rect
}

func (e edgeItem) Bounds() rtreego.Rect {
	return e.rect
}

// RoadSnapper resolves arbitrary coordinates to graph nodes or to projected
// points on the nearest road segment.
type RoadSnapper struct {
	graph    *datastructure.Graph
	nodeTree *rtreego.Rtree
	edgeTree *rtreego.Rtree
	kv       EdgeSource
}

func NewRoadSnapper(g *datastructure.Graph) *RoadSnapper {
	rs := &RoadSnapper{graph: g}
	if g.GetNumNodes() >= indexThreshold {
		rs.buildIndex()
	}
	return rs
}

// WithEdgeSource plugs in the kv-backed candidate edge lookup.
func (rs *RoadSnapper) WithEdgeSource(kv EdgeSource) *RoadSnapper {
	rs.kv = kv
	return rs
}

func (rs *RoadSnapper) buildIndex() {
	rs.nodeTree = rtreego.NewTree(2, 25, 50)
	for _, id := range rs.graph.AllNodeIDs() {
		node, _ := rs.graph.GetNode(id)
		rect, err := rtreego.NewRect(rtreego.Point{node.Lat, node.Lon}, []float64{pointRectSide, pointRectSide})
		if err != nil {
			continue
		}
		rs.nodeTree.Insert(nodeItem{node: node, rect: rect})
	}

	rs.edgeTree = rtreego.NewTree(2, 25, 50)
	for _, e := range rs.graph.GetEdges() {
		item, ok := rs.edgeLeaf(e)
		if !ok {
			continue
		}
		rs.edgeTree.Insert(item)
	}
}

func (rs *RoadSnapper) edgeLeaf(e datastructure.Edge) (edgeItem, bool) {
	fromNode, okFrom := rs.graph.GetNode(e.From)
	toNode, okTo := rs.graph.GetNode(e.To)
	if !okFrom || !okTo {
		return edgeItem{}, false
	}
	latMin := math.Min(fromNode.Lat, toNode.Lat)
	lonMin := math.Min(fromNode.Lon, toNode.Lon)
	latLen := math.Max(math.Abs(fromNode.Lat-toNode.Lat), pointRectSide)
	lonLen := math.Max(math.Abs(fromNode.Lon-toNode.Lon), pointRectSide)
	rect, err := rtreego.NewRect(rtreego.Point{latMin, lonMin}, []float64{latLen, lonLen})
	if err != nil {
		return edgeItem{}, false
	}
	return edgeItem{
		edge: e,
		from: datastructure.NewCoordinate(fromNode.Lat, fromNode.Lon),
		to:   datastructure.NewCoordinate(toNode.Lat, toNode.Lon),
		rect: rect,
	}, true
}

// NearestNode returns the closest graph node to (lat, lon) and the geodesic
// distance in meters. Ties are broken by the lowest node id.
func (rs *RoadSnapper) NearestNode(lat, lon float64) (int64, float64, error) {
	if rs.graph.GetNumNodes() == 0 {
		return 0, 0, datastructure.ErrEmptyGraph
	}

	if rs.nodeTree == nil {
		return rs.nearestNodeScan(lat, lon)
	}

	candidates := rs.nodeTree.NearestNeighbors(nearestCandidates, rtreego.Point{lat, lon})
	bestID := int64(0)
	bestDist := math.MaxFloat64
	found := false
	for _, c := range candidates {
		item, ok := c.(nodeItem)
		if !ok {
			continue
		}
		dist := geo.HaversineMeters(lat, lon, item.node.Lat, item.node.Lon)
		if dist < bestDist || (dist == bestDist && item.node.ID < bestID) {
			bestDist = dist
			bestID = item.node.ID
			found = true
		}
	}
	if !found {
		return rs.nearestNodeScan(lat, lon)
	}
	return bestID, bestDist, nil
}

func (rs *RoadSnapper) nearestNodeScan(lat, lon float64) (int64, float64, error) {
	bestID := int64(0)
	bestDist := math.MaxFloat64
	found := false
	for _, id := range rs.graph.AllNodeIDs() {
		node, _ := rs.graph.GetNode(id)
		dist := geo.HaversineMeters(lat, lon, node.Lat, node.Lon)
		if dist < bestDist {
			bestDist = dist
			bestID = id
			found = true
		}
	}
	if !found {
		return 0, 0, datastructure.ErrEmptyGraph
	}
	return bestID, bestDist, nil
}

// Project splices (lat, lon) into the graph: it finds the nearest road
// segment, projects the point onto it, and synthesizes virtual edges from the
// projection to both segment endpoints, weighted by geodesic distance. On a
// graph without edges it degrades to a nearest-node splice. tempID must be a
// request-local negative id.
func (rs *RoadSnapper) Project(lat, lon float64, tempID int64) (datastructure.TemporaryPoint, error) {
	if rs.graph.GetNumNodes() == 0 {
		return datastructure.TemporaryPoint{}, datastructure.ErrEmptyGraph
	}

	query := datastructure.NewCoordinate(lat, lon)
	best, ok := rs.nearestEdge(query)
	if !ok {
		return rs.projectToNode(query, tempID)
	}

	proj := geo.ProjectPointToLineCoord(best.from, best.to, query)
	tempNode := datastructure.NewNode(tempID, proj.Lat, proj.Lon)

	distToFrom := geo.HaversineMeters(proj.Lat, proj.Lon, best.from.Lat, best.from.Lon)
	distToTo := geo.HaversineMeters(proj.Lat, proj.Lon, best.to.Lat, best.to.Lon)

	edges := []datastructure.Edge{
		{From: tempID, To: best.edge.From, Weight: distToFrom},
		{From: best.edge.From, To: tempID, Weight: distToFrom},
		{From: tempID, To: best.edge.To, Weight: distToTo},
		{From: best.edge.To, To: tempID, Weight: distToTo},
	}

	return datastructure.TemporaryPoint{
		Node:  tempNode,
		Edges: edges,
		Dist:  geo.HaversineMeters(lat, lon, proj.Lat, proj.Lon),
	}, nil
}

// projectToNode is the fallback splice for graphs without any edge: connect
// the temporary node straight to the nearest graph node.
func (rs *RoadSnapper) projectToNode(query datastructure.Coordinate, tempID int64) (datastructure.TemporaryPoint, error) {
	nearestID, dist, err := rs.nearestNodeScan(query.Lat, query.Lon)
	if err != nil {
		return datastructure.TemporaryPoint{}, err
	}
	tempNode := datastructure.NewNode(tempID, query.Lat, query.Lon)
	edges := []datastructure.Edge{
		{From: tempID, To: nearestID, Weight: dist},
		{From: nearestID, To: tempID, Weight: dist},
	}
	return datastructure.TemporaryPoint{Node: tempNode, Edges: edges, Dist: dist}, nil
}

func (rs *RoadSnapper) nearestEdge(query datastructure.Coordinate) (edgeItem, bool) {
	candidates := rs.edgeCandidates(query)
	if len(candidates) == 0 {
		return edgeItem{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].edge.From != candidates[j].edge.From {
			return candidates[i].edge.From < candidates[j].edge.From
		}
		return candidates[i].edge.To < candidates[j].edge.To
	})

	best := candidates[0]
	bestDist := geo.PointToSegmentDistance(query, best.from, best.to)
	for _, c := range candidates[1:] {
		dist := geo.PointToSegmentDistance(query, c.from, c.to)
		if dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best, true
}

func (rs *RoadSnapper) edgeCandidates(query datastructure.Coordinate) []edgeItem {
	if rs.kv != nil {
		kvEdges, err := rs.kv.NearestEdgesFromPoint(query.Lat, query.Lon)
		if err == nil && len(kvEdges) > 0 {
			items := make([]edgeItem, 0, len(kvEdges))
			for _, e := range kvEdges {
				if item, ok := rs.edgeLeaf(e); ok {
					items = append(items, item)
				}
			}
			if len(items) > 0 {
				return items
			}
		}
	}

	if rs.edgeTree != nil {
		nearest := rs.edgeTree.NearestNeighbors(nearestCandidates, rtreego.Point{query.Lat, query.Lon})
		items := make([]edgeItem, 0, len(nearest))
		for _, c := range nearest {
			if item, ok := c.(edgeItem); ok {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			return items
		}
	}

	// small graph, scan every segment
	items := make([]edgeItem, 0, len(rs.graph.GetEdges()))
	for _, e := range rs.graph.GetEdges() {
		if item, ok := rs.edgeLeaf(e); ok {
			items = append(items, item)
		}
	}
	return items
}
