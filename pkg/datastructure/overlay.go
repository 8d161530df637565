package datastructure

// TemporaryPoint is a projected query coordinate spliced into the graph for
// one request: a synthetic node (negative, request-local id) plus the
// virtual edges that connect it to the base graph.
type TemporaryPoint struct {
	Node  Node
	Edges []Edge
	// Dist is the geodesic distance in meters from the query coordinate to
	// the projection.
	Dist float64
}

// GraphOverlay augments a base graph with temporary nodes/edges without
// touching the shared store. Adjacency lookups merge the temporary edges for
// exactly the affected node ids and defer to the base graph otherwise.
// Overlays are request-local, never shared between goroutines.
type GraphOverlay struct {
	base      *Graph
	token     uint64
	tempNodes map[int64]Node
	tempAdj   map[int64][]EdgePair
}

// NewOverlay builds a request-scoped view of base plus the given temporary
// points. With no temporary points the base graph itself is returned (same
// identity token), so result-cache entries stay valid for non-augmented
// queries. Otherwise the view carries a fresh token, and lookups keyed by it
// always miss the cache.
func NewOverlay(base *Graph, points ...TemporaryPoint) GraphView {
	if len(points) == 0 {
		return base
	}

	o := &GraphOverlay{
		base:      base,
		token:     nextIdentityToken(),
		tempNodes: make(map[int64]Node, len(points)),
		tempAdj:   make(map[int64][]EdgePair),
	}

	for _, p := range points {
		o.tempNodes[p.Node.ID] = p.Node
		for _, e := range p.Edges {
			o.tempAdj[e.From] = append(o.tempAdj[e.From], EdgePair{ToNodeID: e.To, Weight: e.Weight})
		}
	}
	return o
}

func (o *GraphOverlay) IdentityToken() uint64 {
	return o.token
}

func (o *GraphOverlay) HasNode(id int64) bool {
	if _, ok := o.tempNodes[id]; ok {
		return true
	}
	return o.base.HasNode(id)
}

func (o *GraphOverlay) GetNode(id int64) (Node, bool) {
	if n, ok := o.tempNodes[id]; ok {
		return n, true
	}
	return o.base.GetNode(id)
}

// GetNodeOutEdges merges base adjacency with the temporary edges of id. The
// base slice is never mutated, a merged copy is returned only for the ids
// that actually carry temporary edges.
func (o *GraphOverlay) GetNodeOutEdges(id int64) []EdgePair {
	baseEdges := o.base.GetNodeOutEdges(id)
	extra, ok := o.tempAdj[id]
	if !ok {
		return baseEdges
	}
	merged := make([]EdgePair, 0, len(baseEdges)+len(extra))
	merged = append(merged, baseEdges...)
	merged = append(merged, extra...)
	return merged
}

func (o *GraphOverlay) GetNumNodes() int {
	return o.base.GetNumNodes() + len(o.tempNodes)
}

// GraphView is what the shortest-path engine traverses: either the base
// graph or a request-scoped overlay.
type GraphView interface {
	IdentityToken() uint64
	HasNode(id int64) bool
	GetNode(id int64) (Node, bool)
	GetNodeOutEdges(id int64) []EdgePair
	GetNumNodes() int
}
