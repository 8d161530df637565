package datastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync/atomic"

	"golang.org/x/exp/maps"
)

var (
	ErrMalformedGraph = errors.New("malformed graph")
	ErrInvalidWeight  = errors.New("invalid edge weight")
	ErrEmptyGraph     = errors.New("graph has no nodes")
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

type Node struct {
	ID  int64
	Lat float64
	Lon float64
}

func NewNode(id int64, lat, lon float64) Node {
	return Node{ID: id, Lat: lat, Lon: lon}
}

type Edge struct {
	From   int64
	To     int64
	Weight float64
}

// EdgePair is one outgoing adjacency entry of a node.
type EdgePair struct {
	ToNodeID int64
	Weight   float64
}

type PathResult struct {
	Source int64
	Dest   int64
	Dist   float64
	Path   []int64
	Coords []Coordinate
}

// identity tokens are process-wide unique. the base graph keeps its token for
// the whole process lifetime (until a reload builds a new Graph), overlays get
// a fresh token per request.
var identityCounter uint64

func nextIdentityToken() uint64 {
	return atomic.AddUint64(&identityCounter, 1)
}

// Graph is the immutable base road graph. No mutation API after Build;
// safe to share between request goroutines without locking.
type Graph struct {
	token     uint64
	directed  bool
	nodes     map[int64]Node
	adjacency map[int64][]EdgePair
	edges     []Edge
}

// graphDump is the external node-link format of the graph file
// (the same shape networkx/osmnx exports).
type graphDump struct {
	Directed bool       `json:"directed"`
	Nodes    []dumpNode `json:"nodes"`
	Links    []dumpLink `json:"links"`
}

type dumpNode struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"` // lon
	Y  float64 `json:"y"` // lat
}

type dumpLink struct {
	Source int64   `json:"source"`
	Target int64   `json:"target"`
	Length float64 `json:"length"`
}

// BuildGraph validates nodes and edges once and builds the adjacency
// structure. Any edge that references an unknown node id fails with
// ErrMalformedGraph, any negative or non-finite weight with ErrInvalidWeight.
func BuildGraph(nodes []Node, edges []Edge, directed bool) (*Graph, error) {
	g := &Graph{
		token:     nextIdentityToken(),
		directed:  directed,
		nodes:     make(map[int64]Node, len(nodes)),
		adjacency: make(map[int64][]EdgePair, len(nodes)),
		edges:     make([]Edge, 0, len(edges)),
	}

	for _, n := range nodes {
		if _, ok := g.nodes[n.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrMalformedGraph, n.ID)
		}
		g.nodes[n.ID] = n
	}

	for _, e := range edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge references unknown node id %d", ErrMalformedGraph, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, fmt.Errorf("%w: edge references unknown node id %d", ErrMalformedGraph, e.To)
		}
		if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, fmt.Errorf("%w: edge %d->%d weight %f", ErrInvalidWeight, e.From, e.To, e.Weight)
		}

		g.adjacency[e.From] = append(g.adjacency[e.From], EdgePair{ToNodeID: e.To, Weight: e.Weight})
		if !directed {
			g.adjacency[e.To] = append(g.adjacency[e.To], EdgePair{ToNodeID: e.From, Weight: e.Weight})
		}
		g.edges = append(g.edges, e)
	}

	return g, nil
}

// LoadGraph reads a node-link JSON graph dump and builds the base graph.
func LoadGraph(r io.Reader) (*Graph, error) {
	var dump graphDump
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGraph, err)
	}

	nodes := make([]Node, 0, len(dump.Nodes))
	for _, dn := range dump.Nodes {
		nodes = append(nodes, NewNode(dn.ID, dn.Y, dn.X))
	}

	edges := make([]Edge, 0, len(dump.Links))
	for _, dl := range dump.Links {
		weight := dl.Length
		if weight == 0 {
			weight = 1.0 // dumps without lengths fall back to hop count
		}
		edges = append(edges, Edge{From: dl.Source, To: dl.Target, Weight: weight})
	}

	return BuildGraph(nodes, edges, dump.Directed)
}

func LoadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadGraph(f)
}

// WriteGraphDump writes the graph back out in the node-link format, used by
// the preprocessing command after converting an openstreetmap extract.
func WriteGraphDump(w io.Writer, nodes []Node, edges []Edge, directed bool) error {
	dump := graphDump{
		Directed: directed,
		Nodes:    make([]dumpNode, 0, len(nodes)),
		Links:    make([]dumpLink, 0, len(edges)),
	}
	for _, n := range nodes {
		dump.Nodes = append(dump.Nodes, dumpNode{ID: n.ID, X: n.Lon, Y: n.Lat})
	}
	for _, e := range edges {
		dump.Links = append(dump.Links, dumpLink{Source: e.From, Target: e.To, Length: e.Weight})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(dump)
}

func (g *Graph) IdentityToken() uint64 {
	return g.token
}

func (g *Graph) Directed() bool {
	return g.directed
}

func (g *Graph) HasNode(id int64) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Graph) GetNode(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// GetNodeOutEdges returns the outgoing adjacency of id. Callers must not
// mutate the returned slice.
func (g *Graph) GetNodeOutEdges(id int64) []EdgePair {
	return g.adjacency[id]
}

// AllNodeIDs returns every known node id sorted ascending. A degree-zero node
// is still listed, so "unknown id" stays distinguishable from "no path".
func (g *Graph) AllNodeIDs() []int64 {
	ids := maps.Keys(g.nodes)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Graph) GetNumNodes() int {
	return len(g.nodes)
}

// GetEdges returns all loaded edges as stored, reverse pairs of undirected
// graphs not materialized. Used to build spatial indexes over road segments.
func (g *Graph) GetEdges() []Edge {
	return g.edges
}
