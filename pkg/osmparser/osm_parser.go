package osmparser

import (
	"context"
	"log"
	"os"

	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/geo"

	"github.com/k0kubun/go-ansi"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/schollz/progressbar/v3"
)

var validRoadType = map[string]bool{
	"motorway":       true,
	"trunk":          true,
	"primary":        true,
	"secondary":      true,
	"tertiary":       true,
	"unclassified":   true,
	"residential":    true,
	"motorway_link":  true,
	"trunk_link":     true,
	"primary_link":   true,
	"secondary_link": true,
	"tertiary_link":  true,
	"living_street":  true,
	"road":           true,
	"service":        true,
}

type nodeCoord struct {
	lat float64
	lon float64
}

// OsmParser converts an openstreetmap pbf extract into the node-link graph
// consumed by the engine. Two scans over the file: the first collects the
// node ids of accepted ways, the second reads their coordinates and emits
// the edges.
type OsmParser struct {
	wayNodeMap      map[int64]struct{}
	acceptedNodeMap map[int64]nodeCoord
}

func NewOsmParser() *OsmParser {
	return &OsmParser{
		wayNodeMap:      make(map[int64]struct{}),
		acceptedNodeMap: make(map[int64]nodeCoord),
	}
}

func (p *OsmParser) Parse(mapFile string) ([]datastructure.Node, []datastructure.Edge, error) {
	if err := p.scanWayNodes(mapFile); err != nil {
		return nil, nil, err
	}
	return p.buildGraphData(mapFile)
}

func (p *OsmParser) scanWayNodes(mapFile string) error {
	f, err := os.Open(mapFile)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()

	countWays := 0
	for scanner.Scan() {
		o := scanner.Object()
		way, ok := o.(*osm.Way)
		if !ok {
			continue
		}
		if len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			log.Printf("reading openstreetmap ways: %d...", countWays+1)
		}
		countWays++

		for _, node := range way.Nodes {
			p.wayNodeMap[int64(node.ID)] = struct{}{}
		}
	}
	return scanner.Err()
}

func (p *OsmParser) buildGraphData(mapFile string) ([]datastructure.Node, []datastructure.Edge, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, 0)
	defer scanner.Close()

	bar := progressbar.NewOptions(len(p.wayNodeMap),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]building road graph...[reset]"),
	)

	edges := make([]datastructure.Edge, 0)
	for scanner.Scan() {
		o := scanner.Object()
		switch obj := o.(type) {
		case *osm.Node:
			if _, ok := p.wayNodeMap[int64(obj.ID)]; !ok {
				continue
			}
			p.acceptedNodeMap[int64(obj.ID)] = nodeCoord{lat: obj.Lat, lon: obj.Lon}
			bar.Add(1)
		case *osm.Way:
			if len(obj.Nodes) < 2 || !acceptOsmWay(obj) {
				continue
			}
			p.processWay(obj, &edges)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	nodes := make([]datastructure.Node, 0, len(p.acceptedNodeMap))
	for id, coord := range p.acceptedNodeMap {
		nodes = append(nodes, datastructure.NewNode(id, coord.lat, coord.lon))
	}

	log.Printf("road graph parsed: %d nodes, %d edges", len(nodes), len(edges))
	return nodes, edges, nil
}

// processWay emits one directed edge per consecutive node pair, plus the
// reverse edge when the way is not oneway. Edge weight is the geodesic
// segment length in meters.
func (p *OsmParser) processWay(way *osm.Way, edges *[]datastructure.Edge) {
	oneway := isOneWay(way)

	for i := 0; i < len(way.Nodes)-1; i++ {
		fromID := int64(way.Nodes[i].ID)
		toID := int64(way.Nodes[i+1].ID)

		from, okFrom := p.acceptedNodeMap[fromID]
		to, okTo := p.acceptedNodeMap[toID]
		if !okFrom || !okTo {
			continue
		}

		weight := geo.HaversineMeters(from.lat, from.lon, to.lat, to.lon)
		*edges = append(*edges, datastructure.Edge{From: fromID, To: toID, Weight: weight})
		if !oneway {
			*edges = append(*edges, datastructure.Edge{From: toID, To: fromID, Weight: weight})
		}
	}
}

func isOneWay(way *osm.Way) bool {
	v := way.Tags.Find("oneway")
	return v == "yes" || v == "1" || v == "true"
}

func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	if highway == "" {
		return false
	}
	return validRoadType[highway]
}
