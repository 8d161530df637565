package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/kv"
	"banyu/routegraph/pkg/osmparser"

	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v4"
)

var (
	mapFile   = flag.String("f", "region.osm.pbf", "openstreetmap pbf extract or node-link json graph dump")
	outFile   = flag.String("o", "graph.json", "output node-link json graph dump")
	kvDir     = flag.String("kvdir", "", "build the h3-indexed road segment kv store into this directory (optional)")
	kvBackend = flag.String("kvbackend", "badger", "kv store backend: badger or pebble")
)

// converts an openstreetmap extract into the node-link graph dump the engine
// loads at startup, and optionally builds the h3 road segment index used for
// snapping on large graphs.
func main() {
	flag.Parse()

	var graph *datastructure.Graph

	if strings.HasSuffix(*mapFile, ".osm.pbf") {
		parser := osmparser.NewOsmParser()
		nodes, edges, err := parser.Parse(*mapFile)
		if err != nil {
			log.Fatal(err)
		}

		graph, err = datastructure.BuildGraph(nodes, edges, true)
		if err != nil {
			log.Fatal(err)
		}

		out, err := os.Create(*outFile)
		if err != nil {
			log.Fatal(err)
		}
		if err := datastructure.WriteGraphDump(out, nodes, edges, true); err != nil {
			out.Close()
			log.Fatal(err)
		}
		out.Close()
		log.Printf("graph dump written to %s", *outFile)
	} else {
		var err error
		graph, err = datastructure.LoadGraphFile(*mapFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	if *kvDir == "" {
		return
	}

	kvDB, err := openKV(*kvBackend, *kvDir)
	if err != nil {
		log.Fatal(err)
	}
	defer kvDB.Close()

	if err := kvDB.BuildIndexedEdges(context.Background(), graph); err != nil {
		log.Fatal(err)
	}
}

func openKV(backend, dir string) (*kv.KVDB, error) {
	switch backend {
	case "pebble":
		db, err := pebble.Open(dir, &pebble.Options{})
		if err != nil {
			return nil, err
		}
		return kv.NewKVDB(kv.NewPebbleStore(db)), nil
	default:
		db, err := badger.Open(badger.DefaultOptions(dir))
		if err != nil {
			return nil, err
		}
		return kv.NewKVDB(kv.NewBadgerStore(db)), nil
	}
}
