package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"

	_ "banyu/routegraph/docs"
	"banyu/routegraph/pkg/cache"
	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/engine/routingalgorithm"
	"banyu/routegraph/pkg/kv"
	"banyu/routegraph/pkg/server/rest"
	"banyu/routegraph/pkg/server/rest/service"
	"banyu/routegraph/pkg/snap"

	"github.com/cockroachdb/pebble"
	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	listenAddr = flag.String("listenaddr", ":5000", "server listen address")
	graphFile  = flag.String("f", "graph.json", "node-link json graph dump for the road network")
	kvDir      = flag.String("kvdir", "", "directory of the h3-indexed road segment kv store (optional, built by the preprocessing command)")
	kvBackend  = flag.String("kvbackend", "badger", "kv store backend: badger or pebble")
	cacheCap   = flag.Int("cachecap", cache.DefaultCapacity, "result cache capacity (single-source tables)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

//	@title			routegraph API
//	@version		1.0
//	@description	shortest path routing engine over a static road graph

//	@description 	dijkstra shortest path over a node-link road graph, with arbitrary coordinates projected onto the nearest road segment

//	@license.name	GNU Affero General Public License v3.0
//	@license.url	https://www.gnu.org/licenses/gpl-3.0.en.html

// @host		localhost:5000
// @BasePath	/api
// @schemes	http
func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	graph, err := datastructure.LoadGraphFile(*graphFile)
	if err != nil {
		// the process must not serve traffic with a partially loaded graph
		log.Fatal(err)
	}
	log.Printf("graph loaded: %d nodes", graph.GetNumNodes())

	recordMemProfile(memprofile, "load_graph")

	snapper := snap.NewRoadSnapper(graph)

	if *kvDir != "" {
		kvDB, err := openKV(*kvBackend, *kvDir)
		if err != nil {
			log.Fatal(err)
		}
		defer kvDB.Close()
		snapper.WithEdgeSource(kvDB)
	}

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(rest.PromeHttpMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:5000/swagger/doc.json"),
	))

	routingAlgorithm := routingalgorithm.NewRouteAlgorithm()
	resultCache := cache.NewRouteCache(*cacheCap)
	rest.RegisterCacheMetrics(reg, resultCache.Stats)

	routerSvc := service.NewRouterService(graph, snapper, routingAlgorithm, resultCache)
	recordMemProfile(memprofile, "service_init")

	rest.NavigatorRouter(r, routerSvc)

	fmt.Printf("\nrouting engine ready!!")
	fmt.Printf("\nserver started at %s\n", *listenAddr)

	log.Fatal(http.ListenAndServe(*listenAddr, r))
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

func recordMemProfile(memprofile *string, name string) {
	if *memprofile != "" {
		*memprofile = strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
