package kv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"

	"banyu/routegraph/pkg/concurrent"
	"banyu/routegraph/pkg/datastructure"

	"github.com/uber/h3-go/v4"
)

var (
	ErrEdgesNotFound = errors.New("edges not found")
	ErrKeyNotFound   = errors.New("key not found")
)

const (
	// h3 resolution 9 cells are ~170m across, about the radius a snapping
	// query cares about.
	h3IndexResolution = 9

	writeBatchSize = 1000
)

// KVEdge is the road segment record stored per h3 cell, enough to rebuild a
// graph edge and its endpoint coordinates for precise projection.
type KVEdge struct {
	FromNodeID int64
	ToNodeID   int64
	FromLoc    [2]float64 // [lat, lon]
	ToLoc      [2]float64
	Weight     float64
}

func (e KVEdge) toEdge() datastructure.Edge {
	return datastructure.Edge{From: e.FromNodeID, To: e.ToNodeID, Weight: e.Weight}
}

// Store is the kv backend: badger by default, pebble as the alternative.
type Store interface {
	Get(key []byte) ([]byte, error)
	SetBatch(pairs []KVPair) error
	Close() error
}

type KVPair struct {
	Key   []byte
	Value []byte
}

type KVDB struct {
	store Store
}

func NewKVDB(store Store) *KVDB {
	return &KVDB{store: store}
}

func (k *KVDB) Close() error {
	return k.store.Close()
}

// BuildIndexedEdges groups every road segment by the h3 cell of its midpoint
// and writes the cell buckets to the kv store. Run once at preprocessing
// time; the engine only reads.
func (k *KVDB) BuildIndexedEdges(ctx context.Context, g *datastructure.Graph) error {
	log.Printf("creating & saving h3 indexed road segments to key-value db...")

	buckets := make(map[string][]KVEdge)
	for _, e := range g.GetEdges() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}

		fromNode, okFrom := g.GetNode(e.From)
		toNode, okTo := g.GetNode(e.To)
		if !okFrom || !okTo {
			continue
		}

		centerLat := (fromNode.Lat + toNode.Lat) / 2
		centerLon := (fromNode.Lon + toNode.Lon) / 2

		cell := h3.LatLngToCell(h3.NewLatLng(centerLat, centerLon), h3IndexResolution)
		buckets[cell.String()] = append(buckets[cell.String()], KVEdge{
			FromNodeID: e.From,
			ToNodeID:   e.To,
			FromLoc:    [2]float64{fromNode.Lat, fromNode.Lon},
			ToLoc:      [2]float64{toNode.Lat, toNode.Lon},
			Weight:     e.Weight,
		})
	}

	type cellBucket struct {
		key   string
		edges []KVEdge
	}
	jobs := make([]cellBucket, 0, len(buckets))
	for key, edges := range buckets {
		jobs = append(jobs, cellBucket{key: key, edges: edges})
	}

	// encoding + compression is cpu bound, fan it out before the sequential
	// batched writes
	pairs := concurrent.DistributeJobs(runtime.NumCPU(), jobs, func(job cellBucket) KVPair {
		val, err := encodeEdges(job.edges)
		if err != nil {
			log.Printf("encode cell %s failed: %v", job.key, err)
			return KVPair{}
		}
		return KVPair{Key: []byte(job.key), Value: val}
	})

	batch := make([]KVPair, 0, writeBatchSize)
	for _, pair := range pairs {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}
		if pair.Key == nil {
			continue
		}
		batch = append(batch, pair)
		if len(batch) == writeBatchSize {
			if err := k.store.SetBatch(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := k.store.SetBatch(batch); err != nil {
			return err
		}
	}

	log.Printf("creating & saving h3 indexed road segments to key-value db done... (%d cells)", len(buckets))
	return nil
}

// NearestEdgesFromPoint returns the candidate road segments in the query
// point's h3 cell and its immediate neighbor ring.
func (k *KVDB) NearestEdgesFromPoint(lat, lon float64) ([]datastructure.Edge, error) {
	origin := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3IndexResolution)
	cells := h3.GridDisk(origin, 1)

	edges := make([]datastructure.Edge, 0)
	for _, cell := range cells {
		val, err := k.store.Get([]byte(cell.String()))
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		kvEdges, err := loadEdges(val)
		if err != nil {
			return nil, err
		}
		for _, e := range kvEdges {
			edges = append(edges, e.toEdge())
		}
	}

	if len(edges) == 0 {
		return nil, ErrEdgesNotFound
	}
	return edges, nil
}
