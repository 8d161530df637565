package datastructure

import (
	"github.com/twpayne/go-polyline"
)

// CreatePolyline encodes a path's coordinates as a google polyline string for
// the response body.
func CreatePolyline(coords []Coordinate) string {
	latLons := make([][]float64, 0, len(coords))
	for _, c := range coords {
		latLons = append(latLons, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(latLons))
}
