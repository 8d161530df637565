package geo

import (
	"banyu/routegraph/pkg/datastructure"
	"banyu/routegraph/pkg/util"

	"github.com/golang/geo/s2"
)

// ProjectPointToLineCoord projects snap onto the segment between the two
// street points and returns the projection coordinate. s2.Project clamps the
// projection to the segment, so the result never falls outside the edge.
func ProjectPointToLineCoord(nearestStPoint, secondNearestStPoint datastructure.Coordinate,
	snap datastructure.Coordinate) datastructure.Coordinate {
	nearestStPoint = makeSixDigitsAfterComa(nearestStPoint, 6)
	secondNearestStPoint = makeSixDigitsAfterComa(secondNearestStPoint, 6)
	snap = makeSixDigitsAfterComa(snap, 6)

	nearestStS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(nearestStPoint.Lat, nearestStPoint.Lon))
	secondNearestStS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(secondNearestStPoint.Lat, secondNearestStPoint.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))

	projection := s2.Project(snapS2, nearestStS2, secondNearestStS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return datastructure.NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// PointToSegmentDistance returns the distance in meters from a query point to
// its clamped projection on the segment (from, to).
func PointToSegmentDistance(query, from, to datastructure.Coordinate) float64 {
	proj := ProjectPointToLineCoord(from, to, query)
	return HaversineMeters(query.Lat, query.Lon, proj.Lat, proj.Lon)
}

func makeSixDigitsAfterComa(n datastructure.Coordinate, precision int) datastructure.Coordinate {
	if util.CountDecimalPlacesF64(n.Lat) != precision {
		n.Lat = util.RoundFloat(n.Lat+0.000001, 6)
	}
	if util.CountDecimalPlacesF64(n.Lon) != precision {
		n.Lon = util.RoundFloat(n.Lon+0.000001, 6)
	}
	return n
}
