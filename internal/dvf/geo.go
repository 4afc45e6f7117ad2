package dvf

import (
	"github.com/paulmach/orb"

	"immoval/server/internal/models"
)

// GeoSummary locates a comparable set on the map: the centroid and
// bounding box of every geolocated row. Used by the report's map inset.
type GeoSummary struct {
	Centroid struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
	} `json:"centroid"`
	MinLongitude float64 `json:"min_longitude"`
	MinLatitude  float64 `json:"min_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	Located      int     `json:"located"`
}

// Locate returns nil when no comparable carries coordinates.
func Locate(comparables []models.Comparable) *GeoSummary {
	var points orb.MultiPoint
	for _, c := range comparables {
		if c.Longitude != nil && c.Latitude != nil {
			points = append(points, orb.Point{*c.Longitude, *c.Latitude})
		}
	}
	if len(points) == 0 {
		return nil
	}

	var sumLon, sumLat float64
	for _, p := range points {
		sumLon += p.Lon()
		sumLat += p.Lat()
	}

	bound := points.Bound()
	summary := &GeoSummary{
		MinLongitude: bound.Min.Lon(),
		MinLatitude:  bound.Min.Lat(),
		MaxLongitude: bound.Max.Lon(),
		MaxLatitude:  bound.Max.Lat(),
		Located:      len(points),
	}
	summary.Centroid.Longitude = sumLon / float64(len(points))
	summary.Centroid.Latitude = sumLat / float64(len(points))
	return summary
}
