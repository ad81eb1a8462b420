// Package geo holds geographic bounding boxes and the named ocean region table.
package geo

import (
	"fmt"
	"math"
	"slices"

	"github.com/twpayne/go-geom"
)

// EarthRadiusMeters is the mean radius of Earth.
const EarthRadiusMeters = 6_371_000.0

// BBox is a latitude/longitude box in degrees.
// MinLon > MaxLon means the box crosses the antimeridian.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// NewBBox clamps latitudes, swaps them if inverted and wraps longitudes into [-180, 180].
// Longitudes are never swapped: an inverted pair denotes an antimeridian crossing.
func NewBBox(minLat, maxLat, minLon, maxLon float64) BBox {
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	return BBox{
		MinLat: clamp(minLat, -90, 90),
		MaxLat: clamp(maxLat, -90, 90),
		MinLon: wrapLon(minLon),
		MaxLon: wrapLon(maxLon),
	}
}

// World returns the whole-globe box.
func World() BBox {
	return BBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
}

// Around returns a box of halfDeg degrees on each side of a point.
func Around(lat, lon, halfDeg float64) BBox {
	return NewBBox(lat-halfDeg, lat+halfDeg, lon-halfDeg, lon+halfDeg)
}

// RadiusBox returns the box enclosing a circle of radiusKm around a point.
func RadiusBox(lat, lon, radiusKm float64) BBox {
	dLat := radiusKm * 1000 / EarthRadiusMeters * 180 / math.Pi
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 1e-6 {
		return NewBBox(lat-dLat, lat+dLat, -180, 180)
	}
	dLon := dLat / cos
	if dLon >= 180 {
		return NewBBox(lat-dLat, lat+dLat, -180, 180)
	}
	return NewBBox(lat-dLat, lat+dLat, lon-dLon, lon+dLon)
}

// Enclosing returns the narrowest box holding every coordinate (x = lon, y = lat).
// The box crosses the antimeridian when that is narrower than the direct span.
// ok is false for no coordinates.
func Enclosing(coords []geom.Coord) (box BBox, ok bool) {
	if len(coords) == 0 {
		return BBox{}, false
	}
	minLat, maxLat := coords[0].Y(), coords[0].Y()
	lons := make([]float64, len(coords))
	for i, c := range coords {
		minLat = math.Min(minLat, c.Y())
		maxLat = math.Max(maxLat, c.Y())
		lons[i] = wrapLon(c.X())
	}
	slices.Sort(lons)

	// The box is the complement of the widest empty arc between neighbours.
	n := len(lons)
	box = BBox{MinLat: minLat, MaxLat: maxLat, MinLon: lons[0], MaxLon: lons[n-1]}
	widest := lons[0] + 360 - lons[n-1]
	for i := 0; i+1 < n; i++ {
		if gap := lons[i+1] - lons[i]; gap > widest {
			widest = gap
			box.MinLon, box.MaxLon = lons[i+1], lons[i]
		}
	}
	return box, true
}

// CrossesAntimeridian reports whether the box wraps across 180°.
func (b BBox) CrossesAntimeridian() bool { return b.MinLon > b.MaxLon }

// Parts splits the box into one or two go-geom bounds (x = lon, y = lat).
func (b BBox) Parts() []*geom.Bounds {
	if !b.CrossesAntimeridian() {
		return []*geom.Bounds{geom.NewBounds(geom.XY).Set(b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)}
	}
	return []*geom.Bounds{
		geom.NewBounds(geom.XY).Set(b.MinLon, b.MinLat, 180, b.MaxLat),
		geom.NewBounds(geom.XY).Set(-180, b.MinLat, b.MaxLon, b.MaxLat),
	}
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b BBox) Contains(lat, lon float64) bool {
	pt := geom.Coord{wrapLon(lon), lat}
	for _, part := range b.Parts() {
		if part.OverlapsPoint(geom.XY, pt) {
			return true
		}
	}
	return false
}

// Center returns the box midpoint, honoring antimeridian wrap.
func (b BBox) Center() (lat, lon float64) {
	lat = (b.MinLat + b.MaxLat) / 2
	if !b.CrossesAntimeridian() {
		return lat, (b.MinLon + b.MaxLon) / 2
	}
	span := 360 - b.MinLon + b.MaxLon
	return lat, wrapLon(b.MinLon + span/2)
}

// Rounded returns the box with every edge rounded to the given decimal places.
func (b BBox) Rounded(places int) BBox {
	p := math.Pow(10, float64(places))
	r := func(v float64) float64 { return math.Round(v*p) / p }
	return BBox{MinLat: r(b.MinLat), MaxLat: r(b.MaxLat), MinLon: r(b.MinLon), MaxLon: r(b.MaxLon)}
}

// IsWorld reports whether the box covers the whole globe.
func (b BBox) IsWorld() bool { return b == World() }

func (b BBox) String() string {
	return fmt.Sprintf("lat [%g, %g] lon [%g, %g]", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func wrapLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
