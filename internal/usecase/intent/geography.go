package intent

import (
	"regexp"
	"strconv"

	"github.com/kailas-cloud/oceanq/internal/domain/geo"
)

const (
	coordHalfDeg   = 5.0
	confExplicit   = 1.0
	confNamedPlace = 0.9
)

const num = `(-?\d+(?:\.\d+)?)`

var (
	reCoord = regexp.MustCompile(num + `\s*°?\s*([ns])[\s,]*` + num + `\s*°?\s*([ew])\b`)

	reRadius = regexp.MustCompile(`\bwithin\s+(\d+(?:\.\d+)?)\s*(?:km|kilometers|kilometres)\s+of\s+` +
		num + `\s*°?\s*([ns])[\s,]*` + num + `\s*°?\s*([ew])\b`)

	reBox = regexp.MustCompile(`\blat(?:itude)?\s*` + num + `\s*([ns])?\s*(?:to|-|and)\s*` + num + `\s*([ns])?` +
		`[\s,]*(?:and\s+)?lon(?:gitude)?\s*` + num + `\s*([ew])?\s*(?:to|-|and)\s*` + num + `\s*([ew])?`)
)

// extractGeography resolves an explicit box, a radius, a coordinate pair or a
// named region, in that order of precedence.
func extractGeography(lower string) (*geo.Region, passResult) {
	var spans []span
	named, hasNamed := geo.FindRegion(lower)
	if hasNamed {
		spans = append(spans, span{named.Start, named.End})
	}

	if m := reBox.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		lat1, lat2 := signed(g[1], g[2], "s"), signed(g[3], g[4], "s")
		lon1, lon2 := signed(g[5], g[6], "w"), signed(g[7], g[8], "w")
		if lat1 > lat2 {
			lat1, lat2 = lat2, lat1
		}
		r := &geo.Region{BBox: geo.NewBBox(lat1, lat2, lon1, lon2)}
		return r, matched(confExplicit, append(spans, span{m[0], m[1]})...)
	}

	if m := reRadius.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		km, _ := strconv.ParseFloat(g[1], 64)
		lat, lon := signed(g[2], g[3], "s"), signed(g[4], g[5], "w")
		r := &geo.Region{BBox: geo.RadiusBox(lat, lon, km)}
		return r, matched(confExplicit, append(spans, span{m[0], m[1]})...)
	}

	if m := reCoord.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		lat, lon := signed(g[1], g[2], "s"), signed(g[3], g[4], "w")
		r := &geo.Region{BBox: geo.Around(lat, lon, coordHalfDeg)}
		return r, matched(confExplicit, append(spans, span{m[0], m[1]})...)
	}

	if hasNamed {
		r := named.Region
		return &r, matched(confNamedPlace, spans...)
	}
	return nil, passResult{}
}

// groups returns submatch strings; unmatched groups are empty.
func groups(s string, idx []int) []string {
	out := make([]string, len(idx)/2)
	for i := range out {
		if idx[2*i] >= 0 {
			out[i] = s[idx[2*i]:idx[2*i+1]]
		}
	}
	return out
}

// signed parses a degree value, negating it for the southern or western hemisphere.
func signed(value, hemi, negative string) float64 {
	v, _ := strconv.ParseFloat(value, 64)
	if hemi == negative {
		return -v
	}
	return v
}
