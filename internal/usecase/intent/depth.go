package intent

import (
	"regexp"
	"strconv"

	"github.com/kailas-cloud/oceanq/internal/domain/intent"
)

const (
	confDepthRange   = 1.0
	confDepthBound   = 0.9
	confDepthPoint   = 0.8
	confDepthKeyword = 0.8
	confDepthDeep    = 0.7
	// pointTolerance widens "at N m" into a band.
	pointTolerance = 0.1
)

const (
	depthNum  = `(\d+(?:\.\d+)?)`
	depthUnit = `\s*(?:m|meters|metres|dbar)\b`
)

var (
	reDepthRange = regexp.MustCompile(`\b(?:between\s+)?` + depthNum + `\s*(?:m\s*)?(?:-|to|and)\s*` + depthNum + depthUnit)
	reDepthBelow = regexp.MustCompile(`\b(?:below|deeper\s+than|beneath|under)\s+` + depthNum + depthUnit)
	reDepthAbove = regexp.MustCompile(`\b(?:above|shallower\s+than|less\s+than|upper)\s+` + depthNum + depthUnit)
	reDepthAt    = regexp.MustCompile(`\bat\s+(?:a\s+depth\s+of\s+)?` + depthNum + depthUnit)

	reSurface     = regexp.MustCompile(`\b(?:near[\s-])?surface\b|\bmixed\s+layer\b|\bupper\s+ocean\b`)
	reThermocline = regexp.MustCompile(`\bthermocline\b`)
	reDeep        = regexp.MustCompile(`\bdeep(?:\s+(?:water|waters|ocean|sea|layer))?\b|\babyssal\b`)
)

// extractDepth resolves numeric ranges first, then depth keywords mapped onto the configured bands.
func (e *Extractor) extractDepth(lower string) (*intent.DepthRange, passResult) {
	if m := reDepthRange.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		dr := intent.NewDepthRange(parseFloat(g[1]), parseFloat(g[2]))
		return &dr, matched(confDepthRange, span{m[0], m[1]})
	}
	if m := reDepthBelow.FindStringSubmatchIndex(lower); m != nil {
		dr := intent.Below(parseFloat(groups(lower, m)[1]))
		return &dr, matched(confDepthBound, span{m[0], m[1]})
	}
	if m := reDepthAbove.FindStringSubmatchIndex(lower); m != nil {
		dr := intent.NewDepthRange(0, parseFloat(groups(lower, m)[1]))
		return &dr, matched(confDepthBound, span{m[0], m[1]})
	}
	if m := reDepthAt.FindStringSubmatchIndex(lower); m != nil {
		d := parseFloat(groups(lower, m)[1])
		dr := intent.NewDepthRange(d*(1-pointTolerance), d*(1+pointTolerance))
		return &dr, matched(confDepthPoint, span{m[0], m[1]})
	}

	if m := reSurface.FindStringIndex(lower); m != nil {
		dr := intent.NewDepthRange(0, e.surfaceMax)
		return &dr, matched(confDepthKeyword, span{m[0], m[1]})
	}
	if m := reThermocline.FindStringIndex(lower); m != nil {
		dr := intent.NewDepthRange(e.surfaceMax, e.thermoclineMax)
		return &dr, matched(confDepthKeyword, span{m[0], m[1]})
	}
	if m := reDeep.FindStringIndex(lower); m != nil {
		dr := intent.Below(e.thermoclineMax)
		return &dr, matched(confDepthDeep, span{m[0], m[1]})
	}
	return nil, passResult{}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
