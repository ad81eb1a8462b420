// Package compose assembles the final response from pipeline outputs.
package compose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
	"github.com/kailas-cloud/oceanq/internal/domain/response"
	"github.com/kailas-cloud/oceanq/internal/domain/stats"
)

// CaveatNoMatches is added when no profile matched the plan.
const CaveatNoMatches = "no profiles matched the query"

// Input carries everything the composer reads.
type Input struct {
	Intent     intent.QueryIntent
	Plan       plan.FetchPlan
	Candidates []profile.Candidate
	MatchCount int
	Limit      int
	// Loaded lists candidates whose measurements reached the aggregates.
	Loaded      []string
	Aggregates  map[domain.Variable]*stats.AggregateStat
	SkipCount   int
	SkipReasons map[string]int
	// Caveats from earlier stages, in order.
	Caveats []string
}

// Compose builds the response. It is pure; Meta carries only the fingerprint.
func Compose(in Input) response.Response {
	resp := response.Response{
		Summary:            summarize(in),
		Measurements:       make(map[string]*stats.AggregateStat, len(in.Aggregates)),
		QueryUnderstanding: understanding(in.Intent),
		FiltersApplied:     FiltersApplied(in.Intent),
		Provenance: response.Provenance{
			CandidateIDs:   append([]string{}, in.Loaded...),
			Plan:           in.Plan,
			SkipCount:      in.SkipCount,
			SimilarityUsed: similarityUsed(in.Candidates),
		},
		Caveats: caveats(in),
		Meta:    response.Meta{Fingerprint: in.Intent.Fingerprint()},
	}
	for v, st := range in.Aggregates {
		resp.Measurements[string(v)] = st
	}
	resp.Confidence = Confidence(in.Intent, len(in.Loaded), in.MatchCount, in.Limit)
	return resp
}

// Confidence is the intent factor times the coverage factor. The intent factor
// is 1 when no slot was attempted; coverage is 0 when nothing matched.
func Confidence(qi intent.QueryIntent, sampled, matchCount, limit int) float64 {
	factor, ok := qi.Confidence()
	if !ok {
		factor = 1
	}
	denom := min(matchCount, limit)
	if denom <= 0 {
		return 0
	}
	coverage := float64(sampled) / float64(denom)
	coverage = max(0, min(coverage, 1))
	return factor * coverage
}

// FiltersApplied lists the non-default slots in region, time, depth,
// variables, query-type, keywords order.
func FiltersApplied(qi intent.QueryIntent) []string {
	out := []string{}
	if r := qi.Region(); r != nil {
		out = append(out, "region: "+r.Label())
	}
	if tr := qi.TimeRange(); tr != nil {
		out = append(out, "time: "+tr.String())
	}
	if dr := qi.DepthRange(); dr != nil {
		out = append(out, "depth: "+dr.String())
	}
	if vars := qi.Variables(); len(vars) > 0 {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = string(v)
		}
		out = append(out, "variables: "+strings.Join(names, ", "))
	}
	if qi.QueryTypeDetected() {
		types := qi.QueryTypes()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		out = append(out, "query_type: "+strings.Join(names, ", "))
	}
	if kws := qi.KeywordTerms(); len(kws) > 0 {
		out = append(out, "keywords: "+strings.Join(kws, ", "))
	}
	return out
}

func summarize(in Input) response.Summary {
	s := response.Summary{
		TotalProfiles:   len(in.Candidates),
		MatchedProfiles: in.MatchCount,
		SampledProfiles: len(in.Loaded),
		Institutions:    response.Institutions{Names: []string{}},
	}
	if len(in.Candidates) == 0 {
		return s
	}

	first, last := in.Candidates[0].Time, in.Candidates[0].Time
	coords := make([]geom.Coord, 0, len(in.Candidates))
	names := make(map[string]struct{})
	for _, c := range in.Candidates {
		if c.Time.Before(first) {
			first = c.Time
		}
		if c.Time.After(last) {
			last = c.Time
		}
		coords = append(coords, geom.Coord{c.Lon, c.Lat})
		if c.Institution != "" {
			names[c.Institution] = struct{}{}
		}
	}

	s.DateRange = &response.DateRange{Start: first.UTC(), End: last.UTC()}
	box, _ := geo.Enclosing(coords)
	centerLat, centerLon := box.Center()
	s.GeographicBounds = &response.GeographicBounds{
		LatitudeRange:  [2]float64{box.MinLat, box.MaxLat},
		LongitudeRange: [2]float64{box.MinLon, box.MaxLon},
		Center:         response.LatLon{Lat: centerLat, Lon: centerLon},
	}
	for n := range names {
		s.Institutions.Names = append(s.Institutions.Names, n)
	}
	sort.Strings(s.Institutions.Names)
	s.Institutions.Count = len(s.Institutions.Names)
	return s
}

func understanding(qi intent.QueryIntent) response.QueryUnderstanding {
	u := response.QueryUnderstanding{
		RawText:          qi.RawText(),
		QueryTypes:       qi.QueryTypes(),
		Region:           qi.Region(),
		TimeRange:        qi.TimeRange(),
		DepthRange:       qi.DepthRange(),
		Variables:        qi.Variables(),
		KeywordTerms:     qi.KeywordTerms(),
		DescriptiveTerms: qi.DescriptiveTerms(),
		SlotConfidences:  qi.SlotConfidences(),
	}
	if u.Variables == nil {
		u.Variables = []domain.Variable{}
	}
	if c, ok := qi.Confidence(); ok {
		u.Confidence = &c
	}
	return u
}

func caveats(in Input) []string {
	out := append([]string{}, in.Caveats...)
	if len(in.Candidates) == 0 {
		return append(out, CaveatNoMatches)
	}
	if in.SkipCount > 0 {
		attempted := in.SkipCount + len(in.Loaded)
		out = append(out, fmt.Sprintf("%d of %d sampled profile archives could not be read and were skipped (%s)",
			in.SkipCount, attempted, formatReasons(in.SkipReasons)))
	}
	if len(in.Loaded) > 0 {
		var absent []string
		for _, v := range in.Intent.Variables() {
			if _, ok := in.Aggregates[v]; !ok {
				absent = append(absent, string(v))
			}
		}
		if len(absent) > 0 {
			out = append(out, "no quality-controlled measurements were available for: "+strings.Join(absent, ", "))
		}
	}
	return out
}

func formatReasons(reasons map[string]int) string {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %d", k, reasons[k])
	}
	return strings.Join(parts, ", ")
}

func similarityUsed(cands []profile.Candidate) bool {
	for _, c := range cands {
		if c.Source == profile.SourceSimilarity {
			return true
		}
	}
	return false
}
