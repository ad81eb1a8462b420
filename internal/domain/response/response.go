// Package response defines the answer returned to the surrounding service.
package response

import (
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
	"github.com/kailas-cloud/oceanq/internal/domain/plan"
	"github.com/kailas-cloud/oceanq/internal/domain/stats"
)

// Response is the full answer to one question.
type Response struct {
	Summary            Summary                         `json:"summary"`
	Measurements       map[string]*stats.AggregateStat `json:"measurements"`
	QueryUnderstanding QueryUnderstanding              `json:"query_understanding"`
	Confidence         float64                         `json:"confidence"`
	FiltersApplied     []string                        `json:"filters_applied"`
	Provenance         Provenance                      `json:"provenance"`
	Caveats            []string                        `json:"caveats"`
	Meta               Meta                            `json:"meta"`
}

// Summary describes the candidate population.
type Summary struct {
	TotalProfiles    int               `json:"total_profiles"`
	MatchedProfiles  int               `json:"matched_profiles"`
	SampledProfiles  int               `json:"sampled_profiles"`
	DateRange        *DateRange        `json:"date_range,omitempty"`
	GeographicBounds *GeographicBounds `json:"geographic_bounds,omitempty"`
	Institutions     Institutions      `json:"institutions"`
}

// DateRange spans the candidate timestamps (inclusive).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// GeographicBounds spans the candidate positions. A longitude range whose
// first value exceeds the second crosses the antimeridian.
type GeographicBounds struct {
	LatitudeRange  [2]float64 `json:"latitude_range"`
	LongitudeRange [2]float64 `json:"longitude_range"`
	Center         LatLon     `json:"center"`
}

// LatLon is a point in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Institutions lists distinct contributing institutions.
type Institutions struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// QueryUnderstanding echoes the interpreted intent.
type QueryUnderstanding struct {
	RawText          string                  `json:"raw_text"`
	QueryTypes       []domain.QueryType      `json:"query_types"`
	Region           *geo.Region             `json:"region,omitempty"`
	TimeRange        *intent.TimeRange       `json:"time_range,omitempty"`
	DepthRange       *intent.DepthRange      `json:"depth_range,omitempty"`
	Variables        []domain.Variable       `json:"variables"`
	KeywordTerms     []string                `json:"keyword_terms,omitempty"`
	DescriptiveTerms []string                `json:"descriptive_terms,omitempty"`
	SlotConfidences  map[intent.Slot]float64 `json:"slot_confidences"`
	// Confidence is nil when no slot grammar matched.
	Confidence *float64 `json:"confidence"`
}

// Provenance records what produced the aggregates.
type Provenance struct {
	CandidateIDs   []string       `json:"candidate_ids"`
	Plan           plan.FetchPlan `json:"plan"`
	SkipCount      int            `json:"skip_count"`
	SimilarityUsed bool           `json:"similarity_used"`
}

// Meta carries per-call metadata that may differ between identical questions.
type Meta struct {
	Fingerprint string     `json:"fingerprint"`
	RequestID   string     `json:"request_id,omitempty"`
	Cached      bool       `json:"cached"`
	HitCount    int64      `json:"hit_count"`
	CachedAt    *time.Time `json:"cached_at,omitempty"`
	ElapsedMS   int64      `json:"elapsed_ms"`
}
