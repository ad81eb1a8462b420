// Package intent holds the structured interpretation of a question.
package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/geo"
)

// Slot names one extractor pass.
type Slot string

// Slot constants.
const (
	SlotRegion    Slot = "region"
	SlotTime      Slot = "time"
	SlotDepth     Slot = "depth"
	SlotVariables Slot = "variables"
	SlotQueryType Slot = "query_type"
)

// Params collects raw extractor output for New.
type Params struct {
	RawText          string
	QueryTypes       []domain.QueryType
	Region           *geo.Region
	TimeRange        *TimeRange
	DepthRange       *DepthRange
	Variables        []domain.Variable
	KeywordTerms     []string
	DescriptiveTerms []string
	// SlotConfidences holds one entry per attempted slot.
	SlotConfidences map[Slot]float64
}

// QueryIntent is an immutable, normalized question interpretation.
type QueryIntent struct {
	rawText     string
	queryTypes  []domain.QueryType
	region      *geo.Region
	timeRange   *TimeRange
	depthRange  *DepthRange
	variables   []domain.Variable
	keywords    []string
	descriptive []string
	slotConf    map[Slot]float64
}

// New normalizes params into an intent. Inverted ranges are swapped, never rejected.
func New(p Params) QueryIntent {
	qi := QueryIntent{
		rawText:     p.RawText,
		queryTypes:  domain.SortQueryTypes(p.QueryTypes),
		variables:   domain.SortVariables(p.Variables),
		keywords:    sortedUnique(p.KeywordTerms),
		descriptive: sortedUnique(p.DescriptiveTerms),
		slotConf:    make(map[Slot]float64, len(p.SlotConfidences)),
	}
	if len(qi.queryTypes) == 0 {
		qi.queryTypes = []domain.QueryType{domain.QuerySummary}
	}
	if p.Region != nil {
		r := *p.Region
		r.BBox = geo.NewBBox(r.BBox.MinLat, r.BBox.MaxLat, r.BBox.MinLon, r.BBox.MaxLon)
		qi.region = &r
	}
	if p.TimeRange != nil {
		tr := NewTimeRange(p.TimeRange.Start, p.TimeRange.End)
		qi.timeRange = &tr
	}
	if p.DepthRange != nil {
		dr := NewDepthRange(p.DepthRange.Min, p.DepthRange.Upper())
		qi.depthRange = &dr
	}
	for s, c := range p.SlotConfidences {
		qi.slotConf[s] = clamp01(c)
	}
	return qi
}

// RawText returns the original question.
func (q QueryIntent) RawText() string { return q.rawText }

// QueryTypes returns the sorted query type set (never empty).
func (q QueryIntent) QueryTypes() []domain.QueryType {
	return append([]domain.QueryType(nil), q.queryTypes...)
}

// HasQueryType reports whether t was detected.
func (q QueryIntent) HasQueryType(t domain.QueryType) bool {
	for _, qt := range q.queryTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// QueryTypeDetected reports whether any query type came from the text rather than the default.
func (q QueryIntent) QueryTypeDetected() bool {
	_, ok := q.slotConf[SlotQueryType]
	return ok
}

// Region returns the resolved region or nil.
func (q QueryIntent) Region() *geo.Region {
	if q.region == nil {
		return nil
	}
	r := *q.region
	return &r
}

// TimeRange returns the resolved time range or nil.
func (q QueryIntent) TimeRange() *TimeRange {
	if q.timeRange == nil {
		return nil
	}
	tr := *q.timeRange
	return &tr
}

// DepthRange returns the resolved depth range or nil.
func (q QueryIntent) DepthRange() *DepthRange {
	if q.depthRange == nil {
		return nil
	}
	dr := *q.depthRange
	return &dr
}

// Variables returns the sorted variable set; empty means all available.
func (q QueryIntent) Variables() []domain.Variable {
	return append([]domain.Variable(nil), q.variables...)
}

// KeywordTerms returns institution and platform tokens.
func (q QueryIntent) KeywordTerms() []string { return append([]string(nil), q.keywords...) }

// DescriptiveTerms returns free-form words no slot grammar consumed.
func (q QueryIntent) DescriptiveTerms() []string { return append([]string(nil), q.descriptive...) }

// SlotConfidences returns per-slot confidences for attempted slots.
func (q QueryIntent) SlotConfidences() map[Slot]float64 {
	out := make(map[Slot]float64, len(q.slotConf))
	for k, v := range q.slotConf {
		out[k] = v
	}
	return out
}

// Confidence is the mean over attempted slots. ok is false when nothing was attempted.
func (q QueryIntent) Confidence() (float64, bool) {
	if len(q.slotConf) == 0 {
		return 0, false
	}
	var sum float64
	for _, c := range q.slotConf {
		sum += c
	}
	return sum / float64(len(q.slotConf)), true
}

// StrongFilterCount counts the set slots among region, time and depth.
func (q QueryIntent) StrongFilterCount() int {
	n := 0
	if q.region != nil {
		n++
	}
	if q.timeRange != nil {
		n++
	}
	if q.depthRange != nil {
		n++
	}
	return n
}

// Fingerprint is a stable SHA-256 over the normalized intent.
// Raw text and confidences do not participate.
func (q QueryIntent) Fingerprint() string {
	var b strings.Builder
	b.WriteString("v1|")
	if q.region != nil {
		r := q.region.BBox.Rounded(4)
		fmt.Fprintf(&b, "bbox=%g,%g,%g,%g|", r.MinLat, r.MaxLat, r.MinLon, r.MaxLon)
	}
	if q.timeRange != nil {
		fmt.Fprintf(&b, "time=%s,%s|",
			q.timeRange.Start.Format(time.RFC3339), q.timeRange.End.Format(time.RFC3339))
	}
	if q.depthRange != nil {
		fmt.Fprintf(&b, "depth=%g,%g|", q.depthRange.Min, q.depthRange.Upper())
	}
	b.WriteString("vars=")
	for _, v := range q.variables {
		b.WriteString(string(v) + ",")
	}
	b.WriteString("|types=")
	for _, t := range q.queryTypes {
		b.WriteString(string(t) + ",")
	}
	b.WriteString("|kw=" + strings.Join(q.keywords, ","))
	b.WriteString("|desc=" + strings.Join(q.descriptive, ","))

	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:])
}

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
