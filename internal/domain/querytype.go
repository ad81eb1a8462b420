package domain

import "sort"

// QueryType classifies what the question asks for.
type QueryType string

// Query type constants.
const (
	QueryCount         QueryType = "count"
	QuerySummary       QueryType = "summary"
	QueryComparison    QueryType = "comparison"
	QueryTemporal      QueryType = "temporal"
	QuerySpatial       QueryType = "spatial"
	QueryQualityCheck  QueryType = "quality_check"
	QueryExport        QueryType = "export"
	QueryAnalysis      QueryType = "analysis"
	QueryVisualization QueryType = "visualization"
)

// IsValid checks if the query type is one of the supported values.
func (q QueryType) IsValid() bool {
	switch q {
	case QueryCount, QuerySummary, QueryComparison, QueryTemporal, QuerySpatial,
		QueryQualityCheck, QueryExport, QueryAnalysis, QueryVisualization:
		return true
	}
	return false
}

// SortQueryTypes returns a sorted, deduplicated copy.
func SortQueryTypes(qs []QueryType) []QueryType {
	seen := make(map[QueryType]struct{}, len(qs))
	out := make([]QueryType, 0, len(qs))
	for _, q := range qs {
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
