// Package plan describes bounded fetch plans derived from a query intent.
package plan

import (
	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/geo"
	"github.com/kailas-cloud/oceanq/internal/domain/intent"
)

// StructuredPlan is the filter query always issued to the metadata store.
type StructuredPlan struct {
	BBox         geo.BBox           `json:"bbox"`
	TimeRange    intent.TimeRange   `json:"time_range"`
	DepthRange   *intent.DepthRange `json:"depth_range,omitempty"`
	Variables    []domain.Variable  `json:"variables,omitempty"`
	KeywordTerms []string           `json:"keyword_terms,omitempty"`
	Limit        int                `json:"limit"`
}

// SimilarityPlan is the optional vector query for descriptive questions.
type SimilarityPlan struct {
	QueryText           string    `json:"query_text"`
	Embedding           []float32 `json:"-"`
	Dimensions          int       `json:"dimensions"`
	SimilarityThreshold float64   `json:"similarity_threshold"`
	Limit               int       `json:"limit"`
}

// FetchPlan pairs the structured plan with an optional similarity plan.
type FetchPlan struct {
	Structured StructuredPlan  `json:"structured"`
	Similarity *SimilarityPlan `json:"similarity,omitempty"`
}

// Extent is the spatial and temporal coverage of the stored profiles.
type Extent struct {
	BBox      geo.BBox         `json:"bbox"`
	TimeRange intent.TimeRange `json:"time_range"`
}
