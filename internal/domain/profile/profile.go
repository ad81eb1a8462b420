// Package profile holds retrieved profile references and their measurement arrays.
package profile

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain"
)

// Source tells which plan produced a candidate.
type Source string

// Source constants.
const (
	SourceStructured Source = "structured"
	SourceSimilarity Source = "similarity"
)

// Candidate is one retrieved profile reference.
type Candidate struct {
	ID                 string            `json:"id"`
	Lat                float64           `json:"lat"`
	Lon                float64           `json:"lon"`
	Time               time.Time         `json:"time"`
	DepthMin           float64           `json:"depth_min"`
	DepthMax           float64           `json:"depth_max"`
	Institution        string            `json:"institution,omitempty"`
	PlatformNumber     string            `json:"platform_number,omitempty"`
	MeasurementPath    string            `json:"measurement_path"`
	VariablesAvailable []domain.Variable `json:"variables_available,omitempty"`
	MatchScore         float64           `json:"match_score"`
	DataQualityScore   *float64          `json:"data_quality_score,omitempty"`
	Source             Source            `json:"source"`
}

// Series is one variable's arrays as read from an archive.
type Series struct {
	Values []float64
	Depths []float64
	QCMask []bool
}

// MeasurementSample is one candidate's arrays for one variable.
type MeasurementSample struct {
	CandidateID string
	Variable    domain.Variable
	Values      []float64
	Depths      []float64
	QCMask      []bool
}

// Validate enforces equal array lengths.
func (s MeasurementSample) Validate() error {
	if len(s.Values) != len(s.Depths) || len(s.Values) != len(s.QCMask) {
		return fmt.Errorf("sample %s/%s: values=%d depths=%d qc=%d: %w",
			s.CandidateID, s.Variable, len(s.Values), len(s.Depths), len(s.QCMask),
			domain.ErrArchiveUnreadable)
	}
	return nil
}
