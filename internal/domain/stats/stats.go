// Package stats holds aggregate statistics over pooled measurements.
package stats

// Percentiles are nearest-rank percentiles.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// LayerStat summarizes one depth band.
type LayerStat struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// AggregateStat summarizes one variable across all sampled candidates.
// Empty bands are nil.
type AggregateStat struct {
	Unit              string      `json:"unit"`
	Count             int         `json:"count"`
	MissingCount      int         `json:"missing_count"`
	Mean              float64     `json:"mean"`
	Min               float64     `json:"min"`
	Max               float64     `json:"max"`
	StdDev            float64     `json:"std_dev"`
	Percentiles       Percentiles `json:"percentiles"`
	Surface           *LayerStat  `json:"surface_layer,omitempty"`
	Thermocline       *LayerStat  `json:"thermocline_layer,omitempty"`
	Deep              *LayerStat  `json:"deep_layer,omitempty"`
	AnomalyCount      int         `json:"anomaly_count"`
	AnomalousProfiles int         `json:"anomalous_profiles"`
	Profiles          int         `json:"profiles"`
}
