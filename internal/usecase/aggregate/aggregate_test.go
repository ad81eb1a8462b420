package aggregate

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

func sample(id string, v domain.Variable, depths, values []float64, qc ...bool) profile.MeasurementSample {
	if qc == nil {
		qc = make([]bool, len(values))
		for i := range qc {
			qc[i] = true
		}
	}
	return profile.MeasurementSample{CandidateID: id, Variable: v, Values: values, Depths: depths, QCMask: qc}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAggregate_PooledStats(t *testing.T) {
	// Per-profile means are 2 and 10; the pooled mean must weight by count.
	samples := []profile.MeasurementSample{
		sample("a", domain.Temperature, []float64{0, 100, 300}, []float64{1, 2, 3}),
		sample("b", domain.Temperature, []float64{1500}, []float64{10}),
	}
	got := New(Options{}).Aggregate(samples)[domain.Temperature]
	if got == nil {
		t.Fatal("expected temperature stat")
	}
	if got.Count != 4 || !near(got.Mean, 4) || got.Min != 1 || got.Max != 10 {
		t.Errorf("unexpected stat %+v", got)
	}
	// population std of {1,2,3,10}: mean 4, squared deviations 9+4+1+36 = 50
	if !near(got.StdDev, math.Sqrt(50.0/4)) {
		t.Errorf("std = %v", got.StdDev)
	}
	if got.Unit != "°C" || got.Profiles != 2 {
		t.Errorf("unit/profiles = %q/%d", got.Unit, got.Profiles)
	}
	if got.Surface == nil || got.Surface.Count != 2 || !near(got.Surface.Mean, 1.5) {
		t.Errorf("surface = %+v", got.Surface)
	}
	if got.Thermocline == nil || got.Thermocline.Count != 1 || got.Thermocline.Max != 3 {
		t.Errorf("thermocline = %+v", got.Thermocline)
	}
	if got.Deep == nil || got.Deep.Count != 1 || got.Deep.Min != 10 {
		t.Errorf("deep = %+v", got.Deep)
	}
}

func TestAggregate_BandEdges(t *testing.T) {
	samples := []profile.MeasurementSample{
		sample("a", domain.Salinity, []float64{199.9, 200, 999.9, 1000}, []float64{1, 2, 3, 4}),
	}
	got := New(Options{}).Aggregate(samples)[domain.Salinity]
	if got.Surface.Count != 1 || got.Thermocline.Count != 2 || got.Deep.Count != 1 {
		t.Errorf("bands = %d/%d/%d", got.Surface.Count, got.Thermocline.Count, got.Deep.Count)
	}

	custom := New(Options{SurfaceMaxM: 100, ThermoclineMaxM: 500}).Aggregate(samples)[domain.Salinity]
	// With 100/500 edges, 199.9 and 200 fall in the thermocline; 999.9 and 1000 are deep.
	if custom.Surface != nil || custom.Thermocline == nil || custom.Thermocline.Count != 2 ||
		custom.Deep == nil || custom.Deep.Count != 2 {
		t.Errorf("configured bands not applied: %+v", custom)
	}
}

func TestAggregate_QCMaskAndMissing(t *testing.T) {
	samples := []profile.MeasurementSample{
		sample("a", domain.Oxygen, []float64{0, 10, 20}, []float64{200, 9999, 210}, true, false, true),
	}
	got := New(Options{}).Aggregate(samples)[domain.Oxygen]
	if got.Count != 2 || got.MissingCount != 1 || got.Max != 210 {
		t.Errorf("unexpected stat %+v", got)
	}
}

func TestAggregate_NoPassedValuesIsAbsent(t *testing.T) {
	samples := []profile.MeasurementSample{
		sample("a", domain.Nitrate, []float64{0, 10}, []float64{1, 2}, false, false),
		sample("a", domain.Temperature, []float64{0}, []float64{15}),
	}
	got := New(Options{}).Aggregate(samples)
	if _, ok := got[domain.Nitrate]; ok {
		t.Errorf("nitrate must be absent, not zero")
	}
	if _, ok := got[domain.Temperature]; !ok {
		t.Errorf("temperature must be present")
	}
	if len(New(Options{}).Aggregate(nil)) != 0 {
		t.Errorf("no samples, no stats")
	}
}

func TestAggregate_Percentiles(t *testing.T) {
	vals := make([]float64, 10)
	depths := make([]float64, 10)
	for i := range vals {
		vals[i] = float64(10 - i) // 10..1, unsorted input
	}
	got := New(Options{}).Aggregate([]profile.MeasurementSample{
		sample("a", domain.PH, depths, vals),
	})[domain.PH]
	if got.Percentiles.P10 != 1 || got.Percentiles.P50 != 5 || got.Percentiles.P90 != 9 {
		t.Errorf("percentiles = %+v", got.Percentiles)
	}
}

func TestAggregate_PercentilesOrdered(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.IntN(50)
		vals := make([]float64, n)
		depths := make([]float64, n)
		for i := range vals {
			vals[i] = rng.NormFloat64() * 10
			depths[i] = rng.Float64() * 2000
		}
		st := New(Options{}).Aggregate([]profile.MeasurementSample{
			sample("x", domain.Temperature, depths, vals),
		})[domain.Temperature]
		p := st.Percentiles
		if st.Min > p.P10 || p.P10 > p.P50 || p.P50 > p.P90 || p.P90 > st.Max {
			t.Fatalf("trial %d: ordering violated: min=%v %+v max=%v", trial, st.Min, p, st.Max)
		}
	}
}

func TestAggregate_Anomalies(t *testing.T) {
	vals := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		vals = append(vals, 10)
	}
	depths := make([]float64, 20)
	samples := []profile.MeasurementSample{
		sample("calm", domain.Temperature, depths, vals),
		sample("spike", domain.Temperature, []float64{5}, []float64{100}),
	}

	got := New(Options{}).Aggregate(samples)[domain.Temperature]
	if got.AnomalyCount != 1 || got.AnomalousProfiles != 1 {
		t.Errorf("anomalies = %d values / %d profiles", got.AnomalyCount, got.AnomalousProfiles)
	}

	loose := New(Options{AnomalySigma: 10}).Aggregate(samples)[domain.Temperature]
	if loose.AnomalyCount != 0 {
		t.Errorf("a 10 sigma threshold should flag nothing, got %d", loose.AnomalyCount)
	}
}

func TestAggregate_ConstantValuesHaveNoAnomalies(t *testing.T) {
	got := New(Options{}).Aggregate([]profile.MeasurementSample{
		sample("a", domain.Salinity, []float64{0, 1}, []float64{35, 35}),
	})[domain.Salinity]
	if got.StdDev != 0 || got.AnomalyCount != 0 {
		t.Errorf("unexpected %+v", got)
	}
}

func TestAggregate_SkipsInvalidSamples(t *testing.T) {
	bad := sample("a", domain.Temperature, []float64{0}, []float64{1, 2})
	if got := New(Options{}).Aggregate([]profile.MeasurementSample{bad}); len(got) != 0 {
		t.Errorf("invalid sample must be ignored: %+v", got)
	}
}
