package archive

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/oceanq/internal/domain"
	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// readJSON decodes {"depths": [...], "<variable>": [...], "qc": {"<variable>": [...]}}.
// Nulls become NaN and fail QC. Without depths, pressure stands in (1 dbar ~ 1 m).
func readJSON(path string) (map[domain.Variable]profile.Series, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", domain.ErrArchiveUnreadable)
	}

	arrays := make(map[domain.Variable][]float64)
	var depths []float64
	var qc map[string][]bool

	for key, raw := range doc {
		lk := strings.ToLower(key)
		switch lk {
		case "depth", "depths":
			if depths, err = decodeFloats(raw); err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			continue
		case "qc":
			if err := json.Unmarshal(raw, &qc); err != nil {
				return nil, fmt.Errorf("field qc: %w", domain.ErrArchiveUnreadable)
			}
			continue
		}
		variable, ok := domain.ParseVariable(lk)
		if !ok {
			continue
		}
		vals, err := decodeFloats(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		arrays[variable] = vals
	}

	if depths == nil {
		depths = arrays[domain.Pressure]
	}
	if depths == nil {
		return nil, fmt.Errorf("no depth or pressure array: %w", domain.ErrArchiveUnreadable)
	}

	masks := make(map[domain.Variable][]bool, len(qc))
	for key, mask := range qc {
		if variable, ok := domain.ParseVariable(strings.ToLower(key)); ok {
			masks[variable] = mask
		}
	}

	out := make(map[domain.Variable]profile.Series, len(arrays))
	for variable, vals := range arrays {
		if len(vals) != len(depths) {
			return nil, fmt.Errorf("%s has %d values for %d depths: %w",
				variable, len(vals), len(depths), domain.ErrArchiveUnreadable)
		}
		mask, err := buildMask(vals, depths, masks[variable])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", variable, err)
		}
		out[variable] = profile.Series{Values: vals, Depths: depths, QCMask: mask}
	}
	return out, nil
}

func decodeFloats(raw json.RawMessage) ([]float64, error) {
	var ptrs []*float64
	if err := json.Unmarshal(raw, &ptrs); err != nil {
		return nil, fmt.Errorf("not a numeric array: %w", domain.ErrArchiveUnreadable)
	}
	out := make([]float64, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out, nil
}

func buildMask(vals, depths []float64, given []bool) ([]bool, error) {
	if given != nil && len(given) != len(vals) {
		return nil, fmt.Errorf("qc mask has %d entries for %d values: %w",
			len(given), len(vals), domain.ErrArchiveUnreadable)
	}
	mask := make([]bool, len(vals))
	for i := range vals {
		ok := isFinite(vals[i]) && isFinite(depths[i])
		if given != nil {
			ok = ok && given[i]
		}
		mask[i] = ok
	}
	return mask, nil
}
