// Package sampling implements deterministic stratified selection over candidates.
package sampling

import (
	"math"
	"sort"

	"github.com/kailas-cloud/oceanq/internal/domain/profile"
)

// DefaultCellDeg is the grid cell edge used when none is configured.
const DefaultCellDeg = 5.0

type cellKey struct{ lat, lon int }

type stratum struct {
	idx []int
}

// Stratify selects at most limit candidates, spread proportionally across calendar
// years and, within each year, across lat/lon grid cells of cellDeg degrees.
//
// Year quotas use largest-remainder rounding so no year exceeds its proportional
// share by more than one. Cell shares are floored; slots left over inside a year
// are filled in input order. The result keeps the input order.
func Stratify(cands []profile.Candidate, limit int, cellDeg float64) []profile.Candidate {
	if limit <= 0 || len(cands) == 0 {
		return nil
	}
	if len(cands) <= limit {
		return append([]profile.Candidate(nil), cands...)
	}
	if cellDeg <= 0 {
		cellDeg = DefaultCellDeg
	}

	var years []*stratum
	byYear := make(map[int]*stratum)
	for i, c := range cands {
		y := c.Time.UTC().Year()
		s, ok := byYear[y]
		if !ok {
			s = &stratum{}
			byYear[y] = s
			years = append(years, s)
		}
		s.idx = append(s.idx, i)
	}

	sizes := make([]int, len(years))
	for i, s := range years {
		sizes[i] = len(s.idx)
	}
	quotas := LargestRemainder(sizes, limit)

	selected := make([]bool, len(cands))
	for yi, year := range years {
		fillYear(cands, year.idx, quotas[yi], cellDeg, selected)
	}

	out := make([]profile.Candidate, 0, limit)
	for i, c := range cands {
		if selected[i] {
			out = append(out, c)
		}
	}
	return out
}

func fillYear(cands []profile.Candidate, idx []int, quota int, cellDeg float64, selected []bool) {
	var cells []*stratum
	byCell := make(map[cellKey]*stratum)
	for _, i := range idx {
		k := cellKey{
			lat: int(math.Floor(cands[i].Lat / cellDeg)),
			lon: int(math.Floor(cands[i].Lon / cellDeg)),
		}
		s, ok := byCell[k]
		if !ok {
			s = &stratum{}
			byCell[k] = s
			cells = append(cells, s)
		}
		s.idx = append(s.idx, i)
	}

	taken := 0
	for _, cell := range cells {
		share := quota * len(cell.idx) / len(idx)
		for _, i := range cell.idx[:share] {
			selected[i] = true
		}
		taken += share
	}
	for _, i := range idx {
		if taken >= quota {
			break
		}
		if !selected[i] {
			selected[i] = true
			taken++
		}
	}
}

// LargestRemainder splits total across sizes proportionally.
// Ties on the remainder go to the earlier stratum.
func LargestRemainder(sizes []int, total int) []int {
	out := make([]int, len(sizes))
	n := 0
	for _, s := range sizes {
		n += s
	}
	if n == 0 || total <= 0 {
		return out
	}
	if total >= n {
		copy(out, sizes)
		return out
	}

	rem := make([]int, len(sizes))
	assigned := 0
	for i, s := range sizes {
		out[i] = total * s / n
		rem[i] = total * s % n
		assigned += out[i]
	}

	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })

	for _, i := range order {
		if assigned >= total {
			break
		}
		if out[i] < sizes[i] {
			out[i]++
			assigned++
		}
	}
	return out
}
