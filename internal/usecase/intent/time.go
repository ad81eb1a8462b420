package intent

import (
	"regexp"
	"strconv"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain/intent"
)

const (
	confAbsolute = 1.0
	confSeason   = 0.9
	confRelative = 0.7
	// recentYears is the window for "recent" and "recently".
	recentYears = 2
)

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	reYearRange  = regexp.MustCompile(`\b(?:between|from)\s+(\d{4})\s+(?:and|to|through|until)\s+(\d{4})\b`)
	reYearSpan   = regexp.MustCompile(`\b(\d{4})\s*(?:-|–|—|to|through|until)\s*(\d{4})\b`)
	reSeasonYear = regexp.MustCompile(`\b(spring|summer|autumn|fall|winter)\s+(?:of\s+)?(\d{4})\b`)
	reMonthYear  = regexp.MustCompile(`\b(` + monthNames + `)\.?\s+(?:of\s+)?(\d{4})\b`)
	reNumMonth   = regexp.MustCompile(`\b(\d{1,2})/(\d{4})\b`)
	reYear       = regexp.MustCompile(`\b(\d{4})\b`)
	reLastN      = regexp.MustCompile(`\b(?:last|past|previous)\s+(\d+)\s+(years?|months?|days?)\b`)
	reDecade     = regexp.MustCompile(`\b(?:last|past|previous)\s+decade\b`)
	reLastYear   = regexp.MustCompile(`\blast\s+year\b`)
	reRecent     = regexp.MustCompile(`\brecent(?:ly)?\b`)
	// "may" and abbreviations are excluded; they are too often not months.
	reBareMonth = regexp.MustCompile(`\b(january|february|march|april|june|july|august|september|october|november|december)\b`)
	// reQuantity matches numbers (or number ranges) carrying a length or pressure unit.
	reQuantity = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:(?:-|to|and)\s*\d+(?:\.\d+)?\s*)?` +
		`(?:m|meters|metres|km|kilometers|kilometres|dbar)\b`)
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// extractTime resolves absolute ranges first and falls back to relative phrases.
// Implausible years and bare month names count as attempts with zero confidence.
func (e *Extractor) extractTime(lower string, now time.Time) (*intent.TimeRange, passResult) {
	lower = maskQuantities(lower)

	for _, re := range []*regexp.Regexp{reYearRange, reYearSpan} {
		m := re.FindStringSubmatchIndex(lower)
		if m == nil {
			continue
		}
		g := groups(lower, m)
		y1, y2 := atoi(g[1]), atoi(g[2])
		sp := span{m[0], m[1]}
		if !e.plausibleYear(y1) || !e.plausibleYear(y2) {
			return nil, matched(0, sp)
		}
		if y1 > y2 {
			y1, y2 = y2, y1
		}
		tr := intent.NewTimeRange(yearStart(y1), yearStart(y2+1))
		return &tr, matched(confAbsolute, sp)
	}

	if m := reSeasonYear.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		y := atoi(g[2])
		sp := span{m[0], m[1]}
		if !e.plausibleYear(y) {
			return nil, matched(0, sp)
		}
		tr := season(g[1], y)
		return &tr, matched(confSeason, sp)
	}

	if m := reMonthYear.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		y := atoi(g[2])
		sp := span{m[0], m[1]}
		if !e.plausibleYear(y) {
			return nil, matched(0, sp)
		}
		tr := monthRange(y, months[g[1]])
		return &tr, matched(confAbsolute, sp)
	}

	if m := reNumMonth.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		mo, y := atoi(g[1]), atoi(g[2])
		sp := span{m[0], m[1]}
		if mo < 1 || mo > 12 || !e.plausibleYear(y) {
			return nil, matched(0, sp)
		}
		tr := monthRange(y, time.Month(mo))
		return &tr, matched(confAbsolute, sp)
	}

	var rejected []span
	for _, m := range reYear.FindAllStringSubmatchIndex(lower, -1) {
		sp := span{m[0], m[1]}
		y := atoi(lower[m[2]:m[3]])
		if !e.plausibleYear(y) {
			rejected = append(rejected, sp)
			continue
		}
		tr := intent.NewTimeRange(yearStart(y), yearStart(y+1))
		return &tr, matched(confAbsolute, sp)
	}

	today := now.Truncate(24 * time.Hour)
	end := today.AddDate(0, 0, 1)

	if m := reLastN.FindStringSubmatchIndex(lower); m != nil {
		g := groups(lower, m)
		n := atoi(g[1])
		sp := span{m[0], m[1]}
		if n <= 0 {
			return nil, matched(0, sp)
		}
		var start time.Time
		switch g[2][0] {
		case 'y':
			start = end.AddDate(-n, 0, 0)
		case 'm':
			start = end.AddDate(0, -n, 0)
		default:
			start = end.AddDate(0, 0, -n)
		}
		tr := intent.NewTimeRange(start, end)
		return &tr, matched(confRelative, sp)
	}
	if m := reDecade.FindStringIndex(lower); m != nil {
		tr := intent.NewTimeRange(end.AddDate(-10, 0, 0), end)
		return &tr, matched(confRelative, span{m[0], m[1]})
	}
	if m := reLastYear.FindStringIndex(lower); m != nil {
		tr := intent.Year(now.Year() - 1)
		return &tr, matched(confRelative, span{m[0], m[1]})
	}
	if m := reRecent.FindStringIndex(lower); m != nil {
		tr := intent.NewTimeRange(end.AddDate(-recentYears, 0, 0), end)
		return &tr, matched(confRelative, span{m[0], m[1]})
	}

	if m := reBareMonth.FindStringIndex(lower); m != nil {
		rejected = append(rejected, span{m[0], m[1]})
	}
	if len(rejected) > 0 {
		return nil, matched(0, rejected...)
	}
	return nil, passResult{}
}

// maskQuantities blanks depths and distances so they are not read as years.
func maskQuantities(lower string) string {
	idx := reQuantity.FindAllStringIndex(lower, -1)
	if idx == nil {
		return lower
	}
	b := []byte(lower)
	for _, m := range idx {
		for i := m[0]; i < m[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

func (e *Extractor) plausibleYear(y int) bool {
	return y >= e.minYear && y <= e.maxYear
}

func yearStart(y int) time.Time {
	return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func monthRange(y int, m time.Month) intent.TimeRange {
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return intent.NewTimeRange(start, start.AddDate(0, 1, 0))
}

// season returns the meteorological season; winter starts in December of y.
func season(name string, y int) intent.TimeRange {
	var start time.Time
	switch name {
	case "spring":
		start = time.Date(y, time.March, 1, 0, 0, 0, 0, time.UTC)
	case "summer":
		start = time.Date(y, time.June, 1, 0, 0, 0, 0, time.UTC)
	case "autumn", "fall":
		start = time.Date(y, time.September, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = time.Date(y, time.December, 1, 0, 0, 0, 0, time.UTC)
	}
	return intent.NewTimeRange(start, start.AddDate(0, 3, 0))
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
