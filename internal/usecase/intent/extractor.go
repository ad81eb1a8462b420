// Package intent turns free-text questions into structured query intents.
package intent

import (
	"strings"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain/intent"
)

// span is a byte range [start, end) of consumed text.
type span struct{ start, end int }

// passResult reports what one extractor pass matched.
type passResult struct {
	Attempted  bool
	Confidence float64
	Spans      []span
}

func matched(conf float64, spans ...span) passResult {
	return passResult{Attempted: true, Confidence: conf, Spans: spans}
}

// Options configures the extractor.
type Options struct {
	// MinYear and MaxYear bound plausible bare years.
	MinYear int
	MaxYear int
	// SurfaceMaxM and ThermoclineMaxM map depth keywords to ranges.
	SurfaceMaxM     float64
	ThermoclineMaxM float64
	// Tagger tags the residual text for descriptive terms. Nil disables the pass.
	Tagger Tagger
	// Now anchors relative time phrases.
	Now func() time.Time
}

// Extractor runs the rule passes and composes their output. Safe for concurrent use.
type Extractor struct {
	minYear, maxYear int
	surfaceMax       float64
	thermoclineMax   float64
	tagger           Tagger
	now              func() time.Time
}

// New creates an extractor with defaults for zero options.
func New(opts Options) *Extractor {
	e := &Extractor{
		minYear:        opts.MinYear,
		maxYear:        opts.MaxYear,
		surfaceMax:     opts.SurfaceMaxM,
		thermoclineMax: opts.ThermoclineMaxM,
		tagger:         opts.Tagger,
		now:            opts.Now,
	}
	if e.minYear == 0 {
		e.minYear = 1950
	}
	if e.maxYear == 0 {
		e.maxYear = 2030
	}
	if e.surfaceMax <= 0 {
		e.surfaceMax = 200
	}
	if e.thermoclineMax <= e.surfaceMax {
		e.thermoclineMax = 1000
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Extract parses text into an intent. It never fails: unmatched fragments
// only lower the confidence.
func (e *Extractor) Extract(text string) intent.QueryIntent {
	lower := asciiLower(text)
	now := e.now().UTC()

	p := intent.Params{
		RawText:         text,
		SlotConfidences: make(map[intent.Slot]float64),
	}
	var consumed []span
	record := func(slot intent.Slot, r passResult) {
		consumed = append(consumed, r.Spans...)
		if r.Attempted {
			p.SlotConfidences[slot] = r.Confidence
		}
	}

	region, r := extractGeography(lower)
	p.Region = region
	record(intent.SlotRegion, r)

	tr, r := e.extractTime(lower, now)
	p.TimeRange = tr
	record(intent.SlotTime, r)

	dr, r := e.extractDepth(lower)
	p.DepthRange = dr
	record(intent.SlotDepth, r)

	vars, r := extractVariables(lower)
	p.Variables = vars
	record(intent.SlotVariables, r)

	types, r := extractQueryTypes(lower)
	p.QueryTypes = types
	record(intent.SlotQueryType, r)

	kws, kwSpans := extractKeywordTerms(text)
	p.KeywordTerms = kws
	consumed = append(consumed, kwSpans...)

	if e.tagger != nil {
		p.DescriptiveTerms = extractDescriptive(e.tagger, blank(text, consumed))
	}

	return intent.New(p)
}

// asciiLower lowercases ASCII letters only so byte offsets match the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// blank replaces consumed spans with spaces.
func blank(s string, spans []span) string {
	if len(spans) == 0 {
		return s
	}
	b := []byte(s)
	for _, sp := range spans {
		for i := max(sp.start, 0); i < sp.end && i < len(b); i++ {
			b[i] = ' '
		}
	}
	return strings.ToValidUTF8(string(b), " ")
}
