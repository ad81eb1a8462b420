package intent

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/oceanq/internal/domain"
)

type vocab[T any] struct {
	value T
	re    *regexp.Regexp
}

// wordsRe builds a word-bounded alternation over phrases.
func wordsRe(phrases ...string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var variableVocab = []vocab[domain.Variable]{
	{domain.Temperature, wordsRe("temperature", "temperatures", "temp", "thermal", "celsius", "sst", "heat content")},
	{domain.Salinity, wordsRe("salinity", "salinities", "salt", "saline", "psu", "psal")},
	{domain.Pressure, wordsRe("pressure", "pressures", "decibar", "decibars", "pres")},
	{domain.Oxygen, wordsRe("oxygen", "dissolved oxygen", "o2", "doxy")},
	{domain.Chlorophyll, wordsRe("chlorophyll", "chlorophyll-a", "chla", "chl")},
	{domain.PH, wordsRe("ph", "acidity", "acidification")},
	{domain.Nitrate, wordsRe("nitrate", "nitrates", "no3")},
}

var queryTypeVocab = []vocab[domain.QueryType]{
	{domain.QueryCount, wordsRe("how many", "count", "number of", "total number")},
	{domain.QuerySummary, wordsRe("summary", "summarize", "summarise", "overview", "describe",
		"average", "mean", "typical", "statistics", "stats")},
	{domain.QueryComparison, wordsRe("compare", "comparison", "versus", "vs", "difference", "differ", "contrast")},
	{domain.QueryTemporal, wordsRe("trend", "trends", "over time", "time series", "change", "changes",
		"changed", "evolution", "seasonal", "interannual")},
	{domain.QuerySpatial, wordsRe("where", "spatial", "distribution", "geographic", "geographical")},
	{domain.QueryQualityCheck, wordsRe("quality", "qc", "flagged", "bad data", "outlier", "outliers",
		"anomaly", "anomalies", "anomalous")},
	{domain.QueryExport, wordsRe("export", "download", "csv", "netcdf", "dump")},
	{domain.QueryAnalysis, wordsRe("analyze", "analyse", "analysis", "correlation", "correlate",
		"regression", "variance", "standard deviation", "relationship")},
	{domain.QueryVisualization, wordsRe("plot", "chart", "graph", "visualize", "visualise",
		"visualization", "visualisation", "map", "heatmap", "diagram")},
}

// extractVariables collects every variable named in the text.
func extractVariables(lower string) ([]domain.Variable, passResult) {
	return matchVocab(lower, variableVocab)
}

// extractQueryTypes collects every co-occurring query type.
func extractQueryTypes(lower string) ([]domain.QueryType, passResult) {
	return matchVocab(lower, queryTypeVocab)
}

func matchVocab[T any](lower string, table []vocab[T]) ([]T, passResult) {
	var (
		out   []T
		spans []span
	)
	for _, v := range table {
		idx := v.re.FindAllStringIndex(lower, -1)
		if idx == nil {
			continue
		}
		out = append(out, v.value)
		for _, m := range idx {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if len(out) == 0 {
		return nil, passResult{}
	}
	return out, matched(1.0, spans...)
}

// genericAcronyms name the dataset itself rather than a contributor.
var genericAcronyms = map[string]struct{}{
	"ARGO": {}, "BGC": {}, "CTD": {}, "FLOAT": {}, "FLOATS": {}, "DATA": {}, "GDAC": {},
}

var (
	reAcronym  = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	rePlatform = regexp.MustCompile(`\b\d{7}\b`)
)

// extractKeywordTerms returns institution acronyms and platform numbers.
// Acronyms that belong to another vocabulary are left to it.
func extractKeywordTerms(text string) ([]string, []span) {
	var (
		out   []string
		spans []span
	)
	// Shouted text has no acronyms to tell apart.
	acronyms := reAcronym.FindAllStringIndex(text, -1)
	if strings.ToUpper(text) == text {
		acronyms = nil
	}
	for _, m := range acronyms {
		word := text[m[0]:m[1]]
		if _, ok := genericAcronyms[word]; ok || isVocabularyWord(asciiLower(word)) {
			continue
		}
		out = append(out, word)
		spans = append(spans, span{m[0], m[1]})
	}
	for _, m := range rePlatform.FindAllStringIndex(text, -1) {
		out = append(out, text[m[0]:m[1]])
		spans = append(spans, span{m[0], m[1]})
	}
	return out, spans
}

func isVocabularyWord(lower string) bool {
	if _, ok := months[lower]; ok {
		return true
	}
	for _, v := range variableVocab {
		if v.re.MatchString(lower) {
			return true
		}
	}
	for _, v := range queryTypeVocab {
		if v.re.MatchString(lower) {
			return true
		}
	}
	return false
}
