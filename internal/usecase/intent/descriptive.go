package intent

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// Token is one tagged word.
type Token struct {
	Text string
	Tag  string
}

// Tagger assigns Penn Treebank part-of-speech tags.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// ProseTagger tags text with the prose averaged perceptron model.
type ProseTagger struct{}

// Tag implements Tagger.
func (ProseTagger) Tag(text string) ([]Token, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}
	toks := doc.Tokens()
	out := make([]Token, len(toks))
	for i, t := range toks {
		out[i] = Token{Text: t.Text, Tag: t.Tag}
	}
	return out, nil
}

// genericTerms are words every question about the dataset shares.
var genericTerms = map[string]struct{}{
	"data": {}, "dataset": {}, "profile": {}, "profiles": {}, "float": {}, "floats": {},
	"argo": {}, "ocean": {}, "oceans": {}, "sea": {}, "seas": {}, "water": {}, "waters": {},
	"value": {}, "values": {}, "measurement": {}, "measurements": {}, "observation": {},
	"observations": {}, "record": {}, "records": {}, "region": {}, "area": {}, "areas": {},
	"level": {}, "levels": {}, "depth": {}, "depths": {}, "year": {}, "years": {}, "month": {},
	"months": {}, "day": {}, "days": {}, "time": {}, "period": {}, "information": {}, "info": {},
	"result": {}, "results": {}, "sensor": {}, "sensors": {}, "lat": {}, "lon": {},
	"latitude": {}, "longitude": {}, "km": {}, "meters": {}, "metres": {}, "many": {},
	"much": {}, "other": {}, "same": {}, "such": {}, "all": {}, "any": {}, "available": {},
	"please": {}, "hello": {}, "thanks": {}, "show": {}, "tell": {}, "find": {}, "list": {},
	"give": {}, "get": {}, "what": {}, "which": {},
}

// extractDescriptive returns adjectives and common nouns no slot grammar consumed.
// Tagging failures yield no terms.
func extractDescriptive(t Tagger, residual string) []string {
	if strings.TrimSpace(residual) == "" {
		return nil
	}
	toks, err := t.Tag(residual)
	if err != nil {
		return nil
	}
	var out []string
	for _, tok := range toks {
		if !strings.HasPrefix(tok.Tag, "JJ") && tok.Tag != "NN" && tok.Tag != "NNS" {
			continue
		}
		w := strings.ToLower(tok.Text)
		if len(w) <= 2 || !isAlpha(w) {
			continue
		}
		if _, ok := genericTerms[w]; ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '-' {
			return false
		}
	}
	return true
}
