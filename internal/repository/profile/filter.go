// Package profile implements the profile metadata store on Postgres and SQLite.
package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/oceanq/internal/domain/plan"
)

const candidateColumns = `profile_id, latitude, longitude, observed_at, depth_min, depth_max,
		institution, platform_number, measurement_path, variables, data_quality`

// dialect abstracts placeholder syntax and the array/text predicates that differ between engines.
type dialect interface {
	placeholder(n int) string
	variablesAny(ph string) string
	ilike(column, ph string) string
	timeArg(t time.Time) any
	variablesArg(vars []string) any
}

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string       { return "$" + strconv.Itoa(n) }
func (postgresDialect) variablesAny(ph string) string  { return "variables && " + ph + "::text[]" }
func (postgresDialect) ilike(column, ph string) string { return column + " ILIKE " + ph }
func (postgresDialect) timeArg(t time.Time) any        { return t.UTC() }
func (postgresDialect) variablesArg(vars []string) any { return vars }

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string { return "?" }

// variables are stored as ",temperature,salinity," so each name is matched with its delimiters.
func (sqliteDialect) variablesAny(ph string) string {
	return "EXISTS (SELECT 1 FROM json_each(" + ph + ") j WHERE variables LIKE '%,' || j.value || ',%')"
}
func (sqliteDialect) ilike(column, ph string) string { return column + " LIKE " + ph }
func (sqliteDialect) timeArg(t time.Time) any        { return formatSQLiteTime(t) }
func (sqliteDialect) variablesArg(vars []string) any {
	b, _ := json.Marshal(vars) //nolint:errchkjson // []string always marshals
	return string(b)
}

const sqliteTimeLayout = "2006-01-02T15:04:05Z"

func formatSQLiteTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

// whereBuilder accumulates predicates and positional args.
type whereBuilder struct {
	d     dialect
	preds []string
	args  []any
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return w.d.placeholder(len(w.args))
}

func (w *whereBuilder) add(pred string) {
	w.preds = append(w.preds, pred)
}

func (w *whereBuilder) clause() string {
	if len(w.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.preds, " AND ")
}

// buildFilter translates a structured plan into a WHERE clause.
func buildFilter(d dialect, p plan.StructuredPlan) (string, []any) {
	w := &whereBuilder{d: d}

	if !p.BBox.IsWorld() {
		w.add(fmt.Sprintf("latitude >= %s AND latitude <= %s", w.arg(p.BBox.MinLat), w.arg(p.BBox.MaxLat)))
		if p.BBox.CrossesAntimeridian() {
			w.add(fmt.Sprintf("(longitude >= %s OR longitude <= %s)", w.arg(p.BBox.MinLon), w.arg(p.BBox.MaxLon)))
		} else {
			w.add(fmt.Sprintf("longitude >= %s AND longitude <= %s", w.arg(p.BBox.MinLon), w.arg(p.BBox.MaxLon)))
		}
	}

	// A zero bound leaves that side of the time range open.
	if !p.TimeRange.Start.IsZero() {
		w.add("observed_at >= " + w.arg(d.timeArg(p.TimeRange.Start)))
	}
	if !p.TimeRange.End.IsZero() {
		w.add("observed_at < " + w.arg(d.timeArg(p.TimeRange.End)))
	}

	if p.DepthRange != nil {
		w.add("depth_max >= " + w.arg(p.DepthRange.Min))
		if p.DepthRange.Max != nil {
			w.add("depth_min <= " + w.arg(*p.DepthRange.Max))
		}
	}

	if len(p.Variables) > 0 {
		names := make([]string, len(p.Variables))
		for i, v := range p.Variables {
			names[i] = string(v)
		}
		w.add(d.variablesAny(w.arg(d.variablesArg(names))))
	}

	if len(p.KeywordTerms) > 0 {
		ors := make([]string, 0, len(p.KeywordTerms))
		for _, kw := range p.KeywordTerms {
			if isPlatformNumber(kw) {
				ors = append(ors, "platform_number = "+w.arg(kw))
				continue
			}
			ors = append(ors, d.ilike("institution", w.arg("%"+kw+"%")))
		}
		w.add("(" + strings.Join(ors, " OR ") + ")")
	}

	return w.clause(), w.args
}

func isPlatformNumber(s string) bool {
	if len(s) != 7 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// vectorLiteral renders an embedding in pgvector text form.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
