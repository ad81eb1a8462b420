package domain

import "sort"

// Variable is a measured oceanographic quantity.
type Variable string

// Supported variables.
const (
	Temperature Variable = "temperature"
	Salinity    Variable = "salinity"
	Pressure    Variable = "pressure"
	Oxygen      Variable = "oxygen"
	Chlorophyll Variable = "chlorophyll"
	PH          Variable = "ph"
	Nitrate     Variable = "nitrate"
)

// AllVariables lists every supported variable in canonical order.
var AllVariables = []Variable{Temperature, Salinity, Pressure, Oxygen, Chlorophyll, PH, Nitrate}

var units = map[Variable]string{
	Temperature: "°C",
	Salinity:    "PSU",
	Pressure:    "dbar",
	Oxygen:      "µmol/kg",
	Chlorophyll: "mg/m³",
	PH:          "pH",
	Nitrate:     "µmol/kg",
}

// archive column aliases, lowercase.
var aliases = map[string]Variable{
	"temperature":  Temperature,
	"temperatures": Temperature,
	"temp":         Temperature,
	"salinity":     Salinity,
	"salinities":   Salinity,
	"psal":         Salinity,
	"pressure":     Pressure,
	"pressures":    Pressure,
	"pres":         Pressure,
	"oxygen":       Oxygen,
	"doxy":         Oxygen,
	"chlorophyll":  Chlorophyll,
	"chla":         Chlorophyll,
	"ph":           PH,
	"ph_in_situ":   PH,
	"nitrate":      Nitrate,
}

// IsValid checks if the variable is one of the supported values.
func (v Variable) IsValid() bool {
	_, ok := units[v]
	return ok
}

// Unit returns the display unit.
func (v Variable) Unit() string { return units[v] }

// ParseVariable resolves a variable name or archive alias (lowercase).
func ParseVariable(s string) (Variable, bool) {
	v, ok := aliases[s]
	return v, ok
}

// SortVariables returns a sorted, deduplicated copy.
func SortVariables(vs []Variable) []Variable {
	seen := make(map[Variable]struct{}, len(vs))
	out := make([]Variable, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
