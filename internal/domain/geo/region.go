package geo

import "strings"

// Region is a named area resolved to a bounding box.
// Name is empty for explicit coordinate boxes.
type Region struct {
	Name string `json:"name,omitempty"`
	BBox BBox   `json:"bbox"`
}

// Label returns the region name, or the box when unnamed.
func (r Region) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.BBox.String()
}

type namedRegion struct {
	name    string
	aliases []string
	bbox    BBox
}

// Sub-seas precede basins so the most specific phrase wins.
var regions = []namedRegion{
	{"Mediterranean Sea", []string{"mediterranean sea", "mediterranean"}, BBox{30, 46, -6, 36}},
	{"Red Sea", []string{"red sea"}, BBox{12, 30, 32, 43}},
	{"Persian Gulf", []string{"persian gulf", "arabian gulf"}, BBox{24, 30, 48, 57}},
	{"North Sea", []string{"north sea"}, BBox{51, 62, -4, 9}},
	{"Baltic Sea", []string{"baltic sea", "baltic"}, BBox{54, 66, 10, 30}},
	{"Arabian Sea", []string{"arabian sea"}, BBox{0, 25, 50, 78}},
	{"Bay of Bengal", []string{"bay of bengal"}, BBox{5, 23, 78, 95}},
	{"Southern Ocean", []string{"southern ocean", "antarctic ocean"}, BBox{-90, -60, -180, 180}},
	{"Arctic Ocean", []string{"arctic ocean", "arctic"}, BBox{60, 90, -180, 180}},
	{"Indian Ocean", []string{"indian ocean"}, BBox{-60, 30, 20, 140}},
	{"Pacific Ocean", []string{"pacific ocean", "pacific"}, BBox{-60, 60, 120, -70}},
	{"Atlantic Ocean", []string{"atlantic ocean", "atlantic"}, BBox{-60, 80, -80, 20}},
}

// RegionMatch is a named region found in lowercase text at [Start, End).
type RegionMatch struct {
	Region Region
	Start  int
	End    int
}

// FindRegion returns the first named region mentioned in lowercase text.
// Matches must sit on word boundaries.
func FindRegion(lower string) (RegionMatch, bool) {
	for _, r := range regions {
		for _, alias := range r.aliases {
			if i := indexWord(lower, alias); i >= 0 {
				return RegionMatch{
					Region: Region{Name: r.name, BBox: r.bbox},
					Start:  i,
					End:    i + len(alias),
				}, true
			}
		}
	}
	return RegionMatch{}, false
}

// LookupRegion resolves an exact region name (case-insensitive).
func LookupRegion(name string) (Region, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, r := range regions {
		if strings.ToLower(r.name) == lower {
			return Region{Name: r.name, BBox: r.bbox}, true
		}
	}
	return Region{}, false
}

func indexWord(s, word string) int {
	from := 0
	for {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(word)
		if (i == 0 || !isWordByte(s[i-1])) && (end == len(s) || !isWordByte(s[end])) {
			return i
		}
		from = i + 1
	}
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
