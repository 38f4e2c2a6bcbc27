// Package genre defines the fixed, ordered set of genres songs are classified into.
package genre

// Genre identifies one of the ten classification labels.
type Genre string

// The ten genres. Their order in All is significant: it fixes vertex placement
// on the decagon and the tie-break order of breakdowns.
const (
	Blues     Genre = "blues"
	Classical Genre = "classical"
	Country   Genre = "country"
	Disco     Genre = "disco"
	HipHop    Genre = "hiphop"
	Jazz      Genre = "jazz"
	Metal     Genre = "metal"
	Pop       Genre = "pop"
	Reggae    Genre = "reggae"
	Rock      Genre = "rock"
)

// Count is the number of genres.
const Count = 10

// All lists every genre in registry order.
var All = [Count]Genre{Blues, Classical, Country, Disco, HipHop, Jazz, Metal, Pop, Reggae, Rock}

// fallbackColor is used for labels the registry does not know.
const fallbackColor = "#94A3B8"

var colors = map[Genre]string{
	Blues:     "#4169E1",
	Classical: "#DDA0DD",
	Country:   "#D2691E",
	Disco:     "#FF1493",
	HipHop:    "#FF4500",
	Jazz:      "#FFD700",
	Metal:     "#2F4F4F",
	Pop:       "#FF69B4",
	Reggae:    "#32CD32",
	Rock:      "#8B0000",
}

var displayNames = map[Genre]string{
	Blues:     "Blues",
	Classical: "Classical",
	Country:   "Country",
	Disco:     "Disco",
	HipHop:    "Hip-Hop",
	Jazz:      "Jazz",
	Metal:     "Metal",
	Pop:       "Pop",
	Reggae:    "Reggae",
	Rock:      "Rock",
}

// String returns the wire identifier.
func (g Genre) String() string {
	return string(g)
}

// Valid reports whether g is one of the registered genres.
func (g Genre) Valid() bool {
	_, ok := colors[g]
	return ok
}

// Color returns the display color as a hex string.
// Unknown genres get a neutral gray so a bad label never breaks rendering.
func (g Genre) Color() string {
	if c, ok := colors[g]; ok {
		return c
	}
	return fallbackColor
}

// DisplayName returns the human-readable name, e.g. "Hip-Hop".
func (g Genre) DisplayName() string {
	if name, ok := displayNames[g]; ok {
		return name
	}
	return capitalize(string(g))
}

// Index returns the registry position of g.
func Index(g Genre) (int, bool) {
	for i, candidate := range All {
		if candidate == g {
			return i, true
		}
	}
	return -1, false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
