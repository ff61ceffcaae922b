// README: Static name → code tables (cities, airlines, fare classes) and the active airport allow-list.
package gazetteer

// cityCodes maps normalized city/region names to 3-letter location codes.
var cityCodes = map[string]string{
	// México
	"CDMX":             "MEX",
	"CIUDAD DE MEXICO": "MEX",
	"MEXICO":           "MEX",
	"MEXICO CITY":      "MEX",
	// USA
	"SAN FRANCISCO": "SFO",
	"NEW YORK":      "NYC",
	"NUEVA YORK":    "NYC",
	"LOS ANGELES":   "LAX",
	"SAN JOSE":      "SJC",
	// Europa
	"PARIS":   "PAR",
	"LONDRES": "LON",
	"LONDON":  "LON",
	// Asia
	"TOKIO": "TYO",
	"TOKYO": "TYO",
	// Generic tokens
	"NYC": "NYC",
}

// activeCodes is the minimal set of active international airports.
// Anything resolved outside this set is treated as a false positive.
var activeCodes = map[string]struct{}{
	"MEX": {},
	"SFO": {},
	"NYC": {},
	"LAX": {},
	"SJC": {},
	"PAR": {},
	"LON": {},
	"TYO": {},
}

// Entry is a single vocabulary item: a normalized keyword and the code it maps to.
type Entry struct {
	Keyword string
	Code    string
	Label   string
}

// Airlines lists airline names in match priority order.
var Airlines = []Entry{
	{Keyword: "AEROMEXICO", Code: "AM", Label: "Aeroméxico"},
	{Keyword: "DELTA", Code: "DL", Label: "Delta"},
	{Keyword: "UNITED", Code: "UA", Label: "United"},
}

// Fare class codes as understood by the search backend.
const (
	FareEconomy  = "1"
	FareBusiness = "2"
	FareFirst    = "3"
)

// FareClasses lists fare-class vocabulary (Spanish and English) in match priority order.
// Keywords are already normalized, so "ECONOMÍA" is written "ECONOMIA".
var FareClasses = []Entry{
	{Keyword: "ECONOMICA", Code: FareEconomy, Label: "económica"},
	{Keyword: "ECONOMIA", Code: FareEconomy, Label: "económica"},
	{Keyword: "ECONOMY", Code: FareEconomy, Label: "económica"},
	{Keyword: "NEGOCIOS", Code: FareBusiness, Label: "negocios"},
	{Keyword: "BUSINESS", Code: FareBusiness, Label: "negocios"},
	{Keyword: "EJECUTIVA", Code: FareBusiness, Label: "negocios"},
	{Keyword: "PRIMERA CLASE", Code: FareFirst, Label: "primera clase"},
	{Keyword: "FIRST CLASS", Code: FareFirst, Label: "primera clase"},
}

// LookupCity resolves a city name (any casing, accents allowed) to its code.
func LookupCity(name string) (string, bool) {
	code, ok := cityCodes[Normalize(name)]
	return code, ok
}

// IsActive reports whether code is in the active allow-list.
func IsActive(code string) bool {
	_, ok := activeCodes[code]
	return ok
}

// FareLabel returns the display label of a fare-class code, or "" when unknown.
func FareLabel(code string) string {
	for _, e := range FareClasses {
		if e.Code == code {
			return e.Label
		}
	}
	return ""
}
