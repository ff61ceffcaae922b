package extract

import (
	"regexp"
	"strings"

	"tripdesk/internal/modules/gazetteer"
	"tripdesk/internal/types"
)

// Seat preference values.
const (
	SeatWindow = "window"
	SeatAisle  = "aisle"
)

// Preferences are the secondary slots found in one message. Zero values mean
// "not mentioned". Extraction favours precision: an ambiguous mention stays unset.
// ShareRoomNegated is set when the text explicitly refuses a shared room; it is
// the one correction signal allowed to overwrite a filled slot.
type Preferences struct {
	Seat             string
	ShareRoom        types.Tristate
	ShareRoomNegated bool
	Passport         types.Tristate
	Visa             types.Tristate
	Budget           string
	AirlineCode      string
	AirlineName      string
	FareClass        string
	FrequentFlyer    string
}

// FlightPreference renders the airline and fare class as a readable slot value.
func (p Preferences) FlightPreference() string {
	var parts []string
	if p.AirlineName != "" {
		parts = append(parts, p.AirlineName)
	}
	if label := gazetteer.FareLabel(p.FareClass); label != "" {
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

var (
	windowWords = map[string]struct{}{"VENTANA": {}, "VENTANILLA": {}, "WINDOW": {}}
	aisleWords  = map[string]struct{}{"PASILLO": {}, "AISLE": {}}

	shareRoomPhrases = []string{
		"COMPARTIR HABITACION", "COMPARTIR CUARTO", "COMPARTIR LA HABITACION",
		"COMPARTO HABITACION", "HABITACION COMPARTIDA", "SHARE A ROOM", "SHARE ROOM",
		"SHARE THE ROOM", "SHARED ROOM",
	}
	// Checked after shareRoomPhrases so a negation always wins.
	noShareRoomPhrases = []string{
		"NO COMPARTIR", "NO QUIERO COMPARTIR", "NO PUEDO COMPARTIR", "NO COMPARTO",
		"NO ACEPTO COMPARTIR", "PREFIERO NO COMPARTIR", "SIN COMPARTIR",
		"HABITACION INDIVIDUAL", "DON T SHARE", "DONT SHARE", "DO NOT SHARE",
		"NOT SHARE", "NOT SHARING", "NO SHARING", "WON T SHARE",
	}

	passportWords = map[string]struct{}{"PASAPORTE": {}, "PASSPORT": {}}
	visaWords     = map[string]struct{}{"VISA": {}, "VISADO": {}}
	// A clause about a payment card is not about a travel visa.
	cardWords = map[string]struct{}{"TARJETA": {}, "CARD": {}, "CREDITO": {}, "CREDIT": {}}

	affirmativeWords = map[string]struct{}{
		"TENGO": {}, "CUENTO": {}, "VIGENTE": {}, "VALIDO": {}, "VALIDA": {},
		"HAVE": {}, "GOT": {}, "VALID": {}, "YES": {},
	}
	// Strong affirmatives that make a negative clause ambiguous.
	strongAffirmativeWords = map[string]struct{}{"SI": {}, "YES": {}}
	negativeWords          = map[string]struct{}{
		"NO": {}, "NOT": {}, "SIN": {}, "NI": {}, "DONT": {}, "DON": {}, "NUNCA": {},
		"NEVER": {}, "VENCIDO": {}, "VENCIDA": {}, "EXPIRED": {}, "NONE": {},
	}
	// Contrast words split a sentence into independent clauses.
	contrastWords = map[string]struct{}{"PERO": {}, "BUT": {}, "AUNQUE": {}, "SINO": {}, "HOWEVER": {}}

	clauseBreakRe = regexp.MustCompile(`[,.;:!?¡¿\n]+`)

	budgetRe = regexp.MustCompile(`(?:\$|\bUSD\b|\bMXN\b|\bEUR\b|\bPRESUPUESTO\b(?:\s+(?:DE|ES|MAXIMO|TOTAL))*|\bBUDGET\b(?:\s+(?:OF|IS))*)\s*[:=]?\s*\$?\s*(\d{1,3}(?:,\d{3})+|\d+)`)

	frequentFlyerRe = regexp.MustCompile(`\b(?:VIAJERO FRECUENTE|FREQUENT FLYER|CLUB PREMIER|MILEAGEPLUS|SKYMILES|AADVANTAGE)\b(?:\s+(?:NUMERO|NUMBER|NO|ES|IS|MI|MY))*\s*[:#]?\s*([A-Z0-9]{6,12})\b`)
	hasDigitRe      = regexp.MustCompile(`\d`)
)

// ExtractPreferences runs the preference heuristics over text in one pass.
func ExtractPreferences(text string) Preferences {
	normalized := gazetteer.Normalize(text)
	tokens := strings.Fields(gazetteer.StripPunctuation(normalized))
	joined := " " + strings.Join(tokens, " ") + " "

	var p Preferences
	p.Seat = seatPreference(tokens)

	if containsAny(joined, shareRoomPhrases) {
		p.ShareRoom = types.Yes
	}
	if containsAny(joined, noShareRoomPhrases) {
		p.ShareRoom = types.No
		p.ShareRoomNegated = true
	}

	for _, clause := range clauses(normalized) {
		if hasAny(clause, passportWords) && !p.Passport.IsSet() {
			p.Passport = possession(clause)
		}
		if hasAny(clause, visaWords) && !hasAny(clause, cardWords) && !p.Visa.IsSet() {
			p.Visa = possession(clause)
		}
	}

	if m := budgetRe.FindStringSubmatch(normalized); m != nil {
		p.Budget = strings.ReplaceAll(m[1], ",", "")
	}

	for _, a := range gazetteer.Airlines {
		if strings.Contains(joined, " "+a.Keyword+" ") {
			p.AirlineCode, p.AirlineName = a.Code, a.Label
			break
		}
	}
	for _, f := range gazetteer.FareClasses {
		if strings.Contains(joined, " "+f.Keyword+" ") {
			p.FareClass = f.Code
			break
		}
	}

	if m := frequentFlyerRe.FindStringSubmatch(normalized); m != nil && hasDigitRe.MatchString(m[1]) {
		p.FrequentFlyer = m[1]
	}
	return p
}

// seatPreference returns the seat keyword that appears first in the text.
func seatPreference(tokens []string) string {
	for _, t := range tokens {
		if _, ok := windowWords[t]; ok {
			return SeatWindow
		}
		if _, ok := aisleWords[t]; ok {
			return SeatAisle
		}
	}
	return ""
}

// clauses splits normalized text on punctuation and contrast words.
func clauses(normalized string) [][]string {
	var out [][]string
	for _, part := range clauseBreakRe.Split(normalized, -1) {
		var cur []string
		for _, w := range strings.Fields(gazetteer.StripPunctuation(part)) {
			if _, ok := contrastWords[w]; ok {
				if len(cur) > 0 {
					out = append(out, cur)
				}
				cur = nil
				continue
			}
			cur = append(cur, w)
		}
		if len(cur) > 0 {
			out = append(out, cur)
		}
	}
	return out
}

// possession reads a clause that mentions a document: a negative token means
// No unless a strong "sí/yes" makes it ambiguous; otherwise an affirmative
// token means Yes. Anything else stays Unknown.
func possession(clause []string) types.Tristate {
	switch {
	case hasAny(clause, negativeWords):
		if hasAny(clause, strongAffirmativeWords) {
			return types.Unknown
		}
		return types.No
	case hasAny(clause, affirmativeWords):
		return types.Yes
	default:
		return types.Unknown
	}
}

func hasAny(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, " "+p+" ") {
			return true
		}
	}
	return false
}
