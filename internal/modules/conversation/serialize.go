package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tripdesk/internal/modules/extract"
	"tripdesk/internal/types"
)

// legacyVenueKey is accepted on read for records written before venue and
// reason were collapsed into one slot.
const legacyVenueKey = "reason"

// Serialize flattens a State into a string map. Unset slots are omitted.
func Serialize(s State) map[string]string {
	out := make(map[string]string, len(RequiredSlots))
	for _, f := range s.Fields() {
		out[string(f.Slot)] = f.Value
	}
	return out
}

// Deserialize is the inverse of Serialize. Unknown keys and malformed values
// are dropped, leaving the slot unset.
func Deserialize(m map[string]string) State {
	fields := make(map[string]any, len(m))
	for k, v := range m {
		fields[k] = v
	}
	return stateFromFields(fields)
}

// stateFromFields decodes a loosely typed document as returned by Firestore
// or a JSON column. Booleans and numbers are accepted where a store or an
// older writer produced them.
func stateFromFields(m map[string]any) State {
	var s State
	s.Origin = airportCode(m[string(SlotOrigin)])
	s.Destination = airportCode(m[string(SlotDestination)])
	s.StartDate = isoDate(m[string(SlotStartDate)])
	s.EndDate = isoDate(m[string(SlotEndDate)])
	s.VenueOrReason = text(m[string(SlotVenue)])
	if s.VenueOrReason == "" {
		s.VenueOrReason = text(m[legacyVenueKey])
	}
	s.FlightPreference = text(m[string(SlotFlightPref)])
	s.HotelPreference = text(m[string(SlotHotelPref)])
	s.FrequentFlyerNumber = text(m[string(SlotFrequentFlyer)])
	s.SeatPreference = text(m[string(SlotSeatPref)])
	s.Budget = budget(m[string(SlotBudget)])
	s.HasPassport = flag(m[string(SlotPassport)])
	s.HasVisa = flag(m[string(SlotVisa)])
	s.WillShareRoom = flag(m[string(SlotShareRoom)])
	return s
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return ""
	}
}

func airportCode(v any) string {
	code := strings.ToUpper(text(v))
	if len(code) != 3 {
		return ""
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return code
}

func isoDate(v any) string {
	d := text(v)
	if _, err := time.Parse(extract.ISODate, d); err != nil {
		return ""
	}
	return d
}

func budget(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x < 0 {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	s := text(v)
	if s == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return ""
	}
	return s
}

func flag(v any) types.Tristate {
	switch x := v.(type) {
	case bool:
		return types.TristateOf(x)
	case string:
		return types.ParseTristate(strings.TrimSpace(x))
	default:
		return types.Unknown
	}
}
