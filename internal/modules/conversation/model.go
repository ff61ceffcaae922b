// README: Conversation slot record, turn history and directory profile for one user.
package conversation

import (
	"tripdesk/internal/types"
)

// Slot names a field of State.
type Slot string

const (
	SlotOrigin        Slot = "origin"
	SlotDestination   Slot = "destination"
	SlotStartDate     Slot = "start_date"
	SlotEndDate       Slot = "end_date"
	SlotVenue         Slot = "venue"
	SlotFlightPref    Slot = "flight_pref"
	SlotHotelPref     Slot = "hotel_pref"
	SlotFrequentFlyer Slot = "frequent_flyer"
	SlotSeatPref      Slot = "seat_pref"
	SlotBudget        Slot = "budget"
	SlotPassport      Slot = "passport"
	SlotVisa          Slot = "visa"
	SlotShareRoom     Slot = "share_room"
)

// RequiredSlots are the slots a request needs before search, in ask order.
var RequiredSlots = []Slot{SlotOrigin, SlotDestination, SlotStartDate, SlotEndDate}

var slotLabels = map[Slot]string{
	SlotOrigin:        "origen",
	SlotDestination:   "destino",
	SlotStartDate:     "fecha de salida",
	SlotEndDate:       "fecha de regreso",
	SlotVenue:         "venue o motivo",
	SlotFlightPref:    "preferencia de vuelo",
	SlotHotelPref:     "preferencia de hotel",
	SlotFrequentFlyer: "viajero frecuente",
	SlotSeatPref:      "asiento",
	SlotBudget:        "presupuesto",
	SlotPassport:      "pasaporte",
	SlotVisa:          "visa",
	SlotShareRoom:     "comparte habitación",
}

// Label is the Spanish name used when talking to the responder.
func (s Slot) Label() string {
	if l, ok := slotLabels[s]; ok {
		return l
	}
	return string(s)
}

// State is the per-user slot record. Empty strings and types.Unknown mean unset.
type State struct {
	Origin              string
	Destination         string
	StartDate           string
	EndDate             string
	VenueOrReason       string
	FlightPreference    string
	HotelPreference     string
	FrequentFlyerNumber string
	SeatPreference      string
	Budget              string
	HasPassport         types.Tristate
	HasVisa             types.Tristate
	WillShareRoom       types.Tristate
}

// Field is one set slot and its value in flat string form.
type Field struct {
	Slot  Slot
	Value string
}

// Fields returns the set slots in canonical order.
func (s State) Fields() []Field {
	all := []Field{
		{SlotOrigin, s.Origin},
		{SlotDestination, s.Destination},
		{SlotStartDate, s.StartDate},
		{SlotEndDate, s.EndDate},
		{SlotVenue, s.VenueOrReason},
		{SlotFlightPref, s.FlightPreference},
		{SlotHotelPref, s.HotelPreference},
		{SlotFrequentFlyer, s.FrequentFlyerNumber},
		{SlotSeatPref, s.SeatPreference},
		{SlotBudget, s.Budget},
		{SlotPassport, s.HasPassport.String()},
		{SlotVisa, s.HasVisa.String()},
		{SlotShareRoom, s.WillShareRoom.String()},
	}
	out := all[:0]
	for _, f := range all {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// MissingRequiredSlots lists unset required slots in priority order.
func (s State) MissingRequiredSlots() []Slot {
	var missing []Slot
	for _, slot := range RequiredSlots {
		if s.value(slot) == "" {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Complete reports whether every required slot is set.
func (s State) Complete() bool { return len(s.MissingRequiredSlots()) == 0 }

func (s State) value(slot Slot) string {
	switch slot {
	case SlotOrigin:
		return s.Origin
	case SlotDestination:
		return s.Destination
	case SlotStartDate:
		return s.StartDate
	case SlotEndDate:
		return s.EndDate
	}
	for _, f := range s.Fields() {
		if f.Slot == slot {
			return f.Value
		}
	}
	return ""
}

// Profile holds directory fields (name, seniority, department, …). It is kept
// apart from State and never written by extraction.
type Profile map[string]string

// Record is everything persisted for one user.
type Record struct {
	State   State
	History History
	Profile Profile
}

// Update is a partial write; nil members leave the stored value untouched.
type Update struct {
	State   *State
	History *History
	Profile Profile
}
