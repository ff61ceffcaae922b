package conversation

import (
	"tripdesk/internal/modules/extract"
	"tripdesk/internal/types"
)

// Merge fills unset slots from an extraction result. A filled slot is never
// revised, with one exception: an explicit refusal to share a room always
// sets WillShareRoom to No. Merging the same result twice is a no-op.
func (s *State) Merge(r extract.Result) {
	s.mergeLocations(r.Origin, r.Destination)
	s.mergeDates(r.Dates)

	p := r.Preferences
	fill(&s.SeatPreference, p.Seat)
	fill(&s.Budget, p.Budget)
	fill(&s.FlightPreference, p.FlightPreference())
	fill(&s.FrequentFlyerNumber, p.FrequentFlyer)
	fillFlag(&s.HasPassport, p.Passport)
	fillFlag(&s.HasVisa, p.Visa)
	if p.ShareRoomNegated {
		s.WillShareRoom = types.No
	} else {
		fillFlag(&s.WillShareRoom, p.ShareRoom)
	}
}

func (s *State) mergeLocations(origin, destination string) {
	if origin != "" && destination != "" {
		if origin != s.Destination {
			fill(&s.Origin, origin)
		}
		if destination != s.Origin {
			fill(&s.Destination, destination)
		}
		return
	}
	// A single code fills the first open endpoint, unless it is already one of them.
	code := origin
	if code == "" || code == s.Origin || code == s.Destination {
		return
	}
	if s.Origin == "" {
		s.Origin = code
	} else {
		fill(&s.Destination, code)
	}
}

// mergeDates takes only dates the user actually wrote. A computed return is
// never stored, so "el 5" fills the start date and leaves the end date to ask
// for. A stored start date can only be completed by a pair that agrees with it.
func (s *State) mergeDates(d extract.DateRange) {
	if !d.Explicit() {
		return
	}
	ret := d.Return
	if d.ReturnGuessed {
		ret = ""
	}
	switch {
	case s.StartDate == "" && s.EndDate == "":
		s.StartDate = d.Outbound
		s.EndDate = ret
	case s.EndDate == "" && d.Outbound == s.StartDate:
		s.EndDate = ret
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillFlag(dst *types.Tristate, v types.Tristate) {
	if !dst.IsSet() {
		*dst = v
	}
}
