package conversation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tripdesk/internal/modules/extract"
	"tripdesk/internal/types"
)

func explicitDates(out, ret string) extract.DateRange {
	return extract.DateRange{Outbound: out, Return: ret, Source: extract.DateISO}
}

func TestMergeFillsEmptySlots(t *testing.T) {
	var s State
	s.Merge(extract.Result{
		Origin:      "MEX",
		Destination: "SFO",
		Dates:       explicitDates("2024-09-05", "2024-09-09"),
		Preferences: extract.Preferences{
			Seat:        extract.SeatWindow,
			Budget:      "1500",
			Passport:    types.Yes,
			Visa:        types.No,
			AirlineName: "Delta",
			AirlineCode: "DL",
		},
	})
	want := State{
		Origin: "MEX", Destination: "SFO",
		StartDate: "2024-09-05", EndDate: "2024-09-09",
		SeatPreference: "window", Budget: "1500",
		FlightPreference: "Delta",
		HasPassport:      types.Yes, HasVisa: types.No,
	}
	if s != want {
		t.Fatalf("merged state = %+v\nwant %+v", s, want)
	}
	if len(s.MissingRequiredSlots()) != 0 || !s.Complete() {
		t.Errorf("expected complete state, missing %v", s.MissingRequiredSlots())
	}
}

func TestMergeNeverOverwrites(t *testing.T) {
	s := State{Origin: "MEX", Destination: "SFO", StartDate: "2024-09-05", EndDate: "2024-09-09", SeatPreference: "aisle", HasVisa: types.Yes}
	before := s
	s.Merge(extract.Result{
		Origin:      "LON",
		Destination: "TYO",
		Dates:       explicitDates("2024-10-01", "2024-10-05"),
		Preferences: extract.Preferences{Seat: extract.SeatWindow, Visa: types.No},
	})
	if s != before {
		t.Errorf("filled slots changed: %+v", s)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	r := extract.Result{
		Origin: "MEX",
		Dates:  explicitDates("2024-09-05", "2024-09-09"),
		Preferences: extract.Preferences{
			ShareRoom: types.No, ShareRoomNegated: true, FrequentFlyer: "AM123",
		},
	}
	var once, twice State
	once.Merge(r)
	twice.Merge(r)
	twice.Merge(r)
	if once != twice {
		t.Errorf("merge twice = %+v, once = %+v", twice, once)
	}
}

func TestMergeRoomNegationOverrides(t *testing.T) {
	s := State{WillShareRoom: types.Yes}
	s.Merge(extract.Result{Preferences: extract.Preferences{ShareRoom: types.No, ShareRoomNegated: true}})
	if s.WillShareRoom != types.No {
		t.Errorf("WillShareRoom = %v, want No", s.WillShareRoom)
	}

	s = State{WillShareRoom: types.No}
	s.Merge(extract.Result{Preferences: extract.Preferences{ShareRoom: types.Yes}})
	if s.WillShareRoom != types.No {
		t.Errorf("positive mention must not flip a stored refusal, got %v", s.WillShareRoom)
	}
}

func TestMergeSingleAirport(t *testing.T) {
	tests := []struct {
		name  string
		state State
		code  string
		want  State
	}{
		{"fills origin first", State{}, "SFO", State{Origin: "SFO"}},
		{"then destination", State{Origin: "MEX"}, "SFO", State{Origin: "MEX", Destination: "SFO"}},
		{"repeat of origin ignored", State{Origin: "MEX"}, "MEX", State{Origin: "MEX"}},
		{"fills origin when only destination set", State{Destination: "SFO"}, "MEX", State{Origin: "MEX", Destination: "SFO"}},
		{"both set", State{Origin: "MEX", Destination: "SFO"}, "LON", State{Origin: "MEX", Destination: "SFO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state
			s.Merge(extract.Result{Origin: tt.code})
			if s != tt.want {
				t.Errorf("got %+v, want %+v", s, tt.want)
			}
		})
	}
}

func TestMergePairDoesNotDuplicateEndpoint(t *testing.T) {
	s := State{Origin: "MEX"}
	s.Merge(extract.Result{Origin: "SFO", Destination: "MEX"})
	if s.Destination == "MEX" {
		t.Errorf("destination must not repeat the origin, got %+v", s)
	}
}

func TestMergeDates(t *testing.T) {
	t.Run("default dates never fill", func(t *testing.T) {
		var s State
		s.Merge(extract.Result{Dates: extract.DateRange{Outbound: "2024-08-23", Return: "2024-08-26", Source: extract.DateDefault}})
		if s.StartDate != "" || s.EndDate != "" {
			t.Errorf("default range leaked into state: %+v", s)
		}
	})
	t.Run("one way leaves end date missing", func(t *testing.T) {
		var s State
		s.Merge(extract.Result{Dates: extract.DateRange{Outbound: "2024-08-25", Source: extract.DateBareDay, OneWay: true}})
		if s.StartDate != "2024-08-25" || s.EndDate != "" {
			t.Fatalf("got %+v", s)
		}
		if got := s.MissingRequiredSlots(); !reflect.DeepEqual(got, []Slot{SlotOrigin, SlotDestination, SlotEndDate}) {
			t.Errorf("missing = %v", got)
		}
	})
	t.Run("bare day keeps computed return out of state", func(t *testing.T) {
		var s State
		s.Merge(extract.Result{Dates: extract.DateRange{Outbound: "2024-09-05", Return: "2024-09-08", Source: extract.DateBareDay, ReturnGuessed: true}})
		if s.StartDate != "2024-09-05" || s.EndDate != "" {
			t.Fatalf("got %+v", s)
		}
		s.Merge(extract.Result{Dates: extract.DateRange{Outbound: "2024-09-05", Return: "2024-09-08", Source: extract.DateBareDay, ReturnGuessed: true}})
		if s.EndDate != "" {
			t.Errorf("repeated bare day filled EndDate = %q", s.EndDate)
		}
	})
	t.Run("single iso date keeps computed return out of state", func(t *testing.T) {
		var s State
		s.Merge(extract.Result{Dates: extract.DateRange{Outbound: "2024-09-05", Return: "2024-09-09", Source: extract.DateISO, ReturnGuessed: true}})
		if s.StartDate != "2024-09-05" || s.EndDate != "" {
			t.Errorf("got %+v", s)
		}
	})
	t.Run("stored start completed by agreeing pair", func(t *testing.T) {
		s := State{StartDate: "2024-09-05"}
		s.Merge(extract.Result{Dates: explicitDates("2024-09-05", "2024-09-12")})
		if s.EndDate != "2024-09-12" {
			t.Errorf("EndDate = %q", s.EndDate)
		}
	})
	t.Run("stored start not mixed with other pair", func(t *testing.T) {
		s := State{StartDate: "2024-09-05"}
		s.Merge(extract.Result{Dates: explicitDates("2024-10-01", "2024-10-04")})
		if s.StartDate != "2024-09-05" || s.EndDate != "" {
			t.Errorf("got %+v", s)
		}
	})
}

func TestMissingRequiredSlotsOrder(t *testing.T) {
	if got := (State{}).MissingRequiredSlots(); !reflect.DeepEqual(got, RequiredSlots) {
		t.Errorf("empty state missing = %v", got)
	}
	s := State{Destination: "SFO", EndDate: "2024-09-09"}
	if got := s.MissingRequiredSlots(); !reflect.DeepEqual(got, []Slot{SlotOrigin, SlotStartDate}) {
		t.Errorf("missing = %v", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s := State{
		Origin: "MEX", Destination: "SFO", StartDate: "2024-09-05", EndDate: "2024-09-09",
		VenueOrReason: "Moscone Center", FlightPreference: "Aeroméxico, negocios",
		HotelPreference: "cerca del venue", FrequentFlyerNumber: "AM123456",
		SeatPreference: "aisle", Budget: "1500",
		HasPassport: types.Yes, HasVisa: types.No,
	}
	m := Serialize(s)
	if _, ok := m["share_room"]; ok {
		t.Errorf("unknown tristate must be omitted: %v", m)
	}
	if m["passport"] != "true" || m["visa"] != "false" {
		t.Errorf("flags serialized as %q/%q", m["passport"], m["visa"])
	}
	if got := Deserialize(m); got != s {
		t.Errorf("round trip = %+v\nwant %+v", got, s)
	}
}

func TestDeserializeDropsMalformedValues(t *testing.T) {
	got := Deserialize(map[string]string{
		"origin":     "Mexico City",
		"start_date": "05/09/2024",
		"end_date":   "2024-09-09",
		"budget":     "mucho",
		"visa":       "quizás",
		"reason":     "conferencia",
		"unknown":    "x",
	})
	want := State{EndDate: "2024-09-09", VenueOrReason: "conferencia"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStateFromFieldsAcceptsNativeTypes(t *testing.T) {
	got := stateFromFields(map[string]any{
		"origin":     "mex",
		"budget":     int64(2000),
		"passport":   true,
		"share_room": false,
	})
	want := State{Origin: "MEX", Budget: "2000", HasPassport: types.Yes, WillShareRoom: types.No}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHistoryTruncate(t *testing.T) {
	var h History
	for i := 0; i < 25; i++ {
		h = h.Append(SpeakerUser, string(rune('a'+i)))
	}
	got := h.Truncate(MaxHistory)
	if len(got) != MaxHistory {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Text != "f" || got[len(got)-1].Text != "y" {
		t.Errorf("kept %q..%q, want the most recent turns", got[0].Text, got[len(got)-1].Text)
	}
	short := History{{SpeakerUser, "hola"}}
	if got := short.Truncate(MaxHistory); len(got) != 1 {
		t.Errorf("short history changed: %v", got)
	}
}

func TestHistoryAppendDoesNotAlias(t *testing.T) {
	base := make(History, 1, 4)
	base[0] = Turn{SpeakerUser, "hola"}
	a := base.Append(SpeakerBot, "a")
	b := base.Append(SpeakerBot, "b")
	if a[1].Text != "a" || b[1].Text != "b" {
		t.Errorf("appends share backing array: %v %v", a, b)
	}
}

func TestHistoryTranscript(t *testing.T) {
	h := History{{SpeakerUser, "hola"}, {SpeakerBot, "¿a dónde viajas?"}}
	want := "Usuario: hola\nBot: ¿a dónde viajas?\n"
	if got := h.Transcript(); got != want {
		t.Errorf("Transcript() = %q", got)
	}
}

func TestRecordFromDocument(t *testing.T) {
	rec := recordFromDocument(map[string]any{
		"state": map[string]any{"origin": "MEX", "visa": true},
		"history": []any{
			map[string]any{"speaker": "user", "text": "hola"},
			map[string]any{"bot": "hola, ¿a dónde?"},
			"garbage",
			map[string]any{"speaker": "system", "text": "x"},
		},
		"profile": map[string]any{"Nombre": "Ana", "Nivel": 3},
	})
	if rec.State.Origin != "MEX" || rec.State.HasVisa != types.Yes {
		t.Errorf("state = %+v", rec.State)
	}
	wantHist := History{{SpeakerUser, "hola"}, {SpeakerBot, "hola, ¿a dónde?"}}
	if !reflect.DeepEqual(rec.History, wantHist) {
		t.Errorf("history = %v", rec.History)
	}
	if !reflect.DeepEqual(rec.Profile, Profile{"Nombre": "Ana"}) {
		t.Errorf("profile = %v", rec.Profile)
	}

	empty := recordFromDocument(map[string]any{"state": "not a map"})
	if empty.State != (State{}) || len(empty.History) != 0 {
		t.Errorf("malformed document should decode empty, got %+v", empty)
	}
}

func TestMemoryStorePartialUpdates(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	uid := types.ID("U1")

	if _, err := st.GetRecord(ctx, uid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.PutRecord(ctx, uid, Update{Profile: Profile{"Nombre": "Ana"}}); err != nil {
		t.Fatal(err)
	}
	h := History{{SpeakerUser, "hola"}}
	if err := st.PutRecord(ctx, uid, Update{State: &State{Origin: "MEX"}, History: &h}); err != nil {
		t.Fatal(err)
	}
	if err := st.PutRecord(ctx, uid, Update{State: &State{Destination: "SFO"}, Profile: Profile{"Nivel": "Senior"}}); err != nil {
		t.Fatal(err)
	}

	rec, err := st.GetRecord(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	if rec.State.Origin != "MEX" || rec.State.Destination != "SFO" {
		t.Errorf("state = %+v", rec.State)
	}
	if len(rec.History) != 1 {
		t.Errorf("history replaced by a nil update: %v", rec.History)
	}
	if rec.Profile["Nombre"] != "Ana" || rec.Profile["Nivel"] != "Senior" {
		t.Errorf("profile = %v", rec.Profile)
	}

	rec.Profile["Nombre"] = "mutated"
	again, _ := st.GetRecord(ctx, uid)
	if again.Profile["Nombre"] != "Ana" {
		t.Error("GetRecord must return a copy")
	}
}

func TestUpdateDocumentOmitsEmptyMaps(t *testing.T) {
	empty := History{}
	doc := Update{State: &State{}, History: &empty, Profile: Profile{}}.document()
	if _, ok := doc["state"]; ok {
		t.Error("empty state must not be written")
	}
	if _, ok := doc["profile"]; ok {
		t.Error("empty profile must not be written")
	}
	if h, ok := doc["history"].([]any); !ok || len(h) != 0 {
		t.Errorf("history = %#v", doc["history"])
	}

	h := History{{SpeakerUser, "hola"}}
	doc = Update{State: &State{Origin: "MEX"}, History: &h}.document()
	rec := recordFromDocument(doc)
	if rec.State.Origin != "MEX" || len(rec.History) != 1 || rec.History[0].Text != "hola" {
		t.Errorf("document does not decode back: %+v", rec)
	}
}
