package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tripdesk/internal/modules/gazetteer"
)

// ISODate is the layout of every date the extractor emits.
const ISODate = "2006-01-02"

// DateSource records which rule produced a DateRange.
type DateSource uint8

const (
	// DateDefault is the fallback suggestion; the text named no date.
	DateDefault DateSource = iota
	DateBareDay
	DateDayRange
	DateISO
)

// DateRange holds ISO calendar dates. Return is empty for one-way trips.
// ReturnGuessed marks a Return computed from the outbound date rather than
// read from the text; it is a suggestion and never a slot value.
type DateRange struct {
	Outbound      string
	Return        string
	Source        DateSource
	OneWay        bool
	ReturnGuessed bool
}

// Explicit reports whether the dates came from the text rather than the default rule.
func (d DateRange) Explicit() bool { return d.Source != DateDefault }

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	// "del 5 al 9", "5 to 9", "from 12 until 15". Neither day may touch a
	// '/' or '-', so "15/09 al 20/09" is not read as the 9th to the 20th.
	dayRangeRe = regexp.MustCompile(`(?i)(?:^|[^\d/-])(\d{1,2})(?:[^\d/-]\D{0,24}?)?\b(?:al|hasta|to|until|through)\b(?:\D{0,24}?[^\d/-])?(\d{1,2})(?:[^\d/-]|$)`)
	// A lone day number; digits glued to money, times or other numbers do not count.
	bareDayRe = regexp.MustCompile(`(?:^|[^\d,.$:/-])(\d{1,2})(?:$|[^\d,.:/%-])`)
)

var oneWayPhrases = []string{"SOLO IDA", "ONE WAY", "ONEWAY", "VIAJE SENCILLO", "VUELO SENCILLO"}

// ResolveDateRange applies, in priority order: two ISO dates; a "from day to
// day" phrase; a single bare day of month; and finally the default of the
// first weekday at least three days from today. It is pure given today.
func ResolveDateRange(text string, today time.Time) DateRange {
	today = dateOf(today)
	oneWay := isOneWay(text)

	if dates := isoDates(text); len(dates) > 0 {
		dr := DateRange{Outbound: dates[0].Format(ISODate), Source: DateISO, OneWay: oneWay}
		if len(dates) > 1 {
			dr.Return = dates[1].Format(ISODate)
			return dr
		}
		if !oneWay {
			dr.Return = returnAfter(dates[0]).Format(ISODate)
			dr.ReturnGuessed = true
		}
		return dr
	}

	if m := dayRangeRe.FindStringSubmatch(text); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		if out, ok := onOrAfter(today, start); ok {
			if ret, ok := onOrAfter(out, end); ok {
				return DateRange{
					Outbound: out.Format(ISODate),
					Return:   ret.Format(ISODate),
					Source:   DateDayRange,
					OneWay:   oneWay,
				}
			}
		}
	}

	var out time.Time
	source := DateDefault
	if m := bareDayRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		if d, ok := onOrAfter(today, day); ok {
			out, source = d, DateBareDay
		}
	}
	if source == DateDefault {
		out = nextWeekday(today.AddDate(0, 0, 3))
	}

	dr := DateRange{Outbound: out.Format(ISODate), Source: source, OneWay: oneWay}
	if !oneWay {
		dr.Return = returnAfter(out).Format(ISODate)
		dr.ReturnGuessed = true
	}
	return dr
}

func isOneWay(text string) bool {
	joined := " " + strings.Join(gazetteer.Tokens(text), " ") + " "
	for _, p := range oneWayPhrases {
		if strings.Contains(joined, " "+p+" ") {
			return true
		}
	}
	return false
}

// isoDates returns the valid ISO dates in text, in the order they appear.
func isoDates(text string) []time.Time {
	var out []time.Time
	for _, m := range isoDateRe.FindAllString(text, -1) {
		if d, err := time.Parse(ISODate, m); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// onOrAfter returns the first date >= from whose day of month is day,
// rolling forward month by month (and across years) as needed.
func onOrAfter(from time.Time, day int) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	if day < from.Day() {
		first = first.AddDate(0, 1, 0)
	}
	for i := 0; i < 12; i++ {
		month := first.AddDate(0, i, 0)
		d := month.AddDate(0, 0, day-1)
		if d.Month() == month.Month() {
			return d, true
		}
	}
	return time.Time{}, false
}

func returnAfter(out time.Time) time.Time {
	return nextWeekday(out.AddDate(0, 0, 3))
}

func nextWeekday(d time.Time) time.Time {
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// dateOf drops the clock part of t, keeping its calendar date in its own zone.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
