// README: Entity extractor; turns free text into origin/destination codes, a date range and preferences.
package extract

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"tripdesk/internal/modules/gazetteer"
)

// maxWindow is the longest city name, in tokens, that the scanner tries.
const maxWindow = 3

// Candidate is a resolved location code and the index of the leftmost token
// of the phrase it came from.
type Candidate struct {
	Code  string
	Index int
}

// Result is the transient output of one extraction pass. It is never persisted.
type Result struct {
	Origin      string
	Destination string
	Candidates  []Candidate
	Dates       DateRange
	Preferences Preferences
}

// Extractor is safe for concurrent use; it only reads shared tables.
type Extractor struct {
	// resolver includes CodeToken; names does not and serves every window
	// that was not typed as an upper-case code.
	resolver Resolver
	names    Resolver
	geocoder Geocoder
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Extractor)

// WithGeocoder appends an external lookup to the resolver chain.
func WithGeocoder(g Geocoder) Option {
	return func(e *Extractor) { e.geocoder = g }
}

// WithClock fixes the "today" reference used for date resolution.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

func New(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	names := Chain{Gazetteer}
	if e.geocoder != nil {
		names = append(names, NewGeocodingResolver(e.geocoder, e.logger))
	}
	e.names = names
	e.resolver = append(Chain{CodeToken}, names...)
	return e
}

// Extract runs every extractor over text.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	candidates := e.Candidates(ctx, text)
	r := Result{
		Candidates:  candidates,
		Dates:       e.ExtractDateRange(text),
		Preferences: ExtractPreferences(text),
	}
	r.Origin, r.Destination = assign(candidates)
	return r
}

// ExtractAirports returns the first two distinct active codes found in text,
// in reading order, as origin and destination. Either may be empty.
func (e *Extractor) ExtractAirports(ctx context.Context, text string) (origin, destination string) {
	return assign(e.Candidates(ctx, text))
}

// Candidates scans token windows from longest to shortest, resolves each one,
// drops codes outside the active allow-list, and returns the survivors ordered
// by position and deduplicated by code.
func (e *Extractor) Candidates(ctx context.Context, text string) []Candidate {
	words := gazetteer.Tokens(text)
	typedCode := typedCodes(text, len(words))
	memo := make(map[string]string)
	var found []Candidate
	for size := maxWindow; size >= 1; size-- {
		for i := 0; i+size <= len(words); i++ {
			phrase := strings.Join(words[i:i+size], " ")
			r, key := e.names, phrase
			if size == 1 && typedCode[i] {
				r, key = e.resolver, "code:"+phrase
			}
			code, seen := memo[key]
			if !seen {
				code, _ = r.Resolve(ctx, phrase)
				memo[key] = code
			}
			if code == "" || !gazetteer.IsActive(code) {
				continue
			}
			found = append(found, Candidate{Code: code, Index: i})
		}
	}
	// Stable: at equal positions the longer phrase, found first, stays first.
	sort.SliceStable(found, func(a, b int) bool { return found[a].Index < found[b].Index })

	seen := make(map[string]struct{}, len(found))
	out := found[:0]
	for _, c := range found {
		if _, dup := seen[c.Code]; dup {
			continue
		}
		seen[c.Code] = struct{}{}
		out = append(out, c)
	}
	return out
}

// typedCodes reports, per normalized token, whether the user wrote it as a
// 3-letter upper-case code. "par" and "Par" are words; "PAR" is a code.
func typedCodes(text string, n int) []bool {
	out := make([]bool, n)
	raw := gazetteer.RawTokens(text)
	if len(raw) != n {
		return out
	}
	for i, w := range raw {
		out[i] = codeTokenRe.MatchString(w)
	}
	return out
}

func assign(candidates []Candidate) (origin, destination string) {
	if len(candidates) > 0 {
		origin = candidates[0].Code
	}
	if len(candidates) > 1 {
		destination = candidates[1].Code
	}
	return origin, destination
}

// ExtractDateRange resolves dates against the extractor's clock.
func (e *Extractor) ExtractDateRange(text string) DateRange {
	return ResolveDateRange(text, e.now())
}
