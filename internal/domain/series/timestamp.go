package series

import (
	"strings"
	"time"
)

// isoLayouts are tried in order against the (possibly rewritten) input.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// slashLayouts cover engines that only understand slash-separated dates.
var slashLayouts = []string{
	"2006/1/2 15:04:05.999999999",
	"2006/1/2 15:04",
	"2006/1/2T15:04:05.999999999",
	"2006/1/2",
}

const dateOnlyLayout = "2006-01-02"

// Parser converts textual timestamps to epoch milliseconds. Zoneless inputs are read in Location.
type Parser struct {
	Location *time.Location
}

// NewParser returns a parser for loc; nil means UTC.
func NewParser(loc *time.Location) Parser {
	if loc == nil {
		loc = time.UTC
	}
	return Parser{Location: loc}
}

// Parse returns the epoch-ms value of raw, or ok=false when no known form matches.
func (p Parser) Parse(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	// "YYYY-MM-DD HH:MM:SS[...]" becomes ISO by swapping the separator; the suffix is kept.
	if len(s) >= 19 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}

	for _, layout := range isoLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts.UnixMilli(), true
		}
	}
	// ISO date-only forms denote UTC midnight.
	if ts, err := time.Parse(dateOnlyLayout, s); err == nil {
		return ts.UnixMilli(), true
	}

	slashed := strings.ReplaceAll(strings.TrimSpace(raw), "-", "/")
	for _, layout := range slashLayouts {
		if ts, err := time.ParseInLocation(layout, slashed, loc); err == nil {
			return ts.UnixMilli(), true
		}
	}
	return 0, false
}
