// Package timenorm turns the oracle's loose "[date; time]" answers into
// canonical time descriptors and repairs the ordering of a start/end pair.
//
// Nothing in this package returns an error: text that cannot be understood
// becomes an empty descriptor, which callers read as "no time given".
package timenorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

const (
	dateLayout = "2006-01-02"

	// shortest token that can still hold a date
	minTokenLen = 8
)

var (
	decoration = strings.NewReplacer(
		"[", "", "]", "",
		"<", "", ">", "",
		"\"", "", "'", "", "`", "",
		"«", "", "»", "",
		"\n", " ", "\t", " ",
	)

	clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{1,2}))?(?::(\d{1,2}))?(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?$`)

	// dates the oracle writes other than YYYY-MM-DD
	altDateLayouts = []string{"02.01.2006", "2006/01/02", "2006.01.02"}

	bareDateMarkers = map[string]bool{
		"-": true, "--": true, "—": true, "–": true,
		"none": true, "null": true, "nil": true, "n/a": true,
		"нет": true, "весь день": true, "all day": true, "all-day": true,
	}
)

// relative keywords, longest first so "послезавтра" is not read as "завтра"
var relativeKeywords = []struct {
	word string
	days int
}{
	{"day after tomorrow", 2},
	{"послезавтра", 2},
	{"tomorrow", 1},
	{"завтра", 1},
	{"сегодня", 0},
	{"today", 0},
}

// Normalizer canonicalizes oracle time answers in one fixed UTC offset.
type Normalizer struct {
	loc    *time.Location
	offset string
}

// New returns a Normalizer that stamps every dateTime with loc's offset.
// loc is expected to be a fixed zone.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Normalizer{
		loc:    loc,
		offset: time.Date(2000, 1, 1, 0, 0, 0, 0, loc).Format("-07:00"),
	}
}

// DefaultLocation is UTC+3.
func DefaultLocation() *time.Location {
	return time.FixedZone("+03:00", 3*60*60)
}

// Default returns a Normalizer for DefaultLocation.
func Default() *Normalizer {
	return New(DefaultLocation())
}

// Location returns the zone the normalizer resolves relative dates in.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize converts a raw oracle answer into a descriptor. now is the
// reference instant of the query and is used for relative dates.
func (n *Normalizer) Normalize(raw string, now time.Time) domain.TimeDescriptor {
	s := clean(raw)

	if d, ok := n.structured(s); ok {
		return d
	}
	if days, ok := relativeDays(strings.ToLower(s)); ok {
		return domain.TimeDescriptor{Date: now.In(n.loc).AddDate(0, 0, days).Format(dateLayout)}
	}
	return domain.TimeDescriptor{}
}

func clean(raw string) string {
	s := decoration.Replace(raw)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func relativeDays(lower string) (int, bool) {
	for _, kw := range relativeKeywords {
		if strings.Contains(lower, kw.word) {
			return kw.days, true
		}
	}
	return 0, false
}

func (n *Normalizer) structured(s string) (domain.TimeDescriptor, bool) {
	if len(s) < minTokenLen {
		return domain.TimeDescriptor{}, false
	}
	if strings.HasSuffix(s, ";") || strings.HasSuffix(s, "T") {
		return domain.TimeDescriptor{}, false
	}

	datePart, clockPart := split(s)

	date, ok := parseDate(datePart)
	if !ok {
		return domain.TimeDescriptor{}, false
	}

	clockPart = strings.TrimSpace(clockPart)
	if clockPart == "" || isBareDateMarker(clockPart) {
		return domain.TimeDescriptor{Date: date}, true
	}

	clock, ok := parseClock(clockPart)
	if !ok {
		return domain.TimeDescriptor{Date: date}, true
	}
	return domain.TimeDescriptor{DateTime: date + "T" + clock + n.offset}, true
}

// split collapses "date; time", "date time" and "dateTtime" into two parts.
func split(s string) (string, string) {
	if i := strings.Index(s, ";"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}

	fields := strings.Fields(s)
	if len(fields) > 1 {
		return fields[0], fields[1]
	}

	if i := strings.Index(s, "T"); i > 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func parseDate(s string) (string, bool) {
	s = strings.Trim(s, " ,.")
	if i := strings.Index(s, "T"); i > 0 {
		// "2024-12-22T19:00; ..." - the clock part is ignored here
		s = s[:i]
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.Format(dateLayout), true
	}
	for _, layout := range altDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}

func isBareDateMarker(s string) bool {
	lower := strings.ToLower(strings.Trim(s, " ,."))
	if bareDateMarkers[lower] {
		return true
	}
	// placeholders like "XX:XX"
	return strings.Trim(lower, "x:") == ""
}

// parseClock pads "HH" / "HH:MM" to "HH:MM:SS" and clamps hour 24 to 23.
func parseClock(s string) (string, bool) {
	s = strings.NewReplacer("X", "0", "x", "0").Replace(s)

	var m []string
	for _, field := range strings.Fields(s) {
		if m = clockPattern.FindStringSubmatch(strings.Trim(field, ",.")); m != nil {
			break
		}
	}
	if m == nil {
		return "", false
	}

	h, _ := strconv.Atoi(m[1])
	var mm, ss int
	if m[2] != "" {
		mm, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		ss, _ = strconv.Atoi(m[3])
	}

	if h == 24 {
		h = 23
	}
	if h > 23 || mm > 59 || ss > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, mm, ss), true
}
