package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// HTTPDate is the publish date layout of feed items.
const HTTPDate = "Mon, 02 Jan 2006 15:04:05 GMT"

var (
	rfc822 = regexp.MustCompile(`^[A-Z][a-z]{2}, \d{1,2} [A-Z][a-z]{2} \d{4} \d{2}:\d{2}:\d{2} [A-Z]{3,4}$`)

	// broadcast is the fixed offset sessions are scheduled in.
	broadcast = time.FixedZone("UTC-6", -6*60*60)

	sessionStartHours = map[int]int{1: 10, 2: 12, 3: 14, 4: 16, 5: 18}
)

// PubDate derives the publish time of a talk from its date, session and
// sequence. Minutes past the hour roll over into the next hour. A date that
// is not YYYY-MM-DD is returned unchanged for ValidateDate to handle.
func PubDate(date string, session, sequence int) string {
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return date
	}
	hour, ok := sessionStartHours[session]
	if !ok {
		hour = 10
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), hour, sequence*5, 0, 0, broadcast)
	return t.UTC().Format(HTTPDate)
}

// ValidateDate returns s when it already is an HTTP date, the normalized
// HTTP date when s parses, and now otherwise.
func ValidateDate(s string, now func() time.Time) string {
	if rfc822.MatchString(s) {
		return s
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t.UTC().Format(HTTPDate)
	}
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(HTTPDate)
}

// humanDate renders a YYYY-MM-DD date as "Sat Apr 05 2025".
func humanDate(date string) string {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return date
	}
	return t.Format("Mon Jan 02 2006")
}
