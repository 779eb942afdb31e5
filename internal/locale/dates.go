package locale

import (
	"strconv"
	"strings"
	"time"
)

const unknownDate = "TBA"

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isVietnamese(locale string) bool {
	return strings.HasPrefix(strings.ToLower(locale), "vi")
}

// FormatDate renders a TMDB date in long form: "March 31, 1999" or
// "31 Tháng 3, 1999". Empty dates render as TBA; unparseable ones verbatim.
func FormatDate(date, locale string) string {
	if date == "" {
		return unknownDate
	}
	t, ok := parseDate(date)
	if !ok {
		return date
	}
	if isVietnamese(locale) {
		return strconv.Itoa(t.Day()) + " Tháng " + strconv.Itoa(int(t.Month())) + ", " + strconv.Itoa(t.Year())
	}
	return t.Format("January 2, 2006")
}

// FormatShortDate renders a TMDB date for cards: "Mar 31, 1999" or "31/3/1999".
func FormatShortDate(date, locale string) string {
	if date == "" {
		return unknownDate
	}
	t, ok := parseDate(date)
	if !ok {
		return date
	}
	if isVietnamese(locale) {
		return t.Format("2/1/2006")
	}
	return t.Format("Jan 2, 2006")
}

// Year returns the year of a TMDB date, or "" when unknown.
func Year(date string) string {
	t, ok := parseDate(date)
	if !ok {
		return ""
	}
	return strconv.Itoa(t.Year())
}
