package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Month-first layouts are tried before day-first ones, so "03/05/2014" is
// 5 March. "25/03/2014" only parses day-first.
var dobLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"2/1/2006",
	"01-02-2006",
	"1-2-2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"Mon, 2 Jan 2006",
	"Monday, January 2, 2006",
}

// shortYearLayouts carry a two-digit year; see pivotYear.
var shortYearLayouts = []string{
	"1/2/06",
	"2/1/06",
	"1-2-06",
	"2-1-06",
	"2.1.06",
	"2-Jan-06",
}

// timeSuffix matches a trailing clock time such as " 0:00", " 13:45:10",
// "T00:00:00.000" or " 9:05 AM".
var timeSuffix = regexp.MustCompile(`(?i)[ T]+\d{1,2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:\s*[ap]\.?m\.?)?(?:\s*(?:z|[+-]\d{2}:?\d{2}))?$`)

// embeddedDate finds a full date inside otherwise unparseable text.
var embeddedDate = regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}`)

var yearPattern = regexp.MustCompile(`(?:19|20)\d{2}`)

// ParseDOB parses a date-of-birth cell. A trailing time of day is ignored.
// Two-digit years 00-49 are 20xx and 50-99 are 19xx. Text around a full
// date is ignored, and a date-shaped value that is not a real date is
// invalid. Only when nothing date-shaped is present does it fall back to the
// first 19xx/20xx year, taken as 1 January.
func ParseDOB(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if t, ok := parseDate(s); ok {
		return t, nil
	}
	candidates := embeddedDate.FindAllString(s, -1)
	for _, candidate := range candidates {
		if t, ok := parseDate(candidate); ok {
			return t, nil
		}
	}
	if len(candidates) > 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	if y := yearPattern.FindString(s); y != "" {
		year, _ := strconv.Atoi(y)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// parseDate tries every layout on s, then on s without its time of day.
func parseDate(s string) (time.Time, bool) {
	if t, ok := parseLayouts(s); ok {
		return t, true
	}
	if loc := timeSuffix.FindStringIndex(s); loc != nil && loc[0] > 0 {
		return parseLayouts(strings.TrimSpace(s[:loc[0]]))
	}
	return time.Time{}, false
}

func parseLayouts(s string) (time.Time, bool) {
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	for _, layout := range shortYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pivotYear(dateOnly(t)), true
		}
	}
	return time.Time{}, false
}

// pivotYear moves two-digit years 50-68, which time.Parse reads as
// 2050-2068, back into the 1900s.
func pivotYear(t time.Time) time.Time {
	if t.Year() >= 2050 {
		return t.AddDate(-100, 0, 0)
	}
	return t
}

// AgeOn returns whole years between dob and today, minus one when today's
// month/day is before the birthday.
func AgeOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// AgeFromCell combines ParseDOB and AgeOn.
func AgeFromCell(raw string, today time.Time) (int, error) {
	dob, err := ParseDOB(raw)
	if err != nil {
		return 0, err
	}
	return AgeOn(dob, today), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
