// Package apptime turns the loosely formatted date and time strings written by
// the intake assistant into absolute instants.
//
// Three date shapes are recognised: ISO dates ("2026-01-19"), dates carrying a
// four digit year ("19 January 2026", "Jan 19, 2026", "1/19/2026") and short
// dates without a year ("26th Jan"). Wall-clock values are interpreted in the
// location of the reference time passed to Resolve.
package apptime

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// rolloverMonths is the month distance past which a year-less date that already
// lies in the past is assumed to belong to the next year. It is a heuristic: a
// booking made far in advance can be pushed a year too far.
const rolloverMonths = 6

var (
	ordinalSuffix = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	isoDate       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	fourDigitYear = regexp.MustCompile(`\d{4}`)
	digitsOnly    = regexp.MustCompile(`^\d+$`)
)

var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"Monday 2 January 2006",
	"Mon 2 Jan 2006",
	"Monday January 2 2006",
	"Mon Jan 2 2006",
	"1/2/2006",
	"2006/1/2",
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"3 PM",
	"3PM",
}

// Instant is the result of resolving a date and time pair. Valid is false when
// the inputs could not be understood.
type Instant struct {
	Time  time.Time
	Valid bool
}

// Unresolvable is the zero Instant.
var Unresolvable = Instant{}

// Resolve parses dateText and timeText relative to now. It never fails loudly:
// missing or malformed input yields an invalid Instant.
func Resolve(dateText, timeText string, now time.Time) Instant {
	date := normalizeDate(dateText)
	clock := normalizeTime(timeText)
	if date == "" || clock == "" {
		return Unresolvable
	}

	loc := now.Location()

	if m := isoDate.FindStringSubmatch(date); m != nil {
		if !strings.Contains(clock, ":") && digitsOnly.MatchString(clock) {
			clock += ":00"
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
			return Unresolvable
		}
		hour, minute, second, ok := parseClock(clock)
		if !ok {
			return Unresolvable
		}
		return Instant{Time: time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), Valid: true}
	}

	if fourDigitYear.MatchString(date) {
		return combine(date, clock, loc)
	}

	resolved := combine(date+" "+strconv.Itoa(now.Year()), clock, loc)
	if !resolved.Valid {
		return Unresolvable
	}
	if resolved.Time.Before(now) && monthDistance(now.Month(), resolved.Time.Month()) > rolloverMonths {
		resolved.Time = resolved.Time.AddDate(1, 0, 0)
	}
	return resolved
}

func normalizeDate(s string) string {
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ",", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func normalizeTime(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func combine(date, clock string, loc *time.Location) Instant {
	day, ok := parseDate(date, loc)
	if !ok {
		return Unresolvable
	}
	hour, minute, second, ok := parseClock(clock)
	if !ok {
		return Unresolvable
	}
	y, m, d := day.Date()
	return Instant{Time: time.Date(y, m, d, hour, minute, second, 0, loc), Valid: true}
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock accepts 24-hour and 12-hour clock strings. AM/PM markers are
// matched regardless of case.
func parseClock(s string) (hour, minute, second int, ok bool) {
	s = strings.ToUpper(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

func monthDistance(a, b time.Month) int {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
