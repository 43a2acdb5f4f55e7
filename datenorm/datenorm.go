// CLAUDE:SUMMARY Converts free-form date text from personnel documents into ISO yyyy-mm-dd or an open-ended sentinel.
// Package datenorm normalizes the date spellings found in personnel documents.
//
// Recognized forms, tried in order:
//
//	01.08.2023          → 2023-08-01
//	25 September 1995   → 1995-09-25 (Russian genitive and English month names)
//	09.2014             → 2014-09-01
//	2014-09-01          → 2014-09-01
//	по н/время          → open-ended (no date)
//
// Anything else yields no date. Normalization never fails: callers get an
// explicit ok=false and leave the field empty.
package datenorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the output layout of every normalized date.
const ISOLayout = "2006-01-02"

// openEndedMarker is the "to present" phrase used in service-history columns.
const openEndedMarker = "н/время"

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,

	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
}

var (
	dayMonthYear  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	dayNameYear   = regexp.MustCompile(`^(\d{1,2})[\s\p{Zs}]+([A-Za-zА-Яа-яЁё]+)[\s\p{Zs}]+(\d{4})`)
	monthYear     = regexp.MustCompile(`^(\d{2})\.(\d{4})`)
	isoDate       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	monthYearCell = regexp.MustCompile(`^\d{2}\.\d{4}$`)
)

// parser turns a trimmed string into year, month, day. ok=false means the
// form did not match and the next parser should be tried.
type parser func(s string) (y, m, d int, ok bool)

var parsers = []parser{
	func(s string) (int, int, int, bool) {
		g := dayMonthYear.FindStringSubmatch(s)
		if g == nil {
			return 0, 0, 0, false
		}
		return atoi(g[3]), atoi(g[2]), atoi(g[1]), true
	},
	func(s string) (int, int, int, bool) {
		g := dayNameYear.FindStringSubmatch(s)
		if g == nil {
			return 0, 0, 0, false
		}
		m, ok := months[strings.ToLower(g[2])]
		if !ok {
			return 0, 0, 0, false
		}
		return atoi(g[3]), int(m), atoi(g[1]), true
	},
	func(s string) (int, int, int, bool) {
		g := monthYear.FindStringSubmatch(s)
		if g == nil {
			return 0, 0, 0, false
		}
		return atoi(g[2]), atoi(g[1]), 1, true
	},
	func(s string) (int, int, int, bool) {
		g := isoDate.FindStringSubmatch(s)
		if g == nil {
			return 0, 0, 0, false
		}
		return atoi(g[1]), atoi(g[2]), atoi(g[3]), true
	},
}

// Normalize returns the ISO form of text. ok is false for empty,
// unrecognized, impossible or open-ended ("по н/время") input.
func Normalize(text string) (iso string, ok bool) {
	s := strings.TrimSpace(text)
	if s == "" || IsOpenEnded(s) {
		return "", false
	}
	for _, p := range parsers {
		y, m, d, matched := p(s)
		if !matched {
			continue
		}
		return format(y, m, d)
	}
	return "", false
}

// Ptr is Normalize shaped for JSON fields: nil stands for "no date".
func Ptr(text string) *string {
	iso, ok := Normalize(text)
	if !ok {
		return nil
	}
	return &iso
}

// IsOpenEnded reports whether text is the "to present" marker.
func IsOpenEnded(text string) bool {
	return strings.Contains(strings.ToLower(text), openEndedMarker)
}

// IsDateToken reports whether text is exactly mm.yyyy or dd.mm.yyyy, the
// shapes that open a service-history row.
func IsDateToken(text string) bool {
	s := strings.TrimSpace(text)
	return monthYearCell.MatchString(s) || dayMonthYear.MatchString(s)
}

func format(y, m, d int) (string, bool) {
	if m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
