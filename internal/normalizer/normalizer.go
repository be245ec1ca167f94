// Package normalizer converts loosely formatted user/LLM-supplied dates,
// amounts and categories into canonical values. Every function here is pure:
// no storage, no network, no clocks beyond the reference date callers pass in.
package normalizer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDateFormat is returned when no supported date pattern matches.
	ErrDateFormat = fmt.Errorf("unrecognized date format")
	// ErrAmountFormat is returned when no supported amount pattern matches.
	ErrAmountFormat = fmt.Errorf("unrecognized amount format")
)

var (
	reDateISO      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reDateMonthDay = regexp.MustCompile(`^(\d{1,2})[/\-](\d{1,2})$`)
	reDateKorean   = regexp.MustCompile(`^(\d{1,2})월\s*(\d{1,2})일?$`)

	reAmountMan   = regexp.MustCompile(`^(\d+(?:\.\d+)?)만원?$`)
	reAmountDigit = regexp.MustCompile(`^(\d+)원?$`)
)

// NormalizeDate parses a date string in one of three shapes: "YYYY-MM-DD",
// "M/D" (or "M-D") and "M월 D일". Month/day-only forms resolve to the most
// recent matching calendar date not later than ref: the current year when
// that date is not in the future, otherwise the previous year. A month/day
// that is invalid in the current year (Feb 29 outside a leap year) also
// falls back to the previous year.
func NormalizeDate(raw string, ref time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)

	if m := reDateISO.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		d, ok := makeDate(year, month, day)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %s", ErrDateFormat, s)
		}
		return d, nil
	}

	if m := reDateMonthDay.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return mostRecentDate(ref, month, day)
	}

	if m := reDateKorean.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return mostRecentDate(ref, month, day)
	}

	return time.Time{}, fmt.Errorf("%w: %s", ErrDateFormat, s)
}

// mostRecentDate returns the latest valid (month, day) date that is not
// after ref.
func mostRecentDate(ref time.Time, month, day int) (time.Time, error) {
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if d, ok := makeDate(ref.Year(), month, day); ok && !d.After(refDay) {
		return d, nil
	}
	if d, ok := makeDate(ref.Year()-1, month, day); ok {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("%w: %d월 %d일", ErrDateFormat, month, day)
}

// makeDate builds a UTC calendar date, rejecting day/month combinations that
// time.Date would silently roll over (e.g. Feb 30 → Mar 2).
func makeDate(year, month, day int) (time.Time, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// NormalizeAmount converts a raw amount into a KRW integer. Integers pass
// through with negative/zero coerced to 0. Strings accept thousands
// separators, an optional 원 suffix and the 만 (×10,000) shorthand:
// "23,000원" → 23000, "2.3만" → 23000.
func NormalizeAmount(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return clampAmount(v), nil
	case int64:
		return clampAmount(int(v)), nil
	case float64:
		// JSON numbers decode as float64.
		return clampAmount(int(v)), nil
	case string:
		return normalizeAmountString(v)
	case nil:
		return 0, fmt.Errorf("%w: <nil>", ErrAmountFormat)
	default:
		return 0, fmt.Errorf("%w: %v", ErrAmountFormat, raw)
	}
}

func clampAmount(n int) int {
	if n <= 0 {
		return 0
	}
	return n
}

func normalizeAmountString(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	if m := reAmountMan.FindStringSubmatch(s); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrAmountFormat, raw)
		}
		return int(math.Round(f * 10_000)), nil
	}

	if m := reAmountDigit.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrAmountFormat, raw)
		}
		return n, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrAmountFormat, raw)
}
