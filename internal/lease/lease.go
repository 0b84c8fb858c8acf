// Package lease derives lease end dates from a start date and a duration
// string. Durations are either one of the fixed tokens ("1 year" through
// "5 years") or free-form text carrying an optional year count and an
// optional month count, e.g. "3 years 4 months" or "18 months".
package lease

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/rental-booking/internal/apperr"
)

// FixedDurations are the tokens offered by the lease form.
var FixedDurations = []string{"1 year", "2 years", "3 years", "4 years", "5 years"}

// Upper bounds on a parsed duration. Longer terms are rejected rather than
// producing dates the store cannot hold.
const (
	MaxYears       = 99
	MaxTotalMonths = 1200
)

var (
	yearsRe  = regexp.MustCompile(`(?i)(\d+)\s*years?`)
	monthsRe = regexp.MustCompile(`(?i)(\d+)\s*months?`)
)

// Term is a parsed lease duration.
type Term struct {
	Years  int
	Months int
}

// TotalMonths returns the term length in calendar months.
func (t Term) TotalMonths() int { return t.Years*12 + t.Months }

func (t Term) String() string {
	var parts []string
	if t.Years > 0 {
		parts = append(parts, plural(t.Years, "year"))
	}
	if t.Months > 0 {
		parts = append(parts, plural(t.Months, "month"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

// Parse extracts the year and month counts from duration. The first integer
// immediately preceding a year unit and the first preceding a month unit are
// used; a missing unit counts as zero. A duration that resolves to zero
// months in total is rejected.
func Parse(duration string) (Term, error) {
	var t Term
	var err error
	if t.Years, err = firstCount(yearsRe, duration, MaxYears); err != nil {
		return Term{}, err
	}
	if t.Months, err = firstCount(monthsRe, duration, MaxTotalMonths); err != nil {
		return Term{}, err
	}
	switch total := t.TotalMonths(); {
	case total == 0:
		return Term{}, apperr.Validation("lease duration %q has no year or month count", duration)
	case total > MaxTotalMonths:
		return Term{}, apperr.Validation("lease duration %q exceeds %d months", duration, MaxTotalMonths)
	}
	return t, nil
}

// firstCount returns the count preceding the first match of re, rejecting
// counts above limit.
func firstCount(re *regexp.Regexp, s string, limit int) (int, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > limit {
		return 0, apperr.Validation("lease duration %q: count %s out of range (max %d)", s, m[1], limit)
	}
	return n, nil
}

// AddTerm advances start by t using calendar months. The day of month is
// preserved where the target month has it and clamped to the month's last
// day otherwise, so 31 January plus one month is the end of February.
func AddTerm(start time.Time, t Term) time.Time {
	y, m, d := start.Date()
	total := int(m) - 1 + t.TotalMonths()
	ty := y + total/12
	tm := time.Month(total%12 + 1)
	if last := daysIn(ty, tm, start.Location()); d > last {
		d = last
	}
	hh, mm, ss := start.Clock()
	return time.Date(ty, tm, d, hh, mm, ss, start.Nanosecond(), start.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// EndDate parses duration and returns the lease end date for start.
func EndDate(start time.Time, duration string) (time.Time, error) {
	t, err := Parse(duration)
	if err != nil {
		return time.Time{}, err
	}
	end := AddTerm(start, t)
	if !end.After(start) {
		return time.Time{}, apperr.Validation("lease duration %q does not end after %s", duration, start.Format(time.DateOnly))
	}
	return end, nil
}
