package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

var dateKeyRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// DefaultEpoch is the first day the catalog published a picture.
var DefaultEpoch = DateKey{year: 1995, month: 6, day: 16}

// DateKey identifies a single calendar day. The zero value is not a valid key.
type DateKey struct {
	year  int
	month int
	day   int
}

// NewDateKey builds a calendar-valid DateKey without applying any catalog range rules.
func NewDateKey(year, month, day int) (DateKey, error) {
	if reason := calendarReason(year, month, day); reason != "" {
		return DateKey{}, &InvalidDateError{Year: year, Month: month, Day: day, Reason: reason}
	}
	return DateKey{year: year, month: month, day: day}, nil
}

// DateKeyFromTime returns the key for the calendar day of t in t's location.
func DateKeyFromTime(t time.Time) DateKey {
	return DateKey{year: t.Year(), month: int(t.Month()), day: t.Day()}
}

// ParseDateKey parses the canonical YYYY-MM-DD form.
func ParseDateKey(s string) (DateKey, error) {
	m := dateKeyRegex.FindStringSubmatch(s)
	if m == nil {
		return DateKey{}, &InvalidDateError{Input: s, Reason: "expected YYYY-MM-DD"}
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	key, err := NewDateKey(year, month, day)
	if err != nil {
		return DateKey{}, err
	}
	return key, nil
}

func (d DateKey) Year() int  { return d.year }
func (d DateKey) Month() int { return d.month }
func (d DateKey) Day() int   { return d.day }

// IsZero reports whether d is the zero value.
func (d DateKey) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

func (d DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// Time returns midnight UTC of the day.
func (d DateKey) Time() time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, 0, 0, 0, 0, time.UTC)
}

func (d DateKey) Compare(other DateKey) int {
	switch {
	case d.year != other.year:
		return cmpInt(d.year, other.year)
	case d.month != other.month:
		return cmpInt(d.month, other.month)
	default:
		return cmpInt(d.day, other.day)
	}
}

func (d DateKey) Before(other DateKey) bool { return d.Compare(other) < 0 }
func (d DateKey) After(other DateKey) bool  { return d.Compare(other) > 0 }
func (d DateKey) Equal(other DateKey) bool  { return d.Compare(other) == 0 }

func (d DateKey) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = DateKey{}
		return nil
	}
	key, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*d = key
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// IsLeapYear uses the plain divisible-by-four rule. Stored dates were validated
// with it, so 1900 and 2100 count as leap years here.
func IsLeapYear(year int) bool {
	return year%4 == 0
}

// DaysIn returns the number of days in month for year under IsLeapYear.
func DaysIn(year, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func calendarReason(year, month, day int) string {
	if month < 1 || month > 12 {
		return "month must be between 1 and 12"
	}
	if day < 1 || day > 31 {
		return "day must be between 1 and 31"
	}
	if day > DaysIn(year, month) {
		return fmt.Sprintf("day %d does not exist in %04d-%02d", day, year, month)
	}
	return ""
}

// Validator checks requested dates against the catalog's published range.
type Validator struct {
	Epoch DateKey
	Now   func() time.Time
}

// NewValidator returns a Validator using DefaultEpoch and the wall clock.
func NewValidator() *Validator {
	return &Validator{
		Epoch: DefaultEpoch,
		Now:   time.Now,
	}
}

// Today returns the validator's notion of the current day.
func (v *Validator) Today() DateKey {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	return DateKeyFromTime(now())
}

// Validate returns the DateKey for (year, month, day) if the catalog can serve it.
// The first failing rule wins.
func (v *Validator) Validate(year, month, day int) (DateKey, error) {
	today := v.Today()
	epoch := v.Epoch
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}

	invalid := func(reason string) (DateKey, error) {
		return DateKey{}, &InvalidDateError{Year: year, Month: month, Day: day, Reason: reason}
	}

	if year < epoch.year || year > today.year {
		return invalid(fmt.Sprintf("year must be between %d and %d", epoch.year, today.year))
	}
	if reason := calendarReason(year, month, day); reason != "" {
		return invalid(reason)
	}

	key := DateKey{year: year, month: month, day: day}
	if key.Before(epoch) {
		return invalid("date is before the first catalog entry on " + epoch.String())
	}
	if key.After(today) {
		return invalid("date is in the future")
	}

	return key, nil
}

// Parse parses s as YYYY-MM-DD and validates it.
func (v *Validator) Parse(s string) (DateKey, error) {
	key, err := ParseDateKey(s)
	if err != nil {
		return DateKey{}, err
	}
	return v.Validate(key.year, key.month, key.day)
}
