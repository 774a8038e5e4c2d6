package questionnaire

import (
	"fmt"
	"regexp"
	"time"
)

var fullDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Offset is a calendar offset applied to a date.
type Offset struct {
	Years  int
	Months int
	Days   int
}

func offsetFrom(v any) Offset {
	m, _ := asMap(v)
	return Offset{
		Years:  intOf(m["years"], 0),
		Months: intOf(m["months"], 0),
		Days:   intOf(m["days"], 0),
	}
}

// ParseDate parses YYYY-MM-DD or YYYY-MM. "now" resolves to today's UTC date.
func ParseDate(value string, now time.Time) (time.Time, error) {
	if value == "now" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	layout := "2006-01"
	if fullDatePattern.MatchString(value) {
		layout = "2006-01-02"
	}

	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// RelativeDate applies an offset: years and months first, with the day
// clamped to the last day of the resulting month, then days.
//
// 2021-01-31 plus one month is 2021-02-28, not 2021-03-03 as time.AddDate
// would produce.
func RelativeDate(t time.Time, o Offset) time.Time {
	totalMonths := int(t.Month()) - 1 + o.Months + 12*(t.Year()+o.Years)
	year := totalMonths / 12
	month := time.Month(totalMonths%12 + 1)
	if totalMonths < 0 && totalMonths%12 != 0 {
		year--
		month = time.Month(totalMonths%12 + 13)
	}

	day := t.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}

	shifted := time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return shifted.AddDate(0, 0, o.Days)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
