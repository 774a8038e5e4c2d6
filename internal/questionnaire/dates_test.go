package questionnaire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, time.March, 15, 17, 45, 0, 0, time.FixedZone("X", 3600))

	tests := []struct {
		value   string
		want    time.Time
		wantErr bool
	}{
		{value: "now", want: date(2024, time.March, 15)},
		{value: "2021-06-30", want: date(2021, time.June, 30)},
		{value: "2021-06", want: date(2021, time.June, 1)},
		{value: "2021-13-01", wantErr: true},
		{value: "June 2021", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseDate(tt.value, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestRelativeDate(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		offset Offset
		want   time.Time
	}{
		{name: "zero", from: date(2021, time.May, 10), want: date(2021, time.May, 10)},
		{name: "days", from: date(2021, time.December, 30), offset: Offset{Days: 3}, want: date(2022, time.January, 2)},
		{name: "month clamps", from: date(2021, time.January, 31), offset: Offset{Months: 1}, want: date(2021, time.February, 28)},
		{name: "leap year clamps", from: date(2020, time.February, 29), offset: Offset{Years: 1}, want: date(2021, time.February, 28)},
		{name: "negative months", from: date(2021, time.March, 31), offset: Offset{Months: -1}, want: date(2021, time.February, 28)},
		{name: "negative across year", from: date(2021, time.January, 15), offset: Offset{Months: -13}, want: date(2019, time.December, 15)},
		{name: "months past year end", from: date(2021, time.November, 30), offset: Offset{Months: 3}, want: date(2022, time.February, 28)},
		{name: "combined", from: date(2021, time.January, 31), offset: Offset{Years: -1, Months: 1, Days: 1}, want: date(2020, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelativeDate(tt.from, tt.offset)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
