package schedule_test

import (
	"testing"
	"time"

	"github.com/bczgroup/tracker/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRange(lo, hi int) []int {
	values := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, v)
	}
	return values
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want [5][]int
	}{
		{
			name: "all wildcards",
			expr: "* * * * *",
			want: [5][]int{
				fullRange(0, 59), fullRange(0, 23), fullRange(1, 31), fullRange(1, 12), fullRange(0, 6),
			},
		},
		{
			name: "daily record default",
			expr: "59 23 * * *",
			want: [5][]int{
				{59}, {23}, fullRange(1, 31), fullRange(1, 12), fullRange(0, 6),
			},
		},
		{
			name: "lists and ranges",
			expr: "0,30 8-10,20 1 1-3 1-5",
			want: [5][]int{
				{0, 30}, {8, 9, 10, 20}, {1}, {1, 2, 3}, {1, 2, 3, 4, 5},
			},
		},
		{
			name: "extra whitespace",
			expr: "  5\t4   *  * 0 ",
			want: [5][]int{
				{5}, {4}, fullRange(1, 31), fullRange(1, 12), {0},
			},
		},
		{
			name: "overlapping entries collapse",
			expr: "1,1-2,2 * * * *",
			want: [5][]int{
				{1, 2}, fullRange(0, 23), fullRange(1, 31), fullRange(1, 12), fullRange(0, 6),
			},
		},
	}

	fields := []schedule.Field{
		schedule.Minute, schedule.Hour, schedule.DayOfMonth, schedule.Month, schedule.DayOfWeek,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expr, err := schedule.Parse(tt.expr)
			require.NoError(t, err)

			for i, f := range fields {
				assert.Equal(t, tt.want[i], expr.Values(f), "field %d", i)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{name: "empty", expr: "", wantErr: schedule.ErrFieldCount},
		{name: "four fields", expr: "* * * *", wantErr: schedule.ErrFieldCount},
		{name: "six fields", expr: "0 * * * * *", wantErr: schedule.ErrFieldCount},
		{name: "minute too large", expr: "60 * * * *", wantErr: schedule.ErrInvalidField},
		{name: "day zero", expr: "* * 0 * *", wantErr: schedule.ErrInvalidField},
		{name: "weekday seven", expr: "* * * * 7", wantErr: schedule.ErrInvalidField},
		{name: "reversed range", expr: "* 5-3 * * *", wantErr: schedule.ErrInvalidField},
		{name: "not a number", expr: "a * * * *", wantErr: schedule.ErrInvalidField},
		{name: "step syntax", expr: "*/5 * * * *", wantErr: schedule.ErrInvalidField},
		{name: "negative", expr: "-1 * * * *", wantErr: schedule.ErrInvalidField},
		{name: "empty list entry", expr: "1,,2 * * * *", wantErr: schedule.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := schedule.Parse(tt.expr)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseValuesWithinDomain(t *testing.T) {
	t.Parallel()

	bounds := map[schedule.Field][2]int{
		schedule.Minute:     {0, 59},
		schedule.Hour:       {0, 23},
		schedule.DayOfMonth: {1, 31},
		schedule.Month:      {1, 12},
		schedule.DayOfWeek:  {0, 6},
	}

	exprs := []string{
		"* * * * *",
		"0-59 0-23 1-31 1-12 0-6",
		"15,45 6,18 10-20 2,4,6 0,6",
		"0 0 1 1 *",
	}

	for _, raw := range exprs {
		expr, err := schedule.Parse(raw)
		require.NoError(t, err)

		for f, b := range bounds {
			for _, v := range expr.Values(f) {
				assert.GreaterOrEqual(t, v, b[0], raw)
				assert.LessOrEqual(t, v, b[1], raw)
			}
		}
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	// Weekdays count from Monday = 0, so 0-4 is Monday to Friday.
	expr, err := schedule.Parse("30 8 * * 0-4")
	require.NoError(t, err)

	// 2024-03-04 is a Monday.
	assert.True(t, expr.Match(time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)))
	assert.True(t, expr.Match(time.Date(2024, 3, 4, 8, 30, 59, 0, time.UTC)))
	assert.False(t, expr.Match(time.Date(2024, 3, 4, 8, 31, 0, 0, time.UTC)))
	assert.True(t, expr.Match(time.Date(2024, 3, 8, 8, 30, 0, 0, time.UTC)), "friday")
	assert.False(t, expr.Match(time.Date(2024, 3, 3, 8, 30, 0, 0, time.UTC)), "sunday")
	assert.False(t, expr.Match(time.Date(2024, 3, 9, 8, 30, 0, 0, time.UTC)), "saturday")
}

func TestMatchWeekdayNumbering(t *testing.T) {
	t.Parallel()

	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Weekday
	}{
		{expr: "0 9 * * 0", want: time.Monday},
		{expr: "0 9 * * 4", want: time.Friday},
		{expr: "0 9 * * 5", want: time.Saturday},
		{expr: "0 9 * * 6", want: time.Sunday},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()

			expr, err := schedule.Parse(tt.expr)
			require.NoError(t, err)

			var matched []time.Weekday
			for i := range 7 {
				day := monday.AddDate(0, 0, i)
				if expr.Match(day) {
					matched = append(matched, day.Weekday())
				}
			}

			assert.Equal(t, []time.Weekday{tt.want}, matched)
		})
	}
}

// countYear walks every minute of 2023 and returns the matching minutes.
func countYear(t *testing.T, raw string) []time.Time {
	t.Helper()

	expr, err := schedule.Parse(raw)
	require.NoError(t, err)

	var hits []time.Time

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	for at := start; at.Before(end); at = at.Add(time.Minute) {
		if expr.Match(at) {
			hits = append(hits, at)
		}
	}

	return hits
}

func TestMatchSimulatedYear(t *testing.T) {
	t.Parallel()

	t.Run("daily at 23:59", func(t *testing.T) {
		t.Parallel()

		hits := countYear(t, "59 23 * * *")
		require.Len(t, hits, 365)

		days := make(map[string]struct{}, len(hits))
		for _, hit := range hits {
			assert.Equal(t, 23, hit.Hour())
			assert.Equal(t, 59, hit.Minute())
			days[hit.Format(time.DateOnly)] = struct{}{}
		}
		assert.Len(t, days, 365)
	})

	t.Run("yearly at midnight jan 1", func(t *testing.T) {
		t.Parallel()

		hits := countYear(t, "0 0 1 1 *")
		require.Len(t, hits, 1)
		assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), hits[0])
	})

	t.Run("mondays only", func(t *testing.T) {
		t.Parallel()

		hits := countYear(t, "0 12 * * 0")
		require.Len(t, hits, 52)
		for _, hit := range hits {
			assert.Equal(t, time.Monday, hit.Weekday())
		}
	})

	t.Run("sundays only", func(t *testing.T) {
		t.Parallel()

		hits := countYear(t, "0 12 * * 6")
		// 2023 starts and ends on a Sunday.
		require.Len(t, hits, 53)
		for _, hit := range hits {
			assert.Equal(t, time.Sunday, hit.Weekday())
		}
	})
}
