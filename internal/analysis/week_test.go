package analysis_test

import (
	"testing"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "year starting on monday", input: "2024-W01", wantStart: "2024-01-01", wantEnd: "2024-01-07"},
		{name: "tenth week", input: "2024-W10", wantStart: "2024-03-04", wantEnd: "2024-03-10"},
		{name: "year starting midweek", input: "2025-W01", wantStart: "2024-12-30", wantEnd: "2025-01-05"},
		{name: "sunday start year", input: "2023-W02", wantStart: "2023-01-02", wantEnd: "2023-01-08"},
		{name: "missing W", input: "2024-10", wantErr: true},
		{name: "week zero", input: "2024-W00", wantErr: true},
		{name: "week too large", input: "2024-W54", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, err := analysis.ParseWeek(tt.input, time.UTC)
			if tt.wantErr {
				require.ErrorIs(t, err, analysis.ErrInvalidWeek)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.StartDate())
			assert.Equal(t, tt.wantEnd, w.EndDate())
			assert.Equal(t, tt.input, w.String())
			assert.Len(t, w.Days(), 7)
		})
	}
}

func TestParseWeekSingleDigit(t *testing.T) {
	t.Parallel()

	w, err := analysis.ParseWeek("2024-W5", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-29", w.StartDate())
	assert.Equal(t, "2024-W05", w.String())

	_, err = analysis.ParseWeek("2024-W123", time.UTC)
	require.ErrorIs(t, err, analysis.ErrInvalidWeek)
}

func TestWeekOfRoundTrips(t *testing.T) {
	t.Parallel()

	for _, day := range []string{"2024-03-04", "2024-03-10", "2024-01-01", "2024-12-31", "2023-01-01", "2025-06-15"} {
		ts, err := time.ParseInLocation(time.DateOnly, day, time.UTC)
		require.NoError(t, err)

		w := analysis.WeekOf(ts)
		assert.True(t, w.Contains(ts), day)

		parsed, err := analysis.ParseWeek(w.String(), time.UTC)
		require.NoError(t, err)
		assert.Equal(t, w.StartDate(), parsed.StartDate(), day)
	}
}

func TestWeekContains(t *testing.T) {
	t.Parallel()

	w, err := analysis.ParseWeek("2024-W10", time.UTC)
	require.NoError(t, err)

	assert.True(t, w.Contains(time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)))
}

func TestWeekOptions(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2024-W10", "2024-W09", "2024-W08"}, analysis.WeekOptions(now, 2))
}
