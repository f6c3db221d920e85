package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bczgroup/tracker/pkg/utils"
)

// ErrInvalidWeek is returned for a week that is not "YYYY-Www" (or "YYYY-Ww").
var ErrInvalidWeek = errors.New("week must be formatted as YYYY-Www")

const (
	daysPerWeek = 7
	maxWeek     = 53
)

var weekPattern = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)

// WeekWindow is the inclusive seven day range of a numbered week. Week 1 is
// the Monday-based week containing January 1.
type WeekWindow struct {
	Year  int
	Week  int
	Start time.Time
	End   time.Time
}

// ParseWeek parses "YYYY-Www" into its date window in loc.
func ParseWeek(s string, loc *time.Location) (WeekWindow, error) {
	m := weekPattern.FindStringSubmatch(s)
	if m == nil {
		return WeekWindow{}, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
	}

	year, _ := strconv.Atoi(m[1])
	week, _ := strconv.Atoi(m[2])

	if week < 1 || week > maxWeek {
		return WeekWindow{}, fmt.Errorf("%w: week %d out of range", ErrInvalidWeek, week)
	}

	return NewWeekWindow(year, week, loc), nil
}

// NewWeekWindow returns the window of a week number without validation.
func NewWeekWindow(year, week int, loc *time.Location) WeekWindow {
	if loc == nil {
		loc = time.Local
	}

	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	start := jan1.AddDate(0, 0, (week-1)*daysPerWeek-utils.MondayWeekday(jan1))

	return WeekWindow{
		Year:  year,
		Week:  week,
		Start: start,
		End:   start.AddDate(0, 0, daysPerWeek-1),
	}
}

// WeekOf returns the window containing t.
func WeekOf(t time.Time) WeekWindow {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	week := (t.YearDay()-1+utils.MondayWeekday(jan1))/daysPerWeek + 1

	return NewWeekWindow(t.Year(), week, t.Location())
}

// String formats the window as "YYYY-Www".
func (w WeekWindow) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Week)
}

// StartDate returns the first day as YYYY-MM-DD.
func (w WeekWindow) StartDate() string {
	return w.Start.Format(time.DateOnly)
}

// EndDate returns the last day as YYYY-MM-DD.
func (w WeekWindow) EndDate() string {
	return w.End.Format(time.DateOnly)
}

// Contains reports whether the calendar day of t falls inside the window.
func (w WeekWindow) Contains(t time.Time) bool {
	day := t.In(w.Start.Location()).Format(time.DateOnly)
	return day >= w.StartDate() && day <= w.EndDate()
}

// Days returns the seven dates of the window as YYYY-MM-DD.
func (w WeekWindow) Days() []string {
	days := make([]string, 0, daysPerWeek)
	for i := range daysPerWeek {
		days = append(days, w.Start.AddDate(0, 0, i).Format(time.DateOnly))
	}

	return days
}

// WeekOptions returns the week containing now followed by the previous n weeks.
func WeekOptions(now time.Time, n int) []string {
	options := make([]string, 0, n+1)
	for i := range n + 1 {
		options = append(options, WeekOf(now.AddDate(0, 0, -daysPerWeek*i)).String())
	}

	return options
}
