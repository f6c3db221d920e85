package utils

import "time"

// MondayWeekday numbers the weekday of t from Monday = 0 to Sunday = 6.
func MondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
