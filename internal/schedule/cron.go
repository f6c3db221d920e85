package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bczgroup/tracker/pkg/utils"
)

var (
	// ErrFieldCount is returned when an expression does not have exactly five fields.
	ErrFieldCount = errors.New("cron expression must have exactly 5 fields")
	// ErrInvalidField is returned when a field cannot be parsed or leaves its domain.
	ErrInvalidField = errors.New("invalid cron field")
)

// Field identifies one of the five cron fields.
type Field int

const (
	Minute Field = iota
	Hour
	DayOfMonth
	Month
	DayOfWeek
)

// fieldBounds holds the inclusive domain of each field. Weekday uses Monday=0
// through Sunday=6.
var fieldBounds = [...]struct {
	name     string
	min, max int
}{
	Minute:     {"minute", 0, 59},
	Hour:       {"hour", 0, 23},
	DayOfMonth: {"day of month", 1, 31},
	Month:      {"month", 1, 12},
	DayOfWeek:  {"day of week", 0, 6},
}

// valueSet is a bitset over the values of a single field.
type valueSet uint64

func (s valueSet) has(v int) bool {
	return v >= 0 && v < 64 && s&(1<<uint(v)) != 0
}

// Expression is a parsed 5-field cron expression.
type Expression struct {
	raw    string
	fields [5]valueSet
}

// Parse parses a whitespace-separated minute/hour/day/month/weekday expression.
// Each field is "*" or a comma-separated list of integers and inclusive a-b ranges.
func Parse(expr string) (*Expression, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: %q has %d", ErrFieldCount, expr, len(parts))
	}

	e := &Expression{raw: strings.Join(parts, " ")}
	for i, part := range parts {
		set, err := parseField(part, Field(i))
		if err != nil {
			return nil, err
		}
		e.fields[i] = set
	}

	return e, nil
}

// parseField expands a single field into the set of values it matches.
func parseField(field string, f Field) (valueSet, error) {
	bounds := fieldBounds[f]

	if field == "*" {
		var set valueSet
		for v := bounds.min; v <= bounds.max; v++ {
			set |= 1 << uint(v)
		}
		return set, nil
	}

	var set valueSet
	for part := range strings.SplitSeq(field, ",") {
		start, end, err := parseRange(part)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidField, bounds.name, field, err)
		}

		if start < bounds.min || end > bounds.max || start > end {
			return 0, fmt.Errorf("%w: %s %q out of range %d-%d",
				ErrInvalidField, bounds.name, field, bounds.min, bounds.max)
		}

		for v := start; v <= end; v++ {
			set |= 1 << uint(v)
		}
	}

	return set, nil
}

// parseRange parses "n" or "a-b".
func parseRange(part string) (int, int, error) {
	lo, hi, isRange := strings.Cut(part, "-")

	start, err := strconv.Atoi(lo)
	if err != nil {
		return 0, 0, err
	}

	if !isRange {
		return start, start, nil
	}

	end, err := strconv.Atoi(hi)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// Match reports whether t falls in a minute selected by the expression.
func (e *Expression) Match(t time.Time) bool {
	return e.fields[Minute].has(t.Minute()) &&
		e.fields[Hour].has(t.Hour()) &&
		e.fields[DayOfMonth].has(t.Day()) &&
		e.fields[Month].has(int(t.Month())) &&
		e.fields[DayOfWeek].has(utils.MondayWeekday(t))
}

// Values returns the sorted values matched by a field.
func (e *Expression) Values(f Field) []int {
	bounds := fieldBounds[f]
	values := make([]int, 0, bounds.max-bounds.min+1)

	for v := bounds.min; v <= bounds.max; v++ {
		if e.fields[f].has(v) {
			values = append(values, v)
		}
	}

	return values
}

// String returns the normalized expression.
func (e *Expression) String() string {
	return e.raw
}
