package types

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPage is returned when a page parameter cannot be parsed.
var ErrInvalidPage = errors.New("invalid page parameter")

const (
	// DefaultPageSize is used when the requested page size is not positive.
	DefaultPageSize = 20
	// PageSizeUnlimited is the textual sentinel for "return every row".
	PageSizeUnlimited = "unlimited"

	// MinDate and MaxDate are the open-ended bounds of a date range filter.
	MinDate = "0000-00-00"
	MaxDate = "9999-12-31"
)

// MemberFilter selects member rows. Empty fields are not applied.
type MemberFilter struct {
	UserID         string // substring of the user id
	Nickname       string // substring of nickname or group nickname
	GroupID        int64  // exact group id, 0 = any
	GroupName      string // substring of group name
	StartDate      string // inclusive YYYY-MM-DD
	EndDate        string // inclusive YYYY-MM-DD
	Cheat          *bool
	CompletedAfter string // empty completion time or strictly after this time of day
	IncludeStaged  bool   // query history UNION staged rows
}

// DateRange returns the inclusive date bounds and whether the filter applies.
func (f *MemberFilter) DateRange() (string, string, bool) {
	if f.StartDate == "" && f.EndDate == "" {
		return "", "", false
	}

	start, end := f.StartDate, f.EndDate
	if start == "" {
		start = MinDate
	}

	if end == "" {
		end = MaxDate
	}

	return start, end, true
}

// PageRequest describes which slice of the result to return.
type PageRequest struct {
	Unlimited bool
	PageNum   int
	PageSize  int
}

// UnlimitedPage returns every matching row.
func UnlimitedPage() PageRequest {
	return PageRequest{Unlimited: true}
}

// ParsePageRequest converts textual page parameters. An empty number means
// page 1 and an empty size means the default size.
func ParsePageRequest(pageNum, pageSize string) (PageRequest, error) {
	if strings.EqualFold(pageSize, PageSizeUnlimited) {
		return UnlimitedPage(), nil
	}

	req := PageRequest{PageNum: 1, PageSize: DefaultPageSize}

	if pageNum != "" {
		n, err := strconv.Atoi(pageNum)
		if err != nil {
			return req, fmt.Errorf("%w: page number %q", ErrInvalidPage, pageNum)
		}
		req.PageNum = n
	}

	if pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			return req, fmt.Errorf("%w: page size %q", ErrInvalidPage, pageSize)
		}
		req.PageSize = n
	}

	return req, nil
}

// PageWindow is the resolved pagination for a known row count.
type PageWindow struct {
	PageNum  int
	PageSize int
	PageMax  int
	Limit    int
	Offset   int
}

// Resolve computes the page window for count rows. Sizes below 1 fall back to
// DefaultPageSize and the page number is clamped into [1, PageMax].
func (p PageRequest) Resolve(count int) PageWindow {
	if p.Unlimited {
		return PageWindow{PageNum: 1, PageMax: 1}
	}

	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	pageMax := int(math.Ceil(float64(count) / float64(size)))

	num := min(p.PageNum, pageMax)
	num = max(num, 1)

	return PageWindow{
		PageNum:  num,
		PageSize: size,
		PageMax:  pageMax,
		Limit:    size,
		Offset:   (num - 1) * size,
	}
}

// MemberPage is a page of member rows plus its pagination metadata.
// PageSize is 0 for an unlimited page.
type MemberPage struct {
	Rows      []*Member `json:"rows"`
	Count     int       `json:"count"`
	PageMax   int       `json:"pageMax"`
	PageNum   int       `json:"pageNum"`
	PageSize  int       `json:"pageSize"`
	Unlimited bool      `json:"unlimited"`
}
