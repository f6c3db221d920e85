package analysis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bczgroup/tracker/internal/database/types"
	"go.uber.org/zap"
)

// notCompletedRank sorts members without a completion time after everyone else.
const notCompletedRank = 999999

// MemberQuerier runs member history queries.
type MemberQuerier interface {
	QueryMembers(ctx context.Context, filter types.MemberFilter, page types.PageRequest) (*types.MemberPage, error)
}

// DayRecord is a member's recorded state on one day.
type DayRecord struct {
	Date          string `json:"date"`
	CompletedTime string `json:"time"`
	WordCount     int    `json:"count"`
}

// MemberStats is one member's attendance over a week.
type MemberStats struct {
	*types.Member

	Days    []DayRecord `json:"daka"`
	Late    int         `json:"late"`
	Absence int         `json:"absence"`
}

// Day returns the record of a date, if any.
func (m *MemberStats) Day(date string) (DayRecord, bool) {
	for _, d := range m.Days {
		if d.Date == date {
			return d, true
		}
	}

	return DayRecord{}, false
}

// GroupWeek is a group's attendance over a week.
type GroupWeek struct {
	Group        *types.ObservedGroup `json:"group"`
	Week         string               `json:"week"`
	Window       WeekWindow           `json:"-"`
	TotalTimes   int                  `json:"totalTimes"`
	LateTimes    int                  `json:"lateTimes"`
	AbsenceTimes int                  `json:"absenceTimes"`
	Members      []*MemberStats       `json:"members"`
}

// Analyzer computes weekly attendance metrics.
type Analyzer struct {
	members  MemberQuerier
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(members MemberQuerier, location *time.Location, logger *zap.Logger) *Analyzer {
	if location == nil {
		location = time.Local
	}

	return &Analyzer{
		members:  members,
		location: location,
		now:      time.Now,
		logger:   logger.Named("analyzer"),
	}
}

// WithClock replaces the clock used to decide whether a week is current.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// AnalyzeWeek computes per-member lateness and absence for each group over
// the given week. Groups without a roster are returned with zero stats.
func (a *Analyzer) AnalyzeWeek(ctx context.Context, groups []*types.ObservedGroup, isoWeek string) ([]*GroupWeek, error) {
	window, err := ParseWeek(isoWeek, a.location)
	if err != nil {
		return nil, err
	}

	isThisWeek := window.Contains(a.now().In(a.location))

	result := make([]*GroupWeek, 0, len(groups))

	for _, group := range groups {
		gw := &GroupWeek{
			Group:  group,
			Week:   window.String(),
			Window: window,
		}
		result = append(result, gw)

		if len(group.Members) == 0 {
			continue
		}

		page, err := a.members.QueryMembers(ctx, types.MemberFilter{
			GroupID:   group.GroupID,
			StartDate: window.StartDate(),
			EndDate:   window.EndDate(),
		}, types.UnlimitedPage())
		if err != nil {
			return nil, fmt.Errorf("failed to query week of group %d: %w", group.GroupID, err)
		}

		analyzeGroup(gw, group, page.Rows, isThisWeek)
	}

	a.logger.Debug("Analyzed week",
		zap.String("week", window.String()),
		zap.Bool("current", isThisWeek),
		zap.Int("groups", len(result)))

	return result, nil
}

// analyzeGroup fills gw from the group's roster and its week of history rows.
// Rows must be ordered newest collection first; the first row of a member on
// a date wins.
func analyzeGroup(gw *GroupWeek, group *types.ObservedGroup, rows []*types.Member, isThisWeek bool) {
	byUser := make(map[int64][]*types.Member)
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row)
	}

	gw.Members = make([]*MemberStats, 0, len(group.Members))

	for _, member := range group.Members {
		stats := &MemberStats{Member: member, Days: []DayRecord{}}

		if isThisWeek && member.Completed() {
			gw.TotalTimes++
		}

		seen := make(map[string]struct{})
		for _, row := range byUser[member.UserID] {
			if _, ok := seen[row.TodayDate]; ok {
				continue
			}
			seen[row.TodayDate] = struct{}{}

			stats.Days = append(stats.Days, DayRecord{
				Date:          row.TodayDate,
				CompletedTime: row.CompletedTime,
				WordCount:     row.WordCount,
			})

			gw.TotalTimes++

			if row.CompletedTime == "" {
				stats.Absence++
			}

			if group.LateDakaTime != "" && row.CompletedTime > group.LateDakaTime {
				stats.Late++
			}
		}

		if stats.Late > 0 {
			gw.LateTimes++
		}

		if stats.Absence > 0 {
			gw.AbsenceTimes++
		}

		gw.Members = append(gw.Members, stats)
	}

	SortMembers(gw.Members)
}

// SortMembers orders members for display, most problematic first: cheaters,
// then most absences, most late days and latest completion time. Ties keep
// their roster order.
func SortMembers(members []*MemberStats) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := sortKey(members[i]), sortKey(members[j])
		for k := range a {
			if a[k] != b[k] {
				return a[k] > b[k]
			}
		}

		return false
	})
}

func sortKey(m *MemberStats) [4]int {
	cheat := 0
	if m.StudyCheat {
		cheat = 1
	}

	return [4]int{cheat, m.Absence, m.Late, completedRank(m.CompletedTime)}
}

// completedRank turns "HH:MM:SS" into HHMMSS for ordering.
func completedRank(completed string) int {
	if completed == "" {
		return notCompletedRank
	}

	n, err := strconv.Atoi(strings.ReplaceAll(completed, ":", ""))
	if err != nil {
		return notCompletedRank
	}

	return n
}
