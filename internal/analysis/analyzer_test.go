package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMembers struct {
	rows    map[int64][]*types.Member
	filters []types.MemberFilter
	err     error
}

func (f *fakeMembers) QueryMembers(_ context.Context, filter types.MemberFilter, _ types.PageRequest) (*types.MemberPage, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}

	return &types.MemberPage{Rows: f.rows[filter.GroupID]}, nil
}

func row(userID int64, date, completed string) *types.Member {
	return &types.Member{UserID: userID, GroupID: 1, TodayDate: date, CompletedTime: completed, WordCount: 20}
}

func observed(lateTime string, members ...*types.Member) *types.ObservedGroup {
	return &types.ObservedGroup{
		GroupInfo:    types.GroupInfo{GroupID: 1, Name: "Readers"},
		LateDakaTime: lateTime,
		Members:      members,
	}
}

func TestAnalyzeWeek(t *testing.T) {
	t.Parallel()

	members := &fakeMembers{rows: map[int64][]*types.Member{1: {
		// Newest collection first; only the first row per date counts.
		row(1, "2024-03-05", "07:10:00"),
		row(1, "2024-03-05", ""),
		row(1, "2024-03-04", "22:30:00"),
		row(2, "2024-03-05", ""),
		row(2, "2024-03-04", ""),
		row(3, "2024-03-05", "06:00:00"),
	}}}

	group := observed("21:00",
		&types.Member{UserID: 1, Nickname: "al"},
		&types.Member{UserID: 2, Nickname: "bo"},
		&types.Member{UserID: 3, Nickname: "cy"},
		&types.Member{UserID: 4, Nickname: "di", StudyCheat: true, CompletedTime: "05:00:00"},
	)

	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	a := analysis.NewAnalyzer(members, time.UTC, zap.NewNop()).WithClock(func() time.Time { return now })

	weeks, err := a.AnalyzeWeek(context.Background(), []*types.ObservedGroup{group}, "2024-W10")
	require.NoError(t, err)
	require.Len(t, weeks, 1)

	require.Len(t, members.filters, 1)
	assert.Equal(t, "2024-03-04", members.filters[0].StartDate)
	assert.Equal(t, "2024-03-10", members.filters[0].EndDate)

	gw := weeks[0]
	assert.Equal(t, "2024-W10", gw.Week)
	assert.Equal(t, 5, gw.TotalTimes)
	assert.Equal(t, 1, gw.LateTimes)
	assert.Equal(t, 1, gw.AbsenceTimes)

	ids := make([]int64, 0, len(gw.Members))
	for _, m := range gw.Members {
		ids = append(ids, m.UserID)
	}
	// Cheater first, then most absences, then most late days.
	assert.Equal(t, []int64{4, 2, 1, 3}, ids)

	al := gw.Members[2]
	assert.Equal(t, 1, al.Late)
	assert.Zero(t, al.Absence)
	require.Len(t, al.Days, 2)
	assert.Equal(t, "07:10:00", al.Days[0].CompletedTime)

	bo := gw.Members[1]
	assert.Equal(t, 2, bo.Absence)
}

func TestAnalyzeWeekCountsTodayInCurrentWeek(t *testing.T) {
	t.Parallel()

	group := observed("",
		&types.Member{UserID: 1, CompletedTime: "08:00:00"},
		&types.Member{UserID: 2},
	)

	now := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	a := analysis.NewAnalyzer(&fakeMembers{}, time.UTC, zap.NewNop()).WithClock(func() time.Time { return now })

	weeks, err := a.AnalyzeWeek(context.Background(), []*types.ObservedGroup{group}, "2024-W10")
	require.NoError(t, err)
	assert.Equal(t, 1, weeks[0].TotalTimes)
	assert.Zero(t, weeks[0].LateTimes, "no cutoff means nobody is late")
}

func TestAnalyzeWeekSkipsGroupsWithoutRoster(t *testing.T) {
	t.Parallel()

	members := &fakeMembers{}
	a := analysis.NewAnalyzer(members, time.UTC, zap.NewNop())

	weeks, err := a.AnalyzeWeek(context.Background(), []*types.ObservedGroup{observed("")}, "2024-W10")
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Empty(t, weeks[0].Members)
	assert.Empty(t, members.filters)
}

func TestAnalyzeWeekErrors(t *testing.T) {
	t.Parallel()

	a := analysis.NewAnalyzer(&fakeMembers{err: errors.New("db down")}, time.UTC, zap.NewNop())

	_, err := a.AnalyzeWeek(context.Background(), nil, "2024/10")
	require.ErrorIs(t, err, analysis.ErrInvalidWeek)

	_, err = a.AnalyzeWeek(context.Background(), []*types.ObservedGroup{observed("", &types.Member{UserID: 1})}, "2024-W10")
	require.Error(t, err)
}

func TestSortMembersByCompletionTime(t *testing.T) {
	t.Parallel()

	members := []*analysis.MemberStats{
		{Member: &types.Member{UserID: 1, CompletedTime: "06:00:00"}},
		{Member: &types.Member{UserID: 2}},
		{Member: &types.Member{UserID: 3, CompletedTime: "23:10:05"}},
		{Member: &types.Member{UserID: 4, CompletedTime: "06:00:00"}},
	}

	analysis.SortMembers(members)

	ids := []int64{members[0].UserID, members[1].UserID, members[2].UserID, members[3].UserID}
	assert.Equal(t, []int64{2, 3, 1, 4}, ids)
}

func TestChartDailyCounts(t *testing.T) {
	t.Parallel()

	members := &fakeMembers{rows: map[int64][]*types.Member{1: {
		row(1, "2024-03-04", "22:00:00"),
		row(2, "2024-03-04", ""),
		row(2, "2024-03-05", "07:00:00"),
	}}}

	group := observed("21:00", &types.Member{UserID: 1}, &types.Member{UserID: 2})
	a := analysis.NewAnalyzer(members, time.UTC, zap.NewNop())

	weeks, err := a.AnalyzeWeek(context.Background(), []*types.ObservedGroup{group}, "2024-W10")
	require.NoError(t, err)

	completed, absent, late := analysis.NewChartBuilder(weeks[0], 0, 0).DailyCounts()
	require.Len(t, completed, 7)
	assert.Equal(t, []float64{1, 1, 0, 0, 0, 0, 0}, completed)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 0, 0}, absent)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 0, 0}, late)
}
