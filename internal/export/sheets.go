package export

import (
	"strconv"
	"time"

	"github.com/bczgroup/tracker/internal/analysis"
	dbTypes "github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/export/types"
)

// Sheet names.
const (
	SheetMembers = "members"
	SheetWeek    = "week"
)

// MemberSheet lays out history rows. hashes, when not nil, replaces user ids.
func MemberSheet(rows []*dbTypes.Member, hashes map[int64]string) *types.Sheet {
	sheet := types.NewSheet(SheetMembers,
		types.Column{Name: "user_id", Kind: types.KindText},
		types.Column{Name: "nickname", Kind: types.KindText},
		types.Column{Name: "group_nickname", Kind: types.KindText},
		types.Column{Name: "group_id", Kind: types.KindInteger},
		types.Column{Name: "group_name", Kind: types.KindText},
		types.Column{Name: "today_date", Kind: types.KindText},
		types.Column{Name: "completed_time", Kind: types.KindText},
		types.Column{Name: "word_count", Kind: types.KindInteger},
		types.Column{Name: "study_cheat", Kind: types.KindInteger},
		types.Column{Name: "completed_times", Kind: types.KindInteger},
		types.Column{Name: "duration_days", Kind: types.KindInteger},
		types.Column{Name: "book_name", Kind: types.KindText},
		types.Column{Name: "data_time", Kind: types.KindText},
	)

	for _, m := range rows {
		sheet.AddRow(
			userKey(m.UserID, hashes),
			m.Nickname,
			m.GroupNickname,
			m.GroupID,
			m.GroupName,
			m.TodayDate,
			m.CompletedTime,
			m.WordCount,
			m.StudyCheat,
			m.CompletedTimes,
			m.DurationDays,
			m.BookName,
			m.DataTime.Format(time.DateTime),
		)
	}

	return sheet
}

// WeekSheet lays out analyzed weeks, one row per member with a column per day.
func WeekSheet(weeks []*analysis.GroupWeek, hashes map[int64]string) *types.Sheet {
	columns := []types.Column{
		{Name: "week", Kind: types.KindText},
		{Name: "group_id", Kind: types.KindInteger},
		{Name: "group_name", Kind: types.KindText},
		{Name: "user_id", Kind: types.KindText},
		{Name: "nickname", Kind: types.KindText},
		{Name: "study_cheat", Kind: types.KindInteger},
		{Name: "absence", Kind: types.KindInteger},
		{Name: "late", Kind: types.KindInteger},
	}

	for i := range 7 {
		columns = append(columns, types.Column{Name: "day" + strconv.Itoa(i+1), Kind: types.KindText})
	}

	sheet := types.NewSheet(SheetWeek, columns...)

	for _, gw := range weeks {
		days := gw.Window.Days()

		for _, m := range gw.Members {
			row := []any{
				gw.Week,
				gw.Group.GroupID,
				gw.Group.Name,
				userKey(m.UserID, hashes),
				m.Nickname,
				m.StudyCheat,
				m.Absence,
				m.Late,
			}

			for _, date := range days {
				day, _ := m.Day(date)
				row = append(row, day.CompletedTime)
			}

			sheet.AddRow(row...)
		}
	}

	return sheet
}

func userKey(id int64, hashes map[int64]string) string {
	if hash, ok := hashes[id]; ok {
		return hash
	}

	return strconv.FormatInt(id, 10)
}
