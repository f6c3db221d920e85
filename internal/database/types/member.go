package types

import "time"

// Member is one member's state within one collection of a group.
// CompletedTime is "HH:MM:SS" or empty when the member has not completed today.
type Member struct {
	UserID         int64     `bun:",notnull" json:"userId"`
	Nickname       string    `bun:",notnull" json:"nickname"`
	GroupNickname  string    `bun:",notnull" json:"groupNickname"`
	CompletedTime  string    `bun:",notnull" json:"completedTime"`
	TodayDate      string    `bun:",notnull" json:"todayDate"`
	WordCount      int       `bun:",notnull" json:"wordCount"`
	StudyCheat     bool      `bun:",notnull" json:"studyCheat"`
	CompletedTimes int       `bun:",notnull" json:"completedTimes"`
	DurationDays   int       `bun:",notnull" json:"durationDays"`
	BookName       string    `bun:",notnull" json:"bookName"`
	GroupID        int64     `bun:",notnull" json:"groupId"`
	GroupName      string    `bun:",notnull" json:"groupName"`
	DataTime       time.Time `bun:",notnull" json:"dataTime"`

	Avatar string `bun:"-" json:"avatar,omitempty"`
	Leader bool   `bun:"-" json:"leader,omitempty"`
}

// StagedMember is a member row in the staged table holding only the latest refresh.
type StagedMember struct {
	Member
}

// Completed reports whether the member has completed today.
func (m *Member) Completed() bool {
	return m.CompletedTime != ""
}

// StagedMembers converts roster rows into staged rows.
func StagedMembers(members []*Member) []*StagedMember {
	staged := make([]*StagedMember, 0, len(members))
	for _, m := range members {
		staged = append(staged, &StagedMember{Member: *m})
	}

	return staged
}
