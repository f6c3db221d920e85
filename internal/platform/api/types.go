package api

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// successCode marks a successful platform response.
const successCode = 1

// envelope is the common response wrapper of every endpoint.
type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := sonic.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	default:
		*s = FlexString(data)
	}

	return nil
}

// FlexInt decodes a JSON number or numeric string into an int64.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", data, err)
	}

	*n = FlexInt(v)

	return nil
}

// AvatarFrame is the decoration around a group avatar.
type AvatarFrame struct {
	Frame string `json:"frame"`
}

// Group is the group metadata returned by the group endpoints.
type Group struct {
	ID             FlexInt      `json:"id"`
	Name           string       `json:"name"`
	ShareKey       string       `json:"shareKey"`
	Introduction   string       `json:"introduction"`
	MemberCount    int          `json:"memberCount"`
	CountLimit     int          `json:"countLimit"`
	TodayDakaCount int          `json:"todayDakaCount"`
	FinishingRate  float64      `json:"finishingRate"`
	CreatedTime    FlexString   `json:"createdTime"`
	Rank           int          `json:"rank"`
	Type           int          `json:"type"`
	Avatar         string       `json:"avatar"`
	AvatarFrame    *AvatarFrame `json:"avatarFrame"`
	Notice         string       `json:"notice"`
}

// Frame returns the avatar frame URL or "".
func (g *Group) Frame() string {
	if g.AvatarFrame == nil {
		return ""
	}

	return g.AvatarFrame.Frame
}

// Member is one roster entry of a group detail response.
// CompletedTime is a unix timestamp, 0 when not completed today.
type Member struct {
	UniqueID        FlexInt `json:"uniqueId"`
	Nickname        string  `json:"nickname"`
	Avatar          string  `json:"avatar"`
	BookName        string  `json:"bookName"`
	TodayWordCount  int     `json:"todayWordCount"`
	CompletedTimes  int     `json:"completedTimes"`
	CompletedTime   int64   `json:"completedTime"`
	DurationDays    int     `json:"durationDays"`
	TodayStudyCheat bool    `json:"todayStudyCheat"`
	Leader          bool    `json:"leader"`
}

// GroupDetail is the data of the group information endpoint.
type GroupDetail struct {
	GroupInfo *Group    `json:"groupInfo"`
	TodayDate string    `json:"todayDate"`
	Members   []*Member `json:"members"`
}

// GroupList is the data of the own groups endpoint.
type GroupList struct {
	List []*Group `json:"list"`
}

// UserInfo is the data of the personal details endpoint.
type UserInfo struct {
	UniqueID FlexString `json:"uniqueId"`
	Name     string     `json:"name"`
	Avatar   string     `json:"avatar"`
}

// HomePage is the data of the home page endpoint.
type HomePage struct {
	Mine struct {
		UniqueID FlexString `json:"uniqueId"`
		Name     string     `json:"name"`
	} `json:"mine"`
}
