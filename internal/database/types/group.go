package types

import (
	"errors"
	"time"

	"github.com/bczgroup/tracker/pkg/utils"
)

var (
	ErrGroupNotObserved = errors.New("group is not observed")
	ErrAlreadyObserved  = errors.New("group is already observed")
	ErrInvalidGroupID   = errors.New("invalid group ID")
)

// GroupInfo holds the group metadata shared by history snapshots and observed groups.
type GroupInfo struct {
	GroupID        int64   `bun:",notnull"  json:"id"`
	Name           string  `bun:",notnull"  json:"name"`
	ShareKey       string  `bun:",notnull"  json:"shareKey"`
	Introduction   string  `bun:",notnull"  json:"introduction"`
	Leader         string  `bun:",notnull"  json:"leader"`
	LeaderID       string  `bun:",notnull"  json:"leaderId"`
	MemberCount    int     `bun:",notnull"  json:"memberCount"`
	CountLimit     int     `bun:",notnull"  json:"countLimit"`
	TodayDakaCount int     `bun:",notnull"  json:"todayDakaCount"`
	FinishingRate  float64 `bun:",notnull"  json:"finishingRate"`
	CreatedTime    string  `bun:",notnull"  json:"createdTime"`
	Rank           int     `bun:",notnull"  json:"rank"`
	Type           int     `bun:",notnull"  json:"type"`
	Avatar         string  `bun:",notnull"  json:"avatar"`
	AvatarFrame    string  `bun:",notnull"  json:"avatarFrame"`
	Notice         string  `bun:",notnull"  json:"notice"`
}

// GroupSnapshot is one group's state at one collection instant.
// Rows are append-only; later collections supersede rather than update them.
type GroupSnapshot struct {
	GroupInfo

	DataTime time.Time `bun:",notnull" json:"dataTime"`
	Members  []*Member `bun:"-"        json:"members,omitempty"`
}

// ObservedGroup is a group under active tracking with its operator settings.
type ObservedGroup struct {
	GroupInfo

	DailyRecord  bool      `bun:",notnull,default:true" json:"dailyRecord"`
	LateDakaTime string    `bun:",notnull"              json:"lateDakaTime"`
	AuthToken    string    `bun:",notnull"              json:"authToken"`
	Valid        bool      `bun:",notnull,default:true" json:"valid"`
	UpdatedAt    time.Time `bun:",notnull"              json:"updatedAt"`

	DataTime time.Time `bun:"-" json:"dataTime"`
	Members  []*Member `bun:"-" json:"members,omitempty"`
	Error    string    `bun:"-" json:"error,omitempty"`
}

// Merge copies a fresh snapshot into the observed group and clears any
// earlier collection error. The roster is only kept when withMembers is set.
func (g *ObservedGroup) Merge(snapshot *GroupSnapshot, withMembers bool) {
	g.GroupInfo = snapshot.GroupInfo
	g.DataTime = snapshot.DataTime
	g.Error = ""

	if withMembers {
		g.Members = snapshot.Members
	} else {
		g.Members = nil
	}
}

// Snapshot returns the history form of the observed group.
func (g *ObservedGroup) Snapshot() *GroupSnapshot {
	return &GroupSnapshot{
		GroupInfo: g.GroupInfo,
		DataTime:  g.DataTime,
		Members:   g.Members,
	}
}

// Failed reports whether the last collection of this group failed.
func (g *ObservedGroup) Failed() bool {
	return g.Error != ""
}

// Redacted returns a shallow copy whose auth token is masked.
func (g *ObservedGroup) Redacted() *ObservedGroup {
	clone := *g
	clone.AuthToken = utils.MaskToken(g.AuthToken)

	return &clone
}

// GroupOption is a selectable group for search filters.
type GroupOption struct {
	GroupID int64  `bun:"group_id" json:"id"`
	Label   string `bun:"label"    json:"label"`
}

// ObservedSummary is the condensed observed group listing used in overviews.
type ObservedSummary struct {
	GroupID     int64  `json:"id"`
	Name        string `json:"name"`
	DailyRecord bool   `json:"dailyRecord"`
}
