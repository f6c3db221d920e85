package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/platform/api"
	"github.com/bczgroup/tracker/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// DefaultMaxConcurrency bounds parallel group fetches when unset.
const DefaultMaxConcurrency = 8

// Platform is the subset of the platform client used for group collection.
type Platform interface {
	GetGroupInfo(ctx context.Context, shareKey, token string) (*api.GroupDetail, error)
	GetUserGroups(ctx context.Context, uniqueID string) (*api.GroupList, error)
	GetUserInfo(ctx context.Context, uniqueID string) (*api.UserInfo, error)
	GetOwnInfo(ctx context.Context, token string) (*api.HomePage, error)
}

// CollectionError reports a failed group collection together with the raw
// response body, when one was received.
type CollectionError struct {
	ShareKey string
	Body     string
	Err      error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("failed to collect group %s: %v", e.ShareKey, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// FetchResult is the outcome of fetching one group.
type FetchResult struct {
	Snapshot *types.GroupSnapshot
	Err      error
}

// GroupFetcher collects group snapshots from the platform.
type GroupFetcher struct {
	platform       Platform
	normalizer     *utils.TextNormalizer
	location       *time.Location
	maxConcurrency int
	now            func() time.Time
	logger         *zap.Logger
}

// Option configures a GroupFetcher.
type Option func(*GroupFetcher)

// WithLocation sets the time zone of completion times and collection dates.
func WithLocation(loc *time.Location) Option {
	return func(f *GroupFetcher) {
		if loc != nil {
			f.location = loc
		}
	}
}

// WithMaxConcurrency bounds parallel fetches in Refresh.
func WithMaxConcurrency(n int) Option {
	return func(f *GroupFetcher) {
		if n > 0 {
			f.maxConcurrency = n
		}
	}
}

// WithClock replaces the collection clock.
func WithClock(now func() time.Time) Option {
	return func(f *GroupFetcher) {
		f.now = now
	}
}

// NewGroupFetcher creates a GroupFetcher.
func NewGroupFetcher(platform Platform, logger *zap.Logger, opts ...Option) *GroupFetcher {
	f := &GroupFetcher{
		platform:       platform,
		normalizer:     utils.NewTextNormalizer(),
		location:       time.Local,
		maxConcurrency: DefaultMaxConcurrency,
		now:            time.Now,
		logger:         logger.Named("group_fetcher"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FetchGroup fetches one group's metadata and roster with the main token.
// With a secondary token the group is fetched again to recover the
// nicknames members use inside the group; a failed secondary fetch is
// logged and ignored.
func (f *GroupFetcher) FetchGroup(ctx context.Context, shareKey, secondaryToken string) (*types.GroupSnapshot, error) {
	detail, err := f.platform.GetGroupInfo(ctx, shareKey, "")
	if err != nil {
		return nil, collectionError(shareKey, err)
	}

	if detail.GroupInfo == nil {
		return nil, &CollectionError{
			ShareKey: shareKey,
			Err:      fmt.Errorf("%w: missing group info", api.ErrMalformedPayload),
		}
	}

	collectedAt := f.now().In(f.location)
	snapshot := f.buildSnapshot(detail, collectedAt)

	if secondaryToken != "" {
		secondary, err := f.platform.GetGroupInfo(ctx, shareKey, secondaryToken)
		if err != nil {
			f.logger.Warn("Secondary group fetch failed",
				zap.String("shareKey", shareKey),
				zap.Error(err))
		} else {
			f.mergeGroupNicknames(snapshot.Members, secondary.Members)
		}
	}

	return snapshot, nil
}

// buildSnapshot converts a platform group detail into a snapshot.
func (f *GroupFetcher) buildSnapshot(detail *api.GroupDetail, collectedAt time.Time) *types.GroupSnapshot {
	g := detail.GroupInfo

	info := types.GroupInfo{
		GroupID:        int64(g.ID),
		Name:           f.normalizer.Normalize(g.Name),
		ShareKey:       g.ShareKey,
		Introduction:   f.normalizer.Normalize(g.Introduction),
		MemberCount:    g.MemberCount,
		CountLimit:     g.CountLimit,
		TodayDakaCount: g.TodayDakaCount,
		FinishingRate:  g.FinishingRate,
		CreatedTime:    string(g.CreatedTime),
		Rank:           g.Rank,
		Type:           g.Type,
		Avatar:         g.Avatar,
		AvatarFrame:    g.Frame(),
		Notice:         f.normalizer.Normalize(g.Notice),
	}

	todayDate := detail.TodayDate
	if todayDate == "" {
		todayDate = collectedAt.Format(time.DateOnly)
	}

	completed := 0
	members := make([]*types.Member, 0, len(detail.Members))

	for _, m := range detail.Members {
		member := &types.Member{
			UserID:         int64(m.UniqueID),
			Nickname:       f.normalizer.Normalize(m.Nickname),
			TodayDate:      todayDate,
			WordCount:      m.TodayWordCount,
			StudyCheat:     m.TodayStudyCheat,
			CompletedTimes: m.CompletedTimes,
			DurationDays:   m.DurationDays,
			BookName:       m.BookName,
			GroupID:        info.GroupID,
			GroupName:      info.Name,
			DataTime:       collectedAt,
			Avatar:         m.Avatar,
			Leader:         m.Leader,
		}

		if m.CompletedTime != 0 {
			completed++
			member.CompletedTime = time.Unix(m.CompletedTime, 0).In(f.location).Format(time.TimeOnly)
		}

		if m.Leader {
			info.Leader = member.Nickname
			info.LeaderID = strconv.FormatInt(member.UserID, 10)
		}

		members = append(members, member)
	}

	// The platform count lags behind the roster; only a nonzero roster count wins.
	if completed != 0 {
		info.TodayDakaCount = completed
	}

	return &types.GroupSnapshot{
		GroupInfo: info,
		DataTime:  collectedAt,
		Members:   members,
	}
}

// mergeGroupNicknames sets group_nickname from the secondary roster when it
// differs from the main nickname.
func (f *GroupFetcher) mergeGroupNicknames(members []*types.Member, secondary []*api.Member) {
	byID := make(map[int64]*types.Member, len(members))
	for _, m := range members {
		byID[m.UserID] = m
	}

	for _, s := range secondary {
		member, ok := byID[int64(s.UniqueID)]
		if !ok {
			continue
		}

		nickname := f.normalizer.Normalize(s.Nickname)
		if nickname != member.Nickname {
			member.GroupNickname = nickname
		}
	}
}

// Refresh fetches every group concurrently and merges the results back into
// the given groups, which are returned in their original order. Failed groups
// keep their previous fields and carry the error. Rosters are only kept when
// fullDetail is set.
func (f *GroupFetcher) Refresh(
	ctx context.Context, groups []*types.ObservedGroup, fullDetail bool,
) []*types.ObservedGroup {
	results := make([]FetchResult, len(groups))

	p := pool.New().WithContext(ctx).WithMaxGoroutines(f.maxConcurrency)

	for i, group := range groups {
		shareKey, token := group.ShareKey, group.AuthToken
		p.Go(func(ctx context.Context) error {
			snapshot, err := f.FetchGroup(ctx, shareKey, token)
			results[i] = FetchResult{Snapshot: snapshot, Err: err}
			return nil
		})
	}

	_ = p.Wait()

	failed := 0
	for i, result := range results {
		if result.Err != nil {
			failed++
		}

		Reconcile(groups, groups[i].ShareKey, result, fullDetail)
	}

	f.logger.Info("Refreshed groups",
		zap.Int("total", len(groups)),
		zap.Int("failed", failed),
		zap.Bool("fullDetail", fullDetail))

	return groups
}

// Reconcile merges one fetch result into the group it belongs to. A snapshot
// matches by group id first, then by share key; a failure matches by the
// share key it was requested with.
func Reconcile(groups []*types.ObservedGroup, shareKey string, result FetchResult, fullDetail bool) {
	if result.Err != nil {
		for _, g := range groups {
			if g.ShareKey == shareKey {
				g.Error = result.Err.Error()
			}
		}

		return
	}

	snapshot := result.Snapshot

	target := -1
	if snapshot.GroupID != 0 {
		for i, g := range groups {
			if g.GroupID == snapshot.GroupID {
				target = i
				break
			}
		}
	}

	if target < 0 {
		for i, g := range groups {
			if g.ShareKey == snapshot.ShareKey || g.ShareKey == shareKey {
				target = i
				break
			}
		}
	}

	if target >= 0 {
		groups[target].Merge(snapshot, fullDetail)
	}
}

// collectionError wraps a platform error with the share key and raw body.
func collectionError(shareKey string, err error) *CollectionError {
	collErr := &CollectionError{ShareKey: shareKey, Err: err}

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		collErr.Body = respErr.Body
	}

	return collErr
}
