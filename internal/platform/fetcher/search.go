package fetcher

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/database/types"
	"go.uber.org/zap"
)

// Owner returns the unique id and name of the main token's account.
func (f *GroupFetcher) Owner(ctx context.Context) (string, string, error) {
	home, err := f.platform.GetOwnInfo(ctx, "")
	if err != nil {
		return "", "", fmt.Errorf("failed to get main account: %w", err)
	}

	return string(home.Mine.UniqueID), home.Mine.Name, nil
}

// SearchByShareKey returns the group behind a share key.
func (f *GroupFetcher) SearchByShareKey(ctx context.Context, shareKey string) ([]*types.GroupInfo, error) {
	snapshot, err := f.FetchGroup(ctx, shareKey, "")
	if err != nil {
		return nil, err
	}

	return []*types.GroupInfo{&snapshot.GroupInfo}, nil
}

// SearchByUser returns the groups owned by a user, with the user as leader.
// A failed leader lookup leaves the leader name empty.
func (f *GroupFetcher) SearchByUser(ctx context.Context, uniqueID string) ([]*types.GroupInfo, error) {
	list, err := f.platform.GetUserGroups(ctx, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of user %s: %w", uniqueID, err)
	}

	leaderName := ""
	if user, err := f.platform.GetUserInfo(ctx, uniqueID); err != nil {
		f.logger.Warn("Failed to get group leader", zap.String("uniqueID", uniqueID), zap.Error(err))
	} else {
		leaderName = user.Name
	}

	groups := make([]*types.GroupInfo, 0, len(list.List))
	for _, g := range list.List {
		groups = append(groups, &types.GroupInfo{
			GroupID:        int64(g.ID),
			Name:           f.normalizer.Normalize(g.Name),
			ShareKey:       g.ShareKey,
			Introduction:   f.normalizer.Normalize(g.Introduction),
			Leader:         leaderName,
			LeaderID:       uniqueID,
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
		})
	}

	return groups, nil
}
