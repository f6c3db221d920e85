package models

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/database/dbretry"
	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Predicate is one WHERE clause together with its bound arguments.
type Predicate struct {
	Clause string
	Args   []any
}

// MemberPredicates turns a filter into the ordered list of clauses to apply.
// Only present filter fields produce a clause.
func MemberPredicates(filter types.MemberFilter) []Predicate {
	var preds []Predicate

	add := func(clause string, args ...any) {
		preds = append(preds, Predicate{Clause: clause, Args: args})
	}

	if filter.UserID != "" {
		add("CAST(user_id AS TEXT) LIKE ?", contains(filter.UserID))
	}

	if filter.Nickname != "" {
		add("(nickname LIKE ? OR group_nickname LIKE ?)", contains(filter.Nickname), contains(filter.Nickname))
	}

	if filter.GroupID != 0 {
		add("group_id = ?", filter.GroupID)
	}

	if filter.GroupName != "" {
		add("group_name LIKE ?", contains(filter.GroupName))
	}

	if start, end, ok := filter.DateRange(); ok {
		add("today_date BETWEEN ? AND ?", start, end)
	}

	if filter.Cheat != nil {
		add("study_cheat = ?", *filter.Cheat)
	}

	if filter.CompletedAfter != "" {
		add(completedAfterClause, filter.CompletedAfter)
	}

	return preds
}

// completedAfterClause keeps members who have not completed or completed
// after the cutoff. Times compare as text.
const completedAfterClause = "(completed_time = '' OR completed_time > ?)"

// MatchesCompletedAfter applies completedAfterClause to a single row.
func MatchesCompletedAfter(completedTime, cutoff string) bool {
	return completedTime == "" || completedTime > cutoff
}

// contains wraps a value for a substring LIKE match.
func contains(s string) string {
	return "%" + s + "%"
}

// MemberModel handles database operations for member attendance history.
type MemberModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMember creates a MemberModel.
func NewMember(db *bun.DB, logger *zap.Logger) *MemberModel {
	return &MemberModel{
		db:     db,
		logger: logger.Named("db_member"),
	}
}

// SelectQuery builds the filtered select over history, or over history
// UNION staged rows when the filter asks for it. No ordering or paging is applied.
func (r *MemberModel) SelectQuery(model any, filter types.MemberFilter) *bun.SelectQuery {
	query := r.db.NewSelect().Model(model)

	if filter.IncludeStaged {
		union := r.db.NewSelect().Model((*types.Member)(nil)).
			Union(r.db.NewSelect().Model((*types.StagedMember)(nil)))
		query = query.ModelTableExpr("(?) AS member", union)
	}

	for _, pred := range MemberPredicates(filter) {
		query = query.Where(pred.Clause, pred.Args...)
	}

	return query
}

// QueryMembers returns one page of member rows matching the filter, ordered by
// group id ascending then collection time descending. The total count uses the
// same predicates before paging.
func (r *MemberModel) QueryMembers(
	ctx context.Context, filter types.MemberFilter, page types.PageRequest,
) (*types.MemberPage, error) {
	count, err := dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		return r.SelectQuery((*types.Member)(nil), filter).Count(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	window := page.Resolve(count)

	var rows []*types.Member

	err = dbretry.NoResult(ctx, func(ctx context.Context) error {
		rows = rows[:0]

		query := r.SelectQuery(&rows, filter).Order("group_id ASC", "data_time DESC")
		if !page.Unlimited {
			query = query.Limit(window.Limit).Offset(window.Offset)
		}

		return query.Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}

	r.logger.Debug("Queried members",
		zap.Int("count", count),
		zap.Int("rows", len(rows)),
		zap.Int("pageNum", window.PageNum),
		zap.Int("pageMax", window.PageMax))

	return &types.MemberPage{
		Rows:      rows,
		Count:     count,
		PageMax:   window.PageMax,
		PageNum:   window.PageNum,
		PageSize:  window.PageSize,
		Unlimited: page.Unlimited,
	}, nil
}

// InsertMembers appends roster rows to the history table.
func (r *MemberModel) InsertMembers(ctx context.Context, db bun.IDB, members []*types.Member) error {
	if len(members) == 0 {
		return nil
	}

	if _, err := db.NewInsert().Model(&members).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert %d members: %w", len(members), err)
	}

	return nil
}

// CountRows returns the number of history rows.
func (r *MemberModel) CountRows(ctx context.Context) (int, error) {
	count, err := dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		return r.db.NewSelect().Model((*types.Member)(nil)).Count(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count member rows: %w", err)
	}

	return count, nil
}

// CountDays returns the number of distinct recorded days.
func (r *MemberModel) CountDays(ctx context.Context) (int, error) {
	days, err := dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		var days int
		err := r.db.NewSelect().
			Model((*types.Member)(nil)).
			ColumnExpr("COUNT(DISTINCT today_date)").
			Scan(ctx, &days)
		return days, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count recorded days: %w", err)
	}

	return days, nil
}
