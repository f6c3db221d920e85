package record_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/worker/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCollector struct {
	tokens map[string]string
	fail   map[string]bool
}

func (c *fakeCollector) FetchGroup(_ context.Context, shareKey, token string) (*types.GroupSnapshot, error) {
	c.tokens[shareKey] = token
	if c.fail[shareKey] {
		return nil, errors.New("platform down")
	}

	return &types.GroupSnapshot{GroupInfo: types.GroupInfo{ShareKey: shareKey}}, nil
}

type fakeLister struct {
	groups         []*types.ObservedGroup
	err            error
	includeInvalid bool
}

func (l *fakeLister) List(_ context.Context, includeInvalid bool) ([]*types.ObservedGroup, error) {
	l.includeInvalid = includeInvalid
	return l.groups, l.err
}

type fakeRecorder struct {
	recorded []string
	fail     map[string]bool
}

func (r *fakeRecorder) Record(_ context.Context, snapshot *types.GroupSnapshot) error {
	if r.fail[snapshot.ShareKey] {
		return errors.New("db down")
	}

	r.recorded = append(r.recorded, snapshot.ShareKey)

	return nil
}

type fakeReporter struct {
	tasks   []string
	result  string
	healthy bool
}

func (r *fakeReporter) UpdateStatus(task string, _ int) { r.tasks = append(r.tasks, task) }

func (r *fakeReporter) FinishRun(result string, healthy bool) {
	r.result = result
	r.healthy = healthy
}

func group(id int64, shareKey, token string, daily bool) *types.ObservedGroup {
	return &types.ObservedGroup{
		GroupInfo:   types.GroupInfo{GroupID: id, ShareKey: shareKey},
		AuthToken:   token,
		DailyRecord: daily,
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{groups: []*types.ObservedGroup{
		group(1, "a", "tok-a", true),
		group(2, "b", "", false),
		group(3, "c", "", true),
		group(4, "d", "", true),
		group(5, "e", "", true),
	}}
	collector := &fakeCollector{tokens: map[string]string{}, fail: map[string]bool{"c": true}}
	recorder := &fakeRecorder{fail: map[string]bool{"d": true}}
	reporter := &fakeReporter{}

	result, err := record.New(collector, lister, recorder, reporter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, lister.includeInvalid)
	assert.Equal(t, record.Result{Total: 4, Recorded: 2, Failed: 2}, result)
	assert.Equal(t, []string{"a", "e"}, recorder.recorded)
	assert.Equal(t, "tok-a", collector.tokens["a"])
	assert.NotContains(t, collector.tokens, "b")

	assert.Len(t, reporter.tasks, 5)
	assert.False(t, reporter.healthy)
	assert.Equal(t, result.String(), reporter.result)
}

func TestRunListError(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{healthy: true}
	w := record.New(&fakeCollector{}, &fakeLister{err: errors.New("db down")}, &fakeRecorder{}, reporter, zap.NewNop())

	_, err := w.Run(context.Background())
	require.Error(t, err)
	assert.False(t, reporter.healthy)
}

func TestRunWithoutReporter(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{groups: []*types.ObservedGroup{group(1, "a", "", true)}}
	w := record.New(&fakeCollector{tokens: map[string]string{}}, lister, &fakeRecorder{}, nil, zap.NewNop())

	result, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Recorded)
}
