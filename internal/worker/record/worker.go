package record

import (
	"context"
	"fmt"

	"github.com/bczgroup/tracker/internal/database/types"
	"github.com/bczgroup/tracker/internal/schedule"
	"github.com/bczgroup/tracker/pkg/utils"
	"go.uber.org/zap"
)

// WorkerType identifies record workers in status reports.
const WorkerType = "record"

// Collector fetches one group's current snapshot.
type Collector interface {
	FetchGroup(ctx context.Context, shareKey, secondaryToken string) (*types.GroupSnapshot, error)
}

// GroupLister lists observed groups.
type GroupLister interface {
	List(ctx context.Context, includeInvalid bool) ([]*types.ObservedGroup, error)
}

// Recorder persists a snapshot and its roster into history.
type Recorder interface {
	Record(ctx context.Context, snapshot *types.GroupSnapshot) error
}

// Reporter receives progress of a running collection.
type Reporter interface {
	UpdateStatus(task string, progress int)
	FinishRun(result string, healthy bool)
}

// Result summarizes one collection run.
type Result struct {
	Total    int
	Recorded int
	Failed   int
}

// String formats the result for status reports.
func (r Result) String() string {
	return fmt.Sprintf("recorded %d/%d groups, %d failed", r.Recorded, r.Total, r.Failed)
}

// Worker records a daily snapshot of every observed group that has daily
// recording enabled.
type Worker struct {
	collector Collector
	groups    GroupLister
	recorder  Recorder
	reporter  Reporter
	logger    *zap.Logger
}

// New creates a record worker. reporter may be nil.
func New(collector Collector, groups GroupLister, recorder Recorder, reporter Reporter, logger *zap.Logger) *Worker {
	return &Worker{
		collector: collector,
		groups:    groups,
		recorder:  recorder,
		reporter:  reporter,
		logger:    logger.Named("record_worker"),
	}
}

// Job adapts Run for the scheduler.
func (w *Worker) Job() schedule.Job {
	return func(ctx context.Context) {
		if _, err := w.Run(ctx); err != nil {
			w.logger.Error("Record run failed", zap.Error(err))
		}
	}
}

// Run collects and stores every eligible group once. A group that fails to
// collect or persist is logged and skipped.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	w.updateStatus("Listing observed groups", 0)

	groups, err := w.groups.List(ctx, false)
	if err != nil {
		w.finish("failed to list observed groups", false)
		return Result{}, fmt.Errorf("failed to list observed groups: %w", err)
	}

	targets := make([]*types.ObservedGroup, 0, len(groups))
	for _, g := range groups {
		if g.DailyRecord {
			targets = append(targets, g)
		}
	}

	result := Result{Total: len(targets)}

	for i, g := range targets {
		if utils.ContextGuard(ctx) {
			break
		}

		w.updateStatus(fmt.Sprintf("Recording %s(%d)", g.Name, g.GroupID), i*100/len(targets))
		w.logger.Info("Collecting group", zap.Int64("groupID", g.GroupID), zap.String("name", g.Name))

		snapshot, err := w.collector.FetchGroup(ctx, g.ShareKey, g.AuthToken)
		if err != nil {
			result.Failed++
			w.logger.Error("Failed to collect group", zap.Int64("groupID", g.GroupID), zap.Error(err))
			continue
		}

		if err := w.recorder.Record(ctx, snapshot); err != nil {
			result.Failed++
			w.logger.Error("Failed to record group", zap.Int64("groupID", g.GroupID), zap.Error(err))
			continue
		}

		result.Recorded++
	}

	w.finish(result.String(), result.Failed == 0)
	w.logger.Info("Record run completed",
		zap.Int("total", result.Total),
		zap.Int("recorded", result.Recorded),
		zap.Int("failed", result.Failed))

	return result, ctx.Err()
}

func (w *Worker) updateStatus(task string, progress int) {
	if w.reporter != nil {
		w.reporter.UpdateStatus(task, progress)
	}
}

func (w *Worker) finish(result string, healthy bool) {
	if w.reporter != nil {
		w.reporter.FinishRun(result, healthy)
	}
}
