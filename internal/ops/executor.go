package ops

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/bridge"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/progress"
)

// Executor carries out a rename plan and returns one result per item.
// Results may be non-nil alongside an error when part of the plan ran.
type Executor interface {
	Name() string
	Execute(ctx context.Context, plan *invoice.CommitPlan, ids []string) (*invoice.CommitResults, error)
}

// RemoteExecutor asks the backend to perform the renames in one call.
type RemoteExecutor struct {
	Backend  backend.Service
	Progress *progress.Tracker
}

func (e *RemoteExecutor) Name() string { return "remote" }

func (e *RemoteExecutor) Execute(ctx context.Context, plan *invoice.CommitPlan, ids []string) (*invoice.CommitResults, error) {
	e.Progress.Start(progress.Rename, len(ids))
	out, err := e.Backend.CommitRename(ctx, plan.TaskID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out.Results {
		e.Progress.Advance(progress.Rename, i)
	}
	return out, nil
}

// BridgeExecutor renames item by item through the local bridge, then pushes
// the collected results to the backend so its state matches the disk.
type BridgeExecutor struct {
	Bridge   bridge.Bridge
	Backend  backend.Service
	Progress *progress.Tracker
	Log      zerolog.Logger
}

func (e *BridgeExecutor) Name() string { return "bridge" }

func (e *BridgeExecutor) Execute(ctx context.Context, plan *invoice.CommitPlan, ids []string) (*invoice.CommitResults, error) {
	if !e.Bridge.Available() {
		return nil, errors.NewBridgeUnavailable()
	}

	// The planner may describe unselected items too; only the requested ones run.
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	items := make([]invoice.CommitPlanItem, 0, len(plan.Plan))
	for _, item := range plan.Plan {
		if wanted[item.ItemID] {
			items = append(items, item)
		}
	}

	results := make([]invoice.CommitResult, 0, len(items))
	runErr := progress.Each(ctx, e.Progress, progress.Rename, items, func(ctx context.Context, _ int, item invoice.CommitPlanItem) error {
		r, err := e.Bridge.Rename(ctx, plan.TaskID, item)
		if err != nil {
			return errors.Classify(err)
		}
		if r == nil {
			e.Log.Warn().Str("item_id", item.ItemID).Msg("bridge returned no result")
			r = &invoice.CommitResult{
				ItemID:     item.ItemID,
				SourcePath: item.SourcePath,
				TargetPath: item.TargetPath,
				Result:     invoice.ResultFailed,
				Message:    invoice.Str(BridgeNoResult),
			}
		}
		results = append(results, *r)
		return nil
	})

	// Results of items that already ran are pushed even when the batch stopped early.
	if len(results) == 0 {
		if runErr != nil {
			return nil, runErr
		}
		return &invoice.CommitResults{TaskID: plan.TaskID, Results: results}, nil
	}
	out, err := e.Backend.CommitResults(ctx, plan.TaskID, results)
	if err != nil {
		local := &invoice.CommitResults{TaskID: plan.TaskID, Results: results}
		if runErr != nil {
			return local, runErr
		}
		return local, err
	}
	return out, runErr
}

// executor picks the execution path for this session.
func (s *Session) executor() Executor {
	if s.useBridge {
		return &BridgeExecutor{Bridge: s.bridge, Backend: s.backend, Progress: s.Progress, Log: s.log}
	}
	return &RemoteExecutor{Backend: s.backend, Progress: s.Progress}
}
