package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

// BuildPlan requests a dry-run plan for the selected items after pushing any
// unsynced edits, so the planner sees the latest values.
func (s *Session) BuildPlan(ctx context.Context) (*invoice.CommitPlan, error) {
	if err := s.requireTask(); err != nil {
		return nil, err
	}
	ids := s.Task.SelectedIDs()
	if len(ids) == 0 {
		return nil, s.fail(errors.NewValidation(MsgSelectToRename))
	}

	defer s.Progress.Loading()()

	plan, err := s.plan(ctx, ids)
	if err != nil {
		return nil, err
	}
	s.Message = fmt.Sprintf(MsgPlanned, len(plan.Plan))
	return plan, nil
}

// plan syncs edits then asks the backend for a plan, keeping it as LastPlan.
func (s *Session) plan(ctx context.Context, ids []string) (*invoice.CommitPlan, error) {
	if err := s.SyncEdits(ctx, true); err != nil {
		return nil, err
	}
	plan, err := s.backend.CommitPlan(ctx, s.Task.ID, ids)
	if err != nil {
		return nil, s.fail(err)
	}
	s.LastPlan = plan
	return plan, nil
}
