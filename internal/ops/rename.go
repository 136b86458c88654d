package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/progress"
)

// PipelineState is the phase of a rename run.
type PipelineState string

const (
	StateIdle      PipelineState = "idle"
	StatePlanning  PipelineState = "planning"
	StateExecuting PipelineState = "executing"
	StateSyncing   PipelineState = "syncing"
)

// RenameOutput contains the result of the ExecuteRename operation.
type RenameOutput struct {
	Executor string                 `json:"executor"`
	Plan     *invoice.CommitPlan    `json:"plan"`
	Results  *invoice.CommitResults `json:"results"`
	Tally    invoice.Tally          `json:"tally"`
	Summary  string                 `json:"summary"`
}

// Summarize formats a tally for display. Skipped items are not failures.
func Summarize(t invoice.Tally) string {
	return fmt.Sprintf("成功 %d，失败 %d，跳过 %d", t.Renamed, t.Failed, t.Skipped)
}

// ExecuteRename runs the rename pipeline for the selected items:
// sync edits, plan, execute through the active executor, then refresh.
//
// A failing phase stops the run and leaves earlier phases in place: a plan
// survives a failed execution, and results of items that ran survive a
// failed refresh.
func (s *Session) ExecuteRename(ctx context.Context) (*RenameOutput, error) {
	if err := s.requireTask(); err != nil {
		return nil, err
	}
	selected := s.Task.Selected()
	if len(selected) == 0 {
		return nil, s.fail(errors.NewValidation(MsgSelectToRename))
	}
	for _, item := range selected {
		if strings.TrimSpace(invoice.Value(item.SuggestedName)) == "" {
			return nil, s.fail(errors.NewValidation(MsgEmptyTargetName))
		}
	}
	ids := s.Task.SelectedIDs()

	defer s.Progress.Busy(progress.Rename)()
	defer s.setState(StateIdle)
	s.Progress.Start(progress.Rename, len(ids))

	s.Overlay.Capture(s.Task)

	s.setState(StatePlanning)
	plan, err := s.plan(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.setState(StateExecuting)
	exec := s.executor()
	results, execErr := exec.Execute(ctx, plan, ids)
	if results == nil && execErr == nil {
		results = &invoice.CommitResults{TaskID: plan.TaskID}
	}
	if results != nil {
		s.LastRename = results
	}
	if execErr != nil {
		if results != nil {
			// Items that ran are already on disk and pushed; show them.
			_ = s.Refresh(ctx)
		}
		return nil, s.fail(execErr)
	}

	s.setState(StateSyncing)
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	tally := invoice.CountResults(results.Results)
	out := &RenameOutput{
		Executor: exec.Name(),
		Plan:     plan,
		Results:  results,
		Tally:    tally,
		Summary:  Summarize(tally),
	}
	s.Message = fmt.Sprintf(MsgRenamed, out.Summary)

	s.log.Info().
		Str("task_id", s.Task.ID).
		Str("executor", out.Executor).
		Int("renamed", tally.Renamed).
		Int("failed", tally.Failed).
		Int("skipped", tally.Skipped).
		Msg("rename finished")
	return out, nil
}

func (s *Session) setState(state PipelineState) {
	if s.State != state {
		s.log.Debug().Str("from", string(s.State)).Str("to", string(state)).Msg("pipeline")
	}
	s.State = state
}
