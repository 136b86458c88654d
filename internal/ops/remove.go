package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/invoicename/internal/errors"
)

// RemoveSelected removes the selected items from the task (files are untouched).
func (s *Session) RemoveSelected(ctx context.Context) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	ids := s.Task.SelectedIDs()
	if len(ids) == 0 {
		return s.fail(errors.NewValidation(MsgSelectToRemove))
	}

	defer s.Progress.Loading()()

	task, err := s.backend.RemoveItems(ctx, s.Task.ID, ids)
	if err != nil {
		return s.fail(err)
	}
	s.apply(task)
	s.resetResults()
	s.Message = fmt.Sprintf(MsgRemoved, len(ids))
	return nil
}

// Clear removes every item from the task.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.requireTask(); err != nil {
		return err
	}

	defer s.Progress.Loading()()

	task, err := s.backend.ClearItems(ctx, s.Task.ID)
	if err != nil {
		return s.fail(err)
	}
	s.apply(task)
	s.resetResults()
	s.Message = MsgCleared
	return nil
}
