package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Task    *invoice.Task `json:"task"`
	Message string        `json:"message"`
}

// Import asks the backend to collect invoice files under paths and starts a
// new task with them. Any previous task, overlay, plan and results are dropped.
func (s *Session) Import(ctx context.Context, paths []string) (*ImportOutput, error) {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, s.fail(errors.NewValidation(MsgNoPaths))
	}

	defer s.Progress.Loading()()

	task, err := s.backend.Import(ctx, cleaned)
	if err != nil {
		return nil, s.fail(err)
	}

	s.Overlay.Reset()
	s.Task = nil
	s.apply(task)
	s.resetResults()
	s.Message = fmt.Sprintf(MsgImported, s.Task.Summary.Total)

	s.log.Info().Str("task_id", task.ID).Int("items", len(task.Items)).Msg("imported")
	return &ImportOutput{Task: s.Snapshot(), Message: s.Message}, nil
}

// Refresh re-fetches the current task and merges it with the local overlay.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	task, err := s.backend.GetTask(ctx, s.Task.ID)
	if err != nil {
		return s.fail(err)
	}
	s.apply(task)
	return nil
}
