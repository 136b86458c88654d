package ops

import (
	"context"
	"fmt"
)

// SyncEdits pushes all unsynced local edits to the backend. Edits are
// consumed only once the backend accepts them. With silent set, the session
// message is left untouched.
func (s *Session) SyncEdits(ctx context.Context, silent bool) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	pending := s.Overlay.Pending()
	if len(pending) == 0 {
		return nil
	}

	s.Overlay.Capture(s.Task)
	task, err := s.backend.SyncItems(ctx, s.Task.ID, pending)
	if err != nil {
		return s.fail(err)
	}
	s.Overlay.Consume(pending)
	s.merge(task)

	s.log.Debug().Str("task_id", s.Task.ID).Int("edits", len(pending)).Msg("synced edits")
	if !silent {
		s.Message = fmt.Sprintf(MsgSynced, len(pending))
	}
	return nil
}
