package ops

import (
	"context"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/progress"
)

// RecognizeInput contains parameters for the Recognize operation.
type RecognizeInput struct {
	ItemIDs []string // default: selected items

	// APIKey overrides the session credential for this call.
	APIKey *string
}

// Recognize extracts fields for each target item, one backend call per item,
// advancing the recognize counter after each. The first failure stops the
// batch; items already recognized keep their results.
//
// Recognition replaces the editable fields of its targets, so an item's
// unsynced edit is discarded once its recognition succeeds.
func (s *Session) Recognize(ctx context.Context, in RecognizeInput) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	ids := in.ItemIDs
	if len(ids) == 0 {
		ids = s.Task.SelectedIDs()
	}
	if len(ids) == 0 {
		return s.fail(errors.NewValidation(MsgSelectToRecognize))
	}

	key := in.APIKey
	if key == nil {
		key = s.apiKey
	}

	defer s.Progress.Busy(progress.Recognize)()

	err := progress.Each(ctx, s.Progress, progress.Recognize, ids, func(ctx context.Context, _ int, id string) error {
		task, err := s.backend.Recognize(ctx, backend.RecognizeRequest{
			TaskID:        s.Task.ID,
			ItemIDs:       []string{id},
			SessionAPIKey: key,
		})
		if err != nil {
			return err
		}
		delete(s.Overlay.Edits, id)
		s.apply(task)
		return nil
	})
	if err != nil {
		return s.fail(err)
	}

	s.Message = MsgRecognized
	s.log.Info().Str("task_id", s.Task.ID).Int("items", len(ids)).Msg("recognized")
	return nil
}

// PreviewRemote asks the backend to render names with template and adopts it
// as the task template. Local rendering supersedes this; it remains for
// persisting a template change onto an existing task.
func (s *Session) PreviewRemote(ctx context.Context, template string) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	if template == "" {
		template = s.Template()
	}

	defer s.Progress.Loading()()

	task, err := s.backend.PreviewNames(ctx, backend.PreviewRequest{
		TaskID:   s.Task.ID,
		Template: &template,
	})
	if err != nil {
		return s.fail(err)
	}
	s.apply(task)
	s.Message = MsgPreviewed
	return nil
}
