package ops

import (
	"context"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// Patch sends a partial update of one item to the backend. A selection flag
// in the patch wins over the local selection.
func (s *Session) Patch(ctx context.Context, itemID string, patch invoice.ItemPatch) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	if _, err := s.item(itemID); err != nil {
		return err
	}

	s.Overlay.Capture(s.Task)
	if patch.Selected != nil {
		s.Overlay.SetSelected(itemID, *patch.Selected)
	}
	// Fields sent explicitly replace any unsynced edit of the same item.
	if patch.InvoiceDate != nil || patch.Amount != nil || patch.Category != nil {
		delete(s.Overlay.Edits, itemID)
	}

	task, err := s.backend.PatchItem(ctx, s.Task.ID, itemID, patch)
	if err != nil {
		return s.fail(err)
	}
	// The overlay already holds the intended selection; skip recapturing it.
	s.merge(task)
	s.Message = MsgUpdated
	return nil
}
