// Package reconcile merges freshly fetched task snapshots with the client-owned
// overlay: selection flags and unsynced field edits, both keyed by item id.
package reconcile

import (
	"sort"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// Overlay holds client-owned state that must survive snapshot replacement.
type Overlay struct {
	// Selection is the last known selection flag per item id.
	Selection map[string]bool

	// Edits are unsynced field overrides per item id. Last writer wins.
	Edits map[string]invoice.LocalEdit
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		Selection: make(map[string]bool),
		Edits:     make(map[string]invoice.LocalEdit),
	}
}

// Capture records the selection flag of every item in task.
// A nil task leaves the overlay unchanged.
func (o *Overlay) Capture(task *invoice.Task) {
	if task == nil {
		return
	}
	for _, item := range task.Items {
		o.Selection[item.ID] = item.Selected
	}
}

// SetSelected records a selection flag for one item.
func (o *Overlay) SetSelected(id string, selected bool) {
	o.Selection[id] = selected
}

// SetEdit records an edit, replacing any previous edit for the same item.
func (o *Overlay) SetEdit(edit invoice.LocalEdit) {
	o.Edits[edit.ItemID] = edit
}

// Pending returns all unsynced edits ordered by item id.
func (o *Overlay) Pending() []invoice.LocalEdit {
	edits := make([]invoice.LocalEdit, 0, len(o.Edits))
	for _, edit := range o.Edits {
		edits = append(edits, edit)
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].ItemID < edits[j].ItemID })
	return edits
}

// Consume deletes the edits for the given items after a successful sync.
// Only edits identical to the synced values are removed, so an edit made
// while the sync was in flight survives.
func (o *Overlay) Consume(synced []invoice.LocalEdit) {
	for _, edit := range synced {
		current, ok := o.Edits[edit.ItemID]
		if ok && sameEdit(current, edit) {
			delete(o.Edits, edit.ItemID)
		}
	}
}

// Reset clears all overlay state, used when a new task replaces the old one.
func (o *Overlay) Reset() {
	clear(o.Selection)
	clear(o.Edits)
}

// Merge applies the overlay to a fresh snapshot in place and returns it:
//   - selection comes from the overlay for known ids, else stays as the server sent it
//   - editable fields are overwritten by any matching edit
//   - edits for ids absent from the snapshot are pruned from the overlay
//
// Merge is idempotent for a fixed snapshot and overlay.
func Merge(task *invoice.Task, o *Overlay) *invoice.Task {
	if task == nil {
		return nil
	}

	present := make(map[string]struct{}, len(task.Items))
	for _, item := range task.Items {
		present[item.ID] = struct{}{}

		if selected, ok := o.Selection[item.ID]; ok {
			item.Selected = selected
		}
		if edit, ok := o.Edits[item.ID]; ok {
			edit.Apply(item)
		}
	}

	for id := range o.Edits {
		if _, ok := present[id]; !ok {
			delete(o.Edits, id)
		}
	}

	task.Refresh()
	return task
}

func sameEdit(a, b invoice.LocalEdit) bool {
	return a.ItemID == b.ItemID &&
		invoice.Value(a.InvoiceDate) == invoice.Value(b.InvoiceDate) && (a.InvoiceDate == nil) == (b.InvoiceDate == nil) &&
		invoice.Value(a.Amount) == invoice.Value(b.Amount) && (a.Amount == nil) == (b.Amount == nil) &&
		invoice.Value(a.Category) == invoice.Value(b.Category) && (a.Category == nil) == (b.Category == nil)
}
