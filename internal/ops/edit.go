package ops

import (
	"github.com/hpungsan/invoicename/internal/invoice"
)

// EditInput changes the editable fields of one item. Nil fields are left unchanged.
type EditInput struct {
	ItemID      string
	InvoiceDate *string
	Amount      *string
	Category    *string
}

// Edit records a local edit and re-renders names immediately. Nothing is sent
// to the backend until the next sync.
func (s *Session) Edit(in EditInput) (*invoice.Item, error) {
	if err := s.requireTask(); err != nil {
		return nil, err
	}
	item, err := s.item(in.ItemID)
	if err != nil {
		return nil, err
	}

	edit := invoice.EditOf(item)
	if in.InvoiceDate != nil {
		edit.InvoiceDate = in.InvoiceDate
	}
	if in.Amount != nil {
		edit.Amount = in.Amount
	}
	if in.Category != nil {
		edit.Category = in.Category
	}

	s.Overlay.SetEdit(edit)
	edit.Apply(item)
	s.render()
	return item.Clone(), nil
}

// SetSelected changes the selection flag of one item locally.
func (s *Session) SetSelected(itemID string, selected bool) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	item, err := s.item(itemID)
	if err != nil {
		return err
	}
	item.Selected = selected
	s.Overlay.SetSelected(itemID, selected)
	s.Task.Refresh()
	return nil
}

// SelectAll sets the selection flag of every item locally.
func (s *Session) SelectAll(selected bool) error {
	if err := s.requireTask(); err != nil {
		return err
	}
	for _, item := range s.Task.Items {
		item.Selected = selected
		s.Overlay.SetSelected(item.ID, selected)
	}
	s.Task.Refresh()
	return nil
}
