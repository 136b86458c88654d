package ops

import (
	"context"

	"github.com/hpungsan/invoicename/internal/bridge"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

// ReadPreview reads an item's source file through the local bridge.
func (s *Session) ReadPreview(ctx context.Context, itemID string) (*bridge.Preview, error) {
	if err := s.requireTask(); err != nil {
		return nil, err
	}
	item, err := s.item(itemID)
	if err != nil {
		return nil, err
	}
	if !s.bridge.Available() {
		return nil, s.fail(errors.NewBridgeUnavailable())
	}
	p, err := s.bridge.ReadPreview(ctx, item.SourcePath)
	if err != nil {
		return nil, s.fail(err)
	}
	return p, nil
}

// Report renders the current task as markdown.
func (s *Session) Report() (string, error) {
	if err := s.requireTask(); err != nil {
		return "", err
	}
	return invoice.Markdown(s.Task), nil
}
