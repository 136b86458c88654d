// Package bridge executes rename plans on the local filesystem.
//
// It is the same-machine counterpart to the backend's commit endpoint: the
// caller hands it one plan item at a time and receives one result back.
package bridge

import (
	"context"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// Messages attached to results and errors produced by the bridge.
const (
	MsgSkippedByPlan     = "skipped_by_plan"
	MsgSourceNotFound    = "source_not_found"
	MsgFileInUse         = "file_in_use_after_retry"
	MsgUnsupportedFormat = "unsupported_preview_format"
	MsgTooLarge          = "preview_file_too_large"
)

// Bridge is the privileged local execution path.
type Bridge interface {
	// Available reports whether this host can execute renames locally.
	Available() bool

	// Rename executes one plan item. A nil result with a nil error means the
	// bridge produced nothing for the item.
	Rename(ctx context.Context, taskID string, item invoice.CommitPlanItem) (*invoice.CommitResult, error)

	// ReadPreview reads a source file for display.
	ReadPreview(ctx context.Context, sourcePath string) (*Preview, error)
}

// Preview is a file's bytes encoded for display.
type Preview struct {
	Kind       string `json:"kind"` // "pdf" or "image"
	MIME       string `json:"mime"`
	Base64Data string `json:"base64_data"`
	FileName   string `json:"file_name"`
}

// Unavailable is a Bridge for hosts without local rename capability.
type Unavailable struct{}

var _ Bridge = Unavailable{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Rename(context.Context, string, invoice.CommitPlanItem) (*invoice.CommitResult, error) {
	return nil, errNotAvailable
}

func (Unavailable) ReadPreview(context.Context, string) (*Preview, error) {
	return nil, errNotAvailable
}
