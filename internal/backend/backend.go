// Package backend defines the rename service contract and its HTTP client.
package backend

import (
	"context"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// Service is every call the client core makes against the rename backend.
type Service interface {
	Import(ctx context.Context, paths []string) (*invoice.Task, error)
	Recognize(ctx context.Context, req RecognizeRequest) (*invoice.Task, error)

	// PreviewNames renders names on the server. Superseded by local rendering.
	PreviewNames(ctx context.Context, req PreviewRequest) (*invoice.Task, error)

	GetTask(ctx context.Context, taskID string) (*invoice.Task, error)
	PatchItem(ctx context.Context, taskID, itemID string, patch invoice.ItemPatch) (*invoice.Task, error)
	SyncItems(ctx context.Context, taskID string, edits []invoice.LocalEdit) (*invoice.Task, error)
	RemoveItems(ctx context.Context, taskID string, itemIDs []string) (*invoice.Task, error)
	ClearItems(ctx context.Context, taskID string) (*invoice.Task, error)

	GetSettings(ctx context.Context) (*invoice.Settings, error)
	UpdateSettings(ctx context.Context, update invoice.SettingsUpdate) (*invoice.Settings, error)

	CommitPlan(ctx context.Context, taskID string, itemIDs []string) (*invoice.CommitPlan, error)
	CommitRename(ctx context.Context, taskID string, itemIDs []string) (*invoice.CommitResults, error)
	CommitResults(ctx context.Context, taskID string, results []invoice.CommitResult) (*invoice.CommitResults, error)
}

// Wire request bodies. The reference server decodes the same types.

type ImportRequest struct {
	Paths []string `json:"paths"`
}

type RecognizeRequest struct {
	TaskID  string   `json:"task_id"`
	ItemIDs []string `json:"item_ids,omitempty"`

	// SessionAPIKey overrides the configured recognition credential for this call only.
	SessionAPIKey *string `json:"session_api_key,omitempty"`
}

type PreviewRequest struct {
	TaskID   string   `json:"task_id"`
	Template *string  `json:"template,omitempty"`
	ItemIDs  []string `json:"item_ids,omitempty"`
}

type SyncItemsRequest struct {
	TaskID string              `json:"task_id"`
	Items  []invoice.LocalEdit `json:"items"`
}

type ItemsRequest struct {
	TaskID  string   `json:"task_id"`
	ItemIDs []string `json:"item_ids,omitempty"`
}

type CommitPlanRequest struct {
	TaskID  string   `json:"task_id"`
	ItemIDs []string `json:"item_ids,omitempty"`
	DryRun  bool     `json:"dry_run"`
}

type CommitResultsRequest struct {
	TaskID  string                 `json:"task_id"`
	Results []invoice.CommitResult `json:"results"`
}

// ErrorBody is the JSON error shape returned by the backend.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}
