package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/invoicename/internal/db"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/ops"
)

// Handlers serves tool calls against one session. Calls are serialized
// because a session runs one action at a time.
type Handlers struct {
	mu      sync.Mutex
	session *ops.Session
	journal *sql.DB
}

// NewHandlers creates handlers for session. journal may be nil, which
// disables invoice_history.
func NewHandlers(session *ops.Session, journal *sql.DB) *Handlers {
	return &Handlers{session: session, journal: journal}
}

// Request types for each tool

// ImportRequest represents the arguments for invoice_import.
type ImportRequest struct {
	Paths []string `json:"paths"`
}

// AttachRequest represents the arguments for invoice_attach.
type AttachRequest struct {
	TaskID string `json:"task_id"`
}

// StateRequest represents the arguments for invoice_state.
type StateRequest struct {
	Refresh bool `json:"refresh,omitempty"`
}

// RecognizeRequest represents the arguments for invoice_recognize.
type RecognizeRequest struct {
	ItemIDs []string `json:"item_ids,omitempty"`
	APIKey  *string  `json:"api_key,omitempty"`
}

// EditRequest represents the arguments for invoice_edit.
type EditRequest struct {
	ItemID      string  `json:"item_id"`
	InvoiceDate *string `json:"invoice_date,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// SelectRequest represents the arguments for invoice_select.
type SelectRequest struct {
	ItemIDs  []string `json:"item_ids,omitempty"`
	Selected bool     `json:"selected"`
}

// PatchRequest represents the arguments for invoice_patch.
type PatchRequest struct {
	ItemID string `json:"item_id"`
	invoice.ItemPatch
}

// PreviewRequest represents the arguments for invoice_preview.
type PreviewRequest struct {
	ItemID string `json:"item_id"`
}

// HistoryRequest represents the arguments for invoice_history.
type HistoryRequest struct {
	TaskID string `json:"task_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ReportOutput is the invoice_report result.
type ReportOutput struct {
	Markdown string `json:"markdown"`
}

// HistoryOutput is the invoice_history result.
type HistoryOutput struct {
	Entries []db.JournalEntry `json:"entries"`
}

// Handler implementations

// HandleImport handles the invoice_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.session.Import(ctx, input.Paths); err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandleAttach handles the invoice_attach tool call.
func (h *Handlers) HandleAttach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AttachRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if input.TaskID == "" {
		return errorResult(errors.NewInvalidRequest("task_id is required")), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Attach(ctx, input.TaskID); err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandleState handles the invoice_state tool call.
func (h *Handlers) HandleState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if input.Refresh {
		if err := h.session.Refresh(ctx); err != nil {
			return errorResult(err), nil
		}
	}
	return h.stateResult()
}

// HandleRecognize handles the invoice_recognize tool call.
func (h *Handlers) HandleRecognize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecognizeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	err = h.session.Recognize(ctx, ops.RecognizeInput{ItemIDs: input.ItemIDs, APIKey: input.APIKey})
	if err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandleEdit handles the invoice_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	item, err := h.session.Edit(ops.EditInput{
		ItemID:      input.ItemID,
		InvoiceDate: input.InvoiceDate,
		Amount:      input.Amount,
		Category:    input.Category,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(item)
}

// HandleSelect handles the invoice_select tool call.
func (h *Handlers) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(input.ItemIDs) == 0 {
		err = h.session.SelectAll(input.Selected)
	} else {
		for _, id := range input.ItemIDs {
			if err = h.session.SetSelected(id, input.Selected); err != nil {
				break
			}
		}
	}
	if err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandlePatch handles the invoice_patch tool call.
func (h *Handlers) HandlePatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PatchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Patch(ctx, input.ItemID, input.ItemPatch); err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandleSync handles the invoice_sync tool call.
func (h *Handlers) HandleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.SyncEdits(ctx, false); err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandleRemove handles the invoice_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.RemoveSelected(ctx); err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandleClear handles the invoice_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.session.Clear(ctx); err != nil {
		return errorResult(err), nil
	}
	return h.stateResult()
}

// HandlePlan handles the invoice_plan tool call.
func (h *Handlers) HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	plan, err := h.session.BuildPlan(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(plan)
}

// HandleRename handles the invoice_rename tool call.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out, err := h.session.ExecuteRename(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleSettings handles the invoice_settings tool call.
func (h *Handlers) HandleSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	settings, err := h.session.LoadSettings(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(settings)
}

// HandleUpdateSettings handles the invoice_update_settings tool call.
func (h *Handlers) HandleUpdateSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[invoice.SettingsUpdate](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	settings, err := h.session.SaveSettings(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(settings)
}

// HandlePreview handles the invoice_preview tool call.
func (h *Handlers) HandlePreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PreviewRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	preview, err := h.session.ReadPreview(ctx, input.ItemID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(preview)
}

// HandleReport handles the invoice_report tool call.
func (h *Handlers) HandleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	md, err := h.session.Report()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(ReportOutput{Markdown: md})
}

// HandleHistory handles the invoice_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.journal == nil {
		return errorResult(errors.NewNotConfigured("rename journal")), nil
	}

	entries, err := db.ListJournal(h.journal, db.ListJournalInput{TaskID: input.TaskID, Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	if entries == nil {
		entries = []db.JournalEntry{}
	}
	return successResult(HistoryOutput{Entries: entries})
}

// Result helpers

func (h *Handlers) stateResult() (*mcp.CallToolResult, error) {
	return successResult(h.session.View())
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rErr, ok := errors.As(err); ok && rErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": errors.Normalize(rErr),
			"status":  rErr.Status,
		}
		if rErr.Detail != "" {
			errorObj["detail"] = rErr.Detail
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
