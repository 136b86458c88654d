package mcp

import "github.com/mark3labs/mcp-go/mcp"

var importToolDef = mcp.NewTool("invoice_import",
	mcp.WithDescription("Import invoice files or folders (pdf, png, jpg, jpeg) into a new task. Replaces the current task."),
	mcp.WithArray("paths", mcp.Required(), mcp.WithStringItems(), mcp.Description("Files or folders to import")),
)

var attachToolDef = mcp.NewTool("invoice_attach",
	mcp.WithDescription("Load an existing task from the backend by id."),
	mcp.WithString("task_id", mcp.Required()),
)

var stateToolDef = mcp.NewTool("invoice_state",
	mcp.WithDescription("Show the current task with unsynced edits, progress and the last plan and rename outcome."),
	mcp.WithBoolean("refresh", mcp.Description("Fetch a fresh snapshot from the backend first")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var recognizeToolDef = mcp.NewTool("invoice_recognize",
	mcp.WithDescription("Recognize invoice fields, one item at a time. Defaults to the selected items."),
	mcp.WithArray("item_ids", mcp.WithStringItems()),
	mcp.WithString("api_key", mcp.Description("Recognition credential for this call only")),
)

var editToolDef = mcp.NewTool("invoice_edit",
	mcp.WithDescription("Edit the date, amount or category of one item locally. Names re-render at once; the edit is sent on the next sync or rename."),
	mcp.WithString("item_id", mcp.Required()),
	mcp.WithString("invoice_date", mcp.Description("YYYY-MM-DD")),
	mcp.WithString("amount", mcp.Description("Decimal amount, e.g. 26.80")),
	mcp.WithString("category"),
)

var selectToolDef = mcp.NewTool("invoice_select",
	mcp.WithDescription("Select or deselect items. With no item_ids, applies to every item."),
	mcp.WithArray("item_ids", mcp.WithStringItems()),
	mcp.WithBoolean("selected", mcp.Required()),
)

var patchToolDef = mcp.NewTool("invoice_patch",
	mcp.WithDescription("Update one item on the backend immediately."),
	mcp.WithString("item_id", mcp.Required()),
	mcp.WithString("invoice_date"),
	mcp.WithString("item_name"),
	mcp.WithString("amount"),
	mcp.WithString("category"),
	mcp.WithString("vendor_name"),
	mcp.WithString("manual_name", mcp.Description("Overrides the suggested filename")),
	mcp.WithString("status", mcp.Enum("pending", "ok", "needs_review", "failed")),
	mcp.WithBoolean("selected"),
)

var syncToolDef = mcp.NewTool("invoice_sync",
	mcp.WithDescription("Send unsynced local edits to the backend."),
)

var removeToolDef = mcp.NewTool("invoice_remove",
	mcp.WithDescription("Remove the selected items from the task. Files are not touched."),
	mcp.WithDestructiveHintAnnotation(false),
)

var clearToolDef = mcp.NewTool("invoice_clear",
	mcp.WithDescription("Remove every item from the task. Files are not touched."),
	mcp.WithDestructiveHintAnnotation(false),
)

var planToolDef = mcp.NewTool("invoice_plan",
	mcp.WithDescription("Build a dry-run rename plan for the selected items."),
)

var renameToolDef = mcp.NewTool("invoice_rename",
	mcp.WithDescription("Rename the selected files: sync edits, plan, execute, then refresh."),
	mcp.WithDestructiveHintAnnotation(true),
)

var settingsToolDef = mcp.NewTool("invoice_settings",
	mcp.WithDescription("Show recognition and naming settings."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var updateSettingsToolDef = mcp.NewTool("invoice_update_settings",
	mcp.WithDescription("Update recognition and naming settings. Omitted fields are unchanged."),
	mcp.WithString("siliconflow_base_url"),
	mcp.WithString("siliconflow_model"),
	mcp.WithArray("siliconflow_models", mcp.WithStringItems()),
	mcp.WithString("siliconflow_api_key"),
	mcp.WithString("filename_template", mcp.Description("Placeholders: {date} {category} {amount}")),
	mcp.WithObject("category_mapping", mcp.Description("Category name to keyword list")),
)

var previewToolDef = mcp.NewTool("invoice_preview",
	mcp.WithDescription("Read an item's source file as base64 for display. Needs the local bridge."),
	mcp.WithString("item_id", mcp.Required()),
	mcp.WithReadOnlyHintAnnotation(true),
)

var reportToolDef = mcp.NewTool("invoice_report",
	mcp.WithDescription("Render the current task as a markdown report."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyToolDef = mcp.NewTool("invoice_history",
	mcp.WithDescription("List recent local rename outcomes, newest first."),
	mcp.WithString("task_id"),
	mcp.WithNumber("limit", mcp.Min(1), mcp.Max(500)),
	mcp.WithReadOnlyHintAnnotation(true),
)
