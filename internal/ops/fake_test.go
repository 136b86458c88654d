package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/bridge"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
)

var testTime = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

// fields are what the fake recognizer "extracts" for an old filename.
type fields struct {
	date, category, amount string
	status                 invoice.Status
}

// fakeBackend is an in-memory backend.Service. Every call returns a fresh
// deep copy of the stored task, like a real network snapshot.
type fakeBackend struct {
	task      *invoice.Task
	extracted map[string]fields
	settings  invoice.Settings

	calls   map[string]int
	failOn  map[string]error
	synced  [][]invoice.LocalEdit
	pushed  []invoice.CommitResult
	lastKey *string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		extracted: map[string]fields{},
		calls:     map[string]int{},
		failOn:    map[string]error{},
		settings:  invoice.Settings{FilenameTemplate: "{date}-{category}-{amount}"},
	}
}

var _ backend.Service = (*fakeBackend)(nil)

func (f *fakeBackend) enter(name string) error {
	f.calls[name]++
	return f.failOn[name]
}

func (f *fakeBackend) snapshot() *invoice.Task {
	f.task.Refresh()
	return f.task.Clone()
}

func (f *fakeBackend) mustTask(id string) error {
	if f.task == nil || f.task.ID != id {
		return errors.NewBackend(404, "Task not found: "+id)
	}
	return nil
}

func (f *fakeBackend) Import(_ context.Context, paths []string) (*invoice.Task, error) {
	if err := f.enter("import"); err != nil {
		return nil, err
	}
	f.task = &invoice.Task{ID: "t1", Template: f.settings.FilenameTemplate, CreatedAt: testTime, UpdatedAt: testTime}
	for i, p := range paths {
		name := filepath.Base(p)
		f.task.Items = append(f.task.Items, invoice.NewItem(fmt.Sprintf("i%d", i+1), p, name, filepath.Ext(name), testTime))
	}
	return f.snapshot(), nil
}

func (f *fakeBackend) Recognize(_ context.Context, req backend.RecognizeRequest) (*invoice.Task, error) {
	if err := f.enter("recognize"); err != nil {
		return nil, err
	}
	if err := f.mustTask(req.TaskID); err != nil {
		return nil, err
	}
	f.lastKey = req.SessionAPIKey
	for _, id := range req.ItemIDs {
		item := f.task.Find(id)
		if item == nil {
			continue
		}
		x, ok := f.extracted[item.OldName]
		if !ok {
			item.Status = invoice.StatusFailed
			item.FailureReason = invoice.Str("missing_required_fields")
			continue
		}
		item.InvoiceDate = invoice.Str(x.date)
		item.Category = invoice.Str(x.category)
		item.Amount = invoice.Str(x.amount)
		item.Status = x.status
	}
	return f.snapshot(), nil
}

func (f *fakeBackend) PreviewNames(_ context.Context, req backend.PreviewRequest) (*invoice.Task, error) {
	if err := f.enter("preview"); err != nil {
		return nil, err
	}
	if err := f.mustTask(req.TaskID); err != nil {
		return nil, err
	}
	if req.Template != nil {
		f.task.Template = *req.Template
	}
	return f.snapshot(), nil
}

func (f *fakeBackend) GetTask(_ context.Context, taskID string) (*invoice.Task, error) {
	if err := f.enter("get"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	return f.snapshot(), nil
}

func (f *fakeBackend) PatchItem(_ context.Context, taskID, itemID string, patch invoice.ItemPatch) (*invoice.Task, error) {
	if err := f.enter("patch"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	item := f.task.Find(itemID)
	if item == nil {
		return nil, errors.NewBackend(404, "Item not found: "+itemID)
	}
	patch.ApplyTo(item)
	return f.snapshot(), nil
}

func (f *fakeBackend) SyncItems(_ context.Context, taskID string, edits []invoice.LocalEdit) (*invoice.Task, error) {
	if err := f.enter("sync"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	f.synced = append(f.synced, edits)
	for _, e := range edits {
		if item := f.task.Find(e.ItemID); item != nil {
			e.Apply(item)
		}
	}
	return f.snapshot(), nil
}

func (f *fakeBackend) RemoveItems(_ context.Context, taskID string, itemIDs []string) (*invoice.Task, error) {
	if err := f.enter("remove"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	drop := map[string]bool{}
	for _, id := range itemIDs {
		drop[id] = true
	}
	kept := f.task.Items[:0]
	for _, item := range f.task.Items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	f.task.Items = kept
	return f.snapshot(), nil
}

func (f *fakeBackend) ClearItems(_ context.Context, taskID string) (*invoice.Task, error) {
	if err := f.enter("clear"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	f.task.Items = nil
	return f.snapshot(), nil
}

func (f *fakeBackend) GetSettings(context.Context) (*invoice.Settings, error) {
	if err := f.enter("get_settings"); err != nil {
		return nil, err
	}
	s := f.settings
	return &s, nil
}

func (f *fakeBackend) UpdateSettings(_ context.Context, update invoice.SettingsUpdate) (*invoice.Settings, error) {
	if err := f.enter("update_settings"); err != nil {
		return nil, err
	}
	if update.FilenameTemplate != nil {
		f.settings.FilenameTemplate = *update.FilenameTemplate
	}
	if update.CategoryMapping != nil {
		f.settings.CategoryMapping = update.CategoryMapping
	}
	s := f.settings
	return &s, nil
}

func (f *fakeBackend) CommitPlan(_ context.Context, taskID string, itemIDs []string) (*invoice.CommitPlan, error) {
	if err := f.enter("plan"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, id := range itemIDs {
		wanted[id] = true
	}
	// Like the real planner, unrequested items are described as skipped.
	plan := &invoice.CommitPlan{TaskID: taskID, DryRun: true}
	for _, item := range f.task.Items {
		target := "/invoices/" + item.ID + ".pdf"
		p := invoice.CommitPlanItem{
			ItemID:       item.ID,
			SourcePath:   item.SourcePath,
			TargetPath:   target,
			OldName:      item.OldName,
			TargetName:   filepath.Base(target),
			Action:       invoice.ActionRename,
			ConflictType: invoice.ConflictNone,
		}
		if !wanted[item.ID] {
			p.Action = invoice.ActionSkip
			p.Reason = invoice.Str("not_selected")
		}
		plan.Plan = append(plan.Plan, p)
	}
	return plan, nil
}

func (f *fakeBackend) CommitRename(_ context.Context, taskID string, itemIDs []string) (*invoice.CommitResults, error) {
	if err := f.enter("commit"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	out := &invoice.CommitResults{TaskID: taskID}
	for _, id := range itemIDs {
		item := f.task.Find(id)
		if item == nil {
			continue
		}
		item.Result = invoice.ResultRenamed
		out.Results = append(out.Results, invoice.CommitResult{ItemID: id, SourcePath: item.SourcePath, Result: invoice.ResultRenamed})
	}
	return out, nil
}

func (f *fakeBackend) CommitResults(_ context.Context, taskID string, results []invoice.CommitResult) (*invoice.CommitResults, error) {
	if err := f.enter("commit_results"); err != nil {
		return nil, err
	}
	if err := f.mustTask(taskID); err != nil {
		return nil, err
	}
	f.pushed = append(f.pushed, results...)
	for _, r := range results {
		if item := f.task.Find(r.ItemID); item != nil {
			item.Result = r.Result
			item.ResultMessage = r.Message
		}
	}
	return &invoice.CommitResults{TaskID: taskID, Results: results}, nil
}

// fakeBridge returns scripted results per item id and counts calls.
type fakeBridge struct {
	available bool
	results   map[string]*invoice.CommitResult
	errOn     map[string]error
	calls     []string
}

var _ bridge.Bridge = (*fakeBridge)(nil)

func (b *fakeBridge) Available() bool { return b.available }

func (b *fakeBridge) Rename(_ context.Context, _ string, item invoice.CommitPlanItem) (*invoice.CommitResult, error) {
	b.calls = append(b.calls, item.ItemID)
	if err := b.errOn[item.ItemID]; err != nil {
		return nil, err
	}
	r, ok := b.results[item.ItemID]
	if !ok {
		return nil, nil
	}
	c := *r
	c.ItemID = item.ItemID
	return &c, nil
}

func (b *fakeBridge) ReadPreview(_ context.Context, path string) (*bridge.Preview, error) {
	return &bridge.Preview{Kind: "pdf", MIME: "application/pdf", FileName: filepath.Base(path)}, nil
}

// newTestSession imports three recognized invoices into a session backed by fakes.
func newTestSession(opts Options) (*Session, *fakeBackend) {
	fb := newFakeBackend()
	fb.extracted["a.pdf"] = fields{"2024-03-05", "餐饮", "88.00", invoice.StatusOK}
	fb.extracted["b.pdf"] = fields{"2024-03-05", "交通", "20.00", invoice.StatusOK}
	fb.extracted["c.pdf"] = fields{"2024-03-05", "交通", "20.00", invoice.StatusNeedsReview}
	opts.Backend = fb
	opts.Logger = zerolog.Nop()
	return NewSession(opts), fb
}
