package ops

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/progress"
)

var paths = []string{"/invoices/a.pdf", "/invoices/b.pdf", "/invoices/c.pdf"}

func importAndRecognize(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Import(ctx, paths)
	require.NoError(t, err)
	require.NoError(t, s.Recognize(ctx, RecognizeInput{}))
}

func TestImport(t *testing.T) {
	s, _ := newTestSession(Options{})

	out, err := s.Import(context.Background(), []string{" /invoices/a.pdf ", "", "/invoices/b.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "已导入 2 个文件", out.Message)
	assert.Len(t, out.Task.Items, 2)
	assert.False(t, s.Progress.Flags.Loading)

	// Pending items are never named.
	for _, item := range s.Task.Items {
		assert.Nil(t, item.SuggestedName)
		require.NotNil(t, item.Action)
		assert.Equal(t, invoice.ActionManualEditRequired, *item.Action)
	}
}

func TestImport_NoPaths(t *testing.T) {
	s, fb := newTestSession(Options{})

	_, err := s.Import(context.Background(), []string{"  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, MsgNoPaths, s.Message)
	assert.Zero(t, fb.calls["import"])
}

func TestImport_BackendFailureClearsLoading(t *testing.T) {
	s, fb := newTestSession(Options{})
	fb.failOn["import"] = errors.NewBackend(400, "No supported invoice files found")

	_, err := s.Import(context.Background(), paths)
	require.Error(t, err)
	assert.Equal(t, "No supported invoice files found", s.Message)
	assert.False(t, s.Progress.Flags.Loading)
}

func TestRecognize_SequentialPerItem(t *testing.T) {
	s, fb := newTestSession(Options{})
	var events []progress.Event
	s.Progress.OnEvent = func(e progress.Event) { events = append(events, e) }

	importAndRecognize(t, s)

	assert.Equal(t, 3, fb.calls["recognize"], "one call per item")
	assert.Equal(t, progress.Pair{Done: 3, Total: 3}, s.Progress.Recognize)
	assert.Equal(t, MsgRecognized, s.Message)
	assert.False(t, s.Progress.Flags.Recognizing)

	// reset event + one per item
	require.Len(t, events, 4)
	assert.Equal(t, progress.Pair{Done: 0, Total: 3}, events[0].Pair)

	names := map[string]string{}
	for _, item := range s.Task.Items {
		names[item.OldName] = invoice.Value(item.SuggestedName)
	}
	assert.Equal(t, "20240305-餐饮-88元.pdf", names["a.pdf"])
	assert.Equal(t, "20240305-交通-20元.pdf", names["b.pdf"])
	assert.Equal(t, "20240305-交通2-20元.pdf", names["c.pdf"])
}

func TestRecognize_StopsOnFirstError(t *testing.T) {
	s, fb := newTestSession(Options{})
	_, err := s.Import(context.Background(), paths)
	require.NoError(t, err)

	fb.failOn["recognize"] = stderrors.New("connection refused")
	err = s.Recognize(context.Background(), RecognizeInput{})
	require.Error(t, err)

	assert.Equal(t, 1, fb.calls["recognize"])
	assert.Equal(t, progress.Pair{Done: 0, Total: 3}, s.Progress.Recognize)
	assert.Equal(t, "connection refused", s.Message)
	assert.False(t, s.Progress.Flags.Recognizing)
	assert.False(t, s.Progress.Flags.Loading)
}

func TestRecognize_FailureKeepsLocalEdits(t *testing.T) {
	s, fb := newTestSession(Options{})
	_, err := s.Import(context.Background(), paths)
	require.NoError(t, err)
	_, err = s.Edit(EditInput{ItemID: "i3", Category: invoice.Str("办公")})
	require.NoError(t, err)

	fb.failOn["recognize"] = stderrors.New("connection refused")
	require.Error(t, s.Recognize(context.Background(), RecognizeInput{}))

	require.Contains(t, s.Overlay.Edits, "i3", "an edit survives until its item is recognized")
	assert.Equal(t, "办公", invoice.Value(s.Overlay.Edits["i3"].Category))

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, "办公", invoice.Value(s.Task.Find("i3").Category))
}

func TestRecognize_SuccessDiscardsLocalEditOfRecognizedItem(t *testing.T) {
	s, _ := newTestSession(Options{})
	_, err := s.Import(context.Background(), paths)
	require.NoError(t, err)
	_, err = s.Edit(EditInput{ItemID: "i1", Category: invoice.Str("办公")})
	require.NoError(t, err)
	_, err = s.Edit(EditInput{ItemID: "i2", Amount: invoice.Str("1.00")})
	require.NoError(t, err)

	require.NoError(t, s.Recognize(context.Background(), RecognizeInput{ItemIDs: []string{"i1"}}))

	assert.NotContains(t, s.Overlay.Edits, "i1")
	assert.Contains(t, s.Overlay.Edits, "i2")
	assert.Equal(t, "餐饮", invoice.Value(s.Task.Find("i1").Category))
}

func TestRecognize_NothingSelected(t *testing.T) {
	s, fb := newTestSession(Options{})
	_, err := s.Import(context.Background(), paths)
	require.NoError(t, err)
	require.NoError(t, s.SelectAll(false))

	err = s.Recognize(context.Background(), RecognizeInput{})
	require.Error(t, err)
	assert.Equal(t, MsgSelectToRecognize, s.Message)
	assert.Zero(t, fb.calls["recognize"])
}

func TestRecognize_CredentialOverride(t *testing.T) {
	key := "sk-session"
	s, fb := newTestSession(Options{APIKey: &key})
	_, err := s.Import(context.Background(), paths)
	require.NoError(t, err)

	require.NoError(t, s.Recognize(context.Background(), RecognizeInput{ItemIDs: []string{"i1"}}))
	require.NotNil(t, fb.lastKey)
	assert.Equal(t, "sk-session", *fb.lastKey)

	other := "sk-call"
	require.NoError(t, s.Recognize(context.Background(), RecognizeInput{ItemIDs: []string{"i1"}, APIKey: &other}))
	assert.Equal(t, "sk-call", *fb.lastKey)
}

func TestSelectionSurvivesRefresh(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	require.NoError(t, s.SetSelected("i2", false))
	require.NoError(t, s.Refresh(context.Background()))

	assert.False(t, s.Task.Find("i2").Selected)
	assert.True(t, s.Task.Find("i1").Selected)
}

func TestEdit_RendersEagerlyAndSurvivesRefresh(t *testing.T) {
	s, fb := newTestSession(Options{})
	importAndRecognize(t, s)

	item, err := s.Edit(EditInput{ItemID: "i1", Category: invoice.Str("餐饮/3月")})
	require.NoError(t, err)
	assert.Equal(t, "20240305-餐饮-3月-88元.pdf", invoice.Value(item.SuggestedName))
	assert.Zero(t, fb.calls["sync"], "edits stay local")

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, "餐饮/3月", invoice.Value(s.Task.Find("i1").Category))
	assert.Equal(t, "20240305-餐饮-3月-88元.pdf", invoice.Value(s.Task.Find("i1").SuggestedName))
}

func TestEdit_UnknownItem(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.Edit(EditInput{ItemID: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSyncEdits(t *testing.T) {
	s, fb := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.Edit(EditInput{ItemID: "i2", Amount: invoice.Str("21.50")})
	require.NoError(t, err)

	require.NoError(t, s.SyncEdits(context.Background(), false))
	require.Len(t, fb.synced, 1)
	assert.Equal(t, "21.50", invoice.Value(fb.synced[0][0].Amount))
	assert.Empty(t, s.Overlay.Edits)
	assert.Equal(t, "已同步 1 项修改", s.Message)

	// Nothing pending: no call.
	require.NoError(t, s.SyncEdits(context.Background(), false))
	assert.Equal(t, 1, fb.calls["sync"])
}

func TestSyncEdits_FailureKeepsEdits(t *testing.T) {
	s, fb := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.Edit(EditInput{ItemID: "i2", Amount: invoice.Str("21.50")})
	require.NoError(t, err)

	fb.failOn["sync"] = stderrors.New("timeout")
	require.Error(t, s.SyncEdits(context.Background(), true))
	assert.Len(t, s.Overlay.Edits, 1)
}

func TestRemoveSelected_PrunesEdits(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.Edit(EditInput{ItemID: "i3", Amount: invoice.Str("1.00")})
	require.NoError(t, err)
	require.NoError(t, s.SelectAll(false))
	require.NoError(t, s.SetSelected("i3", true))

	require.NoError(t, s.RemoveSelected(context.Background()))
	assert.Len(t, s.Task.Items, 2)
	assert.NotContains(t, s.Overlay.Edits, "i3")
	assert.Equal(t, "已从列表移除 1 项", s.Message)
}

func TestRemoveSelected_NothingSelected(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)
	require.NoError(t, s.SelectAll(false))

	err := s.RemoveSelected(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgSelectToRemove, s.Message)
}

func TestClear(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)
	s.LastPlan = &invoice.CommitPlan{}

	require.NoError(t, s.Clear(context.Background()))
	assert.Empty(t, s.Task.Items)
	assert.Nil(t, s.LastPlan)
	assert.Equal(t, MsgCleared, s.Message)
}

func TestPatch_SelectionInPatchWins(t *testing.T) {
	s, fb := newTestSession(Options{})
	importAndRecognize(t, s)

	sel := false
	require.NoError(t, s.Patch(context.Background(), "i1", invoice.ItemPatch{Selected: &sel, ManualName: invoice.Str("x")}))
	assert.False(t, s.Task.Find("i1").Selected)
	assert.Equal(t, "x", invoice.Value(fb.task.Find("i1").ManualName))
	assert.Equal(t, MsgUpdated, s.Message)
}

func TestPatch_FieldsReplaceLocalEdit(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.Edit(EditInput{ItemID: "i1", Amount: invoice.Str("1.00")})
	require.NoError(t, err)
	require.NoError(t, s.Patch(context.Background(), "i1", invoice.ItemPatch{Amount: invoice.Str("2.00")}))

	assert.Equal(t, "2.00", invoice.Value(s.Task.Find("i1").Amount))
	assert.Empty(t, s.Overlay.Edits)
}

func TestRequireTask(t *testing.T) {
	s, _ := newTestSession(Options{})

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgNoTask, s.Message)
}

func TestAttach(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	other := NewSession(Options{Backend: s.backend, Logger: s.log})
	require.NoError(t, other.Attach(context.Background(), "t1"))
	assert.Len(t, other.Task.Items, 3)
	assert.Equal(t, "20240305-餐饮-88元.pdf", invoice.Value(other.Task.Find("i1").SuggestedName))
}

func TestTemplatePrecedence(t *testing.T) {
	s := NewSession(Options{Template: "{amount}"})
	assert.Equal(t, "{amount}", s.Template())

	s.Settings = &invoice.Settings{FilenameTemplate: "{category}"}
	assert.Equal(t, "{category}", s.Template())

	s.Task = &invoice.Task{ID: "t", Template: "{date}"}
	assert.Equal(t, "{date}", s.Template())
}

func TestSaveTemplate_AdoptsOnTask(t *testing.T) {
	s, fb := newTestSession(Options{})
	importAndRecognize(t, s)

	require.NoError(t, s.SaveTemplate(context.Background(), " {category}-{date}.{ext} "))
	assert.Equal(t, "{category}-{date}", fb.settings.FilenameTemplate)
	assert.Equal(t, "{category}-{date}", s.Task.Template)
	assert.Equal(t, "餐饮-20240305.pdf", invoice.Value(s.Task.Find("i1").SuggestedName))
	assert.Equal(t, MsgTemplateSaved, s.Message)
}

func TestSaveMapping(t *testing.T) {
	s, fb := newTestSession(Options{})

	require.NoError(t, s.SaveMapping(context.Background(), map[string][]string{"交通": {"打车"}}))
	assert.Equal(t, []string{"打车"}, fb.settings.CategoryMapping["交通"])
	assert.Equal(t, MsgMappingSaved, s.Message)
}

func TestReadPreview(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.ReadPreview(context.Background(), "i1")
	require.Error(t, err)
	assert.Equal(t, errors.GuidanceBridgeUnavailable, s.Message)

	s.bridge = &fakeBridge{available: true}
	p, err := s.ReadPreview(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", p.FileName)
}

func TestReport(t *testing.T) {
	s, _ := newTestSession(Options{})
	_, err := s.Report()
	require.Error(t, err)

	importAndRecognize(t, s)
	md, err := s.Report()
	require.NoError(t, err)
	assert.Contains(t, md, "20240305-交通2-20元.pdf")
}

func TestView(t *testing.T) {
	s, _ := newTestSession(Options{})
	importAndRecognize(t, s)

	_, err := s.Edit(EditInput{ItemID: "i2", Amount: invoice.Str("21")})
	require.NoError(t, err)

	v := s.View()
	require.Len(t, v.PendingEdits, 1)
	assert.Equal(t, "i2", v.PendingEdits[0].ItemID)
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, progress.Pair{Done: 3, Total: 3}, v.Progress.Recognize)

	// The view is detached from the session.
	v.Task.Items[0].Selected = false
	assert.True(t, s.Task.Items[0].Selected)
}
