package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/invoicename/internal/invoice"
)

func planItem(dir, id, old string, status invoice.Status, suggested string) *invoice.Item {
	item := invoice.NewItem(id, filepath.Join(dir, old), old, filepath.Ext(old), testNow)
	item.Status = status
	if suggested != "" {
		item.SuggestedName = invoice.Str(suggested)
	}
	return item
}

func TestBuildPlan_SkipReasons(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf", "taken.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	items := []*invoice.Item{
		planItem(dir, "1", "a.pdf", invoice.StatusOK, "x.pdf"),
		planItem(dir, "2", "b.pdf", invoice.StatusFailed, "y.pdf"),
		planItem(dir, "3", "c.pdf", invoice.StatusOK, ""),
		planItem(dir, "4", "d.pdf", invoice.StatusOK, "d.pdf"),
		planItem(dir, "5", "e.pdf", invoice.StatusOK, "X.pdf"),
		planItem(dir, "6", "f.pdf", invoice.StatusOK, "taken.pdf"),
		planItem(dir, "7", "g.pdf", invoice.StatusOK, "z.pdf"),
	}
	items[6].Selected = false

	plan := BuildPlan(items, nil)
	if len(plan) != len(items) {
		t.Fatalf("plan covers %d items, want %d", len(plan), len(items))
	}

	tests := []struct {
		id       string
		action   invoice.Action
		reason   string
		conflict invoice.ConflictType
	}{
		{"1", invoice.ActionRename, "", invoice.ConflictNone},
		{"2", invoice.ActionSkip, ReasonRecognitionFailed, invoice.ConflictNone},
		{"3", invoice.ActionSkip, ReasonMissingSuggestedName, invoice.ConflictNone},
		{"4", invoice.ActionSkip, ReasonSameName, invoice.ConflictSameName},
		{"5", invoice.ActionSkip, ReasonDuplicateInBatch, invoice.ConflictExistsOther},
		{"6", invoice.ActionSkip, ReasonTargetExists, invoice.ConflictExistsOther},
		{"7", invoice.ActionSkip, ReasonNotSelected, invoice.ConflictNone},
	}
	for i, tt := range tests {
		p := plan[i]
		if p.ItemID != tt.id {
			t.Fatalf("plan[%d].ItemID = %q, want %q", i, p.ItemID, tt.id)
		}
		if p.Action != tt.action {
			t.Errorf("item %s: action = %q, want %q", tt.id, p.Action, tt.action)
		}
		if got := invoice.Value(p.Reason); got != tt.reason {
			t.Errorf("item %s: reason = %q, want %q", tt.id, got, tt.reason)
		}
		if p.ConflictType != tt.conflict {
			t.Errorf("item %s: conflict = %q, want %q", tt.id, p.ConflictType, tt.conflict)
		}
	}

	if plan[0].TargetPath != filepath.Join(dir, "x.pdf") {
		t.Errorf("TargetPath = %q", plan[0].TargetPath)
	}
	if plan[2].TargetName != "c.pdf" {
		t.Errorf("missing name should target the old name, got %q", plan[2].TargetName)
	}
}

func TestBuildPlan_ExplicitIDsOverrideSelection(t *testing.T) {
	dir := t.TempDir()
	a := planItem(dir, "1", "a.pdf", invoice.StatusOK, "x.pdf")
	b := planItem(dir, "2", "b.pdf", invoice.StatusOK, "y.pdf")
	b.Selected = false

	plan := BuildPlan([]*invoice.Item{a, b}, []string{"2"})
	if plan[0].Action != invoice.ActionSkip || invoice.Value(plan[0].Reason) != ReasonNotSelected {
		t.Errorf("item 1 should be skipped as not selected, got %+v", plan[0])
	}
	if plan[1].Action != invoice.ActionRename {
		t.Errorf("item 2 should rename, got %q", plan[1].Action)
	}
}

func TestBuildPlan_ManualNameWins(t *testing.T) {
	dir := t.TempDir()
	item := planItem(dir, "1", "a.pdf", invoice.StatusNeedsReview, "x.pdf")
	item.ManualName = invoice.Str("手工.PDF")

	plan := BuildPlan([]*invoice.Item{item}, nil)
	if plan[0].TargetName != "手工.pdf" {
		t.Errorf("TargetName = %q, want %q", plan[0].TargetName, "手工.pdf")
	}
	if plan[0].Action != invoice.ActionRename {
		t.Errorf("needs_review items are renamed, got %q", plan[0].Action)
	}
}

func TestApplyResult(t *testing.T) {
	item := invoice.NewItem("1", "/in/a.pdf", "a.pdf", ".pdf", testNow)

	applyResult(item, invoice.CommitResult{ItemID: "1", Result: invoice.ResultFailed, Message: invoice.Str("boom")})
	if item.SourcePath != "/in/a.pdf" || invoice.Value(item.ResultMessage) != "boom" {
		t.Errorf("failed result should keep path and set message: %+v", item)
	}

	applyResult(item, invoice.CommitResult{ItemID: "1", TargetPath: "/in/b.pdf", Result: invoice.ResultRenamed})
	if item.SourcePath != "/in/b.pdf" || item.OldName != "b.pdf" {
		t.Errorf("renamed result should move the item: %+v", item)
	}
	if item.ResultMessage != nil {
		t.Errorf("ResultMessage = %q, want nil", *item.ResultMessage)
	}
}
