package server

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/naming"
)

// Skip reasons reported in plan items.
const (
	ReasonNotSelected          = "not_selected"
	ReasonRecognitionFailed    = "recognition_failed"
	ReasonMissingSuggestedName = "missing_suggested_name"
	ReasonSameName             = "same_name"
	ReasonDuplicateInBatch     = "duplicate_in_batch"
	ReasonTargetExists         = "target_exists"
)

// BuildPlan projects a rename for every item. Items outside ids are skipped;
// with no ids, the item's own selection decides. Later items lose to earlier
// ones targeting the same path, compared case-insensitively.
func BuildPlan(items []*invoice.Item, ids []string) []invoice.CommitPlanItem {
	selected := make(map[string]bool, len(items))
	if len(ids) > 0 {
		for _, id := range ids {
			selected[id] = true
		}
	} else {
		for _, item := range items {
			if item.Selected {
				selected[item.ID] = true
			}
		}
	}

	used := make(map[string]bool)
	plan := make([]invoice.CommitPlanItem, 0, len(items))
	for _, item := range items {
		chosen := naming.TargetName(item)
		targetName := chosen
		if targetName == "" {
			targetName = item.OldName
		}
		targetPath := filepath.Join(filepath.Dir(item.SourcePath), targetName)

		p := invoice.CommitPlanItem{
			ItemID:       item.ID,
			SourcePath:   item.SourcePath,
			TargetPath:   targetPath,
			OldName:      item.OldName,
			TargetName:   targetName,
			Action:       invoice.ActionRename,
			ConflictType: invoice.ConflictNone,
		}
		skip := func(reason string, conflict invoice.ConflictType) {
			p.Action = invoice.ActionSkip
			p.Reason = invoice.Str(reason)
			p.ConflictType = conflict
		}

		key := strings.ToLower(targetPath)
		switch {
		case !selected[item.ID]:
			skip(ReasonNotSelected, invoice.ConflictNone)
		case item.Status == invoice.StatusFailed:
			skip(ReasonRecognitionFailed, invoice.ConflictNone)
		case chosen == "":
			skip(ReasonMissingSuggestedName, invoice.ConflictNone)
		case targetName == item.OldName:
			skip(ReasonSameName, invoice.ConflictSameName)
		case used[key]:
			skip(ReasonDuplicateInBatch, invoice.ConflictExistsOther)
		case existsElsewhere(targetPath, item.SourcePath):
			skip(ReasonTargetExists, invoice.ConflictExistsOther)
		default:
			used[key] = true
		}
		plan = append(plan, p)
	}
	return plan
}

// existsElsewhere reports whether target exists and is not the source file.
// A case-only rename on a case-insensitive filesystem resolves to the source.
func existsElsewhere(target, source string) bool {
	ti, err := os.Stat(target)
	if err != nil {
		return false
	}
	si, err := os.Stat(source)
	if err != nil {
		return true
	}
	return !os.SameFile(ti, si)
}

// applyResult records one execution outcome on its item. A renamed item now
// lives at the target path.
func applyResult(item *invoice.Item, r invoice.CommitResult) {
	item.Result = r.Result
	item.ResultMessage = r.Message
	if r.Result == invoice.ResultRenamed {
		item.SourcePath = r.TargetPath
		item.OldName = filepath.Base(r.TargetPath)
	}
}
