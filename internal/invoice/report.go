package invoice

import (
	"fmt"
	"strings"
)

// Markdown renders a human-readable report of a task: summary counts and one
// table row per item with its old name, new name and outcome.
func Markdown(t *Task) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 发票改名报告 %s\n\n", t.ID)
	fmt.Fprintf(&b, "- 模板: `%s`\n", t.Template)
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "- 更新时间: %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\n## 汇总\n\n")

	s := BuildSummary(t.Items)
	b.WriteString("| 总数 | 待识别 | 正常 | 待复核 | 失败 | 冲突 | 可改名 | 已改名 | 已跳过 |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d | %d | %d |\n",
		s.Total, s.Pending, s.OK, s.NeedsReview, s.Failed, s.Conflict, s.RenameReady, s.Renamed, s.Skipped)

	if len(t.Items) == 0 {
		b.WriteString("\n列表为空。\n")
		return b.String()
	}

	b.WriteString("\n## 明细\n\n")
	b.WriteString("| 原文件名 | 新文件名 | 状态 | 结果 | 说明 |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, item := range t.Items {
		newName := Value(item.ManualName)
		if newName == "" {
			newName = Value(item.SuggestedName)
		}
		note := Value(item.ResultMessage)
		if note == "" {
			note = Value(item.FailureReason)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			cell(item.OldName), cell(newName), item.Status, item.Result, cell(note))
	}
	return b.String()
}

// cell escapes a value for a markdown table cell.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
