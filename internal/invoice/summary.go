package invoice

// Summary holds derived counts for a task. It is always recomputable from items.
type Summary struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	OK          int `json:"ok"`
	NeedsReview int `json:"needs_review"`
	Failed      int `json:"failed"`
	Conflict    int `json:"conflict"`
	RenameReady int `json:"rename_ready"`
	Renamed     int `json:"renamed"`
	Skipped     int `json:"skipped"`
}

// BuildSummary counts items per status, conflict and result.
func BuildSummary(items []*Item) Summary {
	s := Summary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusOK:
			s.OK++
		case StatusNeedsReview:
			s.NeedsReview++
		case StatusFailed:
			s.Failed++
		}

		if item.ConflictType != "" && item.ConflictType != ConflictNone {
			s.Conflict++
		}
		if item.Action != nil && *item.Action == ActionRename {
			s.RenameReady++
		}
		switch item.Result {
		case ResultRenamed:
			s.Renamed++
		case ResultSkipped:
			s.Skipped++
		}
	}
	return s
}

// Refresh recomputes the task summary from its items.
func (t *Task) Refresh() {
	t.Summary = BuildSummary(t.Items)
}
