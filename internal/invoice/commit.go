package invoice

// LocalEdit is an unsynced override of the editable fields of one item.
// Values are immutable once created; a newer edit replaces the record.
type LocalEdit struct {
	ItemID      string  `json:"item_id"`
	InvoiceDate *string `json:"invoice_date"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
}

// Apply overwrites the item's editable fields with the edit.
func (e LocalEdit) Apply(item *Item) {
	item.InvoiceDate = cloneString(e.InvoiceDate)
	item.Amount = cloneString(e.Amount)
	item.Category = cloneString(e.Category)
}

// EditOf captures the current editable fields of an item.
func EditOf(item *Item) LocalEdit {
	return LocalEdit{
		ItemID:      item.ID,
		InvoiceDate: cloneString(item.InvoiceDate),
		Amount:      cloneString(item.Amount),
		Category:    cloneString(item.Category),
	}
}

// CommitPlanItem is the dry-run projection for one item.
type CommitPlanItem struct {
	ItemID       string       `json:"item_id"`
	SourcePath   string       `json:"source_path"`
	TargetPath   string       `json:"target_path"`
	OldName      string       `json:"old_name"`
	TargetName   string       `json:"target_name"`
	Action       Action       `json:"action"`
	ConflictType ConflictType `json:"conflict_type"`
	Reason       *string      `json:"reason"`
}

// CommitPlan is the dry-run plan response.
type CommitPlan struct {
	TaskID string           `json:"task_id"`
	DryRun bool             `json:"dry_run"`
	Plan   []CommitPlanItem `json:"plan"`
}

// CommitResult is the per-item outcome of an execution attempt.
type CommitResult struct {
	ItemID     string  `json:"item_id"`
	SourcePath string  `json:"source_path"`
	TargetPath string  `json:"target_path"`
	Result     Result  `json:"result"`
	Message    *string `json:"message"`
}

// CommitResults is the response of a commit or result sync.
type CommitResults struct {
	TaskID  string         `json:"task_id"`
	Results []CommitResult `json:"results"`
}

// Tally counts results by outcome.
type Tally struct {
	Renamed int `json:"renamed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// CountResults tallies results. Pending results are not counted.
func CountResults(results []CommitResult) Tally {
	var t Tally
	for _, r := range results {
		switch r.Result {
		case ResultRenamed:
			t.Renamed++
		case ResultFailed:
			t.Failed++
		case ResultSkipped:
			t.Skipped++
		}
	}
	return t
}
