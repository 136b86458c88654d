package invoice

import "time"

// Status is the recognition lifecycle of an item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusOK          Status = "ok"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
)

// Unnamed reports whether items in this status have no reliable fields to name from.
func (s Status) Unnamed() bool {
	return s == StatusPending || s == StatusFailed
}

// Action is the planned rename action for an item.
type Action string

const (
	ActionRename             Action = "rename"
	ActionSkip               Action = "skip"
	ActionManualEditRequired Action = "manual_edit_required"
)

// ConflictType classifies a target-name collision.
type ConflictType string

const (
	ConflictNone        ConflictType = "none"
	ConflictSameName    ConflictType = "same_name"
	ConflictExistsOther ConflictType = "exists_other"
)

// Result is the outcome of a commit attempt for one item.
type Result string

const (
	ResultPending Result = "pending"
	ResultRenamed Result = "renamed"
	ResultSkipped Result = "skipped"
	ResultFailed  Result = "failed"
)

// Item is one invoice file under management.
type Item struct {
	ID         string `json:"id"`
	SourcePath string `json:"source_path"`
	OldName    string `json:"old_name"`
	FileExt    string `json:"file_ext"`

	// Extracted fields. Amount is a decimal string.
	InvoiceDate   *string `json:"invoice_date"`
	ItemName      *string `json:"item_name"`
	Amount        *string `json:"amount"`
	Category      *string `json:"category"`
	VendorName    *string `json:"vendor_name"`
	ExtractedText *string `json:"extracted_text"`

	Status        Status  `json:"status"`
	FailureReason *string `json:"failure_reason"`

	// SuggestedName is derived by the naming engine; never set while Status.Unnamed().
	SuggestedName *string `json:"suggested_name"`
	ManualName    *string `json:"manual_name"`

	Selected      bool         `json:"selected"`
	Action        *Action      `json:"action"`
	ConflictType  ConflictType `json:"conflict_type"`
	Result        Result       `json:"result"`
	ResultMessage *string      `json:"result_message"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Task is one import session.
type Task struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Template  string    `json:"template"`
	Summary   Summary   `json:"summary"`
	Items     []*Item   `json:"items"`
}

// NewItem creates a pending item for a file on disk.
func NewItem(id, sourcePath, oldName, ext string, now time.Time) *Item {
	return &Item{
		ID:           id,
		SourcePath:   sourcePath,
		OldName:      oldName,
		FileExt:      ext,
		Status:       StatusPending,
		Selected:     true,
		ConflictType: ConflictNone,
		Result:       ResultPending,
		UpdatedAt:    now,
	}
}

// Find returns the item with the given id, or nil.
func (t *Task) Find(id string) *Item {
	for _, item := range t.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// SelectedIDs returns ids of selected items in task order.
func (t *Task) SelectedIDs() []string {
	ids := make([]string, 0, len(t.Items))
	for _, item := range t.Items {
		if item.Selected {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Selected returns the selected items in task order.
func (t *Task) Selected() []*Item {
	items := make([]*Item, 0, len(t.Items))
	for _, item := range t.Items {
		if item.Selected {
			items = append(items, item)
		}
	}
	return items
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Items = make([]*Item, len(t.Items))
	for i, item := range t.Items {
		c.Items[i] = item.Clone()
	}
	return &c
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	c.InvoiceDate = cloneString(i.InvoiceDate)
	c.ItemName = cloneString(i.ItemName)
	c.Amount = cloneString(i.Amount)
	c.Category = cloneString(i.Category)
	c.VendorName = cloneString(i.VendorName)
	c.ExtractedText = cloneString(i.ExtractedText)
	c.FailureReason = cloneString(i.FailureReason)
	c.SuggestedName = cloneString(i.SuggestedName)
	c.ManualName = cloneString(i.ManualName)
	c.ResultMessage = cloneString(i.ResultMessage)
	if i.Action != nil {
		a := *i.Action
		c.Action = &a
	}
	return &c
}

// SetAction sets the planned action.
func (i *Item) SetAction(a Action) {
	i.Action = &a
}

// Str returns a pointer to s.
func Str(s string) *string {
	return &s
}

// Value dereferences s, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
