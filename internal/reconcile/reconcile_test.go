package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/invoicename/internal/invoice"
)

var now = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func snapshot(ids ...string) *invoice.Task {
	task := &invoice.Task{ID: "task-1", Template: "{date}-{category}-{amount}"}
	for _, id := range ids {
		item := invoice.NewItem(id, "/in/"+id+".pdf", id+".pdf", ".pdf", now)
		item.Selected = false
		item.Status = invoice.StatusOK
		item.InvoiceDate = invoice.Str("2024-01-01")
		item.Amount = invoice.Str("10.00")
		item.Category = invoice.Str("办公")
		task.Items = append(task.Items, item)
	}
	return task
}

func TestMerge_SelectionFromOverlay(t *testing.T) {
	o := NewOverlay()
	o.SetSelected("a", true)
	o.SetSelected("b", false)

	task := snapshot("a", "b", "c")
	task.Items[1].Selected = true // server says selected, overlay says not
	task.Items[2].Selected = true // unknown id keeps server value

	Merge(task, o)

	assert.True(t, task.Items[0].Selected)
	assert.False(t, task.Items[1].Selected)
	assert.True(t, task.Items[2].Selected)
}

func TestMerge_EditsTakePrecedence(t *testing.T) {
	o := NewOverlay()
	o.SetEdit(invoice.LocalEdit{
		ItemID:      "a",
		InvoiceDate: invoice.Str("2024-03-05"),
		Amount:      invoice.Str("88.00"),
		Category:    invoice.Str("餐饮"),
	})

	task := snapshot("a", "b")
	Merge(task, o)

	a := task.Find("a")
	assert.Equal(t, "2024-03-05", invoice.Value(a.InvoiceDate))
	assert.Equal(t, "88.00", invoice.Value(a.Amount))
	assert.Equal(t, "餐饮", invoice.Value(a.Category))

	b := task.Find("b")
	assert.Equal(t, "2024-01-01", invoice.Value(b.InvoiceDate))
	assert.Len(t, o.Edits, 1, "edit survives until synced")
}

func TestMerge_PrunesEditsForRemovedItems(t *testing.T) {
	o := NewOverlay()
	o.SetEdit(invoice.LocalEdit{ItemID: "gone", Amount: invoice.Str("1")})
	o.SetEdit(invoice.LocalEdit{ItemID: "a", Amount: invoice.Str("2")})

	Merge(snapshot("a"), o)

	_, ok := o.Edits["gone"]
	assert.False(t, ok)
	_, ok = o.Edits["a"]
	assert.True(t, ok)
}

func TestMerge_Idempotent(t *testing.T) {
	o := NewOverlay()
	o.SetSelected("a", true)
	o.SetEdit(invoice.LocalEdit{ItemID: "b", Category: invoice.Str("交通")})

	once := Merge(snapshot("a", "b"), o)
	twice := Merge(once.Clone(), o)

	assert.Equal(t, once, twice)
}

func TestMerge_NoOpOnMatchingSnapshot(t *testing.T) {
	task := snapshot("a", "b")
	task.Items[0].Selected = true

	o := NewOverlay()
	o.Capture(task)
	for _, item := range task.Items {
		o.SetEdit(invoice.EditOf(item))
	}
	task.Refresh()
	before := task.Clone()

	Merge(task, o)

	assert.Equal(t, before, task)
}

func TestMerge_NilTask(t *testing.T) {
	assert.Nil(t, Merge(nil, NewOverlay()))
}

func TestConsume_KeepsNewerEdit(t *testing.T) {
	o := NewOverlay()
	synced := invoice.LocalEdit{ItemID: "a", Amount: invoice.Str("1")}
	o.SetEdit(synced)
	o.SetEdit(invoice.LocalEdit{ItemID: "b", Amount: invoice.Str("2")})

	pending := o.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ItemID)

	// a newer edit for b lands while the sync is in flight
	o.SetEdit(invoice.LocalEdit{ItemID: "b", Amount: invoice.Str("3")})
	o.Consume(pending)

	_, ok := o.Edits["a"]
	assert.False(t, ok)
	require.Contains(t, o.Edits, "b")
	assert.Equal(t, "3", invoice.Value(o.Edits["b"].Amount))
}

func TestCapture(t *testing.T) {
	task := snapshot("a", "b")
	task.Items[1].Selected = true

	o := NewOverlay()
	o.Capture(task)
	o.Capture(nil)

	assert.Equal(t, map[string]bool{"a": false, "b": true}, o.Selection)

	o.Reset()
	assert.Empty(t, o.Selection)
	assert.Empty(t, o.Edits)
}
