// Package naming renders suggested filenames for invoice items from a template.
//
// Rendering is a pure function of the item fields and the template: items
// that share a (date, category, amount) group are disambiguated with a
// running counter appended to the category, in a deterministic sort order.
package naming

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hpungsan/invoicename/internal/invoice"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = "{date}-{category}-{amount}"

// Placeholders recognised in templates.
const (
	TokenDate     = "{date}"
	TokenCategory = "{category}"
	TokenAmount   = "{amount}"
	TokenExt      = "{ext}"
)

// Tokens are the rendered values substituted into a template.
type Tokens struct {
	Date     string
	Category string
	Amount   string
	Ext      string
}

// Render substitutes tokens into template.
func Render(template string, t Tokens) string {
	result := strings.ReplaceAll(template, TokenDate, t.Date)
	result = strings.ReplaceAll(result, TokenCategory, t.Category)
	result = strings.ReplaceAll(result, TokenAmount, t.Amount)
	result = strings.ReplaceAll(result, TokenExt, t.Ext)
	return result
}

// Apply sets SuggestedName, Action and ConflictType on every item.
// Item order in the slice is left untouched.
func Apply(items []*invoice.Item, template string) {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	counters := make(map[string]int)
	for _, item := range sortedForGrouping(items) {
		item.ConflictType = invoice.ConflictNone

		if item.Status.Unnamed() {
			item.SuggestedName = nil
			item.SetAction(invoice.ActionManualEditRequired)
			continue
		}

		key := groupKey(item)
		counters[key]++
		count := counters[key]

		category := invoice.Value(item.Category)
		if category == "" {
			category = FallbackCategory
		}
		if count > 1 {
			category = category + strconv.Itoa(count)
		}

		ext := NormalizeExt(item.FileExt)
		rendered := Render(template, Tokens{
			Date:     FormatDate(item.InvoiceDate),
			Category: Sanitize(category, FallbackCategory),
			Amount:   Sanitize(FormatAmount(item.Amount), FallbackAmount),
			Ext:      ext,
		})

		name := NormalizeBaseName(rendered, ext) + "." + ext
		item.SuggestedName = &name
		item.SetAction(invoice.ActionRename)
	}
}

// TargetName returns the name an item would be renamed to: the manual name if
// set, else the suggested name, normalized with the canonical extension.
// Returns "" when the item has neither.
func TargetName(item *invoice.Item) string {
	raw := invoice.Value(item.ManualName)
	if raw == "" {
		raw = invoice.Value(item.SuggestedName)
	}
	if raw == "" {
		return ""
	}
	ext := NormalizeExt(item.FileExt)
	if ext == "" {
		ext = NormalizeExt(filepath.Ext(item.OldName))
	}
	return NormalizeBaseName(raw, ext) + "." + ext
}

// NormalizeTemplate trims a template, drops any {ext} placeholder (the
// extension is always appended) and strips trailing separators.
func NormalizeTemplate(template string) string {
	value := strings.TrimSpace(template)
	value = strings.ReplaceAll(value, TokenExt, "")
	value = strings.ReplaceAll(value, "{EXT}", "")
	value = strings.TrimRight(value, " .-_")
	if value == "" {
		return DefaultTemplate
	}
	return value
}

func groupKey(item *invoice.Item) string {
	category := FallbackCategory
	if item.Category != nil {
		category = *item.Category
	}
	amount := "0.00"
	if item.Amount != nil {
		amount = *item.Amount
	}
	return invoice.Value(item.InvoiceDate) + "|" + category + "|" + amount
}

// sortedForGrouping orders items by invoice date then case-insensitive
// original name, both compared with zh-CN collation.
func sortedForGrouping(items []*invoice.Item) []*invoice.Item {
	ordered := make([]*invoice.Item, len(items))
	copy(ordered, items)

	// Collators keep internal buffers, so one per call.
	c := collate.New(language.SimplifiedChinese)
	sort.SliceStable(ordered, func(i, j int) bool {
		left, right := ordered[i], ordered[j]
		if cmp := c.CompareString(invoice.Value(left.InvoiceDate), invoice.Value(right.InvoiceDate)); cmp != 0 {
			return cmp < 0
		}
		return c.CompareString(strings.ToLower(left.OldName), strings.ToLower(right.OldName)) < 0
	})
	return ordered
}
