package invoice

// Settings is the backend's runtime configuration as seen by the client.
type Settings struct {
	BaseURL          string              `json:"siliconflow_base_url"`
	Model            string              `json:"siliconflow_model"`
	Models           []string            `json:"siliconflow_models"`
	APIKeyConfigured bool                `json:"api_key_configured"`
	FilenameTemplate string              `json:"filename_template"`
	CategoryMapping  map[string][]string `json:"category_mapping"`
}

// SettingsUpdate is a partial settings update; nil fields are left unchanged.
type SettingsUpdate struct {
	BaseURL          *string             `json:"siliconflow_base_url,omitempty"`
	Model            *string             `json:"siliconflow_model,omitempty"`
	Models           []string            `json:"siliconflow_models,omitempty"`
	APIKey           *string             `json:"siliconflow_api_key,omitempty"`
	FilenameTemplate *string             `json:"filename_template,omitempty"`
	CategoryMapping  map[string][]string `json:"category_mapping,omitempty"`
}

// ItemPatch is a partial update of one item. Nil fields are left unchanged.
type ItemPatch struct {
	InvoiceDate *string `json:"invoice_date,omitempty"`
	ItemName    *string `json:"item_name,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Category    *string `json:"category,omitempty"`
	VendorName  *string `json:"vendor_name,omitempty"`
	ManualName  *string `json:"manual_name,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Selected    *bool   `json:"selected,omitempty"`
}

// AffectsName reports whether the patch touches a field the naming engine reads.
func (p ItemPatch) AffectsName() bool {
	return p.InvoiceDate != nil || p.Amount != nil || p.Category != nil ||
		p.ManualName != nil || p.ItemName != nil || p.Status != nil
}

// ApplyTo writes the non-nil fields of the patch onto the item.
func (p ItemPatch) ApplyTo(item *Item) {
	if p.InvoiceDate != nil {
		item.InvoiceDate = cloneString(p.InvoiceDate)
	}
	if p.ItemName != nil {
		item.ItemName = cloneString(p.ItemName)
	}
	if p.Amount != nil {
		item.Amount = cloneString(p.Amount)
	}
	if p.Category != nil {
		item.Category = cloneString(p.Category)
	}
	if p.VendorName != nil {
		item.VendorName = cloneString(p.VendorName)
	}
	if p.ManualName != nil {
		item.ManualName = cloneString(p.ManualName)
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Selected != nil {
		item.Selected = *p.Selected
	}
}
