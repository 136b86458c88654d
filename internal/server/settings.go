package server

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/hpungsan/invoicename/internal/db"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/naming"
)

// settingsKey is the row holding runtime settings in the settings table.
const settingsKey = "runtime"

const (
	DefaultBaseURL = "https://api.siliconflow.cn/v1"
	OtherCategory  = naming.FallbackCategory
)

// DefaultModels are offered when no model list is configured.
var DefaultModels = []string{
	"Qwen/Qwen3-VL-32B-Instruct",
	"Qwen/Qwen3-VL-8B-Instruct",
	"Qwen/Qwen3-VL-30B-A3B-Instruct",
}

// DefaultCategoryMapping maps categories to the keywords that select them.
func DefaultCategoryMapping() map[string][]string {
	return map[string][]string{
		"餐饮":    {"餐饮", "餐饮服务", "糕点", "餐费", "餐厅"},
		"培训/服务": {"培训", "技术培训", "服务费", "信息技术", "信息服务"},
		"交通":    {"交通", "打车", "机票", "高铁", "火车", "出行"},
		"办公":    {"办公", "办公用品", "文具", "耗材"},
		"住宿":    {"住宿", "酒店", "宾馆"},
	}
}

// RuntimeSettings is the persisted settings record, including the credential.
type RuntimeSettings struct {
	BaseURL         string              `json:"siliconflow_base_url"`
	Model           string              `json:"siliconflow_model"`
	Models          []string            `json:"siliconflow_models"`
	APIKey          string              `json:"siliconflow_api_key"`
	Template        string              `json:"filename_template"`
	CategoryMapping map[string][]string `json:"category_mapping"`
}

// Public returns the settings as exposed to clients, without the credential.
func (r RuntimeSettings) Public() *invoice.Settings {
	return &invoice.Settings{
		BaseURL:          r.BaseURL,
		Model:            r.Model,
		Models:           append([]string(nil), r.Models...),
		APIKeyConfigured: r.APIKey != "",
		FilenameTemplate: r.Template,
		CategoryMapping:  cloneMapping(r.CategoryMapping),
	}
}

// SettingsStore holds runtime settings, persisted to SQLite when a database is given.
type SettingsStore struct {
	mu      sync.Mutex
	db      *sql.DB
	current RuntimeSettings
}

// NewSettingsStore loads settings from database, or starts from defaults when
// database is nil or holds none. seed overrides defaults for unset fields.
func NewSettingsStore(database *sql.DB, seed invoice.SettingsUpdate) (*SettingsStore, error) {
	s := &SettingsStore{db: database}
	var stored RuntimeSettings

	if database != nil {
		raw, ok, err := db.GetSetting(database, settingsKey)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := json.Unmarshal([]byte(raw), &stored); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
	}
	applyUpdate(&stored, seed, false)
	s.current = normalizeSettings(stored)
	return s, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() RuntimeSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.current
	c.Models = append([]string(nil), c.Models...)
	c.CategoryMapping = cloneMapping(c.CategoryMapping)
	return c
}

// Update applies a partial update and persists the result.
func (s *SettingsStore) Update(u invoice.SettingsUpdate) (RuntimeSettings, error) {
	s.mu.Lock()
	next := s.current
	next.Models = append([]string(nil), next.Models...)
	next.CategoryMapping = cloneMapping(next.CategoryMapping)
	applyUpdate(&next, u, true)
	next = normalizeSettings(next)

	if s.db != nil {
		data, err := json.Marshal(next)
		if err != nil {
			s.mu.Unlock()
			return RuntimeSettings{}, errors.NewInternal(err)
		}
		if err := db.PutSetting(s.db, settingsKey, string(data)); err != nil {
			s.mu.Unlock()
			return RuntimeSettings{}, err
		}
	}
	s.current = next
	s.mu.Unlock()
	return s.Get(), nil
}

// applyUpdate copies set fields of u onto r. Without overwrite, only empty
// fields of r are filled.
func applyUpdate(r *RuntimeSettings, u invoice.SettingsUpdate, overwrite bool) {
	if u.BaseURL != nil && (overwrite || r.BaseURL == "") {
		r.BaseURL = strings.TrimSpace(*u.BaseURL)
	}
	if u.Model != nil && (overwrite || r.Model == "") {
		r.Model = strings.TrimSpace(*u.Model)
	}
	if u.Models != nil && (overwrite || len(r.Models) == 0) {
		r.Models = u.Models
	}
	if u.APIKey != nil && (overwrite || r.APIKey == "") {
		r.APIKey = strings.TrimSpace(*u.APIKey)
	}
	if u.FilenameTemplate != nil && (overwrite || r.Template == "") {
		r.Template = *u.FilenameTemplate
	}
	if u.CategoryMapping != nil && (overwrite || r.CategoryMapping == nil) {
		r.CategoryMapping = u.CategoryMapping
	}
}

// normalizeSettings fills defaults and cleans lists and the mapping.
func normalizeSettings(r RuntimeSettings) RuntimeSettings {
	if r.BaseURL == "" {
		r.BaseURL = DefaultBaseURL
	}

	models := make([]string, 0, len(r.Models))
	seen := map[string]bool{}
	for _, m := range r.Models {
		m = strings.TrimSpace(m)
		if m != "" && !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		models = append(models, DefaultModels...)
	}
	if r.Model == "" {
		r.Model = models[0]
	}
	if !contains(models, r.Model) {
		models = append([]string{r.Model}, models...)
	}
	r.Models = models

	r.Template = naming.NormalizeTemplate(r.Template)

	if r.CategoryMapping == nil {
		r.CategoryMapping = DefaultCategoryMapping()
	}
	cleaned := make(map[string][]string, len(r.CategoryMapping))
	for category, keywords := range r.CategoryMapping {
		category = strings.TrimSpace(category)
		if category == "" || category == OtherCategory {
			continue
		}
		kept := make([]string, 0, len(keywords))
		for _, k := range keywords {
			if k = strings.TrimSpace(k); k != "" {
				kept = append(kept, k)
			}
		}
		cleaned[category] = kept
	}
	r.CategoryMapping = cleaned
	return r
}

// InferCategory picks the category whose keywords occur most often in the
// item name and filename. Ties go to the category that sorts first; no match
// yields the fallback category.
func InferCategory(itemName *string, filename string, mapping map[string][]string) string {
	source := strings.ToLower(invoice.Value(itemName) + "\n" + filename)

	categories := make([]string, 0, len(mapping))
	for c := range mapping {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	best, bestWeight := OtherCategory, 0
	for _, category := range categories {
		weight := 0
		for _, keyword := range mapping[category] {
			token := strings.ToLower(strings.TrimSpace(keyword))
			if token != "" && strings.Contains(source, token) {
				weight++
			}
		}
		if weight > bestWeight {
			best, bestWeight = category, weight
		}
	}
	return best
}

func cloneMapping(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	c := make(map[string][]string, len(m))
	for k, v := range m {
		c[k] = append([]string(nil), v...)
	}
	return c
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
