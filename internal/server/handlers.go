package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/naming"
)

// Health is the GET /api/health response.
type Health struct {
	Status          string `json:"status"`
	Time            string `json:"time"`
	CloudConfigured bool   `json:"cloud_configured"`
	Model           string `json:"model"`
	BaseURL         string `json:"base_url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cur := s.settings.Get()
	renderJSON(w, http.StatusOK, Health{
		Status:          "ok",
		Time:            s.now().Format("2006-01-02T15:04:05.000000"),
		CloudConfigured: cur.APIKey != "",
		Model:           cur.Model,
		BaseURL:         cur.BaseURL,
	})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.ImportRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	files, err := CollectFiles(req.Paths)
	if err != nil {
		s.renderError(w, r, errors.NewInternal(err))
		return
	}
	if len(files) == 0 {
		s.renderError(w, r, errors.NewInvalidRequest("No supported invoice files found"))
		return
	}

	now := s.now()
	task := &invoice.Task{
		ID:        s.newID(),
		CreatedAt: now,
		Template:  s.settings.Get().Template,
		Items:     make([]*invoice.Item, 0, len(files)),
	}
	for _, f := range files {
		task.Items = append(task.Items, invoice.NewItem(s.newID(), f, filepath.Base(f), strings.ToLower(filepath.Ext(f)), now))
	}
	s.log.Info().Str("task_id", task.ID).Int("files", len(files)).Msg("imported")
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.mustTask(r.PathValue("id"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.RecognizeRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	cur := s.settings.Get()
	apiKey := strings.TrimSpace(invoice.Value(req.SessionAPIKey))
	if apiKey == "" {
		apiKey = cur.APIKey
	}
	extractor := s.extractors(cur.BaseURL, cur.Model, apiKey)

	targets := targetSet(task, req.ItemIDs)
	for _, item := range task.Items {
		if !targets[item.ID] {
			continue
		}
		if err := r.Context().Err(); err != nil {
			s.renderError(w, r, errors.NewTransport(err))
			return
		}
		recognizeItem(r.Context(), extractor, apiKey, item, cur.CategoryMapping, s.now())
		s.log.Debug().
			Str("item_id", item.ID).
			Str("status", string(item.Status)).
			Str("reason", invoice.Value(item.FailureReason)).
			Msg("recognized")
	}

	naming.Apply(task.Items, task.Template)
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handlePreviewNames(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.PreviewRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if t := invoice.Value(req.Template); t != "" {
		task.Template = t
	}

	targets := targetSet(task, req.ItemIDs)
	items := make([]*invoice.Item, 0, len(task.Items))
	for _, item := range task.Items {
		if targets[item.ID] {
			item.UpdatedAt = s.now()
			items = append(items, item)
		}
	}
	naming.Apply(items, task.Template)
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handleCommitPlan(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.CommitPlanRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	plan := BuildPlan(task.Items, req.ItemIDs)
	for _, p := range plan {
		item := task.Find(p.ItemID)
		item.SetAction(p.Action)
		item.ConflictType = p.ConflictType
		item.UpdatedAt = s.now()
	}
	s.save(task)
	renderJSON(w, http.StatusOK, invoice.CommitPlan{TaskID: task.ID, DryRun: req.DryRun, Plan: plan})
}

func (s *Server) handleCommitRename(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.ItemsRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	plan := BuildPlan(task.Items, req.ItemIDs)
	results := make([]invoice.CommitResult, 0, len(plan))
	for _, p := range plan {
		if p.Action != invoice.ActionRename {
			reason := invoice.Value(p.Reason)
			if reason == "" {
				reason = string(invoice.ResultSkipped)
			}
			results = append(results, invoice.CommitResult{
				ItemID:     p.ItemID,
				SourcePath: p.SourcePath,
				TargetPath: p.TargetPath,
				Result:     invoice.ResultSkipped,
				Message:    invoice.Str(reason),
			})
			continue
		}
		res, err := s.executor.Rename(r.Context(), task.ID, p)
		if err != nil {
			res = &invoice.CommitResult{
				ItemID:     p.ItemID,
				SourcePath: p.SourcePath,
				TargetPath: p.TargetPath,
				Result:     invoice.ResultFailed,
				Message:    invoice.Str(err.Error()),
			}
		}
		results = append(results, *res)
	}

	s.applyResults(task, results)
	s.save(task)
	renderJSON(w, http.StatusOK, invoice.CommitResults{TaskID: task.ID, Results: results})
}

func (s *Server) handleCommitResults(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.CommitResultsRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.applyResults(task, req.Results)
	s.save(task)
	if req.Results == nil {
		req.Results = []invoice.CommitResult{}
	}
	renderJSON(w, http.StatusOK, invoice.CommitResults{TaskID: task.ID, Results: req.Results})
}

func (s *Server) handleSyncItems(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.SyncItemsRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if len(req.Items) > 0 {
		for _, edit := range req.Items {
			item := task.Find(edit.ItemID)
			if item == nil {
				continue
			}
			edit.Apply(item)
			item.UpdatedAt = s.now()
		}
		naming.Apply(task.Items, task.Template)
	}
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	task, err := s.mustTask(r.PathValue("task"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	itemID := r.PathValue("item")
	item := task.Find(itemID)
	if item == nil {
		s.renderError(w, r, errors.NewNotFound("Item", itemID))
		return
	}
	patch, err := decodeBody[invoice.ItemPatch](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	patch.ApplyTo(item)
	item.UpdatedAt = s.now()
	if patch.AffectsName() {
		naming.Apply(task.Items, task.Template)
	}
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handleRemoveItems(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.ItemsRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if len(req.ItemIDs) > 0 {
		drop := make(map[string]bool, len(req.ItemIDs))
		for _, id := range req.ItemIDs {
			drop[id] = true
		}
		kept := task.Items[:0]
		for _, item := range task.Items {
			if !drop[item.ID] {
				item.UpdatedAt = s.now()
				kept = append(kept, item)
			}
		}
		task.Items = kept
		naming.Apply(task.Items, task.Template)
	}
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handleClearItems(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[backend.ItemsRequest](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task, err := s.mustTask(req.TaskID)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	task.Items = []*invoice.Item{}
	renderJSON(w, http.StatusOK, s.save(task))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, s.settings.Get().Public())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	update, err := decodeBody[invoice.SettingsUpdate](r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	updated, err := s.settings.Update(update)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.log.Info().Str("model", updated.Model).Msg("settings updated")
	renderJSON(w, http.StatusOK, updated.Public())
}

func (s *Server) mustTask(id string) (*invoice.Task, error) {
	task := s.store.Get(id)
	if task == nil {
		return nil, errors.NewNotFound("Task", id)
	}
	return task, nil
}

// save stamps, summarizes and stores the task, returning it.
func (s *Server) save(task *invoice.Task) *invoice.Task {
	task.UpdatedAt = s.now()
	task.Refresh()
	s.store.Save(task)
	return task
}

// applyResults writes execution outcomes onto items. Unknown ids are ignored.
func (s *Server) applyResults(task *invoice.Task, results []invoice.CommitResult) {
	for _, r := range results {
		item := task.Find(r.ItemID)
		if item == nil {
			continue
		}
		applyResult(item, r)
		item.UpdatedAt = s.now()
	}
}

// targetSet returns the ids to act on: ids when given, else every item.
func targetSet(task *invoice.Task, ids []string) map[string]bool {
	set := make(map[string]bool, len(task.Items))
	if len(ids) > 0 {
		for _, id := range ids {
			set[id] = true
		}
		return set
	}
	for _, item := range task.Items {
		set[item.ID] = true
	}
	return set
}
