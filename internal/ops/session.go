package ops

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hpungsan/invoicename/internal/backend"
	"github.com/hpungsan/invoicename/internal/bridge"
	"github.com/hpungsan/invoicename/internal/errors"
	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/naming"
	"github.com/hpungsan/invoicename/internal/progress"
	"github.com/hpungsan/invoicename/internal/reconcile"
)

// Options configure a Session.
type Options struct {
	Backend backend.Service

	// Bridge executes renames locally when UseBridge is set. Nil means unavailable.
	Bridge    bridge.Bridge
	UseBridge bool

	// Template is the fallback when neither the task nor the settings carry one.
	Template string

	// APIKey, when set, overrides the backend's recognition credential per call.
	APIKey *string

	Logger zerolog.Logger
}

// Session is the client-side store for one task: the latest snapshot merged
// with the local overlay, progress counters, and the outcome of the last plan
// and rename. Every action runs to completion before the next one starts; a
// Session is not safe for concurrent use.
type Session struct {
	backend   backend.Service
	bridge    bridge.Bridge
	useBridge bool
	template  string
	apiKey    *string
	log       zerolog.Logger

	Task       *invoice.Task
	Overlay    *reconcile.Overlay
	Progress   *progress.Tracker
	Settings   *invoice.Settings
	LastPlan   *invoice.CommitPlan
	LastRename *invoice.CommitResults
	State      PipelineState

	// Message is the latest user-facing status or error text.
	Message string
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	b := opts.Bridge
	if b == nil {
		b = bridge.Unavailable{}
	}
	return &Session{
		backend:   opts.Backend,
		bridge:    b,
		useBridge: opts.UseBridge,
		template:  opts.Template,
		apiKey:    opts.APIKey,
		log:       opts.Logger,
		Overlay:   reconcile.NewOverlay(),
		Progress:  &progress.Tracker{},
		State:     StateIdle,
	}
}

// Attach loads an existing task by id, replacing any current task.
func (s *Session) Attach(ctx context.Context, taskID string) error {
	task, err := s.backend.GetTask(ctx, taskID)
	if err != nil {
		return s.fail(err)
	}
	s.Overlay.Reset()
	s.Task = nil
	s.apply(task)
	return nil
}

// Snapshot returns a deep copy of the current task, or nil.
func (s *Session) Snapshot() *invoice.Task {
	return s.Task.Clone()
}

// Template returns the template used for local rendering.
func (s *Session) Template() string {
	switch {
	case s.Task != nil && s.Task.Template != "":
		return s.Task.Template
	case s.Settings != nil && s.Settings.FilenameTemplate != "":
		return s.Settings.FilenameTemplate
	case s.template != "":
		return s.template
	}
	return naming.DefaultTemplate
}

// apply replaces the current task with a fresh snapshot: the current
// selection is captured into the overlay, the overlay is merged onto the
// snapshot, and names are re-rendered.
func (s *Session) apply(next *invoice.Task) {
	s.Overlay.Capture(s.Task)
	s.merge(next)
}

// merge applies the overlay as it stands onto next and makes it current.
func (s *Session) merge(next *invoice.Task) {
	reconcile.Merge(next, s.Overlay)
	s.Task = next
	s.render()
}

// render re-runs the naming engine over the current task.
func (s *Session) render() {
	if s.Task == nil {
		return
	}
	naming.Apply(s.Task.Items, s.Template())
	s.Task.Refresh()
}

// requireTask returns a validation error when no task is loaded.
func (s *Session) requireTask() error {
	if s.Task == nil || s.Task.ID == "" {
		return s.fail(errors.NewValidation(MsgNoTask))
	}
	return nil
}

// item returns the current item with id, or a NOT_FOUND error.
func (s *Session) item(id string) (*invoice.Item, error) {
	item := s.Task.Find(id)
	if item == nil {
		e := errors.NewNotFound("item", id)
		e.Message = fmt.Sprintf(MsgItemNotFound, id)
		return nil, s.fail(e)
	}
	return item, nil
}

// fail records the normalized message for err and returns err.
func (s *Session) fail(err error) error {
	s.Message = errors.Normalize(err)
	s.log.Warn().Err(err).Msg(s.Message)
	return err
}

// resetResults discards the last plan and rename outcome.
func (s *Session) resetResults() {
	s.LastPlan = nil
	s.LastRename = nil
}

// View is a serializable copy of the session state.
type View struct {
	Task         *invoice.Task          `json:"task"`
	PendingEdits []invoice.LocalEdit    `json:"pending_edits"`
	Progress     progress.Tracker       `json:"progress"`
	State        PipelineState          `json:"state"`
	Message      string                 `json:"message"`
	LastPlan     *invoice.CommitPlan    `json:"last_plan,omitempty"`
	LastRename   *invoice.CommitResults `json:"last_rename,omitempty"`
}

// View returns a copy of the current state.
func (s *Session) View() *View {
	p := *s.Progress
	p.OnEvent = nil
	return &View{
		Task:         s.Snapshot(),
		PendingEdits: s.Overlay.Pending(),
		Progress:     p,
		State:        s.State,
		Message:      s.Message,
		LastPlan:     s.LastPlan,
		LastRename:   s.LastRename,
	}
}
