package ops

import (
	"context"

	"github.com/hpungsan/invoicename/internal/invoice"
	"github.com/hpungsan/invoicename/internal/naming"
)

// LoadSettings fetches the backend settings.
func (s *Session) LoadSettings(ctx context.Context) (*invoice.Settings, error) {
	settings, err := s.backend.GetSettings(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	s.Settings = settings
	return settings, nil
}

// SaveSettings applies a partial settings update.
func (s *Session) SaveSettings(ctx context.Context, update invoice.SettingsUpdate) (*invoice.Settings, error) {
	settings, err := s.backend.UpdateSettings(ctx, update)
	if err != nil {
		return nil, s.fail(err)
	}
	s.Settings = settings
	s.Message = MsgSettingsSaved
	return settings, nil
}

// SaveTemplate stores a new default template. When a task is loaded, the
// template is also adopted by the task and names are re-rendered.
func (s *Session) SaveTemplate(ctx context.Context, template string) error {
	template = naming.NormalizeTemplate(template)
	if _, err := s.SaveSettings(ctx, invoice.SettingsUpdate{FilenameTemplate: &template}); err != nil {
		return err
	}
	if s.Task != nil && s.Task.ID != "" && s.Task.Template != template {
		if err := s.PreviewRemote(ctx, template); err != nil {
			return err
		}
	}
	s.Message = MsgTemplateSaved
	return nil
}

// SaveMapping stores the category keyword mapping.
func (s *Session) SaveMapping(ctx context.Context, mapping map[string][]string) error {
	if _, err := s.SaveSettings(ctx, invoice.SettingsUpdate{CategoryMapping: mapping}); err != nil {
		return err
	}
	s.Message = MsgMappingSaved
	return nil
}
