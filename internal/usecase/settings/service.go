package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/knowwho/internal/domain"
	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
)

// EventUpdated is published after settings are saved.
const EventUpdated = "settings.updated"

// Service owns the process-wide user preferences.
type Service struct {
	repo     Repository
	pub      Publisher
	defaults domset.Settings
}

// New creates a settings service. defaults are returned until something is
// saved; pub can be nil.
func New(repo Repository, pub Publisher, defaults domset.Settings) *Service {
	return &Service{repo: repo, pub: pub, defaults: defaults}
}

// Load returns the saved settings or the defaults.
func (s *Service) Load(ctx context.Context) (domset.Settings, error) {
	st, err := s.repo.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domset.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// Save validates, persists and announces new settings.
func (s *Service) Save(ctx context.Context, st domset.Settings) (domset.Settings, error) {
	if err := st.Validate(); err != nil {
		return domset.Settings{}, fmt.Errorf("validate settings: %w", err)
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return domset.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	if s.pub != nil {
		s.pub.Publish(EventUpdated, st)
	}
	return st, nil
}
