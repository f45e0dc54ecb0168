package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/knowwho/internal/db"
	"github.com/kailas-cloud/knowwho/internal/domain"
	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
)

// store is the consumer interface for settings (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists the single settings document.
type Repo struct {
	store store
	key   string
}

// New creates a settings repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, key: prefix + "settings"}
}

// Load returns domain.ErrNotFound when nothing was saved yet.
func (r *Repo) Load(ctx context.Context) (domset.Settings, error) {
	data, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domset.Settings{}, domain.ErrNotFound
		}
		return domset.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	var s domset.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return domset.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

// Save overwrites the stored settings.
func (r *Repo) Save(ctx context.Context, s domset.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("set settings: %w", err)
	}
	return nil
}
