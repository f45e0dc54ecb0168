package settings

import (
	"context"

	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
)

// Repository persists the settings document.
type Repository interface {
	Load(ctx context.Context) (domset.Settings, error)
	Save(ctx context.Context, s domset.Settings) error
}

// Publisher fans change notifications out to subscribers.
type Publisher interface {
	Publish(event string, payload any)
}
