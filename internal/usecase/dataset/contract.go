package dataset

import (
	"context"

	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

// Repository defines the storage contract for datasets.
type Repository interface {
	Put(ctx context.Context, ds *network.Dataset) (bool, error)
	Get(ctx context.Context, queryID string) (*network.Dataset, error)
	List(ctx context.Context) ([]*network.Dataset, error)
	Delete(ctx context.Context, queryID string) error
}

// Publisher fans change notifications out to subscribers.
type Publisher interface {
	Publish(event string, payload any)
}
