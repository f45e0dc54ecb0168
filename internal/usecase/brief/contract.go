package brief

import (
	"context"

	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

// DatasetReader loads the dataset a brief is written from.
type DatasetReader interface {
	Get(ctx context.Context, queryID string) (*network.Dataset, error)
}
