package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/knowwho/internal/db"
	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

// store is the consumer interface for datasets (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/dataset.Repository. Each dataset is one JSON value.
type Repo struct {
	store  store
	prefix string
}

// New creates a dataset repository. prefix namespaces every key.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Put stores ds under its query id, replacing any previous version.
// created is true when no dataset existed before.
func (r *Repo) Put(ctx context.Context, ds *network.Dataset) (bool, error) {
	key := r.key(ds.Query.QueryID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return false, fmt.Errorf("marshal dataset: %w", err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return false, fmt.Errorf("set dataset %s: %w", ds.Query.QueryID, err)
	}
	return !exists, nil
}

// Get retrieves a dataset by query id.
func (r *Repo) Get(ctx context.Context, queryID string) (*network.Dataset, error) {
	data, err := r.store.Get(ctx, r.key(queryID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get dataset %s: %w", queryID, err)
	}

	var ds network.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("unmarshal dataset %s: %w", queryID, err)
	}
	return &ds, nil
}

// List returns all datasets sorted by query id. Keys that disappear between
// the scan and the read are skipped.
func (r *Repo) List(ctx context.Context) ([]*network.Dataset, error) {
	keys, err := r.store.Scan(ctx, r.key("*"))
	if err != nil {
		return nil, fmt.Errorf("scan datasets: %w", err)
	}

	out := make([]*network.Dataset, 0, len(keys))
	for _, k := range keys {
		ds, err := r.Get(ctx, strings.TrimPrefix(k, r.key("")))
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Query.QueryID < out[j].Query.QueryID
	})
	return out, nil
}

// Delete removes a dataset.
func (r *Repo) Delete(ctx context.Context, queryID string) error {
	key := r.key(queryID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del dataset %s: %w", queryID, err)
	}
	return nil
}

// Key pattern: {prefix}dataset:{queryId}

func (r *Repo) key(queryID string) string {
	return r.prefix + "dataset:" + queryID
}
