package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
	"github.com/kailas-cloud/knowwho/internal/domain/settings"
	"github.com/kailas-cloud/knowwho/internal/logger"
	"github.com/kailas-cloud/knowwho/internal/metrics"
	"github.com/kailas-cloud/knowwho/internal/usecase/layout"
	"github.com/kailas-cloud/knowwho/internal/usecase/path"
	"github.com/kailas-cloud/knowwho/internal/usecase/ranking"
	"github.com/kailas-cloud/knowwho/internal/usecase/view"
)

// Event names published on dataset changes.
const (
	EventUpdated = "dataset.updated"
	EventDeleted = "dataset.deleted"
)

// Change is the payload of dataset events.
type Change struct {
	QueryID string `json:"queryId"`
	Created bool   `json:"created,omitempty"`
}

// Mismatch is a node whose declared org distance disagrees with the org graph.
// Actual is -1 when the node cannot be reached over org edges.
type Mismatch struct {
	NodeID   string
	Declared int
	Actual   int
}

// Service handles dataset CRUD and the derived read models.
type Service struct {
	repo Repository
	pub  Publisher
}

// New creates a dataset service. pub can be nil.
func New(repo Repository, pub Publisher) *Service {
	return &Service{repo: repo, pub: pub}
}

// Put validates and stores a dataset, replacing an existing one with the
// same query id. Org distance mismatches are logged, not rejected.
func (s *Service) Put(ctx context.Context, ds *network.Dataset) (bool, error) {
	if err := ds.Validate(); err != nil {
		return false, fmt.Errorf("validate dataset: %w", err)
	}

	if mm := DistanceMismatches(ds); len(mm) > 0 {
		log := logger.FromContext(ctx)
		for _, m := range mm {
			log.Warn("Org distance disagrees with reporting lines",
				zap.String("query_id", ds.Query.QueryID),
				zap.String("node_id", m.NodeID),
				zap.Int("declared", m.Declared),
				zap.Int("actual", m.Actual))
		}
	}

	created, err := s.repo.Put(ctx, ds)
	if err != nil {
		return false, fmt.Errorf("put dataset: %w", err)
	}

	s.publish(EventUpdated, Change{QueryID: ds.Query.QueryID, Created: created})
	return created, nil
}

// Seed stores ds only if no dataset with its query id exists yet.
func (s *Service) Seed(ctx context.Context, ds *network.Dataset) (bool, error) {
	_, err := s.repo.Get(ctx, ds.Query.QueryID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("seed dataset: %w", err)
	}
	return s.Put(ctx, ds)
}

// Get retrieves a dataset by query id.
func (s *Service) Get(ctx context.Context, queryID string) (*network.Dataset, error) {
	ds, err := s.repo.Get(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return ds, nil
}

// List returns all datasets sorted by query id.
func (s *Service) List(ctx context.Context) ([]*network.Dataset, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return list, nil
}

// Delete removes a dataset.
func (s *Service) Delete(ctx context.Context, queryID string) error {
	if err := s.repo.Delete(ctx, queryID); err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	s.publish(EventDeleted, Change{QueryID: queryID})
	return nil
}

// Layout computes node positions on a width x height canvas.
func (s *Service) Layout(ctx context.Context, queryID string, width, height float64) (layout.Layout, error) {
	ds, err := s.Get(ctx, queryID)
	if err != nil {
		return layout.Layout{}, err
	}
	defer metrics.ObserveCompute("layout", time.Now())
	return layout.Compute(ds.Nodes, ds.Query.CenterNodeID, width, height), nil
}

// Path finds the path from the center to target. An unknown target is an
// error; an unreachable one yields an empty path.
func (s *Service) Path(ctx context.Context, queryID, target string, mode path.Mode) (path.Result, error) {
	ds, err := s.Get(ctx, queryID)
	if err != nil {
		return path.Result{}, err
	}
	if _, ok := ds.Node(target); !ok {
		return path.Result{}, fmt.Errorf("node %q: %w", target, domain.ErrNodeNotFound)
	}
	defer metrics.ObserveCompute("path", time.Now())
	return path.Search(mode, ds.Query.CenterNodeID, target, ds.Edges), nil
}

// Ranking fuses expertise and relevance ranks of every candidate.
func (s *Service) Ranking(ctx context.Context, queryID string) ([]ranking.RankedNode, error) {
	ds, err := s.Get(ctx, queryID)
	if err != nil {
		return nil, err
	}
	defer metrics.ObserveCompute("ranking", time.Now())
	return ranking.Rank(ds.Nodes, ds.Query.CenterNodeID), nil
}

// View derives the full render model for st using prefs as defaults.
func (s *Service) View(ctx context.Context, queryID string, st view.State, prefs settings.Settings) (view.View, error) {
	ds, err := s.Get(ctx, queryID)
	if err != nil {
		return view.View{}, err
	}
	defer metrics.ObserveCompute("view", time.Now())
	return view.Compute(ds, st, prefs), nil
}

func (s *Service) publish(event string, c Change) {
	if s.pub != nil {
		s.pub.Publish(event, c)
	}
}

// DistanceMismatches compares declared org distances with BFS hop counts
// over org edges, in node order.
func DistanceMismatches(ds *network.Dataset) []Mismatch {
	actual := path.OrgDistances(ds.Query.CenterNodeID, ds.Edges)
	var out []Mismatch
	for _, n := range ds.Nodes {
		if n.ID == ds.Query.CenterNodeID || !n.Metrics.HasDistance() {
			continue
		}
		got, ok := actual[n.ID]
		if !ok {
			got = -1
		}
		if got != n.Metrics.Distance() {
			out = append(out, Mismatch{NodeID: n.ID, Declared: n.Metrics.Distance(), Actual: got})
		}
	}
	return out
}
