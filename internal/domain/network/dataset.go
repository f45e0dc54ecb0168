package network

import (
	"fmt"

	"github.com/kailas-cloud/knowwho/internal/domain"
)

// maxViolations caps the number of reported problems per validation.
const maxViolations = 50

// Dataset is the full input of one visualisation.
type Dataset struct {
	Query QueryContext `json:"query" yaml:"query"`
	Nodes []Node       `json:"nodes" yaml:"nodes"`
	Edges []Edge       `json:"edges" yaml:"edges"`
}

// Validate checks the structural invariants: unique ids, an existing center,
// edges that reference known nodes with a known type and positive weight.
// The org-distance consistency invariant is not checked here.
func (d *Dataset) Validate() error {
	var v []string
	add := func(format string, args ...any) {
		if len(v) < maxViolations {
			v = append(v, fmt.Sprintf(format, args...))
		}
	}

	if d.Query.QueryID == "" {
		add("query.queryId is required")
	}

	ids := make(map[string]struct{}, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			add("nodes[%d].id is required", i)
			continue
		}
		if _, dup := ids[n.ID]; dup {
			add("duplicate node id %q", n.ID)
			continue
		}
		ids[n.ID] = struct{}{}
		if m := n.Metrics; m != nil && m.OrgReportLineDistance != nil && *m.OrgReportLineDistance < 0 {
			add("node %q: orgReportLineDistance must be >= 0", n.ID)
		}
	}

	if d.Query.CenterNodeID == "" {
		add("query.centerNodeId is required")
	} else if _, ok := ids[d.Query.CenterNodeID]; !ok {
		add("center node %q not in node list", d.Query.CenterNodeID)
	}

	for i, e := range d.Edges {
		if _, ok := ids[e.Source]; !ok {
			add("edges[%d]: unknown source %q", i, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			add("edges[%d]: unknown target %q", i, e.Target)
		}
		if !e.Type.IsValid() {
			add("edges[%d]: unknown type %q", i, e.Type)
		}
		if e.Weight <= 0 {
			add("edges[%d]: weight must be positive", i)
		}
	}

	return domain.NewValidationError(domain.ErrInvalidDataset, v)
}

// Node looks up a node by id.
func (d *Dataset) Node(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Center returns the center node id.
func (d *Dataset) Center() string { return d.Query.CenterNodeID }
