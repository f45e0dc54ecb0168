package network

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/knowwho/internal/domain"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func validDataset() Dataset {
	return Dataset{
		Query: QueryContext{QueryID: "q1", QueryText: "battery", CenterNodeID: "E001"},
		Nodes: []Node{
			{ID: "E001", Name: "Center", Department: "R&D"},
			{ID: "E002", Name: "Aoki", Department: "R&D", Metrics: &Metrics{OrgReportLineDistance: intPtr(1)}},
		},
		Edges: []Edge{{Source: "E001", Target: "E002", Type: EdgeOrg, Weight: 1}},
	}
}

func TestValidate_OK(t *testing.T) {
	ds := validDataset()
	if err := ds.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Dataset)
		want   string
	}{
		{"missing query id", func(d *Dataset) { d.Query.QueryID = "" }, "queryId is required"},
		{"missing center", func(d *Dataset) { d.Query.CenterNodeID = "E999" }, "center node"},
		{"duplicate id", func(d *Dataset) { d.Nodes = append(d.Nodes, Node{ID: "E002"}) }, "duplicate node id"},
		{"empty id", func(d *Dataset) { d.Nodes = append(d.Nodes, Node{}) }, "id is required"},
		{"unknown source", func(d *Dataset) { d.Edges[0].Source = "X" }, "unknown source"},
		{"unknown target", func(d *Dataset) { d.Edges[0].Target = "X" }, "unknown target"},
		{"bad type", func(d *Dataset) { d.Edges[0].Type = "friend" }, "unknown type"},
		{"zero weight", func(d *Dataset) { d.Edges[0].Weight = 0 }, "weight must be positive"},
		{"negative distance", func(d *Dataset) { d.Nodes[1].Metrics.OrgReportLineDistance = intPtr(-1) }, "must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := validDataset()
			tt.mutate(&ds)
			err := ds.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidDataset) {
				t.Errorf("expected ErrInvalidDataset, got %v", err)
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, v := range ve.Violations {
				if strings.Contains(v, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("violations %v do not mention %q", ve.Violations, tt.want)
			}
		})
	}
}

func TestDatasetNodeLookup(t *testing.T) {
	ds := validDataset()
	n, ok := ds.Node("E002")
	if !ok || n.Name != "Aoki" {
		t.Fatalf("expected E002, got %+v ok=%v", n, ok)
	}
	if _, ok := ds.Node("nope"); ok {
		t.Error("expected miss")
	}
	if ds.Center() != "E001" {
		t.Errorf("center = %q", ds.Center())
	}
}

func TestMetricsDefaults(t *testing.T) {
	var m *Metrics
	if m.Distance() != DefaultDistance {
		t.Errorf("nil Distance() = %d", m.Distance())
	}
	if m.Expertise() != 0 || m.RelevanceValue() != 0 {
		t.Error("nil metrics should default to 0")
	}
	if m.HasDistance() || m.HasExpertise() {
		t.Error("nil metrics should report nothing present")
	}

	m = &Metrics{OrgReportLineDistance: intPtr(2), ExpertiseScore: floatPtr(41), Relevance: floatPtr(82)}
	if m.Distance() != 2 || m.Expertise() != 41 || m.RelevanceValue() != 82 {
		t.Errorf("unexpected values: %d %f %f", m.Distance(), m.Expertise(), m.RelevanceValue())
	}
	vals := m.Values()
	if len(vals) != 3 || vals["orgReportLineDistance"] != 2 {
		t.Errorf("unexpected Values(): %v", vals)
	}
}

func TestEdgeKeys(t *testing.T) {
	a := Edge{Source: "B", Target: "A", Type: EdgeOrg}
	b := Edge{Source: "A", Target: "B", Type: EdgeOrg}
	c := Edge{Source: "A", Target: "B", Type: EdgeCollabDoc}

	if a.Key() != b.Key() {
		t.Errorf("direction should not matter: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() == c.Key() {
		t.Error("different types must not share a key")
	}
	if a.PairKey() != "A|B" || c.PairKey() != "A|B" {
		t.Errorf("pair key = %q", a.PairKey())
	}
	if !a.Touches("A") || a.Touches("C") {
		t.Error("Touches mismatch")
	}
}

func TestEdgeTypeIsValid(t *testing.T) {
	for _, et := range EdgeTypes() {
		if !et.IsValid() {
			t.Errorf("%q should be valid", et)
		}
	}
	if EdgeType("manager").IsValid() {
		t.Error("unknown type should be invalid")
	}
}
