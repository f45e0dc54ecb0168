package network

// EdgeType classifies a relation between two people.
type EdgeType string

// Edge type constants.
const (
	// EdgeOrg is a formal reporting line.
	EdgeOrg            EdgeType = "org"
	EdgeCollabResearch EdgeType = "collab_research"
	EdgeCollabDoc      EdgeType = "collab_doc"
)

// EdgeTypes lists every known edge type in display order.
func EdgeTypes() []EdgeType {
	return []EdgeType{EdgeOrg, EdgeCollabResearch, EdgeCollabDoc}
}

// IsValid checks if the edge type is one of the supported values.
func (t EdgeType) IsValid() bool {
	return t == EdgeOrg || t == EdgeCollabResearch || t == EdgeCollabDoc
}

// Edge is stored directed but treated as undirected everywhere.
type Edge struct {
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Type   EdgeType `json:"type" yaml:"type"`
	Weight float64  `json:"weight" yaml:"weight"`
}

// PairKey returns the canonical sorted key of the endpoints.
func (e Edge) PairKey() string {
	return PairKey(e.Source, e.Target)
}

// Key identifies the edge for rendering: same-type duplicates between the
// same pair share a key regardless of direction.
func (e Edge) Key() string {
	return string(e.Type) + ":" + e.PairKey()
}

// Touches reports whether id is one of the endpoints.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

// PairKey builds the canonical "a|b" key with a <= b.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
