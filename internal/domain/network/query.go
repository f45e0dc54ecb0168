// Package network holds the expert-network dataset: the query context that
// anchors a visualisation, the people in it and the relations between them.
package network

// QueryContext anchors a dataset. It is immutable for the session.
type QueryContext struct {
	QueryID      string `json:"queryId" yaml:"queryId"`
	QueryText    string `json:"queryText" yaml:"queryText"`
	CenterNodeID string `json:"centerNodeId" yaml:"centerNodeId"`
	// Definitions maps a metric name to its human description.
	Definitions map[string]string `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	// ScoringInputs maps a derived metric to the raw metrics it is built from.
	ScoringInputs map[string][]string `json:"scoringInputs,omitempty" yaml:"scoringInputs,omitempty"`
}
