package client

import (
	"github.com/kailas-cloud/knowwho/internal/domain/network"
	domset "github.com/kailas-cloud/knowwho/internal/domain/settings"
	briefuc "github.com/kailas-cloud/knowwho/internal/usecase/brief"
	"github.com/kailas-cloud/knowwho/internal/usecase/layout"
	"github.com/kailas-cloud/knowwho/internal/usecase/path"
	"github.com/kailas-cloud/knowwho/internal/usecase/ranking"
	"github.com/kailas-cloud/knowwho/internal/usecase/view"
)

// Wire types shared with the server.
type (
	Dataset      = network.Dataset
	QueryContext = network.QueryContext
	Node         = network.Node
	Edge         = network.Edge
	EdgeType     = network.EdgeType
	Metrics      = network.Metrics
	Settings     = domset.Settings
	Layout       = layout.Layout
	Position     = layout.Position
	PathResult   = path.Result
	PathMode     = path.Mode
	RankedNode   = ranking.RankedNode
	ViewState    = view.State
	View         = view.View
	Brief        = briefuc.Brief
)

// Path search modes.
const (
	PathAuto = path.ModeAuto
	PathOrg  = path.ModeOrg
	PathAll  = path.ModeAll
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}

// DatasetSummary is one entry of ListDatasets.
type DatasetSummary struct {
	QueryID      string `json:"queryId"`
	QueryText    string `json:"queryText"`
	CenterNodeID string `json:"centerNodeId"`
	NodeCount    int    `json:"nodeCount"`
	EdgeCount    int    `json:"edgeCount"`
}

// BriefOptions overrides the saved settings for one brief.
type BriefOptions struct {
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

type datasetList struct {
	Items []DatasetSummary `json:"items"`
}

type putResult struct {
	QueryID string `json:"queryId"`
	Created bool   `json:"created"`
}

type briefDelta struct {
	Text string `json:"text"`
}
