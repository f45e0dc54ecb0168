// Package view derives everything the network canvas renders from a dataset
// and the current interaction state. Compute is pure and is called again on
// every state change.
package view

import (
	"strings"

	"github.com/kailas-cloud/knowwho/internal/domain/network"
	"github.com/kailas-cloud/knowwho/internal/domain/settings"
	"github.com/kailas-cloud/knowwho/internal/usecase/layout"
	"github.com/kailas-cloud/knowwho/internal/usecase/path"
	"github.com/kailas-cloud/knowwho/internal/usecase/ranking"
)

// State is the interaction state owned by the client.
type State struct {
	SelectedID   string                    `json:"selectedId,omitempty"`
	Search       string                    `json:"search,omitempty"`
	EdgeTypes    map[network.EdgeType]bool `json:"edgeTypes,omitempty"`
	SelectedOnly bool                      `json:"selectedOnly,omitempty"`
	PathOnly     bool                      `json:"pathOnly,omitempty"`
	Width        float64                   `json:"width,omitempty"`
	Height       float64                   `json:"height,omitempty"`
}

// Toggle handles a node click: clicking the selected node clears the
// selection, any other node becomes selected.
func (s State) Toggle(id string) State {
	if s.SelectedID == id {
		s.SelectedID = ""
	} else {
		s.SelectedID = id
	}
	return s
}

// EdgeView is a deduplicated edge with its render flags.
type EdgeView struct {
	network.Edge
	Key     string `json:"key"`
	OnPath  bool   `json:"onPath"`
	Visible bool   `json:"visible"`
}

// View is the full render model.
type View struct {
	Layout      layout.Layout        `json:"layout"`
	Ranking     []ranking.RankedNode `json:"ranking"`
	Selected    *network.Node        `json:"selected,omitempty"`
	Path        []string             `json:"path"`
	PathOrgOnly bool                 `json:"pathOrgOnly"`
	Highlighted []string             `json:"highlighted"`
	Edges       []EdgeView           `json:"edges"`
}

// Match returns ids of nodes whose name contains term, case-insensitively,
// in dataset order. A blank term matches nothing.
func Match(nodes []network.Node, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []string{}
	if term == "" {
		return out
	}
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Name), term) {
			out = append(out, n.ID)
		}
	}
	return out
}

// Dedupe keeps the first edge declared for every Edge.Key.
func Dedupe(edges []network.Edge) []network.Edge {
	seen := make(map[string]struct{}, len(edges))
	out := make([]network.Edge, 0, len(edges))
	for _, e := range edges {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Compute builds the render model. Zero canvas sizes and a nil toggle map
// fall back to prefs.
func Compute(ds *network.Dataset, st State, prefs settings.Settings) View {
	width, height := st.Width, st.Height
	if width <= 0 {
		width = prefs.Canvas.Width
	}
	if height <= 0 {
		height = prefs.Canvas.Height
	}
	toggles := st.EdgeTypes
	if toggles == nil {
		toggles = prefs.EdgeToggles()
	}

	center := ds.Query.CenterNodeID
	v := View{
		Layout:      layout.Compute(ds.Nodes, center, width, height),
		Ranking:     ranking.Rank(ds.Nodes, center),
		Path:        []string{},
		Highlighted: Match(ds.Nodes, st.Search),
	}

	selectedID := st.SelectedID
	if prefs.SearchAutoSelect && len(v.Highlighted) == 1 {
		selectedID = v.Highlighted[0]
	}
	if n, ok := ds.Node(selectedID); ok {
		v.Selected = &n
		res := path.Shortest(center, n.ID, ds.Edges)
		v.Path = res.Nodes
		v.PathOrgOnly = res.OrgOnly
	}

	onPath := path.PairKeys(v.Path)
	deduped := Dedupe(ds.Edges)
	v.Edges = make([]EdgeView, 0, len(deduped))
	for _, e := range deduped {
		_, inPath := onPath[e.PairKey()]
		ev := EdgeView{Edge: e, Key: e.Key(), OnPath: inPath}
		ev.Visible = toggleOn(toggles, e.Type) && visibleForSelection(e, inPath, v.Selected, center, st)
		v.Edges = append(v.Edges, ev)
	}
	return v
}

func toggleOn(toggles map[network.EdgeType]bool, t network.EdgeType) bool {
	on, ok := toggles[t]
	return !ok || on
}

// visibleForSelection applies the path-only and selected-only filters.
// Without a selection the path is empty and only the center counts as
// touched.
func visibleForSelection(e network.Edge, inPath bool, selected *network.Node, center string, st State) bool {
	if st.PathOnly && !inPath {
		return false
	}
	if st.SelectedOnly && !e.Touches(center) && (selected == nil || !e.Touches(selected.ID)) {
		return false
	}
	return true
}
