// Package path finds shortest hop paths between people in the network.
package path

import "github.com/kailas-cloud/knowwho/internal/domain/network"

// Mode selects which edges a search may follow.
type Mode string

// Path search modes.
const (
	// ModeAuto tries org edges first and falls back to all edges.
	ModeAuto Mode = "auto"
	ModeOrg  Mode = "org"
	ModeAll  Mode = "all"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == ModeAuto || m == ModeOrg || m == ModeAll
}

// Result is a path plus the edge set it was found on.
type Result struct {
	Nodes   []string `json:"nodes"`
	OrgOnly bool     `json:"orgOnly"`
}

// Found reports whether the result holds a path.
func (r Result) Found() bool { return len(r.Nodes) > 0 }

// adjacency builds an undirected neighbour list. Neighbours keep the order
// in which their edges were declared.
func adjacency(edges []network.Edge, keep func(network.Edge) bool) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		if keep != nil && !keep(e) {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	return adj
}

// Find returns the node ids from center to target inclusive, following only
// edges accepted by keep (nil keeps all). An unreachable target or an id
// missing from the adjacency yields an empty slice. center == target yields
// [center] without looking at the edges.
func Find(center, target string, edges []network.Edge, keep func(network.Edge) bool) []string {
	if center == target {
		return []string{center}
	}

	adj := adjacency(edges, keep)
	if _, ok := adj[center]; !ok {
		return []string{}
	}
	if _, ok := adj[target]; !ok {
		return []string{}
	}

	parent := map[string]string{}
	visited := map[string]bool{center: true}
	queue := []string{center}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur == target {
			return reconstruct(center, target, parent)
		}

		for _, next := range adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			queue = append(queue, next)
		}
	}
	return []string{}
}

// reconstruct walks the BFS parent map back from target to center.
func reconstruct(center, target string, parent map[string]string) []string {
	ids := []string{target}
	for cur := target; cur != center; {
		cur = parent[cur]
		ids = append(ids, cur)
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

func isOrg(e network.Edge) bool { return e.Type == network.EdgeOrg }

// OrgPath searches reporting lines only.
func OrgPath(center, target string, edges []network.Edge) []string {
	return Find(center, target, edges, isOrg)
}

// AnyPath searches every edge regardless of type.
func AnyPath(center, target string, edges []network.Edge) []string {
	return Find(center, target, edges, nil)
}

// Shortest tries the org-only path first; when that is empty and the target
// differs from the center it falls back to all edges.
func Shortest(center, target string, edges []network.Edge) Result {
	nodes := OrgPath(center, target, edges)
	if len(nodes) > 0 || center == target {
		return Result{Nodes: nodes, OrgOnly: true}
	}
	return Result{Nodes: AnyPath(center, target, edges)}
}

// Search dispatches on mode. Unknown modes behave like ModeAuto.
func Search(mode Mode, center, target string, edges []network.Edge) Result {
	switch mode {
	case ModeOrg:
		return Result{Nodes: OrgPath(center, target, edges), OrgOnly: true}
	case ModeAll:
		return Result{Nodes: AnyPath(center, target, edges)}
	default:
		return Shortest(center, target, edges)
	}
}

// PairKeys returns the canonical pair keys of consecutive path nodes.
func PairKeys(nodes []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(nodes))
	for i := 1; i < len(nodes); i++ {
		keys[network.PairKey(nodes[i-1], nodes[i])] = struct{}{}
	}
	return keys
}

// Distances returns BFS hop counts from center over the accepted edges.
// The center maps to 0; unreachable nodes are absent.
func Distances(center string, edges []network.Edge, keep func(network.Edge) bool) map[string]int {
	adj := adjacency(edges, keep)
	dist := map[string]int{center: 0}
	queue := []string{center}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// OrgDistances returns hop counts along reporting lines.
func OrgDistances(center string, edges []network.Edge) map[string]int {
	return Distances(center, edges, isOrg)
}
