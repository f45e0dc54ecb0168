// Package ranking orders candidate experts by fusing their expertise and
// relevance rankings with Reciprocal Rank Fusion.
package ranking

import (
	"sort"

	"github.com/kailas-cloud/knowwho/internal/domain/network"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// RankedNode is a candidate annotated with its per-criterion ranks and the
// fused score. It is derived on demand and never stored.
type RankedNode struct {
	Node          network.Node `json:"node"`
	ExpertiseRank int          `json:"expertiseRank"`
	RelevanceRank int          `json:"relevanceRank"`
	RawScore      float64      `json:"rawScore"`
	RRFScore      float64      `json:"rrfScore"`
	FinalRank     int          `json:"finalRank"`
}

// CompetitionRanks assigns 1-based ranks to values already sorted in
// descending order. Equal consecutive values share a rank and the next
// distinct value takes its position: 90,80,80,70 -> 1,2,2,4.
func CompetitionRanks(sorted []float64) []int {
	ranks := make([]int, len(sorted))
	for i, v := range sorted {
		if i > 0 && v >= sorted[i-1] {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

// Candidates returns the non-center nodes that carry a metrics bag, in input order.
func Candidates(nodes []network.Node, centerID string) []network.Node {
	out := make([]network.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == centerID || n.Metrics == nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// rankBy sorts candidate indices by value descending (stable on input
// order) and returns each candidate's competition rank.
func rankBy(cands []network.Node, value func(*network.Metrics) float64) []int {
	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return value(cands[idx[a]].Metrics) > value(cands[idx[b]].Metrics)
	})

	sorted := make([]float64, len(idx))
	for i, ci := range idx {
		sorted[i] = value(cands[ci].Metrics)
	}
	ranks := CompetitionRanks(sorted)

	out := make([]int, len(cands))
	for i, ci := range idx {
		out[ci] = ranks[i]
	}
	return out
}

// Rank fuses expertise and relevance ranks of every candidate:
// raw = 1/(k + expertiseRank) + 1/(k + relevanceRank), rescaled to [0,100]
// over the candidate set, then ranked again with competition ties.
// The result is sorted by final rank. Pure and deterministic.
func Rank(nodes []network.Node, centerID string) []RankedNode {
	cands := Candidates(nodes, centerID)
	if len(cands) == 0 {
		return []RankedNode{}
	}

	expRanks := rankBy(cands, (*network.Metrics).Expertise)
	relRanks := rankBy(cands, (*network.Metrics).RelevanceValue)

	results := make([]RankedNode, len(cands))
	for i, n := range cands {
		raw := 1.0/float64(rrfK+expRanks[i]) + 1.0/float64(rrfK+relRanks[i])
		results[i] = RankedNode{
			Node:          n,
			ExpertiseRank: expRanks[i],
			RelevanceRank: relRanks[i],
			RawScore:      raw,
		}
	}

	normalize(results)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RRFScore > results[j].RRFScore
	})
	scores := make([]float64, len(results))
	for i := range results {
		scores[i] = results[i].RRFScore
	}
	for i, r := range CompetitionRanks(scores) {
		results[i].FinalRank = r
	}

	return results
}

// normalize rescales raw scores to [0,100] using the set's min and max.
// A flat set uses a denominator of 1, which maps every score to 0.
func normalize(results []RankedNode) {
	lo, hi := results[0].RawScore, results[0].RawScore
	for _, r := range results[1:] {
		if r.RawScore < lo {
			lo = r.RawScore
		}
		if r.RawScore > hi {
			hi = r.RawScore
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i := range results {
		results[i].RRFScore = (results[i].RawScore - lo) / span * 100
	}
}
