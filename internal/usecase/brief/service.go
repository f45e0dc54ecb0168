// Package brief writes a short natural-language introduction of one person
// in the network, streamed from an LLM.
package brief

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/knowwho/internal/domain"
	"github.com/kailas-cloud/knowwho/internal/domain/network"
	"github.com/kailas-cloud/knowwho/internal/domain/settings"
	"github.com/kailas-cloud/knowwho/internal/usecase/path"
	"github.com/kailas-cloud/knowwho/internal/usecase/ranking"
)

var systemPrompts = map[string]string{
	settings.LangJA: "あなたは社内の専門家紹介アシスタントです。与えられた事実だけを使い、3文以内の日本語で、" +
		"質問者がこの人物に相談すべき理由を説明してください。",
	settings.LangEN: "You introduce colleagues inside a company. Using only the facts given, explain in at most " +
		"three English sentences why the asker should talk to this person.",
}

// Request selects the person to describe.
type Request struct {
	QueryID  string
	NodeID   string
	Language string
	Model    string // empty uses the provider default
}

// Brief is the finished introduction.
type Brief struct {
	NodeID           string `json:"nodeId"`
	Model            string `json:"model,omitempty"`
	Text             string `json:"text"`
	Cached           bool   `json:"cached"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// Service builds prompts from dataset facts and streams completions.
type Service struct {
	datasets  DatasetReader
	completer domain.Completer
}

// New creates a brief service. A nil completer disables briefs.
func New(datasets DatasetReader, completer domain.Completer) *Service {
	return &Service{datasets: datasets, completer: completer}
}

// Enabled reports whether an LLM provider is configured.
func (s *Service) Enabled() bool {
	return s.completer != nil
}

// Stream writes the brief for req.NodeID, calling emit for every text delta.
func (s *Service) Stream(ctx context.Context, req Request, emit func(string) error) (Brief, error) {
	if s.completer == nil {
		return Brief{}, domain.ErrLLMDisabled
	}

	ds, err := s.datasets.Get(ctx, req.QueryID)
	if err != nil {
		return Brief{}, fmt.Errorf("get dataset: %w", err)
	}
	node, ok := ds.Node(req.NodeID)
	if !ok {
		return Brief{}, fmt.Errorf("node %q: %w", req.NodeID, domain.ErrNodeNotFound)
	}

	system, ok := systemPrompts[req.Language]
	if !ok {
		system = systemPrompts[settings.LangJA]
	}

	result, err := s.completer.Complete(ctx, domain.CompletionRequest{
		Model:  req.Model,
		System: system,
		Prompt: FactSheet(ds, node),
	}, emit)
	if err != nil {
		return Brief{}, fmt.Errorf("complete brief: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(result.PromptTokens, result.CompletionTokens)

	return Brief{
		NodeID:           node.ID,
		Model:            result.Model,
		Text:             result.Text,
		Cached:           result.Cached,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}, nil
}

// FactSheet renders everything known about node as plain "key: value"
// lines. Output is deterministic so that equal facts share a cache entry.
func FactSheet(ds *network.Dataset, node network.Node) string {
	var b strings.Builder
	line := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte('\n')
	}

	line("question", ds.Query.QueryText)
	line("name", node.Name)
	line("department", node.Department)

	if node.Metrics.HasDistance() {
		line("reporting-line distance", strconv.Itoa(node.Metrics.Distance()))
	} else {
		line("reporting-line distance", "unknown")
	}

	values := node.Metrics.Values()
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		label := k
		if d, ok := ds.Query.Definitions[k]; ok && d != "" {
			label = k + " (" + d + ")"
		}
		line(label, strconv.FormatFloat(values[k], 'f', -1, 64))
	}

	ranked := ranking.Rank(ds.Nodes, ds.Query.CenterNodeID)
	for _, r := range ranked {
		if r.Node.ID == node.ID {
			line("overall rank", fmt.Sprintf("%d of %d", r.FinalRank, len(ranked)))
			break
		}
	}

	if via := path.OrgPath(ds.Query.CenterNodeID, node.ID, ds.Edges); len(via) > 1 {
		hops := make([]string, len(via))
		for i, id := range via {
			n, _ := ds.Node(id)
			hops[i] = n.Name
		}
		line("reporting path from asker", strings.Join(hops, " > "))
	}

	return b.String()
}
