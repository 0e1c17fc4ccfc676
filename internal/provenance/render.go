package provenance

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================================
// HUMAN-READABLE RENDERING
// ============================================================================

// Explain renders a prose causal chain for a meaning unit: each node that
// produced it, followed by the ancestors that fed into that node. Unknown
// meaning ids produce a one-line "no provenance" message rather than an
// error.
func (g *Graph) Explain(meaningID string) string {
	nodes := g.NodesFor(meaningID)
	if len(nodes) == 0 {
		return fmt.Sprintf("no provenance recorded for %s", meaningID)
	}

	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s [%s, confidence %.2f]\n", n.Explanation, n.Stage, n.Confidence)
		for _, anc := range g.Ancestry(n.ID) {
			fmt.Fprintf(&sb, "  derived from %s [%s]: %s\n", anc.ID, anc.Stage, anc.Explanation)
		}
	}
	return sb.String()
}

// RenderASCII draws the derivation of a meaning unit as a tree, most
// derived node at the top, parents indented beneath it.
func (g *Graph) RenderASCII(meaningID string) string {
	nodes := g.NodesFor(meaningID)
	if len(nodes) == 0 {
		return fmt.Sprintf("no provenance recorded for %s\n", meaningID)
	}

	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(nodeLine(n))
		sb.WriteString("\n")
		g.renderChildren(&sb, n.Parents, "", map[string]bool{n.ID: true})
	}
	return sb.String()
}

func (g *Graph) renderChildren(sb *strings.Builder, parents []string, prefix string, visited map[string]bool) {
	for i, pid := range parents {
		last := i == len(parents)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		n, ok := g.Node(pid)
		if !ok {
			fmt.Fprintf(sb, "%s%s%s (unknown)\n", prefix, connector, pid)
			continue
		}
		fmt.Fprintf(sb, "%s%s%s\n", prefix, connector, nodeLine(n))
		if visited[pid] {
			continue
		}
		visited[pid] = true
		g.renderChildren(sb, n.Parents, childPrefix, visited)
	}
}

func nodeLine(n Node) string {
	line := fmt.Sprintf("%s %s  [%s/%s]  conf=%.2f", n.MeaningType, n.MeaningID, n.Stage, n.Mechanism.Kind, n.Confidence)
	if n.SourceText != "" {
		line += fmt.Sprintf("  %q", n.SourceText)
	}
	return line
}

// ============================================================================
// JSON RENDERING
// ============================================================================

type jsonNode struct {
	ID          string     `json:"id"`
	MeaningID   string     `json:"meaning_id"`
	MeaningType string     `json:"meaning_type"`
	Stage       Stage      `json:"stage"`
	Mechanism   Mechanism  `json:"mechanism"`
	SourceText  string     `json:"source_text,omitempty"`
	Span        Span       `json:"span"`
	Confidence  float64    `json:"confidence"`
	Explanation string     `json:"explanation,omitempty"`
	Parents     []jsonNode `json:"parents,omitempty"`
}

// RenderJSON serializes the derivation of a meaning unit as nested JSON,
// suitable for machine consumption by audit tooling.
func (g *Graph) RenderJSON(meaningID string) (string, error) {
	nodes := g.NodesFor(meaningID)
	out := make([]jsonNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, g.toJSONNode(n, map[string]bool{n.ID: true}))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling derivation of %s: %w", meaningID, err)
	}
	return string(data), nil
}

func (g *Graph) toJSONNode(n Node, visited map[string]bool) jsonNode {
	jn := jsonNode{
		ID:          n.ID,
		MeaningID:   n.MeaningID,
		MeaningType: n.MeaningType,
		Stage:       n.Stage,
		Mechanism:   n.Mechanism,
		SourceText:  n.SourceText,
		Span:        n.Span,
		Confidence:  n.Confidence,
		Explanation: n.Explanation,
	}
	for _, pid := range n.Parents {
		p, ok := g.Node(pid)
		if !ok || visited[pid] {
			continue
		}
		visited[pid] = true
		jn.Parents = append(jn.Parents, g.toJSONNode(p, visited))
	}
	return jn
}
