package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"cadenza/internal/provenance"
)

var (
	explainGraphID string
	explainTree    bool
	explainJSON    bool
	explainPretty  bool
)

var explainCmd = &cobra.Command{
	Use:   "explain [meaning-id]",
	Short: "Explain where a resolved meaning came from",
	Long: `Loads a stored provenance graph and walks the derivation of one
meaning unit: the words, templates, patterns, and defaults behind it.

The graph id is printed by "cadenza resolve"; meaning ids appear in its
output (goal ids, referent ids, scope reading ids).

Examples:
  cadenza explain goal-1 --graph 6f3c...
  cadenza explain chorus-section --graph 6f3c... --tree
  cadenza explain scoping-1 --graph 6f3c... --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainGraphID, "graph", "", "Graph id to load (required)")
	explainCmd.Flags().BoolVar(&explainTree, "tree", false, "Render the derivation as an ASCII tree")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "Render the derivation as nested JSON")
	explainCmd.Flags().BoolVar(&explainPretty, "pretty", false, "Render the explanation as styled markdown")
	_ = explainCmd.MarkFlagRequired("graph")
}

func runExplain(cmd *cobra.Command, args []string) error {
	meaningID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	g, err := st.LoadGraph(context.Background(), explainGraphID)
	if err != nil {
		return err
	}

	switch {
	case explainJSON:
		out, err := g.RenderJSON(meaningID)
		if err != nil {
			return err
		}
		fmt.Println(out)

	case explainTree:
		fmt.Print(g.RenderASCII(meaningID))

	case explainPretty:
		md := explainMarkdown(g, meaningID)
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("failed to build markdown renderer: %w", err)
		}
		out, err := renderer.Render(md)
		if err != nil {
			return fmt.Errorf("failed to render explanation: %w", err)
		}
		fmt.Print(out)

	default:
		fmt.Print(g.Explain(meaningID))
	}
	return nil
}

// explainMarkdown builds the markdown document behind --pretty: the causal
// chain plus a table of every node on the derivation path.
func explainMarkdown(g *provenance.Graph, meaningID string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Provenance of `%s`\n\n", meaningID)
	fmt.Fprintf(&sb, "> %s\n\n", g.Utterance)

	nodes := g.NodesFor(meaningID)
	if len(nodes) == 0 {
		fmt.Fprintf(&sb, "No provenance recorded for `%s`.\n", meaningID)
		return sb.String()
	}

	sb.WriteString("## Causal chain\n\n```\n")
	sb.WriteString(g.Explain(meaningID))
	sb.WriteString("```\n\n")

	sb.WriteString("## Derivation nodes\n\n")
	sb.WriteString("| node | stage | mechanism | confidence | source |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, n := range nodes {
		writeNodeRow(&sb, n)
		for _, anc := range g.Ancestry(n.ID) {
			writeNodeRow(&sb, anc)
		}
	}
	return sb.String()
}

func writeNodeRow(sb *strings.Builder, n provenance.Node) {
	src := n.SourceText
	if src == "" {
		src = "-"
	}
	fmt.Fprintf(sb, "| %s | %s | %s | %.2f | %s |\n",
		n.ID, n.Stage, n.Mechanism.Kind, n.Confidence, src)
}
