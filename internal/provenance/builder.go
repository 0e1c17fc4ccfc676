package provenance

import (
	"fmt"
	"strings"
	"time"
)

// Builder incrementally assembles the provenance graph for one utterance.
// It is not safe for concurrent use; construct one builder per utterance
// and discard it after Build.
type Builder struct {
	utterance string
	nodes     []Node
	edges     []Edge
	roots     []string
	seq       int
}

// NewBuilder starts an empty graph for the given utterance text.
func NewBuilder(utterance string) *Builder {
	return &Builder{utterance: utterance}
}

// nextID issues a fresh node id. The counter is owned by this builder, so
// independent builders never interfere with each other's id sequences.
func (b *Builder) nextID() string {
	b.seq++
	return fmt.Sprintf("node-%d", b.seq)
}

// AddNode records a node and returns its id. When n.ID is empty a
// monotonically increasing id is generated. A node with no parents is
// registered as a root immediately. Confidence is clamped to [0, 1].
func (b *Builder) AddNode(n Node) string {
	if n.ID == "" {
		n.ID = b.nextID()
	}
	if n.Confidence < 0 {
		n.Confidence = 0
	}
	if n.Confidence > 1 {
		n.Confidence = 1
	}
	b.nodes = append(b.nodes, n)
	if len(n.Parents) == 0 {
		b.roots = append(b.roots, n.ID)
	}
	return n.ID
}

// AddEdge records an unweighted relation between two node ids. Leaf
// computation is deferred until Build.
func (b *Builder) AddEdge(from, to string, rel Relation) {
	b.edges = append(b.edges, Edge{From: from, To: to, Relation: rel})
}

// AddWeightedEdge records a relation carrying a numeric weight.
func (b *Builder) AddWeightedEdge(from, to string, rel Relation, weight float64) {
	b.edges = append(b.edges, Edge{From: from, To: to, Relation: rel, Weight: weight})
}

// AddLexicalProvenance records that a lexicon entry mapped a span of the
// utterance directly to a meaning unit.
func (b *Builder) AddLexicalProvenance(sourceText string, span Span, meaningID, meaningType, lexemeID string, confidence float64) string {
	return b.AddNode(Node{
		MeaningID:   meaningID,
		MeaningType: meaningType,
		Span:        span,
		SourceText:  sourceText,
		Stage:       StageLexicalSemantics,
		Mechanism:   Mechanism{Kind: MechanismLexiconLookup, RuleID: lexemeID},
		Confidence:  confidence,
		Explanation: fmt.Sprintf("%q (%s) produced %s %s via lexeme %s", sourceText, describeSpan(span), meaningType, meaningID, lexemeID),
	})
}

// AddCompositionProvenance records that a grammar rule combined existing
// meaning units into a new one. The node's span is the union of its
// parents' spans and a derived-from edge is added from each parent to the
// new node.
func (b *Builder) AddCompositionProvenance(parentIDs []string, meaningID, meaningType, ruleID, ruleName string, confidence float64) string {
	span, sources := b.unionSpans(parentIDs)

	id := b.AddNode(Node{
		MeaningID:   meaningID,
		MeaningType: meaningType,
		Span:        span,
		SourceText:  strings.Join(sources, " + "),
		Stage:       StageCompositional,
		Mechanism:   Mechanism{Kind: MechanismGrammarRule, RuleID: ruleID, RuleName: ruleName},
		Confidence:  confidence,
		Parents:     parentIDs,
		Explanation: fmt.Sprintf("rule %s composed [%s] into %s %s", ruleName, strings.Join(sources, ", "), meaningType, meaningID),
	})
	for _, p := range parentIDs {
		b.AddEdge(p, id, RelationDerivedFrom)
	}
	return id
}

// AddFrameProvenance records that a span evoked a semantic frame.
func (b *Builder) AddFrameProvenance(sourceText string, span Span, meaningID, meaningType, frameID string, confidence float64) string {
	return b.AddNode(Node{
		MeaningID:   meaningID,
		MeaningType: meaningType,
		Span:        span,
		SourceText:  sourceText,
		Stage:       StageFrameEvocation,
		Mechanism:   Mechanism{Kind: MechanismFrameMatch, RuleID: frameID},
		Confidence:  confidence,
		Explanation: fmt.Sprintf("%q (%s) evoked frame %s for %s %s", sourceText, describeSpan(span), frameID, meaningType, meaningID),
	})
}

// AddAffectiveProvenance records a pragmatic inference drawn from an
// affective cue in the utterance ("way too muddy" carrying intensity).
func (b *Builder) AddAffectiveProvenance(sourceText string, span Span, meaningID, meaningType, cue string, confidence float64) string {
	return b.AddNode(Node{
		MeaningID:   meaningID,
		MeaningType: meaningType,
		Span:        span,
		SourceText:  sourceText,
		Stage:       StagePragmaticInference,
		Mechanism:   Mechanism{Kind: MechanismAffectCue, Detail: cue},
		Confidence:  confidence,
		Explanation: fmt.Sprintf("%q (%s) carried affective cue %q for %s %s", sourceText, describeSpan(span), cue, meaningType, meaningID),
	})
}

// AddDefaultProvenance records a meaning unit filled in by a default rule
// rather than by any specific span. The node spans the whole utterance and
// is linked to its trigger nodes with triggered-by edges.
func (b *Builder) AddDefaultProvenance(meaningID, meaningType, ruleID string, parentIDs []string, confidence float64) string {
	id := b.AddNode(Node{
		MeaningID:   meaningID,
		MeaningType: meaningType,
		Span:        Span{Start: 0, End: len(b.utterance)},
		Stage:       StageDefaultFilling,
		Mechanism:   Mechanism{Kind: MechanismDefaultRule, RuleID: ruleID},
		Confidence:  confidence,
		Parents:     parentIDs,
		Explanation: fmt.Sprintf("default rule %s filled %s %s (no explicit source text)", ruleID, meaningType, meaningID),
	})
	for _, p := range parentIDs {
		b.AddEdge(p, id, RelationTriggeredBy)
	}
	return id
}

// Build freezes the graph. Leaves are computed here: every node id that is
// never the From endpoint of a derived-from edge. A single-node graph is
// both root and leaf. The builder must not be used after Build.
func (b *Builder) Build() *Graph {
	derives := make(map[string]bool, len(b.edges))
	for _, e := range b.edges {
		if e.Relation == RelationDerivedFrom {
			derives[e.From] = true
		}
	}
	var leaves []string
	for _, n := range b.nodes {
		if !derives[n.ID] {
			leaves = append(leaves, n.ID)
		}
	}

	g := &Graph{
		Utterance: b.utterance,
		Nodes:     b.nodes,
		Edges:     b.edges,
		Roots:     b.roots,
		Leaves:    leaves,
		CreatedAt: time.Now().UTC(),
	}
	g.reindex()
	return g
}

// unionSpans returns the covering span (min start, max end) over the known
// parents plus their source texts in parent order. Unknown parent ids are
// skipped.
func (b *Builder) unionSpans(parentIDs []string) (Span, []string) {
	var (
		span    Span
		sources []string
		first   = true
	)
	for _, pid := range parentIDs {
		for i := range b.nodes {
			if b.nodes[i].ID != pid {
				continue
			}
			p := &b.nodes[i]
			if first {
				span = p.Span
				first = false
			} else {
				if p.Span.Start < span.Start {
					span.Start = p.Span.Start
				}
				if p.Span.End > span.End {
					span.End = p.Span.End
				}
			}
			if p.SourceText != "" {
				sources = append(sources, p.SourceText)
			}
			break
		}
	}
	return span, sources
}
