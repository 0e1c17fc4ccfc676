// Package provenance records how each piece of resolved meaning came to be.
//
// Every utterance gets its own append-only directed acyclic graph: nodes say
// "this source span produced this meaning unit via this mechanism", edges
// relate meaning units to each other. The graph is assembled once by a
// Builder and read-only afterwards, so audit tooling can replay exactly why
// the resolver committed to an interpretation.
package provenance

import (
	"fmt"
	"time"
)

// ============================================================================
// STAGES AND MECHANISMS
// ============================================================================

// Stage identifies the pipeline phase that produced a node.
type Stage string

const (
	StageTokenization       Stage = "tokenization"
	StageMorphology         Stage = "morphology"
	StageParsing            Stage = "parsing"
	StageLexicalSemantics   Stage = "lexical-semantics"
	StageCompositional      Stage = "compositional"
	StageFrameEvocation     Stage = "frame-evocation"
	StageDiscourse          Stage = "discourse"
	StagePragmaticInference Stage = "pragmatic-inference"
	StageCPLBridge          Stage = "cpl-bridge"
	StageScopeResolution    Stage = "scope-resolution"
	StageEllipsisResolution Stage = "ellipsis-resolution"
	StageMetonymyResolution Stage = "metonymy-resolution"
	StageDefaultFilling     Stage = "default-filling"
	StageUserClarification  Stage = "user-clarification"
)

// MechanismKind names the class of evidence behind a node.
type MechanismKind string

const (
	MechanismLexiconLookup MechanismKind = "lexicon-lookup"
	MechanismGrammarRule   MechanismKind = "grammar-rule"
	MechanismFrameMatch    MechanismKind = "frame-match"
	MechanismAffectCue     MechanismKind = "affect-cue"
	MechanismDefaultRule   MechanismKind = "default-rule"
	MechanismScopeRanking  MechanismKind = "scope-ranking"
	MechanismTemplate      MechanismKind = "template-transformation"
	MechanismPatternMatch  MechanismKind = "pattern-match"
	MechanismUserAnswer    MechanismKind = "user-answer"
)

// Mechanism describes the specific rule or heuristic that fired.
type Mechanism struct {
	Kind     MechanismKind `json:"kind"`
	RuleID   string        `json:"rule_id,omitempty"`
	RuleName string        `json:"rule_name,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// ============================================================================
// NODES AND EDGES
// ============================================================================

// Span is a half-open character range [Start, End) into the utterance.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Node is one provenance fact: a source span produced a meaning unit.
// Parents are referenced by id only; the graph owns every node.
type Node struct {
	ID          string    `json:"id"`
	MeaningID   string    `json:"meaning_id"`
	MeaningType string    `json:"meaning_type"`
	Span        Span      `json:"span"`
	SourceText  string    `json:"source_text,omitempty"`
	Stage       Stage     `json:"stage"`
	Mechanism   Mechanism `json:"mechanism"`
	Confidence  float64   `json:"confidence"`
	Parents     []string  `json:"parents,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
}

// Relation types an edge between two meaning-producing nodes.
type Relation string

const (
	RelationDerivedFrom   Relation = "derived-from"
	RelationComposedWith  Relation = "composed-with"
	RelationTriggeredBy   Relation = "triggered-by"
	RelationOverriddenBy  Relation = "overridden-by"
	RelationConstrainedBy Relation = "constrained-by"
	RelationDisambiguated Relation = "disambiguated"
	RelationExpandedTo    Relation = "expanded-to"
	RelationClarifiedAs   Relation = "clarified-as"
)

// Edge is a directed, typed relation between two node ids. Weight is 0 for
// unweighted edges.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Relation Relation `json:"relation"`
	Weight   float64  `json:"weight,omitempty"`
}

// ============================================================================
// GRAPH
// ============================================================================

// Graph is the immutable per-utterance provenance record. Nodes live in an
// arena slice in insertion order; byID maps node id to arena index so
// lookups never hold object references across the graph.
type Graph struct {
	Utterance string    `json:"utterance"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	Roots     []string  `json:"roots"`
	Leaves    []string  `json:"leaves"`
	CreatedAt time.Time `json:"created_at"`

	byID map[string]int
}

// Node returns the node with the given id, or false when the id is unknown.
func (g *Graph) Node(id string) (Node, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[idx], true
}

// NodesFor returns every node that produced the given meaning unit, in
// insertion order. Competing hypotheses may independently produce the same
// meaning id, so more than one node can come back. Unknown ids yield an
// empty slice.
func (g *Graph) NodesFor(meaningID string) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.MeaningID == meaningID {
			out = append(out, n)
		}
	}
	return out
}

// Ancestry walks parent links breadth-first from the given node and returns
// every reachable ancestor exactly once, in discovery order. The start node
// itself is not included. Unknown ids yield an empty slice.
func (g *Graph) Ancestry(nodeID string) []Node {
	start, ok := g.byID[nodeID]
	if !ok {
		return nil
	}

	var out []Node
	visited := map[string]bool{g.Nodes[start].ID: true}
	queue := append([]string(nil), g.Nodes[start].Parents...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		idx, ok := g.byID[id]
		if !ok {
			continue
		}
		out = append(out, g.Nodes[idx])
		queue = append(queue, g.Nodes[idx].Parents...)
	}
	return out
}

// EdgesFrom returns the edges whose From endpoint is the given node id.
func (g *Graph) EdgesFrom(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// reindex rebuilds the id lookup table. Called by the builder at freeze
// time and by the store after loading a persisted graph.
func (g *Graph) reindex() {
	g.byID = make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		g.byID[n.ID] = i
	}
}

// Reindex restores the internal id lookup after deserialization.
func (g *Graph) Reindex() { g.reindex() }

func describeSpan(s Span) string {
	return fmt.Sprintf("chars %d-%d", s.Start, s.End)
}
