package provenance

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSampleGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder("make the chorus brighter")
	lexA := b.AddLexicalProvenance("chorus", Span{Start: 9, End: 15}, "ref-1", "reference", "lex-chorus", 0.8)
	lexB := b.AddLexicalProvenance("brighter", Span{Start: 16, End: 24}, "axis-1", "axis", "lex-bright", 0.9)
	b.AddCompositionProvenance([]string{lexA, lexB}, "goal-1", "goal", "rule-2", "goal-build", 0.85)
	return b.Build()
}

func TestExplainRendersCausalChain(t *testing.T) {
	g := buildSampleGraph(t)

	out := g.Explain("goal-1")
	assert.Contains(t, out, "goal goal-1")
	assert.Contains(t, out, "derived from node-1")
	assert.Contains(t, out, "derived from node-2")
	assert.Contains(t, out, "compositional")

	assert.Equal(t, "no provenance recorded for nope", g.Explain("nope"))
}

func TestRenderASCIIUsesTreeConnectors(t *testing.T) {
	g := buildSampleGraph(t)

	out := g.RenderASCII("goal-1")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "goal goal-1"))
	assert.True(t, strings.HasPrefix(lines[1], "├── "))
	assert.True(t, strings.HasPrefix(lines[2], "└── "))
	assert.Contains(t, lines[1], `"chorus"`)
	assert.Contains(t, lines[2], `"brighter"`)
}

func TestRenderJSONNestsParents(t *testing.T) {
	g := buildSampleGraph(t)

	out, err := g.RenderJSON("goal-1")
	require.NoError(t, err)

	var decoded []jsonNode
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "goal-1", decoded[0].MeaningID)
	require.Len(t, decoded[0].Parents, 2)
	assert.Equal(t, "ref-1", decoded[0].Parents[0].MeaningID)
	assert.Equal(t, "axis-1", decoded[0].Parents[1].MeaningID)
}

func TestGraphReindexAfterDeserialization(t *testing.T) {
	g := buildSampleGraph(t)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var loaded Graph
	require.NoError(t, json.Unmarshal(data, &loaded))
	loaded.Reindex()

	n, ok := loaded.Node("node-3")
	require.True(t, ok)
	assert.Equal(t, "goal-1", n.MeaningID)
	assert.Len(t, loaded.Ancestry("node-3"), 2)
}
