package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extensionYAML = `
scope_rules:
  - id: surface-order-default
    name: Overridden surface order
    confidence_boost: 0.99
    condition:
      kind: surface-order
  - id: custom-rule
    name: Custom rule
    confidence_boost: 0.05
    condition:
      kind: class-widest
      class: universal
ellipsis_templates:
  - id: triple-that
    name: Triple that
    category: intensification
    triggers: ["triple that"]
    requires: last-goal
    transformation:
      kind: scale-amount
      params:
        factor: 3.0
metonymy_patterns:
  - id: drums
    expression: the drums
    triggers: ["drums"]
    default_id: drums-kit
    frequency: common
    candidates:
      - id: drums-kit
        kind: track
        description: the drum kit tracks
        meaning_type: track-ref
        prior: 0.6
`

func writeExtension(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRegistrySeedsBuiltins(t *testing.T) {
	rules, templates, patterns := NewRegistry().Counts()
	assert.Equal(t, 8, rules)
	assert.Equal(t, 14, templates)
	assert.Equal(t, 7, patterns)
}

func TestLoadExtensionFileMergesByID(t *testing.T) {
	reg := NewRegistry()
	path := writeExtension(t, t.TempDir(), "ext.yaml", extensionYAML)

	require.NoError(t, reg.LoadExtensionFile(path))

	rules := reg.ScopeRules()
	// The override replaces the built-in in place, keeping its position.
	assert.Equal(t, "surface-order-default", rules[0].ID)
	assert.Equal(t, 0.99, rules[0].ConfidenceBoost)
	assert.Equal(t, "Overridden surface order", rules[0].Name)
	// The new rule appends after the built-ins.
	assert.Equal(t, "custom-rule", rules[len(rules)-1].ID)
	assert.Len(t, rules, 9)

	templates := reg.EllipsisTemplates()
	require.Len(t, templates, 15)
	added := templates[len(templates)-1]
	assert.Equal(t, "triple-that", added.ID)
	assert.Equal(t, 3.0, added.Transformation.Params["factor"])

	patterns := reg.MetonymyPatterns()
	require.Len(t, patterns, 8)
	assert.Equal(t, "drums", patterns[len(patterns)-1].ID)
}

func TestReloadAppliesFilesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeExtension(t, dir, "a.yaml", `
scope_rules:
  - id: custom-rule
    name: First
    confidence_boost: 0.10
    condition:
      kind: surface-order
`)
	writeExtension(t, dir, "b.yaml", `
scope_rules:
  - id: custom-rule
    name: Second
    confidence_boost: 0.20
    condition:
      kind: surface-order
`)
	writeExtension(t, dir, "notes.txt", "not a catalog file")

	reg := NewRegistry()
	require.NoError(t, reg.Reload(dir))

	rules := reg.ScopeRules()
	require.Len(t, rules, 9)
	last := rules[len(rules)-1]
	assert.Equal(t, "custom-rule", last.ID)
	assert.Equal(t, "Second", last.Name)
	assert.Equal(t, 0.20, last.ConfidenceBoost)
}

func TestReloadResetsPriorExtensions(t *testing.T) {
	dir := t.TempDir()
	path := writeExtension(t, dir, "ext.yaml", extensionYAML)

	reg := NewRegistry()
	require.NoError(t, reg.Reload(dir))
	_, templates, _ := reg.Counts()
	require.Equal(t, 15, templates)

	// Removing the extension and reloading drops back to built-ins.
	require.NoError(t, os.Remove(path))
	require.NoError(t, reg.Reload(dir))
	rules, templates, patterns := reg.Counts()
	assert.Equal(t, 8, rules)
	assert.Equal(t, 14, templates)
	assert.Equal(t, 7, patterns)
}

func TestReloadMissingDirKeepsBuiltins(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Reload(filepath.Join(t.TempDir(), "does-not-exist")))

	rules, templates, patterns := reg.Counts()
	assert.Equal(t, 8, rules)
	assert.Equal(t, 14, templates)
	assert.Equal(t, 7, patterns)
}

func TestLoadExtensionFileRejectsInvalidEntries(t *testing.T) {
	dir := t.TempDir()

	noTriggers := writeExtension(t, dir, "bad1.yaml", `
ellipsis_templates:
  - id: silent
    name: No triggers
    requires: last-goal
    transformation:
      kind: identity
`)
	err := NewRegistry().LoadExtensionFile(noTriggers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "silent")

	noID := writeExtension(t, dir, "bad2.yaml", `
scope_rules:
  - name: Anonymous
    confidence_boost: 0.5
    condition:
      kind: surface-order
`)
	err = NewRegistry().LoadExtensionFile(noID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")

	garbage := writeExtension(t, dir, "bad3.yaml", "scope_rules: [not: valid: yaml")
	assert.Error(t, NewRegistry().LoadExtensionFile(garbage))
}

func TestAccessorsReturnCopies(t *testing.T) {
	reg := NewRegistry()

	rules := reg.ScopeRules()
	rules[0].ConfidenceBoost = 42

	fresh := reg.ScopeRules()
	assert.NotEqual(t, 42.0, fresh[0].ConfidenceBoost)
}
