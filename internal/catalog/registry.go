// Package catalog owns the resolver rule books: scope resolution rules,
// ellipsis templates, and metonymy patterns. The registry merges the
// built-in catalogs with user extension files (YAML, override-by-id) and
// hands out defensive copies so resolver passes stay deterministic even
// while a reload is in flight.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"cadenza/internal/ellipsis"
	"cadenza/internal/metonymy"
	"cadenza/internal/mrs"
)

// extensionFile is the on-disk shape of one catalog extension.
type extensionFile struct {
	ScopeRules        []mrs.ScopeRule     `yaml:"scope_rules"`
	EllipsisTemplates []ellipsis.Template `yaml:"ellipsis_templates"`
	MetonymyPatterns  []metonymy.Pattern  `yaml:"metonymy_patterns"`
}

// Registry is the merged catalog store. Reads take defensive copies;
// reloads swap the whole merged state under the write lock.
type Registry struct {
	mu        sync.RWMutex
	rules     []mrs.ScopeRule
	templates []ellipsis.Template
	patterns  []metonymy.Pattern
}

// NewRegistry returns a registry seeded with the built-in catalogs.
func NewRegistry() *Registry {
	r := &Registry{}
	r.resetLocked()
	return r
}

// resetLocked reseeds the built-ins. Callers hold the write lock (or own
// the registry exclusively, as in NewRegistry).
func (r *Registry) resetLocked() {
	r.rules = mrs.DefaultScopeRules()
	r.templates = ellipsis.DefaultTemplates()
	r.patterns = metonymy.DefaultPatterns()
}

// ScopeRules returns a copy of the merged scope rule catalog.
func (r *Registry) ScopeRules() []mrs.ScopeRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]mrs.ScopeRule(nil), r.rules...)
}

// EllipsisTemplates returns a copy of the merged template catalog.
func (r *Registry) EllipsisTemplates() []ellipsis.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ellipsis.Template(nil), r.templates...)
}

// MetonymyPatterns returns a copy of the merged pattern catalog.
func (r *Registry) MetonymyPatterns() []metonymy.Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]metonymy.Pattern(nil), r.patterns...)
}

// Counts reports the merged catalog sizes (rules, templates, patterns).
func (r *Registry) Counts() (int, int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules), len(r.templates), len(r.patterns)
}

// LoadExtensionFile merges one YAML extension file into the registry.
// Entries whose id matches an existing entry replace it in place; new ids
// append in file order.
func (r *Registry) LoadExtensionFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading catalog extension %s: %w", path, err)
	}

	var ext extensionFile
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return fmt.Errorf("parsing catalog extension %s: %w", path, err)
	}
	if err := validateExtension(path, ext); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range ext.ScopeRules {
		r.rules = mergeRule(r.rules, rule)
	}
	for _, tmpl := range ext.EllipsisTemplates {
		r.templates = mergeTemplate(r.templates, tmpl)
	}
	for _, pat := range ext.MetonymyPatterns {
		r.patterns = mergePattern(r.patterns, pat)
	}
	return nil
}

// Reload reseeds the built-ins and merges every .yaml/.yml file under
// dir in lexical order, so repeated reloads of the same tree produce the
// same merged catalog. A missing directory is not an error: the registry
// simply holds the built-ins.
func (r *Registry) Reload(dir string) error {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading catalog dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		if err := r.LoadExtensionFile(f); err != nil {
			return err
		}
	}
	return nil
}

func validateExtension(path string, ext extensionFile) error {
	for i, rule := range ext.ScopeRules {
		if rule.ID == "" {
			return fmt.Errorf("catalog extension %s: scope rule %d has no id", path, i)
		}
	}
	for i, tmpl := range ext.EllipsisTemplates {
		if tmpl.ID == "" {
			return fmt.Errorf("catalog extension %s: ellipsis template %d has no id", path, i)
		}
		if len(tmpl.Triggers) == 0 {
			return fmt.Errorf("catalog extension %s: ellipsis template %s has no triggers", path, tmpl.ID)
		}
	}
	for i, pat := range ext.MetonymyPatterns {
		if pat.ID == "" {
			return fmt.Errorf("catalog extension %s: metonymy pattern %d has no id", path, i)
		}
		if len(pat.Candidates) == 0 {
			return fmt.Errorf("catalog extension %s: metonymy pattern %s has no candidates", path, pat.ID)
		}
	}
	return nil
}

func mergeRule(rules []mrs.ScopeRule, rule mrs.ScopeRule) []mrs.ScopeRule {
	for i := range rules {
		if rules[i].ID == rule.ID {
			rules[i] = rule
			return rules
		}
	}
	return append(rules, rule)
}

func mergeTemplate(templates []ellipsis.Template, tmpl ellipsis.Template) []ellipsis.Template {
	for i := range templates {
		if templates[i].ID == tmpl.ID {
			templates[i] = tmpl
			return templates
		}
	}
	return append(templates, tmpl)
}

func mergePattern(patterns []metonymy.Pattern, pat metonymy.Pattern) []metonymy.Pattern {
	for i := range patterns {
		if patterns[i].ID == pat.ID {
			patterns[i] = pat
			return patterns
		}
	}
	return append(patterns, pat)
}
