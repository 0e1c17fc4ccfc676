package mrs

import "strings"

// ============================================================================
// SCOPE RESOLUTION RULE CATALOG
// ============================================================================

// QuantClass groups quantifier predicates by their scope-taking behavior.
type QuantClass string

const (
	ClassUniversal   QuantClass = "universal"
	ClassExistential QuantClass = "existential"
	ClassDefinite    QuantClass = "definite"
	ClassNegation    QuantClass = "negation"
	ClassNone        QuantClass = "none"
)

var (
	universalWords   = map[string]bool{"every": true, "all": true, "each": true}
	existentialWords = map[string]bool{"some": true, "a": true, "an": true, "exists": true}
	negationWords    = map[string]bool{"no": true, "not": true, "neg": true, "never": true}
	definiteWords    = map[string]bool{"the": true, "this": true, "that": true, "def": true}
)

// Classify buckets an EP's predicate into a quantifier class by its
// underscore-separated tokens. Negation wins over the other classes since
// "no" is both a quantifier marker and a negator.
func Classify(ep EP) QuantClass {
	for _, tok := range strings.Split(strings.ToLower(ep.Predicate), "_") {
		switch {
		case negationWords[tok]:
			return ClassNegation
		case universalWords[tok]:
			return ClassUniversal
		case existentialWords[tok]:
			return ClassExistential
		case definiteWords[tok]:
			return ClassDefinite
		}
	}
	return ClassNone
}

// ConditionKind tags what a rule condition checks about a candidate
// ordering.
type ConditionKind string

const (
	// CondSurfaceOrder matches when the ordering preserves surface order.
	CondSurfaceOrder ConditionKind = "surface-order"
	// CondClassWidest matches when the widest quantifier is of Class.
	CondClassWidest ConditionKind = "class-widest"
	// CondClassNarrowest matches when the narrowest quantifier is of Class.
	CondClassNarrowest ConditionKind = "class-narrowest"
	// CondTermWidest matches when the widest quantifier's predicate or
	// source text mentions one of Terms.
	CondTermWidest ConditionKind = "term-widest"
	// CondPriorWide matches when the widest quantifier held wide scope in
	// the prior utterance.
	CondPriorWide ConditionKind = "prior-wide-scope"
)

// Condition is the tagged predicate a rule applies to a candidate
// ordering. Class is read for the class-* kinds, Terms for term-widest.
type Condition struct {
	Kind  ConditionKind `json:"kind" yaml:"kind"`
	Class QuantClass    `json:"class,omitempty" yaml:"class,omitempty"`
	Terms []string      `json:"terms,omitempty" yaml:"terms,omitempty"`
}

// ScopeRule is one entry in the pragmatic ranking catalog: when Condition
// holds for a candidate ordering, the candidate's plausibility gains a
// scaled share of ConfidenceBoost.
type ScopeRule struct {
	ID              string    `json:"id" yaml:"id"`
	Name            string    `json:"name" yaml:"name"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	ConfidenceBoost float64   `json:"confidence_boost" yaml:"confidence_boost"`
	Condition       Condition `json:"condition" yaml:"condition"`
}

// Matches evaluates the rule's condition against a candidate ordering.
// surface is the quantifier list in utterance order; prior may be nil.
func (r ScopeRule) Matches(ordering, surface []EP, prior *PriorContext) bool {
	if len(ordering) == 0 {
		return false
	}
	widest := ordering[0]

	switch r.Condition.Kind {
	case CondSurfaceOrder:
		if len(ordering) != len(surface) {
			return false
		}
		for i := range ordering {
			if ordering[i].ID != surface[i].ID {
				return false
			}
		}
		return true

	case CondClassWidest:
		return Classify(widest) == r.Condition.Class

	case CondClassNarrowest:
		return Classify(ordering[len(ordering)-1]) == r.Condition.Class

	case CondTermWidest:
		haystack := strings.ToLower(widest.Predicate + " " + widest.SourceText)
		for _, term := range r.Condition.Terms {
			if strings.Contains(haystack, strings.ToLower(term)) {
				return true
			}
		}
		return false

	case CondPriorWide:
		if prior == nil {
			return false
		}
		for _, p := range prior.WideScopePredicates {
			if strings.EqualFold(p, widest.Predicate) {
				return true
			}
		}
		return false
	}
	return false
}

// PriorContext carries discourse state the caller threads in from the
// previous turn. The resolver never looks backwards on its own.
type PriorContext struct {
	WideScopePredicates []string `json:"wide_scope_predicates,omitempty"`
}

// DefaultScopeRules returns the built-in ranking catalog. Callers get a
// fresh slice each time; the catalog registry may append extension rules.
func DefaultScopeRules() []ScopeRule {
	return []ScopeRule{
		{
			ID:              "surface-order-default",
			Name:            "Surface order default",
			Description:     "Readings that keep quantifiers in the order spoken are preferred.",
			ConfidenceBoost: 0.30,
			Condition:       Condition{Kind: CondSurfaceOrder},
		},
		{
			ID:              "universal-wide-scope",
			Name:            "Universal takes wide scope",
			Description:     "every/all/each tend to outscope other operators.",
			ConfidenceBoost: 0.20,
			Condition:       Condition{Kind: CondClassWidest, Class: ClassUniversal},
		},
		{
			ID:              "existential-narrow-scope",
			Name:            "Existential takes narrow scope",
			Description:     "some/a readings usually sit under the other operators.",
			ConfidenceBoost: 0.15,
			Condition:       Condition{Kind: CondClassNarrowest, Class: ClassExistential},
		},
		{
			ID:              "definite-widest",
			Name:            "Definites scope widest",
			Description:     "the/this pick out a fixed referent and float to the top.",
			ConfidenceBoost: 0.25,
			Condition:       Condition{Kind: CondClassWidest, Class: ClassDefinite},
		},
		{
			ID:              "negation-scope",
			Name:            "Negation scopes wide",
			Description:     "Denials normally cover the whole clause.",
			ConfidenceBoost: 0.20,
			Condition:       Condition{Kind: CondClassWidest, Class: ClassNegation},
		},
		{
			ID:              "musical-section-scope",
			Name:            "Section terms scope widest",
			Description:     "A named song section frames everything inside it.",
			ConfidenceBoost: 0.25,
			Condition: Condition{Kind: CondTermWidest, Terms: []string{
				"chorus", "verse", "bridge", "intro", "outro", "hook", "drop", "section",
			}},
		},
		{
			ID:              "only-scope",
			Name:            "Only scopes over its focus",
			Description:     "only restricts whatever it attaches to.",
			ConfidenceBoost: 0.15,
			Condition:       Condition{Kind: CondTermWidest, Terms: []string{"only"}},
		},
		{
			ID:              "preserve-wide-scope",
			Name:            "Preserve prior wide scope",
			Description:     "A quantifier that held wide scope last turn keeps it.",
			ConfidenceBoost: 0.10,
			Condition:       Condition{Kind: CondPriorWide},
		},
	}
}
