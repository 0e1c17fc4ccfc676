// Package mrs implements the underspecified-scope representation used
// between parsing and command generation. A meaning is held as a flat bag
// of elementary predications labeled by scope handles, with qeq constraints
// recording which handles must outscope which, so commitment to a reading
// can be deferred until the resolver has ranked the alternatives.
package mrs

import "strings"

// ============================================================================
// VARIABLES AND HANDLES
// ============================================================================

// VariableKind classifies a semantic variable.
type VariableKind string

const (
	KindEntity     VariableKind = "entity"
	KindEvent      VariableKind = "event"
	KindHandle     VariableKind = "handle"
	KindIndividual VariableKind = "underspecified-individual"
	KindUnbound    VariableKind = "unbound"
	KindProperty   VariableKind = "property"
)

// prefix returns the id prefix conventionally used for the kind.
func (k VariableKind) prefix() string {
	switch k {
	case KindEntity:
		return "x"
	case KindEvent:
		return "e"
	case KindHandle:
		return "h"
	case KindIndividual:
		return "i"
	case KindProperty:
		return "p"
	default:
		return "u"
	}
}

// Variable is an identifier tagged with a kind plus optional features
// (number, tense, definiteness).
type Variable struct {
	ID       string            `json:"id"`
	Kind     VariableKind      `json:"kind"`
	Features map[string]string `json:"features,omitempty"`
}

// Handle is an opaque scope variable. A handle is resolved once an
// elementary predication is labeled by it; EPID then names that EP.
type Handle struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
	EPID     string `json:"ep_id,omitempty"`
}

// ============================================================================
// PREDICATIONS AND CONSTRAINTS
// ============================================================================

// EP is one elementary predication: a predicate applied to argument roles,
// labeled by the handle that positions it in the scope tree. MeaningID
// optionally links back to the meaning unit the EP describes.
type EP struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Predicate  string            `json:"predicate"`
	Args       map[string]string `json:"args,omitempty"`
	MeaningID  string            `json:"meaning_id,omitempty"`
	SourceText string            `json:"source_text,omitempty"`
}

// ConstraintKind relates the denotations of two handles.
type ConstraintKind string

const (
	ConstraintQeq ConstraintKind = "qeq" // hi equals or outscopes lo
	ConstraintGeq ConstraintKind = "geq"
	ConstraintLeq ConstraintKind = "leq"
)

// HandleConstraint states that Hi's denotation equals or outscopes Lo's.
type HandleConstraint struct {
	Hi   string         `json:"hi"`
	Lo   string         `json:"lo"`
	Kind ConstraintKind `json:"kind"`
}

// ============================================================================
// THE UNDERSPECIFIED STRUCTURE
// ============================================================================

// MRS is a complete underspecified meaning: read-only once built.
// ScopingCount estimates how many distinct scoped readings exist (see
// countScopings); FullyResolved is true when at most one quantifier is
// present, in which case no resolution pass is needed.
type MRS struct {
	Top           string             `json:"top"`
	Index         string             `json:"index"`
	EPs           []EP               `json:"eps"`
	Constraints   []HandleConstraint `json:"constraints,omitempty"`
	Variables     []Variable         `json:"variables,omitempty"`
	Handles       []Handle           `json:"handles,omitempty"`
	FullyResolved bool               `json:"fully_resolved"`
	ScopingCount  int                `json:"scoping_count"`
}

// QuantifierEPs returns the quantificational EPs in surface order.
func (m *MRS) QuantifierEPs() []EP {
	var out []EP
	for _, ep := range m.EPs {
		if isQuantifier(ep.Predicate) {
			out = append(out, ep)
		}
	}
	return out
}

// quantifierWords are the predicate markers treated as scope-bearing.
var quantifierWords = map[string]bool{
	"every": true,
	"some":  true,
	"no":    true,
	"most":  true,
	"all":   true,
	"each":  true,
}

// isQuantifier reports whether a predicate name is quantificational: one of
// the marker words (as a whole underscore-separated token) or an explicit
// _q_ tagged predicate.
func isQuantifier(predicate string) bool {
	p := strings.ToLower(predicate)
	if strings.Contains(p, "_q_") || strings.HasSuffix(p, "_q") {
		return true
	}
	for _, tok := range strings.Split(p, "_") {
		if quantifierWords[tok] {
			return true
		}
	}
	return false
}

// countScopings estimates the number of distinct readings as the factorial
// of the quantifier count. This deliberately overcounts (permutations that
// violate qeq constraints are not excluded); the one guarantee downstream
// code relies on is that zero or one quantifier means exactly one reading.
func countScopings(quantifiers int) int {
	if quantifiers <= 1 {
		return 1
	}
	n := 1
	for i := 2; i <= quantifiers; i++ {
		n *= i
	}
	return n
}
