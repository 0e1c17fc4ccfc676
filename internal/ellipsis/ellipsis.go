// Package ellipsis repairs utterances that lean on the previous turn
// ("do that again", "a bit more", "the other way"). Detection is a
// catalog-driven trigger scan; resolution rewrites the caller-supplied
// prior goals under the matched template's transformation. The resolver
// never looks backwards on its own: whatever antecedent context exists
// must be threaded in by the caller.
package ellipsis

import (
	"fmt"
	"strings"

	"cadenza/internal/intent"
)

// Category groups templates by what kind of throwback they express.
type Category string

const (
	CategoryRepetition      Category = "repetition"
	CategoryIntensification Category = "intensification"
	CategoryAttenuation     Category = "attenuation"
	CategoryReversal        Category = "reversal"
	CategoryModification    Category = "modification"
	CategoryContinuation    Category = "continuation"
)

// AntecedentKind names the piece of prior context a template needs.
type AntecedentKind string

const (
	AntecedentLastAction  AntecedentKind = "last-action"
	AntecedentLastGoal    AntecedentKind = "last-goal"
	AntecedentLastScope   AntecedentKind = "last-scope"
	AntecedentLastAmount  AntecedentKind = "last-amount"
	AntecedentLastEntity  AntecedentKind = "last-entity"
	AntecedentLastPlan    AntecedentKind = "last-plan"
	AntecedentFullContext AntecedentKind = "full-context"
)

// TransformationKind names how the prior goals are rewritten.
type TransformationKind string

const (
	TransformIdentity         TransformationKind = "identity"
	TransformScaleAmount      TransformationKind = "scale-amount"
	TransformChangeDirection  TransformationKind = "change-direction"
	TransformChangeScope      TransformationKind = "change-scope"
	TransformAddModifier      TransformationKind = "add-modifier"
	TransformRemoveModifier   TransformationKind = "remove-modifier"
	TransformCombineWithPrior TransformationKind = "combine-with-prior"
	TransformNegate           TransformationKind = "negate"
)

// Transformation is a template's rewrite recipe: a kind plus named
// numeric parameters (scale-amount reads "factor").
type Transformation struct {
	Kind   TransformationKind `json:"kind" yaml:"kind"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// Template is one catalog entry for a recognizable elliptical form.
type Template struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Category       Category       `json:"category" yaml:"category"`
	Triggers       []string       `json:"triggers" yaml:"triggers"`
	Requires       AntecedentKind `json:"requires" yaml:"requires"`
	Transformation Transformation `json:"transformation" yaml:"transformation"`
	Example        string         `json:"example,omitempty" yaml:"example,omitempty"`
	Explanation    string         `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Antecedent is the prior-turn context supplied by the caller.
type Antecedent struct {
	Kind        AntecedentKind `json:"kind"`
	MeaningIDs  []string       `json:"meaning_ids,omitempty"`
	Description string         `json:"description,omitempty"`
}

// Resolution reports one resolution attempt. ProvenanceNote is always
// populated, success or not, for the caller to record in the provenance
// graph.
type Resolution struct {
	Resolved       bool          `json:"resolved"`
	Template       *Template     `json:"template,omitempty"`
	Antecedent     *Antecedent   `json:"antecedent,omitempty"`
	Goals          []intent.Goal `json:"goals,omitempty"`
	Explanation    string        `json:"explanation"`
	ProvenanceNote string        `json:"provenance_note"`
}

// Detect scans the utterance for catalog triggers. Each template is
// returned at most once (its first matching trigger wins); templates are
// independent, so overlapping triggers can all fire. Matching is
// case-insensitive substring containment.
func Detect(text string, templates []Template) []Template {
	lowered := strings.ToLower(text)
	var out []Template
	for _, tmpl := range templates {
		for _, trigger := range tmpl.Triggers {
			if strings.Contains(lowered, strings.ToLower(trigger)) {
				out = append(out, tmpl)
				break
			}
		}
	}
	return out
}

// Resolve rewrites the prior goals under the template's transformation.
// The input goals are never mutated; every returned goal is a fresh copy.
func Resolve(tmpl Template, ant *Antecedent, priorGoals []intent.Goal) Resolution {
	res := Resolution{
		Template:   &tmpl,
		Antecedent: ant,
	}

	if ant == nil || len(priorGoals) == 0 {
		res.Explanation = fmt.Sprintf("cannot resolve %q: no %s antecedent was supplied", tmpl.Name, tmpl.Requires)
		res.ProvenanceNote = fmt.Sprintf("ellipsis template %s matched but lacked its %s antecedent", tmpl.ID, tmpl.Requires)
		return res
	}

	goals := intent.CloneGoals(priorGoals)

	switch tmpl.Transformation.Kind {
	case TransformIdentity:
		res.Resolved = true
		res.Goals = goals
		res.Explanation = fmt.Sprintf("repeating the prior action unchanged (%s)", ant.Description)
		res.ProvenanceNote = fmt.Sprintf("ellipsis template %s repeated %d prior goals", tmpl.ID, len(goals))

	case TransformScaleAmount:
		factor, ok := tmpl.Transformation.Params["factor"]
		if !ok {
			factor = 1.0
		}
		scaled := 0
		for i := range goals {
			scaled += scaleAmounts(&goals[i], factor)
		}
		res.Resolved = true
		res.Goals = goals
		res.Explanation = fmt.Sprintf("scaled %d target amounts by %.2fx", scaled, factor)
		res.ProvenanceNote = fmt.Sprintf("ellipsis template %s scaled prior amounts by %.2f", tmpl.ID, factor)

	case TransformChangeDirection:
		for i := range goals {
			reverseDirection(&goals[i])
		}
		res.Resolved = true
		res.Goals = goals
		res.Explanation = "reversed the direction of the prior goals"
		res.ProvenanceNote = fmt.Sprintf("ellipsis template %s reversed %d prior goals", tmpl.ID, len(goals))

	case TransformChangeScope, TransformAddModifier, TransformRemoveModifier,
		TransformCombineWithPrior, TransformNegate:
		// Intentionally partial: the caller supplies the new scope or
		// modifier and finishes the rewrite.
		res.Resolved = true
		res.Goals = goals
		res.Explanation = fmt.Sprintf("transformation %s may need additional context to complete", tmpl.Transformation.Kind)
		res.ProvenanceNote = fmt.Sprintf("ellipsis template %s passed %d goals through for caller completion", tmpl.ID, len(goals))

	default:
		res.Explanation = fmt.Sprintf("template %s names unknown transformation %q", tmpl.ID, tmpl.Transformation.Kind)
		res.ProvenanceNote = fmt.Sprintf("ellipsis template %s failed: unknown transformation", tmpl.ID)
	}
	return res
}

// scaleAmounts multiplies every numeric target in the goal tree by factor
// and reports how many amounts were touched. Goals without numeric
// targets pass through untouched.
func scaleAmounts(g *intent.Goal, factor float64) int {
	n := 0
	if g.Target != nil && g.Target.Value != nil {
		*g.Target.Value *= factor
		n++
	}
	for i := range g.Subgoals {
		n += scaleAmounts(&g.Subgoals[i], factor)
	}
	return n
}

// reverseDirection flips increase/decrease through the goal tree and
// marks every rewritten id with a -reversed suffix so provenance can tell
// the rewritten goal from its antecedent.
func reverseDirection(g *intent.Goal) {
	g.Direction = g.Direction.Reverse()
	g.ID += "-reversed"
	for i := range g.Subgoals {
		reverseDirection(&g.Subgoals[i])
	}
}
