package mrs

import (
	"fmt"
	"sort"
	"strings"

	"cadenza/internal/intent"
)

// ============================================================================
// STRATEGIES AND RESULTS
// ============================================================================

// Strategy selects how candidate readings are ranked.
type Strategy string

const (
	StrategyDefaultWide   Strategy = "default-wide"
	StrategyDefaultNarrow Strategy = "default-narrow"
	StrategySyntactic     Strategy = "syntactic"
	StrategyPragmaticBias Strategy = "pragmatic-bias"
	StrategyAskUser       Strategy = "ask-user"
)

const (
	// basePlausibility is every enumerated candidate's starting score.
	basePlausibility = 0.5
	// strategyNudge is the flat additive applied by the non-pragmatic
	// ranking strategies.
	strategyNudge = 0.05
	// ruleScale damps the summed rule boosts under pragmatic-bias.
	ruleScale = 0.25
	// decisionGap is the winner's required margin over the runner-up.
	decisionGap = 0.2
	// confidenceCap bounds resolution confidence below certainty.
	confidenceCap = 0.95
	// maxEnumQuantifiers bounds permutation enumeration; past it only the
	// surface order and its reverse are considered.
	maxEnumQuantifiers = 6
	// maxQuestionOptions is how many readings a clarification offers.
	maxQuestionOptions = 3
)

// ScopeAssignment is one candidate fully-scoped reading. Slots maps each
// quantificational EP id to its scope slot, scope-1 being widest. Reading
// is the human-readable operator order.
type ScopeAssignment struct {
	ID           string            `json:"id"`
	Slots        map[string]string `json:"slots"`
	Plausibility float64           `json:"plausibility"`
	Reading      string            `json:"reading"`
}

// ClarificationOption offers one candidate reading to the user.
type ClarificationOption struct {
	ID           string          `json:"id"`
	Reading      string          `json:"reading"`
	Plausibility float64         `json:"plausibility"`
	Assignment   ScopeAssignment `json:"assignment"`
}

// ClarificationQuestion asks the user to pick between readings that were
// too close to choose automatically.
type ClarificationQuestion struct {
	Question string                `json:"question"`
	Options  []ClarificationOption `json:"options"`
	Context  string                `json:"context,omitempty"`
	Priority intent.HolePriority   `json:"priority"`
}

// Result reports a resolution attempt. Every path fills Explanation so
// the record is displayable on its own; resolution never panics or
// errors.
type Result struct {
	Resolved    bool                   `json:"resolved"`
	Chosen      *ScopeAssignment       `json:"chosen,omitempty"`
	Candidates  []ScopeAssignment      `json:"candidates,omitempty"`
	Question    *ClarificationQuestion `json:"question,omitempty"`
	Strategy    Strategy               `json:"strategy"`
	Confidence  float64                `json:"confidence"`
	Explanation string                 `json:"explanation"`
}

// ============================================================================
// RESOLVER
// ============================================================================

// ScopeResolver ranks candidate scopings against a rule catalog. The
// resolver is stateless apart from its catalog and safe for concurrent use
// once constructed.
type ScopeResolver struct {
	rules []ScopeRule
}

// NewScopeResolver returns a resolver over the built-in rule catalog.
func NewScopeResolver() *ScopeResolver {
	return &ScopeResolver{rules: DefaultScopeRules()}
}

// NewScopeResolverWithRules returns a resolver over a caller-supplied
// catalog, typically the registry's merged built-in plus extension rules.
func NewScopeResolverWithRules(rules []ScopeRule) *ScopeResolver {
	return &ScopeResolver{rules: rules}
}

// Resolve ranks the readings of m under the given strategy with no prior
// discourse context.
func (r *ScopeResolver) Resolve(m *MRS, strategy Strategy) Result {
	return r.ResolveWithPrior(m, strategy, nil)
}

// ResolveScopes resolves m with the built-in rule catalog. Convenience for
// callers that do not hold a resolver.
func ResolveScopes(m *MRS, strategy Strategy) Result {
	return NewScopeResolver().Resolve(m, strategy)
}

// ResolveWithPrior ranks the readings of m, consulting prior discourse
// context for the rules that need it. The decision rule: commit to the
// top reading only when it beats the runner-up by at least decisionGap,
// otherwise hand back a clarification question with the top readings.
func (r *ScopeResolver) ResolveWithPrior(m *MRS, strategy Strategy, prior *PriorContext) Result {
	res := Result{Strategy: strategy}

	if m == nil {
		res.Explanation = "no scope structure provided"
		return res
	}
	if m.FullyResolved {
		res.Resolved = true
		res.Confidence = 1.0
		res.Explanation = "structure is already fully scoped (at most one quantifier)"
		return res
	}

	surface := m.QuantifierEPs()
	candidates, orderings := enumerate(surface)

	if strategy == StrategyAskUser {
		res.Candidates = candidates
		res.Question = buildQuestion(candidates)
		res.Explanation = fmt.Sprintf("clarification requested for %d unranked readings", len(candidates))
		return res
	}

	r.rank(candidates, orderings, surface, strategy, prior)

	switch {
	case len(candidates) == 0:
		res.Explanation = "no scoped readings could be generated from the structure"

	case len(candidates) == 1:
		res.Resolved = true
		res.Chosen = &candidates[0]
		res.Candidates = candidates
		res.Confidence = 1.0
		res.Explanation = fmt.Sprintf("single reading %q", candidates[0].Reading)

	default:
		res.Candidates = candidates
		gap := candidates[0].Plausibility - candidates[1].Plausibility
		if gap >= decisionGap {
			res.Resolved = true
			res.Chosen = &candidates[0]
			res.Confidence = min(candidates[0].Plausibility, confidenceCap)
			res.Explanation = fmt.Sprintf("reading %q wins by a %.2f margin", candidates[0].Reading, gap)
		} else {
			res.Question = buildQuestion(candidates)
			res.Explanation = fmt.Sprintf("top readings are %.2f apart, too close to choose", gap)
		}
	}
	return res
}

// enumerate produces the candidate scopings for the given quantifier EPs
// in deterministic order, the surface ordering always first. Past
// maxEnumQuantifiers only the surface order and its reverse are produced
// to bound cost. The parallel orderings slice carries each candidate's EP
// order for rule evaluation.
func enumerate(quants []EP) ([]ScopeAssignment, [][]EP) {
	if len(quants) <= 1 {
		a := trivialAssignment(quants)
		return []ScopeAssignment{a}, [][]EP{quants}
	}

	var index [][]int
	if len(quants) > maxEnumQuantifiers {
		identity := make([]int, len(quants))
		reverse := make([]int, len(quants))
		for i := range quants {
			identity[i] = i
			reverse[i] = len(quants) - 1 - i
		}
		index = [][]int{identity, reverse}
	} else {
		index = permuteIndices(len(quants))
	}

	candidates := make([]ScopeAssignment, 0, len(index))
	orderings := make([][]EP, 0, len(index))
	for i, perm := range index {
		ordering := make([]EP, len(perm))
		for j, k := range perm {
			ordering[j] = quants[k]
		}
		candidates = append(candidates, makeAssignment(i+1, ordering))
		orderings = append(orderings, ordering)
	}
	return candidates, orderings
}

func trivialAssignment(quants []EP) ScopeAssignment {
	a := ScopeAssignment{
		ID:           "scoping-1",
		Slots:        map[string]string{},
		Plausibility: 1.0,
		Reading:      "(no scope ambiguity)",
	}
	if len(quants) == 1 {
		a.Slots[quants[0].ID] = "scope-1"
		a.Reading = quants[0].Predicate
	}
	return a
}

func makeAssignment(seq int, ordering []EP) ScopeAssignment {
	slots := make(map[string]string, len(ordering))
	preds := make([]string, len(ordering))
	for i, ep := range ordering {
		slots[ep.ID] = fmt.Sprintf("scope-%d", i+1)
		preds[i] = ep.Predicate
	}
	return ScopeAssignment{
		ID:           fmt.Sprintf("scoping-%d", seq),
		Slots:        slots,
		Plausibility: basePlausibility,
		Reading:      strings.Join(preds, " > "),
	}
}

// permuteIndices generates every permutation of 0..n-1, identity first,
// in stable lexicographic-by-first-element order.
func permuteIndices(n int) [][]int {
	base := make([]int, n)
	for i := range base {
		base[i] = i
	}

	var out [][]int
	var rec func(prefix, rest []int)
	rec = func(prefix, rest []int) {
		if len(rest) == 0 {
			out = append(out, prefix)
			return
		}
		for i := range rest {
			next := make([]int, len(prefix)+1)
			copy(next, prefix)
			next[len(prefix)] = rest[i]

			remaining := make([]int, 0, len(rest)-1)
			remaining = append(remaining, rest[:i]...)
			remaining = append(remaining, rest[i+1:]...)
			rec(next, remaining)
		}
	}
	rec([]int{}, base)
	return out
}

// rank recomputes each candidate's plausibility under the strategy, then
// sorts descending. The non-pragmatic strategies apply a flat nudge;
// pragmatic-bias sums the scaled boosts of the catalog rules whose
// conditions the candidate's ordering actually satisfies. Sorting is
// stable so equally scored candidates keep generation order.
func (r *ScopeResolver) rank(candidates []ScopeAssignment, orderings [][]EP, surface []EP, strategy Strategy, prior *PriorContext) {
	for i := range candidates {
		switch strategy {
		case StrategyPragmaticBias:
			boost := 0.0
			for _, rule := range r.rules {
				if rule.Matches(orderings[i], surface, prior) {
					boost += rule.ConfidenceBoost
				}
			}
			candidates[i].Plausibility = min(basePlausibility+ruleScale*boost, 1.0)
		default:
			candidates[i].Plausibility = basePlausibility + strategyNudge
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Plausibility != candidates[b].Plausibility {
			return candidates[a].Plausibility > candidates[b].Plausibility
		}
		return false
	})
}

func buildQuestion(candidates []ScopeAssignment) *ClarificationQuestion {
	n := min(len(candidates), maxQuestionOptions)
	opts := make([]ClarificationOption, 0, n)
	readings := make([]string, 0, n)
	for i := 0; i < n; i++ {
		opts = append(opts, ClarificationOption{
			ID:           fmt.Sprintf("option-%d", i+1),
			Reading:      candidates[i].Reading,
			Plausibility: candidates[i].Plausibility,
			Assignment:   candidates[i],
		})
		readings = append(readings, fmt.Sprintf("(%d) %s", i+1, candidates[i].Reading))
	}
	return &ClarificationQuestion{
		Question: fmt.Sprintf("This request can be scoped %d ways. Which did you mean: %s?", len(candidates), strings.Join(readings, ", ")),
		Context:  fmt.Sprintf("%d candidate readings", len(candidates)),
		Options:  opts,
		Priority: intent.PriorityHigh,
	}
}
