package intent

// HoleKind classifies what is missing or ambiguous in an interpretation.
type HoleKind string

const (
	HoleMissingAmount      HoleKind = "missing-amount"
	HoleMissingScope       HoleKind = "missing-scope"
	HoleAmbiguousReference HoleKind = "ambiguous-reference"
	HoleAmbiguousScoping   HoleKind = "ambiguous-scoping"
	HoleUnknownTerm        HoleKind = "unknown-term"
	HoleConflictingGoals   HoleKind = "conflicting-goals"
)

// HolePriority orders holes by how badly they block execution.
type HolePriority string

const (
	PriorityBlocking HolePriority = "blocking" // cannot act at all without an answer
	PriorityHigh     HolePriority = "high"     // acting would likely be wrong
	PriorityMedium   HolePriority = "medium"   // a reasonable default exists
	PriorityLow      HolePriority = "low"      // cosmetic, safe to ignore
)

// HoleOption is one candidate answer offered for a hole.
type HoleOption struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// Hole is a first-class gap in an interpretation: instead of guessing, the
// resolvers emit a hole carrying the question to ask and the candidate
// answers, ranked best first. DefaultOption indexes into Options and names
// the answer assumed if the user never responds.
type Hole struct {
	ID            string       `json:"id"`
	Kind          HoleKind     `json:"kind"`
	Priority      HolePriority `json:"priority"`
	Question      string       `json:"question"`
	Options       []HoleOption `json:"options,omitempty"`
	DefaultOption int          `json:"default_option"`
	Context       string       `json:"context,omitempty"`
}

// Default returns the option assumed when the hole goes unanswered, or nil
// when the hole carries no options.
func (h *Hole) Default() *HoleOption {
	if h == nil || len(h.Options) == 0 {
		return nil
	}
	idx := h.DefaultOption
	if idx < 0 || idx >= len(h.Options) {
		idx = 0
	}
	return &h.Options[idx]
}
