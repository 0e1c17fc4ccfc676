// Package intent provides the structured-intent types shared across cadenza's
// resolution packages. This package exists to break import cycles between
// provenance, mrs, ellipsis, metonymy, and pipeline: it is the boundary
// vocabulary the surrounding compiler pipeline reads and writes, so types here
// are foundational data structures with no dependencies on the resolvers.
package intent

// Direction states which way a goal moves its axis.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionSet      Direction = "set"
)

// Reverse returns the opposite direction. Set has no opposite and is
// returned unchanged.
func (d Direction) Reverse() Direction {
	switch d {
	case DirectionIncrease:
		return DirectionDecrease
	case DirectionDecrease:
		return DirectionIncrease
	default:
		return d
	}
}

// AmountKind classifies how an amount is expressed.
type AmountKind string

const (
	AmountAbsolute    AmountKind = "absolute"    // "to -6 dB"
	AmountRelative    AmountKind = "relative"    // "by 3 dB"
	AmountPercentage  AmountKind = "percentage"  // "by 20%"
	AmountQualitative AmountKind = "qualitative" // "a little", "way"
)

// Amount is a target quantity on some axis. Value is nil for purely
// qualitative amounts; Min/Max bound range expressions ("between 2 and 4 dB").
type Amount struct {
	Kind      AmountKind `json:"kind"`
	Value     *float64   `json:"value,omitempty"`
	Qualifier string     `json:"qualifier,omitempty"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
}

// Clone returns a deep copy of the amount.
func (a *Amount) Clone() *Amount {
	if a == nil {
		return nil
	}
	out := &Amount{
		Kind:      a.Kind,
		Qualifier: a.Qualifier,
	}
	if a.Value != nil {
		v := *a.Value
		out.Value = &v
	}
	if a.Min != nil {
		v := *a.Min
		out.Min = &v
	}
	if a.Max != nil {
		v := *a.Max
		out.Max = &v
	}
	return out
}

// Scope selects the region of the project a goal applies to: a named
// section, a track, a time range, or any combination.
type Scope struct {
	Kind    string   `json:"kind,omitempty"` // section, track, time-range, global
	Section string   `json:"section,omitempty"`
	Track   string   `json:"track,omitempty"`
	Start   *float64 `json:"start,omitempty"` // seconds
	End     *float64 `json:"end,omitempty"`
}

// Clone returns a deep copy of the scope.
func (s *Scope) Clone() *Scope {
	if s == nil {
		return nil
	}
	out := &Scope{
		Kind:    s.Kind,
		Section: s.Section,
		Track:   s.Track,
	}
	if s.Start != nil {
		v := *s.Start
		out.Start = &v
	}
	if s.End != nil {
		v := *s.End
		out.End = &v
	}
	return out
}

// Goal is one desired change: move Axis in Direction, optionally by Target,
// optionally restricted to Scope. Subgoals decompose compound requests
// ("brighter and punchier").
type Goal struct {
	ID        string      `json:"id"`
	Axis      string      `json:"axis"`
	Direction Direction   `json:"direction"`
	Target    *Amount     `json:"target,omitempty"`
	Scope     *Scope      `json:"scope,omitempty"`
	Subgoals  []Goal      `json:"subgoals,omitempty"`
	Origin    *Provenance `json:"origin,omitempty"`
}

// Clone returns a deep copy of the goal, including subgoals.
func (g Goal) Clone() Goal {
	out := Goal{
		ID:        g.ID,
		Axis:      g.Axis,
		Direction: g.Direction,
		Target:    g.Target.Clone(),
		Scope:     g.Scope.Clone(),
		Origin:    g.Origin.Clone(),
	}
	if len(g.Subgoals) > 0 {
		out.Subgoals = make([]Goal, len(g.Subgoals))
		for i, sg := range g.Subgoals {
			out.Subgoals[i] = sg.Clone()
		}
	}
	return out
}

// CloneGoals deep-copies a goal list. Resolvers return fresh copies so the
// caller's prior-utterance goals are never mutated in place.
func CloneGoals(goals []Goal) []Goal {
	if goals == nil {
		return nil
	}
	out := make([]Goal, len(goals))
	for i, g := range goals {
		out[i] = g.Clone()
	}
	return out
}

// Constraint is a bound the edit must respect ("keep the vocal on top",
// "no more than 2 dB").
type Constraint struct {
	ID          string  `json:"id"`
	Axis        string  `json:"axis"`
	Kind        string  `json:"kind,omitempty"` // ceiling, floor, preserve, forbid
	Limit       *Amount `json:"limit,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Provenance is the generic origin record attached to produced meaning
// units: which span of the utterance, via which lexemes/rules/frames.
type Provenance struct {
	SpanStart int      `json:"span_start"`
	SpanEnd   int      `json:"span_end"`
	LexemeIDs []string `json:"lexeme_ids,omitempty"`
	RuleIDs   []string `json:"rule_ids,omitempty"`
	FrameIDs  []string `json:"frame_ids,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	Origin    string   `json:"origin,omitempty"`
}

// Clone returns a deep copy of the provenance record.
func (p *Provenance) Clone() *Provenance {
	if p == nil {
		return nil
	}
	out := &Provenance{
		SpanStart: p.SpanStart,
		SpanEnd:   p.SpanEnd,
		Namespace: p.Namespace,
		Origin:    p.Origin,
	}
	out.LexemeIDs = append(out.LexemeIDs, p.LexemeIDs...)
	out.RuleIDs = append(out.RuleIDs, p.RuleIDs...)
	out.FrameIDs = append(out.FrameIDs, p.FrameIDs...)
	return out
}
