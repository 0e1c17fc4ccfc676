package mrs

import "fmt"

// Builder accumulates an MRS incrementally. Handle and variable counters
// are owned by the builder, never shared between builders, so id sequences
// are reproducible per utterance. Not safe for concurrent use.
type Builder struct {
	top         string
	index       string
	eps         []EP
	constraints []HandleConstraint
	variables   []Variable
	handles     []Handle
	handleSeq   int
	varSeq      int
	epSeq       int
}

// NewBuilder starts an empty underspecified structure.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewHandle issues a fresh scope handle (h1, h2, ...).
func (b *Builder) NewHandle() Handle {
	b.handleSeq++
	h := Handle{ID: fmt.Sprintf("h%d", b.handleSeq)}
	b.handles = append(b.handles, h)
	return h
}

// NewVariable issues a fresh variable of the given kind (x1, e2, ...).
// All kinds share one counter, so ids stay unique across kinds.
// Handle-kind variables draw from the handle sequence instead, keeping
// them unambiguous against handles issued by NewHandle.
func (b *Builder) NewVariable(kind VariableKind, features map[string]string) Variable {
	var id string
	if kind == KindHandle {
		b.handleSeq++
		id = fmt.Sprintf("h%d", b.handleSeq)
	} else {
		b.varSeq++
		id = fmt.Sprintf("%s%d", kind.prefix(), b.varSeq)
	}
	v := Variable{ID: id, Kind: kind, Features: features}
	b.variables = append(b.variables, v)
	return v
}

// AddEP records an elementary predication and returns its id, generating
// one (ep-1, ep-2, ...) when ep.ID is empty.
func (b *Builder) AddEP(ep EP) string {
	if ep.ID == "" {
		b.epSeq++
		ep.ID = fmt.Sprintf("ep-%d", b.epSeq)
	}
	b.eps = append(b.eps, ep)
	return ep.ID
}

// AddQeq records that hi's denotation equals or outscopes lo's.
func (b *Builder) AddQeq(hi, lo string) {
	b.constraints = append(b.constraints, HandleConstraint{Hi: hi, Lo: lo, Kind: ConstraintQeq})
}

// AddConstraint records an arbitrary handle constraint.
func (b *Builder) AddConstraint(c HandleConstraint) {
	b.constraints = append(b.constraints, c)
}

// SetTop names the top scope handle.
func (b *Builder) SetTop(handleID string) {
	b.top = handleID
}

// SetIndex names the index variable (the event or entity the whole
// structure is about).
func (b *Builder) SetIndex(variableID string) {
	b.index = variableID
}

// Build freezes the structure. Handles that label an EP are marked
// resolved to that EP. ScopingCount is the factorial estimate over the
// quantificational EPs; zero or one quantifier yields a fully resolved
// structure. The builder must not be used after Build.
func (b *Builder) Build() *MRS {
	labelled := make(map[string]string, len(b.eps))
	for _, ep := range b.eps {
		if _, taken := labelled[ep.Label]; !taken {
			labelled[ep.Label] = ep.ID
		}
	}
	for i := range b.handles {
		if epID, ok := labelled[b.handles[i].ID]; ok {
			b.handles[i].Resolved = true
			b.handles[i].EPID = epID
		}
	}

	quantifiers := 0
	for _, ep := range b.eps {
		if isQuantifier(ep.Predicate) {
			quantifiers++
		}
	}

	return &MRS{
		Top:           b.top,
		Index:         b.index,
		EPs:           b.eps,
		Constraints:   b.constraints,
		Variables:     b.variables,
		Handles:       b.handles,
		FullyResolved: quantifiers <= 1,
		ScopingCount:  countScopings(quantifiers),
	}
}
