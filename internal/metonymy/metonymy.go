// Package metonymy resolves musical terms that name several distinct
// things at once: "the chorus" may be a stretch of the timeline, an
// effect, or a layer of the mix. Candidates are scored by prior
// probability plus contextual cue hits; when no candidate clearly wins,
// the resolver hands back a clarification hole instead of guessing.
package metonymy

import (
	"fmt"
	"sort"
	"strings"

	"cadenza/internal/intent"
)

// ReferentKind classifies what a candidate referent actually denotes.
type ReferentKind string

const (
	KindSectionTimespan ReferentKind = "section-timespan"
	KindTrack           ReferentKind = "track"
	KindEffect          ReferentKind = "effect"
	KindFrequencyBand   ReferentKind = "frequency-band"
	KindHarmony         ReferentKind = "harmony"
	KindMelody          ReferentKind = "melody"
	KindMixLayer        ReferentKind = "mix-layer"
)

// FrequencyTag records how often a pattern shows up in real usage.
type FrequencyTag string

const (
	FrequencyVeryCommon FrequencyTag = "very-common"
	FrequencyCommon     FrequencyTag = "common"
	FrequencyOccasional FrequencyTag = "occasional"
	FrequencyRare       FrequencyTag = "rare"
)

// Candidate is one possible referent of an ambiguous expression. CueWords
// are context words that make this referent more likely; Prior is its
// base probability before any cue is seen.
type Candidate struct {
	ID          string       `json:"id" yaml:"id"`
	Kind        ReferentKind `json:"kind" yaml:"kind"`
	Description string       `json:"description" yaml:"description"`
	MeaningType string       `json:"meaning_type" yaml:"meaning_type"`
	CueWords    []string     `json:"cue_words,omitempty" yaml:"cue_words,omitempty"`
	Prior       float64      `json:"prior" yaml:"prior"`
}

// Pattern is one catalog entry: a surface expression, its trigger
// phrases, and the ordered candidate referents.
type Pattern struct {
	ID         string       `json:"id" yaml:"id"`
	Expression string       `json:"expression" yaml:"expression"`
	Triggers   []string     `json:"triggers" yaml:"triggers"`
	Candidates []Candidate  `json:"candidates" yaml:"candidates"`
	DefaultID  string       `json:"default_id" yaml:"default_id"`
	Frequency  FrequencyTag `json:"frequency" yaml:"frequency"`
}

// ScoredCandidate pairs a candidate with its context-adjusted score.
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

// Resolution reports one resolution attempt. When the candidates are too
// close to choose, Hole carries the clarification request ready to insert
// into an intent bundle.
type Resolution struct {
	Resolved    bool              `json:"resolved"`
	Pattern     *Pattern          `json:"pattern,omitempty"`
	Chosen      *Candidate        `json:"chosen,omitempty"`
	Ranked      []ScoredCandidate `json:"ranked,omitempty"`
	Hole        *intent.Hole      `json:"hole,omitempty"`
	Explanation string            `json:"explanation"`
}

const (
	// cueBoost is added to a candidate's prior per cue word found.
	cueBoost = 0.15
	// resolveGap commits to the top candidate when it leads by this much.
	resolveGap = 0.15
	// resolveFloor commits to the top candidate outright at this score.
	resolveFloor = 0.6
	// maxHoleOptions bounds how many candidates a hole offers.
	maxHoleOptions = 4
	// questionCandidates is how many descriptions the question names.
	questionCandidates = 3
)

// Detect scans the utterance for catalog triggers. Each pattern is
// returned at most once; matching is case-insensitive substring
// containment, the same scan the ellipsis detector uses.
func Detect(text string, patterns []Pattern) []Pattern {
	lowered := strings.ToLower(text)
	var out []Pattern
	for _, p := range patterns {
		for _, trigger := range p.Triggers {
			if strings.Contains(lowered, strings.ToLower(trigger)) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Resolve scores the pattern's candidates against the surrounding context
// text and either commits to the clear winner or returns a clarification
// hole. It never guesses between close candidates.
func Resolve(p Pattern, contextText string) Resolution {
	res := Resolution{Pattern: &p}

	if len(p.Candidates) == 0 {
		res.Explanation = fmt.Sprintf("pattern %q has no candidate referents", p.Expression)
		return res
	}

	lowered := strings.ToLower(contextText)
	ranked := make([]ScoredCandidate, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		hits := 0
		for _, cue := range c.CueWords {
			if strings.Contains(lowered, strings.ToLower(cue)) {
				hits++
			}
		}
		ranked = append(ranked, ScoredCandidate{
			Candidate: c,
			Score:     c.Prior + cueBoost*float64(hits),
		})
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	res.Ranked = ranked

	best := ranked[0]
	gap := 0.0
	if len(ranked) > 1 {
		gap = best.Score - ranked[1].Score
	}

	if gap >= resolveGap || best.Score >= resolveFloor {
		chosen := best.Candidate
		res.Resolved = true
		res.Chosen = &chosen
		res.Explanation = fmt.Sprintf("%q resolved to %s (score %.2f, margin %.2f)", p.Expression, chosen.Description, best.Score, gap)
		return res
	}

	res.Hole = buildHole(p, ranked)
	res.Explanation = fmt.Sprintf("%q is ambiguous: top candidates are %.2f apart", p.Expression, gap)
	return res
}

// buildHole shapes the ambiguity as a clarification hole: medium
// priority, the top candidates as options, the best-scored one as the
// default answer.
func buildHole(p Pattern, ranked []ScoredCandidate) *intent.Hole {
	n := min(len(ranked), maxHoleOptions)
	opts := make([]intent.HoleOption, 0, n)
	for i := 0; i < n; i++ {
		opts = append(opts, intent.HoleOption{
			ID:          ranked[i].Candidate.ID,
			Label:       ranked[i].Candidate.Description,
			Description: string(ranked[i].Candidate.Kind),
			Score:       ranked[i].Score,
		})
	}

	q := min(len(ranked), questionCandidates)
	descs := make([]string, 0, q)
	for i := 0; i < q; i++ {
		descs = append(descs, ranked[i].Candidate.Description)
	}

	return &intent.Hole{
		ID:            fmt.Sprintf("hole-%s", p.ID),
		Kind:          intent.HoleAmbiguousReference,
		Priority:      intent.PriorityMedium,
		Question:      fmt.Sprintf("By %q, do you mean %s?", p.Expression, strings.Join(descs, ", or ")),
		Options:       opts,
		DefaultOption: 0,
		Context:       fmt.Sprintf("ambiguous reference %q", p.Expression),
	}
}
