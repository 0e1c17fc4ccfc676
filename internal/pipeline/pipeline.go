// Package pipeline runs the three resolution mechanisms over one utterance
// and records every step into a single provenance graph. It owns nothing
// across turns: discourse state (prior goals, antecedents, prior scope
// readings) comes in with each request and clarification answers go back
// out as holes, so the resolver itself stays pure.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cadenza/internal/ellipsis"
	"cadenza/internal/intent"
	"cadenza/internal/metonymy"
	"cadenza/internal/mrs"
	"cadenza/internal/provenance"
)

// expansionConfidence is assigned to goals produced by template expansion.
// The transformation itself is deterministic; the uncertainty is whether
// the recalled antecedent is the one the speaker meant.
const expansionConfidence = 0.9

// unresolvedConfidence marks nodes recorded for mechanisms that detected a
// trigger but could not commit to a meaning.
const unresolvedConfidence = 0.3

// Resolver orchestrates ellipsis, metonymy, and scope resolution. The
// catalogs are fixed at construction, so a Resolver is safe for concurrent
// use across requests.
type Resolver struct {
	templates []ellipsis.Template
	patterns  []metonymy.Pattern
	scope     *mrs.ScopeResolver
	strategy  mrs.Strategy
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTemplates replaces the built-in ellipsis template catalog.
func WithTemplates(templates []ellipsis.Template) Option {
	return func(r *Resolver) { r.templates = templates }
}

// WithPatterns replaces the built-in metonymy pattern catalog.
func WithPatterns(patterns []metonymy.Pattern) Option {
	return func(r *Resolver) { r.patterns = patterns }
}

// WithScopeRules replaces the built-in scope rule catalog, typically with a
// registry's merged view.
func WithScopeRules(rules []mrs.ScopeRule) Option {
	return func(r *Resolver) { r.scope = mrs.NewScopeResolverWithRules(rules) }
}

// WithStrategy sets the scope resolution strategy.
func WithStrategy(s mrs.Strategy) Option {
	return func(r *Resolver) { r.strategy = s }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a Resolver over the built-in catalogs, the pragmatic-bias
// scope strategy, and no logging, then applies the given options.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		templates: ellipsis.DefaultTemplates(),
		patterns:  metonymy.DefaultPatterns(),
		scope:     mrs.NewScopeResolver(),
		strategy:  mrs.StrategyPragmaticBias,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request carries one utterance plus the discourse state the caller is
// threading through the conversation.
type Request struct {
	Utterance  string               `json:"utterance"`
	Context    string               `json:"context,omitempty"`
	MRS        *mrs.MRS             `json:"mrs,omitempty"`
	PriorGoals []intent.Goal        `json:"prior_goals,omitempty"`
	Antecedent *ellipsis.Antecedent `json:"antecedent,omitempty"`
	Prior      *mrs.PriorContext    `json:"prior,omitempty"`
}

// Outcome is the assembled result of one resolution pass: what each
// mechanism decided, the goals produced, the clarifications still open,
// and the provenance graph tying it all back to the utterance.
type Outcome struct {
	ID          string                `json:"id"`
	Utterance   string                `json:"utterance"`
	Graph       *provenance.Graph     `json:"graph"`
	Scope       *mrs.Result           `json:"scope,omitempty"`
	Ellipsis    []ellipsis.Resolution `json:"ellipsis,omitempty"`
	Metonymy    []metonymy.Resolution `json:"metonymy,omitempty"`
	Goals       []intent.Goal         `json:"goals,omitempty"`
	Holes       []intent.Hole         `json:"holes,omitempty"`
	Explanation string                `json:"explanation"`
}

// Resolve runs detection and resolution for all three mechanisms over the
// request and assembles the outcome. It is synchronous and touches no
// state outside the request.
func (r *Resolver) Resolve(req Request) *Outcome {
	out := &Outcome{
		ID:        uuid.NewString(),
		Utterance: req.Utterance,
	}

	r.logger.Debug("resolving utterance",
		zap.String("outcome_id", out.ID),
		zap.String("utterance", req.Utterance))

	b := provenance.NewBuilder(req.Utterance)
	r.resolveEllipsis(b, req, out)
	r.resolveMetonymy(b, req, out)
	r.resolveScope(b, req, out)

	out.Graph = b.Build()
	out.Explanation = summarize(out)

	r.logger.Debug("resolution complete",
		zap.String("outcome_id", out.ID),
		zap.Int("goals", len(out.Goals)),
		zap.Int("holes", len(out.Holes)),
		zap.Int("nodes", len(out.Graph.Nodes)))
	return out
}

// ResolveBatch resolves independent requests in parallel, bounded by the
// CPU count. Outcomes come back in request order. The requests must not
// share mutable state; each gets its own graph.
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []Request) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(reqs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, req := range reqs {
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			outcomes[i] = r.Resolve(req)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// resolveEllipsis expands detected templates against the caller's
// antecedent. Each produced goal becomes a node expanded-to from the
// antecedent's discourse node.
func (r *Resolver) resolveEllipsis(b *provenance.Builder, req Request, out *Outcome) {
	detected := ellipsis.Detect(req.Utterance, r.templates)
	if len(detected) == 0 {
		return
	}

	antNodeID := ""
	if req.Antecedent != nil {
		meaningID := "antecedent"
		if len(req.Antecedent.MeaningIDs) > 0 {
			meaningID = req.Antecedent.MeaningIDs[0]
		}
		antNodeID = b.AddNode(provenance.Node{
			MeaningID:   meaningID,
			MeaningType: string(req.Antecedent.Kind),
			SourceText:  req.Antecedent.Description,
			Stage:       provenance.StageDiscourse,
			Mechanism: provenance.Mechanism{
				Kind:   provenance.MechanismDefaultRule,
				RuleID: string(req.Antecedent.Kind),
				Detail: "antecedent recalled from the previous turn",
			},
			Confidence:  1.0,
			Explanation: "discourse context supplied by the caller",
		})
	}

	for _, tmpl := range detected {
		res := ellipsis.Resolve(tmpl, req.Antecedent, req.PriorGoals)
		out.Ellipsis = append(out.Ellipsis, res)
		span := triggerSpan(req.Utterance, tmpl.Triggers)

		if !res.Resolved {
			b.AddNode(provenance.Node{
				MeaningID:   "ellipsis-" + tmpl.ID,
				MeaningType: "unresolved-ellipsis",
				Span:        span,
				SourceText:  snippet(req.Utterance, span),
				Stage:       provenance.StageEllipsisResolution,
				Mechanism: provenance.Mechanism{
					Kind:     provenance.MechanismTemplate,
					RuleID:   tmpl.ID,
					RuleName: tmpl.Name,
					Detail:   res.ProvenanceNote,
				},
				Confidence:  unresolvedConfidence,
				Explanation: res.Explanation,
			})
			r.logger.Debug("ellipsis template unresolved",
				zap.String("template", tmpl.ID),
				zap.String("reason", res.Explanation))
			continue
		}

		for i := range res.Goals {
			var parents []string
			if antNodeID != "" {
				parents = []string{antNodeID}
			}
			nodeID := b.AddNode(provenance.Node{
				MeaningID:   res.Goals[i].ID,
				MeaningType: "goal",
				Span:        span,
				SourceText:  snippet(req.Utterance, span),
				Stage:       provenance.StageEllipsisResolution,
				Mechanism: provenance.Mechanism{
					Kind:     provenance.MechanismTemplate,
					RuleID:   tmpl.ID,
					RuleName: tmpl.Name,
					Detail:   res.ProvenanceNote,
				},
				Confidence:  expansionConfidence,
				Parents:     parents,
				Explanation: res.Explanation,
			})
			if antNodeID != "" {
				b.AddEdge(antNodeID, nodeID, provenance.RelationExpandedTo)
			}
		}
		out.Goals = append(out.Goals, res.Goals...)
		r.logger.Debug("ellipsis template fired",
			zap.String("template", tmpl.ID),
			zap.Int("goals", len(res.Goals)))
	}
}

// resolveMetonymy disambiguates detected multi-referent expressions. Every
// detection gets a mention node; a committed referent hangs off it with a
// disambiguated edge, an open ambiguity with a clarified-as edge plus a
// hole in the outcome.
func (r *Resolver) resolveMetonymy(b *provenance.Builder, req Request, out *Outcome) {
	detected := metonymy.Detect(req.Utterance, r.patterns)
	if len(detected) == 0 {
		return
	}

	contextText := req.Utterance
	if req.Context != "" {
		contextText += " " + req.Context
	}

	for _, p := range detected {
		if len(p.Candidates) == 0 {
			// A cataloged expression with nothing to disambiguate into is a
			// catalog defect, not a user ambiguity.
			r.logger.Warn("metonymy pattern has no candidate referents",
				zap.String("pattern", p.ID))
		}
		res := metonymy.Resolve(p, contextText)
		out.Metonymy = append(out.Metonymy, res)

		span := triggerSpan(req.Utterance, p.Triggers)
		mentionID := b.AddNode(provenance.Node{
			MeaningID:   "mention-" + p.ID,
			MeaningType: "metonymic-expression",
			Span:        span,
			SourceText:  snippet(req.Utterance, span),
			Stage:       provenance.StageMetonymyResolution,
			Mechanism: provenance.Mechanism{
				Kind:     provenance.MechanismPatternMatch,
				RuleID:   p.ID,
				RuleName: p.Expression,
				Detail:   fmt.Sprintf("%d candidate referents", len(p.Candidates)),
			},
			Confidence: 1.0,
		})

		bestScore := 0.0
		if len(res.Ranked) > 0 {
			bestScore = res.Ranked[0].Score
		}

		switch {
		case res.Resolved && res.Chosen != nil:
			refID := b.AddNode(provenance.Node{
				MeaningID:   res.Chosen.ID,
				MeaningType: string(res.Chosen.Kind),
				Span:        span,
				SourceText:  snippet(req.Utterance, span),
				Stage:       provenance.StageMetonymyResolution,
				Mechanism: provenance.Mechanism{
					Kind:     provenance.MechanismPatternMatch,
					RuleID:   p.ID,
					RuleName: p.Expression,
					Detail:   res.Explanation,
				},
				Confidence:  bestScore,
				Parents:     []string{mentionID},
				Explanation: res.Explanation,
			})
			b.AddWeightedEdge(mentionID, refID, provenance.RelationDisambiguated, bestScore)
			r.logger.Debug("metonymy resolved",
				zap.String("pattern", p.ID),
				zap.String("referent", res.Chosen.ID),
				zap.Float64("score", bestScore))

		case res.Hole != nil:
			out.Holes = append(out.Holes, *res.Hole)
			holeID := b.AddNode(provenance.Node{
				MeaningID:   res.Hole.ID,
				MeaningType: "clarification-request",
				Span:        span,
				SourceText:  snippet(req.Utterance, span),
				Stage:       provenance.StageMetonymyResolution,
				Mechanism: provenance.Mechanism{
					Kind:     provenance.MechanismPatternMatch,
					RuleID:   p.ID,
					RuleName: p.Expression,
					Detail:   res.Hole.Question,
				},
				Confidence:  bestScore,
				Parents:     []string{mentionID},
				Explanation: res.Explanation,
			})
			b.AddEdge(mentionID, holeID, provenance.RelationClarifiedAs)
			r.logger.Debug("metonymy ambiguous",
				zap.String("pattern", p.ID),
				zap.String("hole", res.Hole.ID))
		}
	}
}

// resolveScope ranks the readings of the supplied scope structure. A
// too-close decision surfaces as an ambiguous-scoping hole alongside the
// question in the scope result.
func (r *Resolver) resolveScope(b *provenance.Builder, req Request, out *Outcome) {
	if req.MRS == nil {
		return
	}

	res := r.scope.ResolveWithPrior(req.MRS, r.strategy, req.Prior)
	out.Scope = &res

	node := provenance.Node{
		Span:       provenance.Span{Start: 0, End: len(req.Utterance)},
		SourceText: req.Utterance,
		Stage:      provenance.StageScopeResolution,
		Mechanism: provenance.Mechanism{
			Kind:   provenance.MechanismScopeRanking,
			RuleID: string(res.Strategy),
			Detail: res.Explanation,
		},
		Confidence:  res.Confidence,
		Explanation: res.Explanation,
	}
	switch {
	case res.Chosen != nil:
		node.MeaningID = res.Chosen.ID
		node.MeaningType = "scope-reading"
	case res.Resolved:
		node.MeaningID = "scope-trivial"
		node.MeaningType = "scope-reading"
	default:
		node.MeaningID = "scope-open"
		node.MeaningType = "unresolved-scope"
	}
	b.AddNode(node)

	if res.Question != nil {
		out.Holes = append(out.Holes, scopeQuestionHole(res.Question))
		r.logger.Debug("scope ambiguous",
			zap.Int("options", len(res.Question.Options)))
		return
	}
	r.logger.Debug("scope resolved",
		zap.String("strategy", string(res.Strategy)),
		zap.Float64("confidence", res.Confidence))
}

// scopeQuestionHole lowers a scope clarification question into the shared
// hole vocabulary so callers deal with one clarification surface.
func scopeQuestionHole(q *mrs.ClarificationQuestion) intent.Hole {
	h := intent.Hole{
		ID:       "hole-scope",
		Kind:     intent.HoleAmbiguousScoping,
		Priority: q.Priority,
		Question: q.Question,
		Context:  q.Context,
	}
	for _, opt := range q.Options {
		h.Options = append(h.Options, intent.HoleOption{
			ID:    opt.ID,
			Label: opt.Reading,
			Score: opt.Plausibility,
		})
	}
	return h
}

// triggerSpan locates the first matching trigger in the utterance, the
// same first-trigger-wins order detection uses. Detection without a span
// cannot happen for substring triggers, but an empty span is tolerated.
func triggerSpan(utterance string, triggers []string) provenance.Span {
	lowered := strings.ToLower(utterance)
	for _, trig := range triggers {
		if idx := strings.Index(lowered, strings.ToLower(trig)); idx >= 0 {
			return provenance.Span{Start: idx, End: idx + len(trig)}
		}
	}
	return provenance.Span{}
}

func snippet(s string, sp provenance.Span) string {
	if sp.Start < 0 || sp.End > len(s) || sp.Start >= sp.End {
		return ""
	}
	return s[sp.Start:sp.End]
}

// summarize builds the outcome explanation from whichever mechanisms
// actually fired.
func summarize(out *Outcome) string {
	var parts []string

	if n := len(out.Ellipsis); n > 0 {
		resolved := 0
		for _, res := range out.Ellipsis {
			if res.Resolved {
				resolved++
			}
		}
		parts = append(parts, fmt.Sprintf("ellipsis: %d of %d template(s) resolved into %d goal(s)",
			resolved, n, len(out.Goals)))
	}

	for _, res := range out.Metonymy {
		switch {
		case res.Resolved && res.Chosen != nil:
			parts = append(parts, fmt.Sprintf("metonymy: %q read as %s", res.Pattern.Expression, res.Chosen.ID))
		case res.Hole != nil:
			parts = append(parts, fmt.Sprintf("metonymy: %q ambiguous, clarification pending", res.Pattern.Expression))
		default:
			parts = append(parts, fmt.Sprintf("metonymy: %q detected but unscorable", res.Pattern.Expression))
		}
	}

	if out.Scope != nil {
		switch {
		case out.Scope.Chosen != nil:
			parts = append(parts, fmt.Sprintf("scope: committed to %q at %.2f",
				out.Scope.Chosen.Reading, out.Scope.Confidence))
		case out.Scope.Resolved:
			parts = append(parts, "scope: already fully resolved")
		case out.Scope.Question != nil:
			parts = append(parts, "scope: too close to call, clarification pending")
		default:
			parts = append(parts, "scope: "+out.Scope.Explanation)
		}
	}

	if len(parts) == 0 {
		return "nothing to resolve: no triggers detected and no scope structure supplied"
	}
	return strings.Join(parts, "; ")
}
