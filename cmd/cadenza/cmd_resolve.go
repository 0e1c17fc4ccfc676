package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cadenza/internal/config"
	"cadenza/internal/ellipsis"
	"cadenza/internal/intent"
	"cadenza/internal/mrs"
	"cadenza/internal/pipeline"
	"cadenza/internal/store"
)

var (
	resolveContext     string
	resolveStrategy    string
	resolveGoalsFile   string
	resolveInteractive bool
	resolveNoSave      bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [utterance]",
	Short: "Resolve the meaning of one utterance",
	Long: `Runs ellipsis, metonymy, and scope resolution over an utterance and
prints what was decided, what was produced, and what still needs asking.

Prior-turn state comes from --goals; without it, anaphoric utterances
like "do that again" surface as unresolved. A scope structure is built
from the determiners in the utterance when the full pipeline would
normally supply one.

Examples:
  cadenza resolve "bring up the chorus"
  cadenza resolve "do that again" --goals last-turn.yaml
  cadenza resolve "make every track warmer in some way" --interactive`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveContext, "context", "", "Extra discourse text considered during disambiguation")
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "Scope ranking strategy (default from config)")
	resolveCmd.Flags().StringVar(&resolveGoalsFile, "goals", "", "YAML file with the prior turn's goals and antecedent")
	resolveCmd.Flags().BoolVarP(&resolveInteractive, "interactive", "i", false, "Answer clarification questions interactively")
	resolveCmd.Flags().BoolVar(&resolveNoSave, "no-save", false, "Skip persisting the graph and outcome")
}

func runResolve(cmd *cobra.Command, args []string) error {
	utterance := strings.Join(args, " ")

	strategy := cfg.Resolver.Strategy
	if resolveStrategy != "" {
		strategy = resolveStrategy
	}
	if !validStrategy(strategy) {
		return fmt.Errorf("invalid strategy: %s (valid: %v)", strategy, config.ValidStrategies)
	}

	reg, err := loadRegistry(cfg.Catalog.Dir)
	if err != nil {
		return err
	}

	r := pipeline.New(
		pipeline.WithTemplates(reg.EllipsisTemplates()),
		pipeline.WithPatterns(reg.MetonymyPatterns()),
		pipeline.WithScopeRules(reg.ScopeRules()),
		pipeline.WithStrategy(mrs.Strategy(strategy)),
		pipeline.WithLogger(logger),
	)

	req := pipeline.Request{
		Utterance: utterance,
		Context:   resolveContext,
		MRS:       demoMRS(utterance),
	}

	if resolveGoalsFile != "" {
		ant, goals, prior, err := loadDiscourse(resolveGoalsFile)
		if err != nil {
			return err
		}
		req.Antecedent = ant
		req.PriorGoals = goals
		req.Prior = prior
	}
	if req.Prior == nil && len(cfg.Resolver.WideScopePredicates) > 0 {
		req.Prior = &mrs.PriorContext{WideScopePredicates: cfg.Resolver.WideScopePredicates}
	}

	out := r.Resolve(req)

	if resolveInteractive {
		if err := clarifyOutcome(out); err != nil {
			return err
		}
	}

	fmt.Println(renderOutcome(out))

	if resolveNoSave {
		return nil
	}
	return persistOutcome(context.Background(), out)
}

func validStrategy(s string) bool {
	for _, v := range config.ValidStrategies {
		if s == v {
			return true
		}
	}
	return false
}

// ============================================================================
// DEMO SCOPE STRUCTURE
// ============================================================================

// scopeDeterminers are the determiner words the demo structure treats as
// scope-bearing.
var scopeDeterminers = map[string]bool{
	"every": true, "all": true, "each": true,
	"some": true, "most": true, "no": true,
	"the": true,
}

// nonReferents are words that follow a determiner without naming anything
// quantifiable, so no EP is built for them.
var nonReferents = map[string]bool{
	"again": true, "more": true, "less": true, "other": true,
	"same": true, "way": true, "one": true, "time": true,
}

// demoMRS builds a scope structure from the determiners present in the
// utterance. The surrounding compiler pipeline hands the resolver a real
// structure; the CLI fakes just enough of one to exercise scope ranking.
func demoMRS(utterance string) *mrs.MRS {
	words := strings.Fields(strings.ToLower(utterance))
	clean := func(w string) string { return strings.Trim(w, ".,!?;:\"'") }

	b := mrs.NewBuilder()
	added := 0
	for i, w := range words {
		det := clean(w)
		if !scopeDeterminers[det] || i+1 >= len(words) {
			continue
		}
		noun := clean(words[i+1])
		if noun == "" || nonReferents[noun] || scopeDeterminers[noun] {
			continue
		}
		h := b.NewHandle()
		b.AddEP(mrs.EP{
			Label:      h.ID,
			Predicate:  fmt.Sprintf("%s_q_%s", det, noun),
			SourceText: det + " " + noun,
		})
		added++
	}
	if added == 0 {
		return nil
	}
	return b.Build()
}

// ============================================================================
// DISCOURSE STATE FILE
// ============================================================================

// discourseFile is the YAML shape of --goals: the prior turn's state the
// caller threads into this resolution.
type discourseFile struct {
	Antecedent *struct {
		Kind        string   `yaml:"kind"`
		Description string   `yaml:"description"`
		MeaningIDs  []string `yaml:"meaning_ids"`
	} `yaml:"antecedent"`

	Goals []struct {
		ID        string   `yaml:"id"`
		Axis      string   `yaml:"axis"`
		Direction string   `yaml:"direction"`
		Amount    *float64 `yaml:"amount"`
		Section   string   `yaml:"section"`
		Track     string   `yaml:"track"`
	} `yaml:"goals"`

	WideScopePredicates []string `yaml:"wide_scope_predicates"`
}

func loadDiscourse(path string) (*ellipsis.Antecedent, []intent.Goal, *mrs.PriorContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read goals file: %w", err)
	}

	var df discourseFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse goals file: %w", err)
	}

	var ant *ellipsis.Antecedent
	if df.Antecedent != nil {
		kind := ellipsis.AntecedentKind(df.Antecedent.Kind)
		if kind == "" {
			kind = ellipsis.AntecedentLastAction
		}
		ant = &ellipsis.Antecedent{
			Kind:        kind,
			Description: df.Antecedent.Description,
			MeaningIDs:  df.Antecedent.MeaningIDs,
		}
	}

	goals := make([]intent.Goal, 0, len(df.Goals))
	for i, g := range df.Goals {
		goal := intent.Goal{
			ID:        g.ID,
			Axis:      g.Axis,
			Direction: intent.Direction(g.Direction),
		}
		if goal.ID == "" {
			goal.ID = fmt.Sprintf("prior-goal-%d", i+1)
		}
		if g.Amount != nil {
			goal.Target = &intent.Amount{Kind: intent.AmountRelative, Value: g.Amount}
		}
		switch {
		case g.Section != "":
			goal.Scope = &intent.Scope{Kind: "section", Section: g.Section}
		case g.Track != "":
			goal.Scope = &intent.Scope{Kind: "track", Track: g.Track}
		}
		goals = append(goals, goal)
	}

	var prior *mrs.PriorContext
	if len(df.WideScopePredicates) > 0 {
		prior = &mrs.PriorContext{WideScopePredicates: df.WideScopePredicates}
	}

	return ant, goals, prior, nil
}

// ============================================================================
// CLARIFICATION FEEDBACK
// ============================================================================

// clarifyOutcome walks the outcome's holes, asks each one, and folds the
// answers back into the outcome. Skipped holes stay open.
func clarifyOutcome(out *pipeline.Outcome) error {
	remaining := make([]intent.Hole, 0, len(out.Holes))
	for _, hole := range out.Holes {
		choice, err := runClarify(hole)
		if err != nil {
			return err
		}
		if choice == "" {
			remaining = append(remaining, hole)
			continue
		}
		applyChoice(out, hole, choice)
		out.Explanation += fmt.Sprintf("; clarified %s as %s", hole.ID, choice)
	}
	out.Holes = remaining
	return nil
}

// applyChoice commits the user's answer to whichever mechanism asked.
func applyChoice(out *pipeline.Outcome, hole intent.Hole, choice string) {
	switch hole.Kind {
	case intent.HoleAmbiguousScoping:
		if out.Scope == nil {
			return
		}
		for i := range out.Scope.Candidates {
			if out.Scope.Candidates[i].ID != choice {
				continue
			}
			chosen := out.Scope.Candidates[i]
			out.Scope.Chosen = &chosen
			out.Scope.Resolved = true
			out.Scope.Confidence = chosen.Plausibility
			out.Scope.Question = nil
			out.Scope.Explanation = fmt.Sprintf("user selected reading %q", chosen.Reading)
			return
		}

	case intent.HoleAmbiguousReference:
		for i := range out.Metonymy {
			res := &out.Metonymy[i]
			if res.Hole == nil || res.Hole.ID != hole.ID {
				continue
			}
			for _, sc := range res.Ranked {
				if sc.Candidate.ID != choice {
					continue
				}
				cand := sc.Candidate
				res.Chosen = &cand
				res.Resolved = true
				res.Hole = nil
				res.Explanation = fmt.Sprintf("user selected %s", cand.ID)
				return
			}
			return
		}
	}
}

// ============================================================================
// RENDERING & PERSISTENCE
// ============================================================================

func renderOutcome(out *pipeline.Outcome) string {
	s := NewStyles()
	var sb strings.Builder

	sb.WriteString(s.Title.Render("cadenza") + "  " + s.Muted.Render(out.ID) + "\n")
	sb.WriteString(s.Label.Render("utterance  ") + out.Utterance + "\n")

	if len(out.Goals) > 0 {
		sb.WriteString(s.Section.Render("goals") + "\n")
		for _, g := range out.Goals {
			renderGoal(&sb, s, g, "  ")
		}
	}

	if out.Scope != nil {
		sb.WriteString(s.Section.Render("scope") + "\n")
		switch {
		case out.Scope.Chosen != nil:
			sb.WriteString("  " + s.Success.Render(out.Scope.Chosen.Reading) +
				s.Muted.Render(fmt.Sprintf("  confidence %.2f", out.Scope.Confidence)) + "\n")
		case out.Scope.Resolved:
			sb.WriteString("  " + s.Muted.Render("single reading, nothing to rank") + "\n")
		case out.Scope.Question != nil:
			sb.WriteString("  " + s.Warning.Render(out.Scope.Question.Question) + "\n")
			for _, opt := range out.Scope.Question.Options {
				sb.WriteString(s.Muted.Render(fmt.Sprintf("    %s  %s (%.0f%%)",
					opt.ID, opt.Reading, opt.Plausibility*100)) + "\n")
			}
		default:
			sb.WriteString("  " + s.Muted.Render(out.Scope.Explanation) + "\n")
		}
	}

	for _, res := range out.Metonymy {
		sb.WriteString(s.Section.Render("metonymy") + "\n")
		switch {
		case res.Resolved && res.Chosen != nil:
			sb.WriteString(fmt.Sprintf("  %q %s %s\n", res.Pattern.Expression,
				s.Muted.Render("read as"), s.Success.Render(res.Chosen.ID)))
		case res.Hole != nil:
			sb.WriteString(fmt.Sprintf("  %q %s\n", res.Pattern.Expression,
				s.Warning.Render("is ambiguous")))
		}
	}

	if len(out.Holes) > 0 {
		sb.WriteString(s.Section.Render("open questions") + "\n")
		for _, hole := range out.Holes {
			sb.WriteString("  " + s.Warning.Render(hole.Question) +
				s.Muted.Render(fmt.Sprintf("  [%s]", hole.Priority)) + "\n")
			for _, opt := range hole.Options {
				sb.WriteString(s.Muted.Render(fmt.Sprintf("    %s  %s (%.0f%%)",
					opt.ID, opt.Label, opt.Score*100)) + "\n")
			}
		}
	}

	sb.WriteString(s.Section.Render("summary") + "\n")
	sb.WriteString("  " + out.Explanation + "\n")
	sb.WriteString(s.Muted.Render(fmt.Sprintf("\ngraph: %d nodes, %d edges  (cadenza explain <meaning-id> --graph %s)",
		len(out.Graph.Nodes), len(out.Graph.Edges), out.ID)))

	return sb.String()
}

func renderGoal(sb *strings.Builder, s Styles, g intent.Goal, indent string) {
	line := indent + s.Value.Render(g.ID) + "  " + string(g.Direction) + " " + g.Axis
	if g.Target != nil && g.Target.Value != nil {
		line += fmt.Sprintf(" by %g", *g.Target.Value)
	}
	if g.Target != nil && g.Target.Qualifier != "" {
		line += " " + g.Target.Qualifier
	}
	if g.Scope != nil {
		switch {
		case g.Scope.Section != "":
			line += s.Muted.Render(" in " + g.Scope.Section)
		case g.Scope.Track != "":
			line += s.Muted.Render(" on " + g.Scope.Track)
		}
	}
	sb.WriteString(line + "\n")
	for _, sg := range g.Subgoals {
		renderGoal(sb, s, sg, indent+"  ")
	}
}

func persistOutcome(ctx context.Context, out *pipeline.Outcome) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveGraph(ctx, out.ID, out.Graph); err != nil {
		return err
	}

	rec := &store.OutcomeRecord{
		ID:          out.ID,
		GraphID:     out.ID,
		Utterance:   out.Utterance,
		Holes:       out.Holes,
		Explanation: out.Explanation,
	}
	if out.Scope != nil && out.Scope.Chosen != nil {
		rec.ResolvedScope = out.Scope.Chosen.Reading
		rec.ScopeConf = out.Scope.Confidence
	}
	if err := st.SaveOutcome(ctx, rec); err != nil {
		return err
	}

	if cfg.Store.RetentionDays > 0 {
		if removed, err := st.CleanupOldGraphs(ctx, cfg.Store.RetentionDays); err != nil {
			logger.Warn("retention cleanup failed", zap.Error(err))
		} else if removed > 0 {
			logger.Debug("retention cleanup removed graphs", zap.Int64("removed", removed))
		}
	}

	logger.Info("outcome persisted",
		zap.String("id", out.ID),
		zap.String("db", st.Path()))
	return nil
}
