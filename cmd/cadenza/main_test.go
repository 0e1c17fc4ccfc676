package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"cadenza/internal/ellipsis"
	"cadenza/internal/intent"
	"cadenza/internal/metonymy"
	"cadenza/internal/mrs"
	"cadenza/internal/pipeline"
	"cadenza/internal/provenance"
)

func TestDemoMRSBuildsQuantifierEPs(t *testing.T) {
	m := demoMRS("make every track sit behind some vocal")
	if m == nil {
		t.Fatal("expected a scope structure for two determiners")
	}
	quants := m.QuantifierEPs()
	if len(quants) != 2 {
		t.Fatalf("expected 2 quantifier EPs, got %d", len(quants))
	}
	if quants[0].Predicate != "every_q_track" {
		t.Errorf("expected every_q_track, got %s", quants[0].Predicate)
	}
	if quants[1].Predicate != "some_q_vocal" {
		t.Errorf("expected some_q_vocal, got %s", quants[1].Predicate)
	}
	if m.FullyResolved {
		t.Error("two quantifiers should leave the structure unresolved")
	}
}

func TestDemoMRSSingleDefinite(t *testing.T) {
	m := demoMRS("bring up the chorus")
	if m == nil {
		t.Fatal("expected a scope structure")
	}
	if !m.FullyResolved {
		t.Error("one quantifier should be trivially resolved")
	}
}

func TestDemoMRSSkipsNonReferents(t *testing.T) {
	if m := demoMRS("do that again"); m != nil {
		t.Errorf("expected no structure, got %d EPs", len(m.EPs))
	}
	if m := demoMRS("the same but gentler"); m != nil {
		t.Errorf("expected no structure for determiner + non-referent, got %d EPs", len(m.EPs))
	}
	if m := demoMRS("gentle fade please"); m != nil {
		t.Errorf("expected no structure without determiners, got %d EPs", len(m.EPs))
	}
}

func TestLoadDiscourse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last-turn.yaml")
	content := `antecedent:
  description: brighten the guitar
  meaning_ids: [turn1-goal-1]
goals:
  - id: goal-1
    axis: brightness
    direction: increase
    amount: 2
    section: chorus
  - axis: warmth
    direction: decrease
wide_scope_predicates: [every_q_track]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ant, goals, prior, err := loadDiscourse(path)
	if err != nil {
		t.Fatalf("loadDiscourse: %v", err)
	}

	if ant == nil || ant.Kind != ellipsis.AntecedentLastAction {
		t.Fatalf("expected antecedent kind defaulted to last-action, got %+v", ant)
	}
	if len(ant.MeaningIDs) != 1 || ant.MeaningIDs[0] != "turn1-goal-1" {
		t.Errorf("unexpected meaning ids: %v", ant.MeaningIDs)
	}

	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(goals))
	}
	if goals[0].ID != "goal-1" || goals[0].Direction != intent.DirectionIncrease {
		t.Errorf("unexpected first goal: %+v", goals[0])
	}
	if goals[0].Target == nil || goals[0].Target.Value == nil || *goals[0].Target.Value != 2 {
		t.Errorf("expected relative amount 2, got %+v", goals[0].Target)
	}
	if goals[0].Scope == nil || goals[0].Scope.Section != "chorus" {
		t.Errorf("expected section scope, got %+v", goals[0].Scope)
	}
	if goals[1].ID != "prior-goal-2" {
		t.Errorf("expected generated id prior-goal-2, got %s", goals[1].ID)
	}

	if prior == nil || len(prior.WideScopePredicates) != 1 {
		t.Errorf("expected prior context with one predicate, got %+v", prior)
	}
}

func TestLoadDiscourseMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("goals: [not: a: goal"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, _, err := loadDiscourse(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyChoiceScope(t *testing.T) {
	out := &pipeline.Outcome{
		Scope: &mrs.Result{
			Candidates: []mrs.ScopeAssignment{
				{ID: "scoping-1", Reading: "every_q > some_q", Plausibility: 0.66},
				{ID: "scoping-2", Reading: "some_q > every_q", Plausibility: 0.5},
			},
			Question: &mrs.ClarificationQuestion{Question: "Which reading?"},
		},
	}
	hole := intent.Hole{ID: "hole-scope", Kind: intent.HoleAmbiguousScoping}

	applyChoice(out, hole, "scoping-2")

	if out.Scope.Chosen == nil || out.Scope.Chosen.ID != "scoping-2" {
		t.Fatalf("expected scoping-2 chosen, got %+v", out.Scope.Chosen)
	}
	if !out.Scope.Resolved {
		t.Error("expected scope marked resolved")
	}
	if out.Scope.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", out.Scope.Confidence)
	}
	if out.Scope.Question != nil {
		t.Error("expected question cleared")
	}
}

func TestApplyChoiceMetonymy(t *testing.T) {
	out := &pipeline.Outcome{
		Metonymy: []metonymy.Resolution{{
			Hole: &intent.Hole{ID: "hole-chorus", Kind: intent.HoleAmbiguousReference},
			Ranked: []metonymy.ScoredCandidate{
				{Candidate: metonymy.Candidate{ID: "chorus-section"}, Score: 0.55},
				{Candidate: metonymy.Candidate{ID: "chorus-mix"}, Score: 0.45},
			},
		}},
	}
	hole := intent.Hole{ID: "hole-chorus", Kind: intent.HoleAmbiguousReference}

	applyChoice(out, hole, "chorus-mix")

	res := out.Metonymy[0]
	if res.Chosen == nil || res.Chosen.ID != "chorus-mix" {
		t.Fatalf("expected chorus-mix chosen, got %+v", res.Chosen)
	}
	if !res.Resolved {
		t.Error("expected resolution marked resolved")
	}
	if res.Hole != nil {
		t.Error("expected hole cleared")
	}
}

func TestClarifyModelSelection(t *testing.T) {
	hole := intent.Hole{
		ID:       "hole-chorus",
		Question: "Which chorus?",
		Options: []intent.HoleOption{
			{ID: "chorus-section", Label: "the chorus section", Score: 0.55},
			{ID: "chorus-mix", Label: "the chorus level in the mix", Score: 0.45},
		},
	}

	m := newClarifyModel(hole)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.(clarifyModel).Update(tea.KeyMsg{Type: tea.KeyEnter})

	final := next.(clarifyModel)
	if final.choice != "chorus-mix" {
		t.Errorf("expected chorus-mix selected, got %q", final.choice)
	}
	if !final.done {
		t.Error("expected model done after enter")
	}
}

func TestClarifyModelSkip(t *testing.T) {
	hole := intent.Hole{
		ID:       "hole-chorus",
		Question: "Which chorus?",
		Options:  []intent.HoleOption{{ID: "chorus-section", Label: "the chorus section"}},
	}

	m := newClarifyModel(hole)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	final := next.(clarifyModel)
	if final.choice != "" {
		t.Errorf("expected no choice on escape, got %q", final.choice)
	}
	if !final.done {
		t.Error("expected model done after escape")
	}
}

func TestRenderOutcomeSections(t *testing.T) {
	out := pipeline.New().Resolve(pipeline.Request{
		Utterance: "bring up the chorus",
		MRS:       demoMRS("bring up the chorus"),
	})

	text := renderOutcome(out)
	for _, want := range []string{"bring up the chorus", "metonymy", "chorus-section", "summary", out.ID} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered outcome missing %q", want)
		}
	}
}

func TestExplainMarkdown(t *testing.T) {
	b := provenance.NewBuilder("warm up the chorus")
	lex := b.AddLexicalProvenance("chorus", provenance.Span{Start: 12, End: 18}, "sec-1", "section", "lex-chorus", 0.95)
	b.AddCompositionProvenance([]string{lex}, "goal-1", "goal", "rule-7", "section scope", 0.9)
	g := b.Build()

	md := explainMarkdown(g, "goal-1")
	for _, want := range []string{"# Provenance of `goal-1`", "warm up the chorus", "## Causal chain", "| node |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	missing := explainMarkdown(g, "nope")
	if !strings.Contains(missing, "No provenance recorded") {
		t.Errorf("expected missing-id notice, got: %s", missing)
	}
}

func TestValidStrategy(t *testing.T) {
	if !validStrategy("pragmatic-bias") {
		t.Error("pragmatic-bias should be valid")
	}
	if validStrategy("coin-flip") {
		t.Error("coin-flip should be invalid")
	}
}
